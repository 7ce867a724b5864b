package inbound

import (
	"github.com/shandysiswandi/bgvotp/internal/pkg/router"
)

type HTTPEndpoint struct {
	uc uc
}

func (h *HTTPEndpoint) Profile(r *router.Request) (any, error) {
	resp, err := h.uc.Profile(r.Context())
	if err != nil {
		return nil, err
	}

	return ProfileResponse{
		ID:              resp.ID,
		PhoneNumber:     resp.PhoneNumber,
		Email:           resp.Email,
		FullName:        resp.FullName,
		Role:            resp.Role,
		PhoneVerifiedAt: resp.PhoneVerifiedAt,
		LastLoginAt:     resp.LastLoginAt,
	}, nil
}
