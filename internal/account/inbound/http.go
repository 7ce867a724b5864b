package inbound

import (
	"github.com/shandysiswandi/bgvotp/internal/pkg/router"
)

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.GET("/api/v1/account/profile", end.Profile)
}
