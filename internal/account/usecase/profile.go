package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/bgvotp/internal/pkg/goerror"
	"github.com/shandysiswandi/bgvotp/internal/shared/constant"
)

type ProfileOutput struct {
	ID              int64
	PhoneNumber     string
	Email           string
	FullName        string
	Role            string
	PhoneVerifiedAt *time.Time
	LastLoginAt     *time.Time
}

func (s *Usecase) Profile(ctx context.Context) (*ProfileOutput, error) {
	ctx, span := s.startSpan(ctx, "Profile")
	defer span.End()

	clm, err := s.authenticatedAndAuthorized(ctx, constant.PermAccountProfile, constant.PermActRead)
	if err != nil {
		return nil, err
	}

	acc, err := s.repoDB.GetAccountByID(ctx, clm.UserID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "account not found", "user_id", clm.UserID)
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get account by id", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !acc.IsActive {
		slog.WarnContext(ctx, "account is inactive", "user_id", acc.ID)
		return nil, goerror.NewBusiness("Account is inactive", goerror.CodeForbidden)
	}

	return &ProfileOutput{
		ID:              acc.ID,
		PhoneNumber:     acc.PhoneNumber,
		Email:           acc.Email,
		FullName:        acc.FullName,
		Role:            acc.Role,
		PhoneVerifiedAt: acc.PhoneVerifiedAt,
		LastLoginAt:     acc.LastLoginAt,
	}, nil
}
