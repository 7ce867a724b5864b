package inbound

import (
	"context"

	"github.com/shandysiswandi/bgvotp/internal/account/usecase"
)

type ucConsumer interface {
	ConsumeOTPVerified(ctx context.Context, in usecase.ConsumeOTPVerifiedInput) error
}

type uc interface {
	ucConsumer

	Profile(ctx context.Context) (*usecase.ProfileOutput, error)
}
