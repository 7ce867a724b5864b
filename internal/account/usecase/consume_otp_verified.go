package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/bgvotp/internal/pkg/goerror"
)

type ConsumeOTPVerifiedInput struct {
	TokenID    int64     `validate:"required,gt=0"`
	UserID     int64     `validate:"omitempty,gt=0"`
	Phone      string    `validate:"required,phone"`
	Purpose    string    `validate:"required,oneof=login account_setup"`
	Email      string    `validate:"omitempty,email"`
	VerifiedAt time.Time `validate:"required"`
}

// ConsumeOTPVerified records what a verified code means for the account. Only
// store failures are returned, so the broker can redeliver.
func (s *Usecase) ConsumeOTPVerified(ctx context.Context, in ConsumeOTPVerifiedInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeOTPVerified")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "token_id", in.TokenID, "error", err)
		return nil
	}

	if in.Purpose == "login" {
		return s.recordLogin(ctx, in)
	}

	return s.recordPhoneVerified(ctx, in)
}

func (s *Usecase) recordLogin(ctx context.Context, in ConsumeOTPVerifiedInput) error {
	if in.UserID == 0 {
		slog.WarnContext(ctx, "login verification without account", "token_id", in.TokenID)
		return nil
	}

	err := s.repoDB.TouchLastLogin(ctx, in.UserID, in.VerifiedAt)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "account for login verification not found", "user_id", in.UserID)
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo touch last login", "user_id", in.UserID, "error", err)
		return err
	}

	return nil
}

func (s *Usecase) recordPhoneVerified(ctx context.Context, in ConsumeOTPVerifiedInput) error {
	pv, err := s.repoDB.MarkPhoneVerified(ctx, in.Phone, in.VerifiedAt)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "account for phone verification not found", "phone", in.Phone, "token_id", in.TokenID)
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo mark phone verified", "phone", in.Phone, "error", err)
		return err
	}

	if !pv.FirstTime {
		slog.InfoContext(ctx, "phone already verified", "account_id", pv.AccountID)
		return nil
	}

	to := in.Email
	if to == "" {
		to = pv.Email
	}
	if to == "" {
		return nil
	}

	s.sendPhoneVerifiedEmail(ctx, phoneVerifiedEmail{
		AccountID:  pv.AccountID,
		To:         to,
		FullName:   pv.FullName,
		Phone:      in.Phone,
		VerifiedAt: in.VerifiedAt,
	})

	return nil
}
