package usecase

import (
	"context"
	"strings"

	"github.com/shandysiswandi/bgvotp/internal/otp/entity"
	"github.com/shandysiswandi/bgvotp/internal/pkg/goerror"
)

type ResendOTPInput struct {
	PhoneNumber string `validate:"required,phone"`
	Purpose     string `validate:"required,oneof=login account_setup"`
	Email       string `validate:"omitempty,email"`
	UserID      int64  `validate:"omitempty,gt=0"`
	IP          string
	UserAgent   string
}

// ResendOTP reissues a code without the issue rate limit. Callers are expected
// to enforce their own cooldown.
func (s *Usecase) ResendOTP(ctx context.Context, in ResendOTPInput) (*SendOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "ResendOTP")
	defer span.End()

	in.PhoneNumber = NormalizePhone(in.PhoneNumber)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	return s.issue(ctx, issueRequest{
		phone:     in.PhoneNumber,
		purpose:   entity.PurposeFromString(in.Purpose),
		email:     in.Email,
		userID:    in.UserID,
		ip:        in.IP,
		userAgent: in.UserAgent,
		via:       "resend",
		limit:     entity.IssueLimit{},
	})
}
