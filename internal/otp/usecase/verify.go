package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/bgvotp/internal/otp/entity"
	"github.com/shandysiswandi/bgvotp/internal/pkg/goerror"
)

type VerifyOTPInput struct {
	PhoneNumber string `validate:"required,phone"`
	OTPCode     string `validate:"required,otp"`
	Purpose     string `validate:"required,oneof=login account_setup"`
}

// VerifyOTPOutput is either *LoginVerified or *AccountSetupVerified.
type VerifyOTPOutput interface {
	verified()
}

type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

type LoginVerified struct {
	UserID  int64
	Role    string
	Email   string
	Session Session
}

type AccountSetupVerified struct {
	UserID int64 // zero when the setup flow did not name an account
}

func (*LoginVerified) verified()        {}
func (*AccountSetupVerified) verified() {}

func errInvalidCode() error {
	return goerror.NewBusiness("Invalid OTP code", goerror.CodeBadRequest)
}

func errExpired() error {
	return goerror.NewBusiness("OTP has expired. Please request a new one.", goerror.CodeBadRequest)
}

func errAttemptsExhausted() error {
	return goerror.NewBusiness("Maximum verification attempts exceeded. Please request a new OTP.", goerror.CodeBadRequest)
}

func (s *Usecase) VerifyOTP(ctx context.Context, in VerifyOTPInput) (VerifyOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyOTP")
	defer span.End()

	in.PhoneNumber = NormalizePhone(in.PhoneNumber)
	in.OTPCode = strings.TrimSpace(in.OTPCode)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	purpose := entity.PurposeFromString(in.Purpose)

	// Wrong purpose, consumed and superseded tokens all read as an invalid code.
	tok, err := s.repoDB.GetActiveToken(ctx, in.PhoneNumber, purpose)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "active otp token not found", "phone", in.PhoneNumber, "purpose", purpose.String())
		s.count(ctx, s.rejectedCounter, purpose, "invalid_code")
		return nil, errInvalidCode()
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get active token", "phone", in.PhoneNumber, "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()

	if tok.IsExpired(now) {
		slog.WarnContext(ctx, "otp token expired", "token_id", tok.ID)
		s.count(ctx, s.rejectedCounter, purpose, "expired")
		return nil, errExpired()
	}

	if tok.IsExhausted() {
		slog.WarnContext(ctx, "otp token attempts exhausted", "token_id", tok.ID)
		s.count(ctx, s.rejectedCounter, purpose, "attempts_exhausted")
		return nil, errAttemptsExhausted()
	}

	if !s.codeHash.Verify(tok.CodeHash, in.OTPCode) {
		return nil, s.rejectWrongCode(ctx, tok)
	}

	// The session is minted before the token is consumed so a failed session
	// leaves the code usable for a retry.
	var login *LoginVerified
	if purpose == entity.PurposeLogin {
		login, err = s.establishSession(ctx, tok.UserID)
		if err != nil {
			return nil, err
		}
	}

	err = s.repoDB.ConsumeToken(ctx, tok.ID, now)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "otp token no longer consumable", "token_id", tok.ID)
		s.discardSession(ctx, login)
		s.count(ctx, s.rejectedCounter, purpose, "invalid_code")
		return nil, errInvalidCode()
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo consume token", "token_id", tok.ID, "error", err)
		s.discardSession(ctx, login)
		return nil, goerror.NewServer(err)
	}
	s.count(ctx, s.verifiedCounter, purpose, "")

	s.publishVerified(ctx, OTPVerifiedEvent{
		TokenID:    tok.ID,
		UserID:     tok.UserID,
		Phone:      tok.PhoneNumber,
		Purpose:    tok.Purpose,
		Email:      tok.Email,
		VerifiedAt: now,
	})

	if login != nil {
		return login, nil
	}
	return &AccountSetupVerified{UserID: tok.UserID}, nil
}

func (s *Usecase) rejectWrongCode(ctx context.Context, tok *entity.Token) error {
	res, err := s.repoDB.RecordFailedAttempt(ctx, tok.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "otp token changed before attempt was recorded", "token_id", tok.ID)
		s.count(ctx, s.rejectedCounter, tok.Purpose, "invalid_code")
		return errInvalidCode()
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo record failed attempt", "token_id", tok.ID, "error", err)
		return goerror.NewServer(err)
	}

	if res.Exhausted() {
		slog.WarnContext(ctx, "otp token attempts exhausted", "token_id", tok.ID, "attempt_count", res.AttemptCount)
		s.count(ctx, s.rejectedCounter, tok.Purpose, "attempts_exhausted")
		return errAttemptsExhausted()
	}

	slog.WarnContext(ctx, "otp code mismatch", "token_id", tok.ID, "attempt_count", res.AttemptCount)
	s.count(ctx, s.rejectedCounter, tok.Purpose, "invalid_code")
	return errInvalidCode()
}

// publishVerified hands the event to the goroutine manager so the response does
// not wait on the broker. Failures are logged only.
func (s *Usecase) publishVerified(ctx context.Context, ev OTPVerifiedEvent) {
	s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		if err := s.repoMessaging.PublishOTPVerified(ctx, ev); err != nil {
			slog.ErrorContext(ctx, "failed to publish otp verified", "token_id", ev.TokenID, "error", err)
		}
		return nil
	})
}
