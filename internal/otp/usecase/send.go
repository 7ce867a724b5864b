package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/bgvotp/internal/otp/entity"
	"github.com/shandysiswandi/bgvotp/internal/pkg/goerror"
	"github.com/shandysiswandi/bgvotp/internal/pkg/instrument"
	"github.com/shandysiswandi/bgvotp/internal/pkg/valueobject"
)

type SendOTPInput struct {
	PhoneNumber string `validate:"required,phone"`
	Purpose     string `validate:"required,oneof=login account_setup"`
	Email       string `validate:"omitempty,email"`
	UserID      int64  `validate:"omitempty,gt=0"`
	IP          string
	UserAgent   string
}

type SendOTPOutput struct {
	ExpiresIn time.Duration
}

// NormalizePhone strips the separators people type into phone numbers.
func NormalizePhone(raw string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '(', ')':
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(raw))
}

func (s *Usecase) SendOTP(ctx context.Context, in SendOTPInput) (*SendOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "SendOTP")
	defer span.End()

	in.PhoneNumber = NormalizePhone(in.PhoneNumber)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	return s.issue(ctx, issueRequest{
		phone:         in.PhoneNumber,
		purpose:       entity.PurposeFromString(in.Purpose),
		email:         in.Email,
		userID:        in.UserID,
		ip:            in.IP,
		userAgent:     in.UserAgent,
		via:           "send",
		limit:         s.issueLimit(),
		revealUnknown: s.cfg.GetBool("modules.otp.reveal_unknown_account"),
	})
}

func (s *Usecase) issueLimit() entity.IssueLimit {
	return entity.IssueLimit{
		Max:    s.cfg.GetInt("modules.otp.rate_limit.max"),
		Window: s.cfg.GetSecond("modules.otp.rate_limit.window_seconds"),
	}
}

type issueRequest struct {
	phone         string
	purpose       entity.Purpose
	email         string
	userID        int64
	ip            string
	userAgent     string
	via           string
	limit         entity.IssueLimit
	revealUnknown bool
}

// issue is shared by send and resend. It persists a fresh token, superseding the
// previous one, and texts the code.
func (s *Usecase) issue(ctx context.Context, req issueRequest) (*SendOTPOutput, error) {
	ttl := s.cfg.GetSecond("modules.otp.ttl_seconds")
	out := &SendOTPOutput{ExpiresIn: ttl}

	if req.purpose == entity.PurposeLogin {
		acc, err := s.repoDB.GetAccountByPhone(ctx, req.phone)
		if err != nil && !errors.Is(err, goerror.ErrNotFound) {
			slog.ErrorContext(ctx, "failed to repo get account by phone", "phone", req.phone, "error", err)
			return nil, goerror.NewServer(err)
		}
		if err != nil || !acc.IsActive {
			slog.WarnContext(ctx, "otp requested for unknown or inactive account", "phone", req.phone, "via", req.via)
			s.count(ctx, s.rejectedCounter, req.purpose, "unknown_account")
			if req.revealUnknown {
				return nil, goerror.NewBusiness("user not found", goerror.CodeNotFound)
			}

			return out, nil
		}

		req.userID = acc.ID
		req.email = acc.Email
	}

	code, err := s.code.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp code", "error", err)
		return nil, goerror.NewServer(err)
	}

	codeHash, err := s.codeHash.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp code", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	tok := entity.Token{
		ID:          s.uid.Generate(),
		PhoneNumber: req.phone,
		CodeHash:    string(codeHash),
		Purpose:     req.purpose,
		UserID:      req.userID,
		Email:       req.email,
		Status:      entity.TokenStatusActive,
		MaxAttempts: int32(s.cfg.GetInt("modules.otp.max_attempts")),
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
		Metadata: valueobject.JSONMap{
			"ip":             req.ip,
			"user_agent":     req.userAgent,
			"correlation_id": instrument.GetCorrelationID(ctx),
			"issued_via":     req.via,
		},
	}

	err = s.repoDB.IssueToken(ctx, tok, req.limit)
	if errors.Is(err, entity.ErrIssueRateLimited) {
		slog.WarnContext(ctx, "otp issue rate limited", "phone", req.phone, "max", req.limit.Max, "window", req.limit.Window.String())
		s.count(ctx, s.rejectedCounter, req.purpose, "rate_limited")
		return nil, goerror.NewTooManyRequest(
			"Too many OTP requests. Please try again later.",
			s.cfg.GetSecond("modules.otp.rate_limit.retry_after_seconds"),
		)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo issue token", "phone", req.phone, "purpose", req.purpose.String(), "error", err)
		return nil, goerror.NewServer(err)
	}
	s.count(ctx, s.issuedCounter, req.purpose, "")

	if err := s.repoGateway.SendSMS(ctx, tok.PhoneNumber, s.buildMessage(req.purpose, tok.PhoneNumber, code, ttl)); err != nil {
		slog.ErrorContext(ctx, "failed to deliver otp", "token_id", tok.ID, "phone", tok.PhoneNumber, "error", err)
		s.count(ctx, s.rejectedCounter, req.purpose, "delivery_failed")
		return nil, goerror.NewDeliveryFailed(err)
	}

	return out, nil
}
