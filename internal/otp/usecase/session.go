package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/bgvotp/internal/otp/entity"
	"github.com/shandysiswandi/bgvotp/internal/pkg/goerror"
)

const sessionFailedMsg = "Session creation failed. Please try again."

// establishSession resolves the verified account and mints an access and
// refresh token pair for it.
func (s *Usecase) establishSession(ctx context.Context, userID int64) (*LoginVerified, error) {
	acc, err := s.repoDB.GetAccountByID(ctx, userID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "account for verified login not found", "user_id", userID)
		return nil, goerror.NewBusiness("user not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get account by id", "user_id", userID, "error", err)
		return nil, goerror.NewUnavailable(sessionFailedMsg, err)
	}

	if !acc.IsActive {
		slog.WarnContext(ctx, "account for verified login is inactive", "user_id", userID)
		return nil, goerror.NewBusiness("Account is inactive", goerror.CodeForbidden)
	}

	sess, err := s.mintSession(ctx, acc.ID, acc.Email, acc.Role)
	if err != nil {
		return nil, goerror.NewUnavailable(sessionFailedMsg, err)
	}

	return &LoginVerified{
		UserID:  acc.ID,
		Role:    acc.Role,
		Email:   acc.Email,
		Session: *sess,
	}, nil
}

func (s *Usecase) mintSession(ctx context.Context, userID int64, email, role string) (*Session, error) {
	accessToken, err := s.jwt.Generate(userID, email, role)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate access jwt token", "user_id", userID, "error", err)
		return nil, err
	}

	refreshToken := s.oid.Generate()
	refreshTokenHash, err := s.hmac.Hash(refreshToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash refresh token", "error", err)
		return nil, err
	}

	if err := s.repoDB.CreateRefreshToken(ctx, entity.RefreshToken{
		ID:        s.uid.Generate(),
		UserID:    userID,
		Token:     string(refreshTokenHash),
		ExpiresAt: s.clock.Now().Add(s.cfg.GetDay("modules.otp.refresh_token_ttl_days")),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo create refresh token", "user_id", userID, "error", err)
		return nil, err
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.jwt.TTL(),
	}, nil
}

// discardSession revokes the refresh token of a session that lost the race
// to consume its OTP. The access token is left to expire.
func (s *Usecase) discardSession(ctx context.Context, login *LoginVerified) {
	if login == nil {
		return
	}

	refreshTokenHash, err := s.hmac.Hash(login.Session.RefreshToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash discarded refresh token", "error", err)
		return
	}

	if err := s.repoDB.RevokeRefreshToken(ctx, string(refreshTokenHash)); err != nil {
		slog.ErrorContext(ctx, "failed to repo revoke discarded refresh token", "user_id", login.UserID, "error", err)
	}
}

type RefreshSessionInput struct {
	RefreshToken string `validate:"required"`
}

func (s *Usecase) RefreshSession(ctx context.Context, in RefreshSessionInput) (*Session, error) {
	ctx, span := s.startSpan(ctx, "RefreshSession")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	oldRefreshTokenHash, err := s.hmac.Hash(in.RefreshToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash old refresh token", "error", err)
		return nil, goerror.NewServer(err)
	}

	rt, err := s.repoDB.GetAccountRefreshToken(ctx, string(oldRefreshTokenHash))
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "refresh token not found")
		return nil, goerror.NewBusiness("invalid or expired refresh token", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get account refresh token", "error", err)
		return nil, goerror.NewServer(err)
	}

	if rt.RefreshRevoked {
		// A rotated token coming back means it leaked. Every session of the
		// account is revoked.
		if rt.RefreshReplacedByTokenID != nil {
			if err := s.repoDB.RevokeAllRefreshToken(ctx, rt.AccountID); err != nil {
				slog.ErrorContext(ctx, "failed to repo revoke all refresh token", "user_id", rt.AccountID, "error", err)
			}

			slog.WarnContext(ctx, "SECURITY: refresh token reuse detected", "user_id", rt.AccountID)
			return nil, goerror.NewBusiness("token reuse detected, please log in again", goerror.CodeForbidden)
		}

		slog.WarnContext(ctx, "refresh token is revoked", "refresh_token_id", rt.RefreshID)
		return nil, goerror.NewBusiness("invalid or expired refresh token", goerror.CodeUnauthorized)
	}

	if s.clock.Now().After(rt.RefreshExpiresAt) {
		slog.WarnContext(ctx, "refresh token is expired", "refresh_token_id", rt.RefreshID)
		return nil, goerror.NewBusiness("invalid or expired refresh token", goerror.CodeUnauthorized)
	}

	if !rt.AccountIsActive {
		slog.WarnContext(ctx, "account is inactive", "user_id", rt.AccountID)
		return nil, goerror.NewBusiness("Account is inactive", goerror.CodeForbidden)
	}

	newRefreshToken := s.oid.Generate()
	newRefreshTokenHash, err := s.hmac.Hash(newRefreshToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash new refresh token", "error", err)
		return nil, goerror.NewServer(err)
	}

	accessToken, err := s.jwt.Generate(rt.AccountID, rt.AccountEmail, rt.AccountRole)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate access jwt token", "user_id", rt.AccountID, "error", err)
		return nil, goerror.NewUnavailable(sessionFailedMsg, err)
	}

	err = s.repoDB.RotateRefreshToken(ctx, entity.RotateRefreshToken{
		NewID:        s.uid.Generate(),
		OldID:        rt.RefreshID,
		UserID:       rt.AccountID,
		NewToken:     string(newRefreshTokenHash),
		NewExpiresAt: s.clock.Now().Add(s.cfg.GetDay("modules.otp.refresh_token_ttl_days")),
	})
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "refresh token already rotated or revoked", "refresh_token_id", rt.RefreshID)
		return nil, goerror.NewBusiness("invalid or expired refresh token", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo rotate refresh token", "error", err)
		return nil, goerror.NewUnavailable(sessionFailedMsg, err)
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		ExpiresIn:    s.jwt.TTL(),
	}, nil
}

type RevokeSessionInput struct {
	RefreshToken string `validate:"required"`
}

// RevokeSession logs the holder of the refresh token out. Unknown or already
// revoked tokens are treated as logged out.
func (s *Usecase) RevokeSession(ctx context.Context, in RevokeSessionInput) error {
	ctx, span := s.startSpan(ctx, "RevokeSession")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	refreshTokenHash, err := s.hmac.Hash(in.RefreshToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash refresh token", "error", err)
		return goerror.NewServer(err)
	}

	err = s.repoDB.RevokeRefreshToken(ctx, string(refreshTokenHash))
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "refresh token not found or already revoked")
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo revoke refresh token", "error", err)
		return goerror.NewServer(err)
	}

	return nil
}
