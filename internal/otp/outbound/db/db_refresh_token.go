package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/bgvotp/internal/otp/entity"
	"github.com/shandysiswandi/bgvotp/internal/pkg/goerror"
)

const (
	sqlCreateRefreshToken = `
		insert into otp_refresh_tokens (id, user_id, token_hash, expires_at)
		values ($1, $2, $3, $4)`

	sqlGetAccountRefreshToken = `
		select a.id, coalesce(a.email, ''), a.role, a.is_active,
			r.id, r.revoked_at is not null, r.replaced_by, r.expires_at
		from otp_refresh_tokens r
		join accounts a on a.id = r.user_id
		where r.token_hash = $1`

	sqlRevokeRefreshTokenByID = `
		update otp_refresh_tokens set revoked_at = now(), replaced_by = $2
		where id = $1 and revoked_at is null`

	sqlRevokeRefreshTokenByHash = `
		update otp_refresh_tokens set revoked_at = now()
		where token_hash = $1 and revoked_at is null`

	sqlRevokeAllRefreshToken = `
		update otp_refresh_tokens set revoked_at = now()
		where user_id = $1 and revoked_at is null`
)

func (s *DB) CreateRefreshToken(ctx context.Context, rt entity.RefreshToken) (err error) {
	ctx, span := s.startSpan(ctx, "CreateRefreshToken")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, sqlCreateRefreshToken, rt.ID, rt.UserID, rt.Token, rt.ExpiresAt)
	return s.mapError(err)
}

func (s *DB) GetAccountRefreshToken(ctx context.Context, tokenHash string) (_ *entity.AccountRefreshToken, err error) {
	ctx, span := s.startSpan(ctx, "GetAccountRefreshToken")
	defer func() { s.endSpan(span, err) }()

	var rt entity.AccountRefreshToken
	if err = s.conn.QueryRow(ctx, sqlGetAccountRefreshToken, tokenHash).Scan(
		&rt.AccountID,
		&rt.AccountEmail,
		&rt.AccountRole,
		&rt.AccountIsActive,
		&rt.RefreshID,
		&rt.RefreshRevoked,
		&rt.RefreshReplacedByTokenID,
		&rt.RefreshExpiresAt,
	); err != nil {
		return nil, s.mapError(err)
	}

	return &rt, nil
}

// RotateRefreshToken revokes the old token and links it to its replacement. It
// returns goerror.ErrNotFound when the old token was already revoked.
func (s *DB) RotateRefreshToken(ctx context.Context, in entity.RotateRefreshToken) (err error) {
	ctx, span := s.startSpan(ctx, "RotateRefreshToken")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rolback", "error", rErr)
		}
	}()

	if _, err := tx.Exec(ctx, sqlCreateRefreshToken, in.NewID, in.UserID, in.NewToken, in.NewExpiresAt); err != nil {
		return s.mapError(err)
	}

	tag, err := tx.Exec(ctx, sqlRevokeRefreshTokenByID, in.OldID, in.NewID)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() != 1 {
		return goerror.ErrNotFound
	}

	if err = tx.Commit(ctx); err != nil {
		return s.mapError(err)
	}

	return nil
}

func (s *DB) RevokeRefreshToken(ctx context.Context, tokenHash string) (err error) {
	ctx, span := s.startSpan(ctx, "RevokeRefreshToken")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, sqlRevokeRefreshTokenByHash, tokenHash)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

func (s *DB) RevokeAllRefreshToken(ctx context.Context, userID int64) (err error) {
	ctx, span := s.startSpan(ctx, "RevokeAllRefreshToken")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, sqlRevokeAllRefreshToken, userID)
	return s.mapError(err)
}
