package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/bgvotp/internal/otp/entity"
	"github.com/shandysiswandi/bgvotp/internal/pkg/goerror"
)

const (
	sqlLockPhone = `select pg_advisory_xact_lock(hashtext($1))`

	sqlCountIssuedSince = `
		select count(*) from otp_tokens
		where phone_number = $1 and status in (1, 3) and created_at > $2`

	sqlSupersedeActive = `
		update otp_tokens set status = 3, superseded_at = $3
		where phone_number = $1 and purpose = $2 and status = 1`

	sqlInsertToken = `
		insert into otp_tokens (
			id, phone_number, code_hash, purpose, user_id, email, status,
			attempt_count, max_attempts, expires_at, metadata, created_at
		) values ($1, $2, $3, $4, $5, $6, 1, 0, $7, $8, $9, $10)`

	sqlGetActiveToken = `
		select id, phone_number, code_hash, purpose, coalesce(user_id, 0), coalesce(email, ''),
			status, attempt_count, max_attempts, expires_at, verified_at, superseded_at, metadata, created_at
		from otp_tokens
		where phone_number = $1 and purpose = $2 and status = 1
		order by created_at desc
		limit 1`

	sqlRecordFailedAttempt = `
		update otp_tokens set attempt_count = attempt_count + 1
		where id = $1 and status = 1 and attempt_count < max_attempts
		returning attempt_count, max_attempts`

	sqlConsumeToken = `
		update otp_tokens set status = 2, verified_at = $2
		where id = $1 and status = 1 and attempt_count < max_attempts and expires_at > $2`
)

// IssueToken stores tok as the only active token of its (phone, purpose) pair.
// Issue and supersede for one phone are serialized by a transaction scoped
// advisory lock. When limit is enabled and the phone already holds limit.Max
// tokens created inside limit.Window it returns entity.ErrIssueRateLimited.
func (s *DB) IssueToken(ctx context.Context, tok entity.Token, limit entity.IssueLimit) (err error) {
	ctx, span := s.startSpan(ctx, "IssueToken")
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

	if _, err := tx.Exec(ctx, sqlLockPhone, tok.PhoneNumber); err != nil {
		return s.mapError(err)
	}

	if limit.Enabled() {
		var issued int
		if err := tx.QueryRow(ctx, sqlCountIssuedSince, tok.PhoneNumber, tok.CreatedAt.Add(-limit.Window)).Scan(&issued); err != nil {
			return s.mapError(err)
		}
		if issued >= limit.Max {
			return entity.ErrIssueRateLimited
		}
	}

	if _, err := tx.Exec(ctx, sqlSupersedeActive, tok.PhoneNumber, tok.Purpose, tok.CreatedAt); err != nil {
		return s.mapError(err)
	}

	if _, err := tx.Exec(ctx, sqlInsertToken,
		tok.ID,
		tok.PhoneNumber,
		tok.CodeHash,
		tok.Purpose,
		nullInt64(tok.UserID),
		nullString(tok.Email),
		tok.MaxAttempts,
		tok.ExpiresAt,
		tok.Metadata,
		tok.CreatedAt,
	); err != nil {
		return s.mapError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return s.mapError(err)
	}

	return nil
}

func (s *DB) GetActiveToken(ctx context.Context, phone string, purpose entity.Purpose) (_ *entity.Token, err error) {
	ctx, span := s.startSpan(ctx, "GetActiveToken")
	defer func() { s.endSpan(span, err) }()

	var tok entity.Token
	err = s.conn.QueryRow(ctx, sqlGetActiveToken, phone, purpose).Scan(
		&tok.ID,
		&tok.PhoneNumber,
		&tok.CodeHash,
		&tok.Purpose,
		&tok.UserID,
		&tok.Email,
		&tok.Status,
		&tok.AttemptCount,
		&tok.MaxAttempts,
		&tok.ExpiresAt,
		&tok.VerifiedAt,
		&tok.SupersededAt,
		&tok.Metadata,
		&tok.CreatedAt,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &tok, nil
}

// RecordFailedAttempt increments the attempt counter of an active token that
// still has budget left. It returns goerror.ErrNotFound when no row qualified.
func (s *DB) RecordFailedAttempt(ctx context.Context, id int64) (_ *entity.AttemptResult, err error) {
	ctx, span := s.startSpan(ctx, "RecordFailedAttempt")
	defer func() { s.endSpan(span, err) }()

	var res entity.AttemptResult
	if err = s.conn.QueryRow(ctx, sqlRecordFailedAttempt, id).Scan(&res.AttemptCount, &res.MaxAttempts); err != nil {
		return nil, s.mapError(err)
	}

	return &res, nil
}

// ConsumeToken marks an active, unexpired, non exhausted token as consumed.
// Exactly one caller can win; the others get goerror.ErrNotFound.
func (s *DB) ConsumeToken(ctx context.Context, id int64, now time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "ConsumeToken")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, sqlConsumeToken, id, now)
	if err != nil {
		return s.mapError(err)
	}

	if tag.RowsAffected() != 1 {
		return goerror.ErrNotFound
	}

	return nil
}
