package db

import (
	"context"
	"time"

	"github.com/shandysiswandi/bgvotp/internal/account/entity"
	"github.com/shandysiswandi/bgvotp/internal/pkg/goerror"
)

const (
	sqlGetAccountByID = `
		select id, phone_number, coalesce(email, ''), full_name, role, is_active,
			phone_verified_at, last_login_at, created_at
		from accounts
		where id = $1`

	sqlMarkPhoneVerified = `
		with prev as (
			select id, phone_verified_at from accounts where phone_number = $1 for update
		)
		update accounts a
		set phone_verified_at = coalesce(prev.phone_verified_at, $2), updated_at = $2
		from prev
		where a.id = prev.id
		returning a.id, coalesce(a.email, ''), a.full_name, prev.phone_verified_at is null`

	sqlTouchLastLogin = `
		update accounts
		set last_login_at = greatest(coalesce(last_login_at, $2), $2), updated_at = $2
		where id = $1`
)

func (s *DB) GetAccountByID(ctx context.Context, id int64) (_ *entity.Account, err error) {
	ctx, span := s.startSpan(ctx, "GetAccountByID")
	defer func() { s.endSpan(span, err) }()

	var acc entity.Account
	err = s.conn.QueryRow(ctx, sqlGetAccountByID, id).Scan(
		&acc.ID,
		&acc.PhoneNumber,
		&acc.Email,
		&acc.FullName,
		&acc.Role,
		&acc.IsActive,
		&acc.PhoneVerifiedAt,
		&acc.LastLoginAt,
		&acc.CreatedAt,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &acc, nil
}

// MarkPhoneVerified stamps phone_verified_at on the account owning phone. An
// existing stamp is kept, so redelivered events do not move it.
func (s *DB) MarkPhoneVerified(ctx context.Context, phone string, at time.Time) (_ *entity.PhoneVerification, err error) {
	ctx, span := s.startSpan(ctx, "MarkPhoneVerified")
	defer func() { s.endSpan(span, err) }()

	var pv entity.PhoneVerification
	err = s.conn.QueryRow(ctx, sqlMarkPhoneVerified, phone, at).Scan(
		&pv.AccountID,
		&pv.Email,
		&pv.FullName,
		&pv.FirstTime,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &pv, nil
}

// TouchLastLogin moves last_login_at forward to at. Older events never move it
// back.
func (s *DB) TouchLastLogin(ctx context.Context, id int64, at time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "TouchLastLogin")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, sqlTouchLastLogin, id, at)
	if err != nil {
		return s.mapError(err)
	}

	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}
