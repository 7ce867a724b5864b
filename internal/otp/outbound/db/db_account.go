package db

import (
	"context"

	"github.com/shandysiswandi/bgvotp/internal/otp/entity"
)

const (
	sqlGetAccountByPhone = `
		select id, phone_number, coalesce(email, ''), full_name, role, is_active, phone_verified_at, last_login_at
		from accounts where phone_number = $1`

	sqlGetAccountByID = `
		select id, phone_number, coalesce(email, ''), full_name, role, is_active, phone_verified_at, last_login_at
		from accounts where id = $1`
)

func (s *DB) GetAccountByPhone(ctx context.Context, phone string) (_ *entity.Account, err error) {
	ctx, span := s.startSpan(ctx, "GetAccountByPhone")
	defer func() { s.endSpan(span, err) }()

	var acc entity.Account
	if err = s.conn.QueryRow(ctx, sqlGetAccountByPhone, phone).Scan(
		&acc.ID,
		&acc.PhoneNumber,
		&acc.Email,
		&acc.FullName,
		&acc.Role,
		&acc.IsActive,
		&acc.PhoneVerifiedAt,
		&acc.LastLoginAt,
	); err != nil {
		return nil, s.mapError(err)
	}

	return &acc, nil
}

func (s *DB) GetAccountByID(ctx context.Context, id int64) (_ *entity.Account, err error) {
	ctx, span := s.startSpan(ctx, "GetAccountByID")
	defer func() { s.endSpan(span, err) }()

	var acc entity.Account
	if err = s.conn.QueryRow(ctx, sqlGetAccountByID, id).Scan(
		&acc.ID,
		&acc.PhoneNumber,
		&acc.Email,
		&acc.FullName,
		&acc.Role,
		&acc.IsActive,
		&acc.PhoneVerifiedAt,
		&acc.LastLoginAt,
	); err != nil {
		return nil, s.mapError(err)
	}

	return &acc, nil
}
