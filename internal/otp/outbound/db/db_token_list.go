package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/bgvotp/internal/otp/entity"
)

const (
	// Active and expired are both stored as status 1 and are split by $9.
	sqlTokenListWhere = `
		where ($1::bool = false or phone_number = $2)
		  and ($3::bool = false or purpose = $4)
		  and ($5::bool = false
		       or status = any($6::smallint[])
		       or ($7::bool and status = 1 and expires_at > $9)
		       or ($8::bool and status = 1 and expires_at <= $9))
		  and ($10::timestamptz is null or created_at >= $10)
		  and ($11::timestamptz is null or created_at <= $11)`

	sqlCountTokenList = `select count(*) from otp_tokens` + sqlTokenListWhere

	sqlGetTokenList = `
		select id, phone_number, purpose, coalesce(user_id, 0), coalesce(email, ''), status,
			attempt_count, max_attempts, expires_at, verified_at, superseded_at, metadata, created_at
		from otp_tokens` + sqlTokenListWhere + `
		order by created_at desc, id desc
		limit $12 offset $13`
)

// GetTokenList pages through issued tokens, newest first. Code hashes are not
// selected.
func (s *DB) GetTokenList(ctx context.Context, f entity.TokenListFilterData) (_ []entity.Token, _ int64, err error) {
	ctx, span := s.startSpan(ctx, "GetTokenList")
	defer func() { s.endSpan(span, err) }()

	args := []any{
		f.IsFilterByPhone, f.PhoneNumber,
		f.IsFilterByPurpose, f.Purpose,
		f.IsFilterByStatus, entity.ToInt16Slice(f.Status.Terminal),
		f.Status.Active, f.Status.Expired, f.Now,
		nullTime(f.DateFrom), nullTime(f.DateTo),
	}

	var total int64
	if err = s.conn.QueryRow(ctx, sqlCountTokenList, args...).Scan(&total); err != nil {
		return nil, 0, s.mapError(err)
	}
	if total == 0 {
		return []entity.Token{}, 0, nil
	}

	rows, err := s.conn.Query(ctx, sqlGetTokenList, append(args, f.Size, f.Offset)...)
	if err != nil {
		return nil, 0, s.mapError(err)
	}

	tokens, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Token, error) {
		var tok entity.Token
		err := row.Scan(
			&tok.ID,
			&tok.PhoneNumber,
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
		return tok, err
	})
	if err != nil {
		return nil, 0, s.mapError(err)
	}

	return tokens, total, nil
}
