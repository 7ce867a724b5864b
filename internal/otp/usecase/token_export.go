package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"log/slog"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/bgvotp/internal/otp/entity"
	"github.com/shandysiswandi/bgvotp/internal/pkg/goerror"
	"github.com/shandysiswandi/bgvotp/internal/pkg/storage"
	"github.com/shandysiswandi/bgvotp/internal/shared/constant"
)

const tokenExportPageSize int32 = 1_000

var tokenExportHeader = []string{
	"id", "phone_number", "purpose", "user_id", "status",
	"attempt_count", "max_attempts", "expires_at", "verified_at", "superseded_at", "created_at",
	"issued_via", "ip",
}

type (
	TokenExportInput struct {
		PhoneNumber string
		Purpose     string
		Statuses    []string
		DateFrom    time.Time
		DateTo      time.Time
	}

	TokenExportOutput struct {
		URL       string
		ExpiresIn time.Duration
		Rows      int
	}
)

// TokenExport writes the filtered audit trail as CSV to object storage and
// returns a short lived download link.
func (s *Usecase) TokenExport(ctx context.Context, in TokenExportInput) (*TokenExportOutput, error) {
	ctx, span := s.startSpan(ctx, "TokenExport")
	defer span.End()

	clm, err := s.authenticatedAndAuthorized(ctx, constant.PermOTPTokens, constant.PermActExport)
	if err != nil {
		return nil, err
	}

	filterData, err := s.tokenListFilter(in.PhoneNumber, in.Purpose, in.Statuses, in.DateFrom, in.DateTo)
	if err != nil {
		return nil, err
	}
	filterData.Size = tokenExportPageSize

	var (
		tokens []entity.Token
		page   int64 = 1
		total  int64
	)

	for {
		filterData.Offset = (page - 1) * int64(tokenExportPageSize)

		pageTokens, count, err := s.repoDB.GetTokenList(ctx, filterData)
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo export tokens", "error", err)
			return nil, goerror.NewServer(err)
		}

		if page == 1 {
			total = count
			if total == 0 {
				break
			}
			tokens = make([]entity.Token, 0, min(total, int64(tokenExportPageSize)))
		}

		tokens = append(tokens, pageTokens...)

		if int64(len(tokens)) >= total || len(pageTokens) == 0 {
			break
		}

		page++
	}

	body, err := encodeTokensCSV(tokens)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode tokens csv", "error", err)
		return nil, goerror.NewServer(err)
	}

	bucket := s.cfg.GetString("modules.otp.export.bucket")
	key := "otp-tokens/" + s.clock.Now().UTC().Format("20060102T150405Z") + "-" + s.oid.Generate() + ".csv"

	if err := s.storage.Put(ctx, storage.Object{
		Bucket:      bucket,
		Key:         key,
		Body:        body,
		ContentType: "text/csv",
		Filename:    "otp-tokens.csv",
		Metadata:    map[string]string{"exported-by": strconv.FormatInt(clm.UserID, 10)},
	}); err != nil {
		slog.ErrorContext(ctx, "failed to storage put tokens export", "bucket", bucket, "key", key, "error", err)
		return nil, goerror.NewServer(err)
	}

	ttl := s.cfg.GetMinute("modules.otp.export.presign_ttl_minutes")
	url, err := s.storage.PresignGet(ctx, bucket, key, ttl)
	if err != nil {
		slog.ErrorContext(ctx, "failed to storage presign tokens export", "bucket", bucket, "key", key, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &TokenExportOutput{
		URL:       url,
		ExpiresIn: ttl,
		Rows:      len(tokens),
	}, nil
}

func encodeTokensCSV(tokens []entity.Token) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := lo.Map(tokens, func(t entity.Token, _ int) []string {
		return []string{
			strconv.FormatInt(t.ID, 10),
			t.PhoneNumber,
			t.Purpose.String(),
			strconv.FormatInt(t.UserID, 10),
			t.Status.String(),
			strconv.Itoa(int(t.AttemptCount)),
			strconv.Itoa(int(t.MaxAttempts)),
			formatTime(&t.ExpiresAt),
			formatTime(t.VerifiedAt),
			formatTime(t.SupersededAt),
			formatTime(&t.CreatedAt),
			t.Metadata.GetString("issued_via"),
			t.Metadata.GetString("ip"),
		}
	})

	if err := w.WriteAll(append([][]string{tokenExportHeader}, rows...)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
