package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/bgvotp/internal/otp/entity"
	"github.com/shandysiswandi/bgvotp/internal/pkg/goerror"
	"github.com/shandysiswandi/bgvotp/internal/shared/constant"
)

type TokenListInput struct {
	PhoneNumber string
	Purpose     string
	Statuses    []string
	DateFrom    time.Time
	DateTo      time.Time
	Size        int32
	Page        int32
}

type TokenListOutput struct {
	Page   int32
	Size   int32
	Total  int64
	Tokens []entity.Token
}

func (s *Usecase) tokenListFilter(phone, purpose string, statuses []string, from, to time.Time) (entity.TokenListFilterData, error) {
	status, err := entity.ParseTokenStatusFilter(statuses)
	if err != nil {
		return entity.TokenListFilterData{}, goerror.NewBusiness("Invalid query status", goerror.CodeBadRequest)
	}

	f := entity.TokenListFilterData{
		PhoneNumber: NormalizePhone(phone),
		Purpose:     entity.PurposeFromString(purpose),
		Status:      status,
		Now:         s.clock.Now(),
		DateFrom:    from,
		DateTo:      to,
	}
	if f.PhoneNumber != "" {
		f.IsFilterByPhone = true
	}
	if !f.Purpose.IsUnknown() {
		f.IsFilterByPurpose = true
	}
	if !f.Status.IsEmpty() {
		f.IsFilterByStatus = true
	}

	return f, nil
}

// TokenList is the audit view over issued codes.
func (s *Usecase) TokenList(ctx context.Context, in TokenListInput) (*TokenListOutput, error) {
	ctx, span := s.startSpan(ctx, "TokenList")
	defer span.End()

	if _, err := s.authenticatedAndAuthorized(ctx, constant.PermOTPTokens, constant.PermActRead); err != nil {
		return nil, err
	}

	if in.Size <= 0 || in.Size > 100 {
		in.Size = 10 // default limit
	}

	filterData, err := s.tokenListFilter(in.PhoneNumber, in.Purpose, in.Statuses, in.DateFrom, in.DateTo)
	if err != nil {
		return nil, err
	}
	filterData.Size = in.Size
	filterData.Offset = int64(max(in.Page, 1)-1) * int64(in.Size)

	tokens, count, err := s.repoDB.GetTokenList(ctx, filterData)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list tokens", "error", err)
		return nil, goerror.NewServer(err)
	}

	return &TokenListOutput{
		Page:   max(in.Page, 1),
		Size:   in.Size,
		Total:  count,
		Tokens: tokens,
	}, nil
}
