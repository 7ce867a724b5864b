package inbound

import (
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/bgvotp/internal/otp/usecase"
	"github.com/shandysiswandi/bgvotp/internal/pkg/goerror"
	"github.com/shandysiswandi/bgvotp/internal/pkg/router"
	"github.com/shandysiswandi/bgvotp/internal/pkg/throttle"
)

var errUnknownVerifyOutput = errors.New("otp: unknown verify output")

// HTTPEndpoint exposes the OTP issue, verify and session handlers.
type HTTPEndpoint struct {
	uc             uc
	cooldown       throttle.Throttle
	resendCooldown time.Duration
}

func (h *HTTPEndpoint) SendOTP(r *router.Request) (any, error) {
	var req SendOTPRequest
	if err := r.DecodeJSON(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.SendOTP(r.Context(), usecase.SendOTPInput{
		PhoneNumber: req.PhoneNumber,
		Purpose:     req.Purpose,
		Email:       req.Email,
		UserID:      req.UserID,
		IP:          r.RemoteAddr,
		UserAgent:   r.UserAgent(),
	})
	if err != nil {
		return nil, err
	}

	return SendOTPResponse{ExpiresInSeconds: int64(resp.ExpiresIn.Seconds())}, nil
}

// ResendOTP reissues a code. One resend per phone and purpose is allowed per
// cooldown window; the window is released again when the resend fails.
func (h *HTTPEndpoint) ResendOTP(r *router.Request) (any, error) {
	var req ResendOTPRequest
	if err := r.DecodeJSON(&req); err != nil {
		return nil, err
	}

	ctx := r.Context()
	phone := usecase.NormalizePhone(req.PhoneNumber)
	key := "otp:resend:" + req.Purpose + ":" + phone

	acquired, left, err := h.cooldown.Acquire(ctx, key, h.resendCooldown)
	if err != nil {
		// cooldown store is down, let the resend through
		slog.ErrorContext(ctx, "failed to acquire resend cooldown", "phone", phone, "purpose", req.Purpose, "error", err)
		acquired = true
	}
	if !acquired {
		slog.WarnContext(ctx, "otp resend in cooldown", "phone", phone, "purpose", req.Purpose, "retry_after", left.String())
		return nil, goerror.NewTooManyRequest("Please wait before requesting another OTP.", left)
	}

	resp, err := h.uc.ResendOTP(ctx, usecase.ResendOTPInput{
		PhoneNumber: req.PhoneNumber,
		Purpose:     req.Purpose,
		Email:       req.Email,
		UserID:      req.UserID,
		IP:          r.RemoteAddr,
		UserAgent:   r.UserAgent(),
	})
	if err != nil {
		if rErr := h.cooldown.Release(ctx, key); rErr != nil {
			slog.ErrorContext(ctx, "failed to release resend cooldown", "phone", phone, "purpose", req.Purpose, "error", rErr)
		}
		return nil, err
	}

	return ResendOTPResponse{ExpiresInSeconds: int64(resp.ExpiresIn.Seconds())}, nil
}

func (h *HTTPEndpoint) VerifyOTP(r *router.Request) (any, error) {
	var req VerifyOTPRequest
	if err := r.DecodeJSON(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyOTP(r.Context(), usecase.VerifyOTPInput{
		PhoneNumber: req.PhoneNumber,
		OTPCode:     req.OTPCode,
		Purpose:     req.Purpose,
	})
	if err != nil {
		return nil, err
	}

	switch out := resp.(type) {
	case *usecase.LoginVerified:
		return LoginVerifiedResponse{
			UserID:       out.UserID,
			Role:         out.Role,
			Email:        out.Email,
			AccessToken:  out.Session.AccessToken,
			RefreshToken: out.Session.RefreshToken,
			ExpiresIn:    int64(out.Session.ExpiresIn.Seconds()),
		}, nil

	case *usecase.AccountSetupVerified:
		return AccountSetupVerifiedResponse{UserID: out.UserID}, nil

	default:
		return nil, goerror.NewServer(errUnknownVerifyOutput)
	}
}

func (h *HTTPEndpoint) RefreshSession(r *router.Request) (any, error) {
	var req RefreshSessionRequest
	if err := r.DecodeJSON(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RefreshSession(r.Context(), usecase.RefreshSessionInput{RefreshToken: req.RefreshToken})
	if err != nil {
		return nil, err
	}

	return SessionResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    int64(resp.ExpiresIn.Seconds()),
	}, nil
}

func (h *HTTPEndpoint) RevokeSession(r *router.Request) (any, error) {
	var req RevokeSessionRequest
	if err := r.DecodeJSON(&req); err != nil {
		return nil, err
	}

	if err := h.uc.RevokeSession(r.Context(), usecase.RevokeSessionInput{RefreshToken: req.RefreshToken}); err != nil {
		return nil, err
	}

	return RevokeSessionResponse{}, nil
}

func (h *HTTPEndpoint) TokenList(r *router.Request) (any, error) {
	size, err := r.QueryInt32("size")
	if err != nil {
		return nil, err
	}

	page, err := r.QueryInt32("page")
	if err != nil {
		return nil, err
	}

	dateFrom, dateTo, err := queryDateRange(r)
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.TokenList(r.Context(), usecase.TokenListInput{
		PhoneNumber: r.Query("phone_number"),
		Purpose:     r.Query("purpose"),
		Statuses:    r.QueryAll("status"),
		DateFrom:    dateFrom,
		DateTo:      dateTo,
		Size:        size,
		Page:        page,
	})
	if err != nil {
		return nil, err
	}

	tokens := make([]TokenResponse, 0, len(resp.Tokens))
	for _, item := range resp.Tokens {
		tokens = append(tokens, TokenResponse{
			ID:           item.ID,
			PhoneNumber:  item.PhoneNumber,
			Purpose:      item.Purpose.String(),
			UserID:       item.UserID,
			Status:       item.Status.String(),
			AttemptCount: item.AttemptCount,
			MaxAttempts:  item.MaxAttempts,
			ExpiresAt:    item.ExpiresAt,
			VerifiedAt:   item.VerifiedAt,
			SupersededAt: item.SupersededAt,
			CreatedAt:    item.CreatedAt,
		})
	}

	return TokensResponse{
		total:  resp.Total,
		size:   resp.Size,
		page:   resp.Page,
		Tokens: tokens,
	}, nil
}

func (h *HTTPEndpoint) TokenExport(r *router.Request) (any, error) {
	dateFrom, dateTo, err := queryDateRange(r)
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.TokenExport(r.Context(), usecase.TokenExportInput{
		PhoneNumber: r.Query("phone_number"),
		Purpose:     r.Query("purpose"),
		Statuses:    r.QueryAll("status"),
		DateFrom:    dateFrom,
		DateTo:      dateTo,
	})
	if err != nil {
		return nil, err
	}

	return TokenExportResponse{
		URL:       resp.URL,
		ExpiresIn: int64(resp.ExpiresIn.Seconds()),
		Rows:      resp.Rows,
	}, nil
}

func queryDateRange(r *router.Request) (time.Time, time.Time, error) {
	dateFrom, err := r.QueryTime("date_from", time.RFC3339)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	dateTo, err := r.QueryTime("date_to", time.RFC3339)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if !dateFrom.IsZero() && !dateTo.IsZero() && dateFrom.After(dateTo) {
		return time.Time{}, time.Time{}, goerror.NewInvalidFormat("date_from must be before date_to")
	}

	return dateFrom, dateTo, nil
}
