package inbound

import (
	"context"
	"time"

	"github.com/shandysiswandi/bgvotp/internal/otp/usecase"
	"github.com/shandysiswandi/bgvotp/internal/pkg/router"
	"github.com/shandysiswandi/bgvotp/internal/pkg/throttle"
)

type uc interface {
	SendOTP(ctx context.Context, in usecase.SendOTPInput) (*usecase.SendOTPOutput, error)
	ResendOTP(ctx context.Context, in usecase.ResendOTPInput) (*usecase.SendOTPOutput, error)
	VerifyOTP(ctx context.Context, in usecase.VerifyOTPInput) (usecase.VerifyOTPOutput, error)

	RefreshSession(ctx context.Context, in usecase.RefreshSessionInput) (*usecase.Session, error)
	RevokeSession(ctx context.Context, in usecase.RevokeSessionInput) error

	TokenList(ctx context.Context, in usecase.TokenListInput) (*usecase.TokenListOutput, error)
	TokenExport(ctx context.Context, in usecase.TokenExportInput) (*usecase.TokenExportOutput, error)
}

// PublicEndpoints lists the routes of this module that do not need a bearer token.
var PublicEndpoints = []string{
	"/api/v1/otp/send",
	"/api/v1/otp/verify",
	"/api/v1/otp/resend",
	"/api/v1/otp/session/refresh",
	"/api/v1/otp/session/revoke",
}

func RegisterHTTPEndpoint(r *router.Router, uc uc, cooldown throttle.Throttle, resendCooldown time.Duration) {
	end := &HTTPEndpoint{
		uc:             uc,
		cooldown:       cooldown,
		resendCooldown: resendCooldown,
	}

	// OTP (public)
	r.POST("/api/v1/otp/send", end.SendOTP)
	r.POST("/api/v1/otp/verify", end.VerifyOTP)
	r.POST("/api/v1/otp/resend", end.ResendOTP)

	// Session (public, refresh token in body)
	r.POST("/api/v1/otp/session/refresh", end.RefreshSession)
	r.POST("/api/v1/otp/session/revoke", end.RevokeSession)

	// Audit trail (need authenticated & authorization)
	r.GET("/api/v1/otp/tokens", end.TokenList)
	r.GET("/api/v1/otp/tokens-export", end.TokenExport)
}
