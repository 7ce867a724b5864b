package inbound

import (
	"time"
)

type SendOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
	Purpose     string `json:"purpose"`
	Email       string `json:"email,omitempty"`
	UserID      int64  `json:"user_id,omitempty,string"`
}

type SendOTPResponse struct {
	ExpiresInSeconds int64 `json:"expires_in_seconds"`
}

func (SendOTPResponse) Message() string {
	return "OTP sent successfully"
}

type ResendOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
	Purpose     string `json:"purpose"`
	Email       string `json:"email,omitempty"`
	UserID      int64  `json:"user_id,omitempty,string"`
}

type ResendOTPResponse struct {
	ExpiresInSeconds int64 `json:"expires_in_seconds"`
}

func (ResendOTPResponse) Message() string {
	return "OTP resent successfully"
}

type VerifyOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
	OTPCode     string `json:"otp_code"`
	Purpose     string `json:"purpose"`
}

type LoginVerifiedResponse struct {
	UserID       int64  `json:"user_id,string"`
	Role         string `json:"role"`
	Email        string `json:"email"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (LoginVerifiedResponse) Message() string {
	return "OTP verified successfully"
}

type AccountSetupVerifiedResponse struct {
	UserID int64 `json:"user_id,omitempty,string"`
}

func (AccountSetupVerifiedResponse) Message() string {
	return "Phone number verified successfully"
}

type RefreshSessionRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type SessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (SessionResponse) Message() string {
	return "Session refreshed successfully"
}

type RevokeSessionRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RevokeSessionResponse struct{}

func (RevokeSessionResponse) Message() string {
	return "Logged out successfully"
}

type TokenResponse struct {
	ID           int64      `json:"id,string"`
	PhoneNumber  string     `json:"phone_number"`
	Purpose      string     `json:"purpose"`
	UserID       int64      `json:"user_id,omitempty,string"`
	Status       string     `json:"status"`
	AttemptCount int32      `json:"attempt_count"`
	MaxAttempts  int32      `json:"max_attempts"`
	ExpiresAt    time.Time  `json:"expires_at"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty"`
	SupersededAt *time.Time `json:"superseded_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type TokensResponse struct {
	Tokens []TokenResponse `json:"tokens"`
	// meta
	total int64
	size  int32
	page  int32
}

func (r TokensResponse) Meta() map[string]any {
	return map[string]any{
		"total": r.total,
		"size":  r.size,
		"page":  r.page,
	}
}

type TokenExportResponse struct {
	URL       string `json:"url"`
	ExpiresIn int64  `json:"expires_in"`
	Rows      int    `json:"rows"`
}

func (TokenExportResponse) Message() string {
	return "Export is ready to download"
}
