package inbound

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/bgvotp/internal/otp/entity"
	"github.com/shandysiswandi/bgvotp/internal/otp/usecase"
	"github.com/shandysiswandi/bgvotp/internal/pkg/clock"
	"github.com/shandysiswandi/bgvotp/internal/pkg/goerror"
	"github.com/shandysiswandi/bgvotp/internal/pkg/instrument"
	"github.com/shandysiswandi/bgvotp/internal/pkg/jwt"
	"github.com/shandysiswandi/bgvotp/internal/pkg/router"
	"github.com/shandysiswandi/bgvotp/internal/pkg/uid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUsecase struct{ mock.Mock }

func (m *mockUsecase) SendOTP(ctx context.Context, in usecase.SendOTPInput) (*usecase.SendOTPOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*usecase.SendOTPOutput)
	return out, args.Error(1)
}

func (m *mockUsecase) ResendOTP(ctx context.Context, in usecase.ResendOTPInput) (*usecase.SendOTPOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*usecase.SendOTPOutput)
	return out, args.Error(1)
}

func (m *mockUsecase) VerifyOTP(ctx context.Context, in usecase.VerifyOTPInput) (usecase.VerifyOTPOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(usecase.VerifyOTPOutput)
	return out, args.Error(1)
}

func (m *mockUsecase) RefreshSession(ctx context.Context, in usecase.RefreshSessionInput) (*usecase.Session, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*usecase.Session)
	return out, args.Error(1)
}

func (m *mockUsecase) RevokeSession(ctx context.Context, in usecase.RevokeSessionInput) error {
	return m.Called(ctx, in).Error(0)
}

func (m *mockUsecase) TokenList(ctx context.Context, in usecase.TokenListInput) (*usecase.TokenListOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*usecase.TokenListOutput)
	return out, args.Error(1)
}

func (m *mockUsecase) TokenExport(ctx context.Context, in usecase.TokenExportInput) (*usecase.TokenExportOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*usecase.TokenExportOutput)
	return out, args.Error(1)
}

type mockThrottle struct{ mock.Mock }

func (m *mockThrottle) Acquire(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	args := m.Called(ctx, key, window)
	return args.Bool(0), args.Get(1).(time.Duration), args.Error(2)
}

func (m *mockThrottle) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type testServer struct {
	router   *router.Router
	uc       *mockUsecase
	throttle *mockThrottle
	jwt      jwt.JWT
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	signer, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(strings.Repeat("s", 64)),
		Issuer:    "bgvotp",
		Audiences: []string{"portal"},
		TTL:       15 * time.Minute,
		Clock:     clock.New(),
		UUID:      uid.NewUUID(),
	})
	require.NoError(t, err)

	ts := &testServer{
		uc:       &mockUsecase{},
		throttle: &mockThrottle{},
		jwt:      signer,
	}
	ts.router = router.NewRouter(router.Config{
		UUID:            uid.NewUUID(),
		JWT:             signer,
		Instrument:      instrument.NewNoop(),
		PublicEndpoints: map[string][]string{http.MethodPost: PublicEndpoints},
	})
	RegisterHTTPEndpoint(ts.router, ts.uc, ts.throttle, time.Minute)

	t.Cleanup(func() {
		ts.uc.AssertExpectations(t)
		ts.throttle.AssertExpectations(t)
	})

	return ts
}

func (ts *testServer) do(t *testing.T, method, target, body, bearer string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "portal-web")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestHTTPEndpoint_SendOTP(t *testing.T) {
	ts := newTestServer(t)
	ts.uc.On("SendOTP", mock.Anything, usecase.SendOTPInput{
		PhoneNumber: "+919876543210",
		Purpose:     "account_setup",
		Email:       "new@example.com",
		UserID:      1234567890123,
		IP:          "192.0.2.1",
		UserAgent:   "portal-web",
	}).Return(&usecase.SendOTPOutput{ExpiresIn: 5 * time.Minute}, nil)

	code, body := ts.do(t, http.MethodPost, "/api/v1/otp/send",
		`{"phone_number":"+919876543210","purpose":"account_setup","email":"new@example.com","user_id":"1234567890123"}`, "")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{
		"success":            true,
		"message":            "OTP sent successfully",
		"expires_in_seconds": float64(300),
	}, body)
}

func TestHTTPEndpoint_SendOTP_RateLimited(t *testing.T) {
	ts := newTestServer(t)
	ts.uc.On("SendOTP", mock.Anything, mock.Anything).
		Return(nil, goerror.NewTooManyRequest("Too many OTP requests. Please try again later.", 5*time.Minute))

	code, body := ts.do(t, http.MethodPost, "/api/v1/otp/send", `{"phone_number":"+919876543210","purpose":"login"}`, "")

	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "Too many OTP requests. Please try again later.", body["error"])
	assert.Equal(t, map[string]any{"retry_after_seconds": "300"}, body["details"])
}

func TestHTTPEndpoint_VerifyOTP(t *testing.T) {
	t.Run("login", func(t *testing.T) {
		ts := newTestServer(t)
		ts.uc.On("VerifyOTP", mock.Anything, usecase.VerifyOTPInput{
			PhoneNumber: "+919876543210",
			OTPCode:     "482913",
			Purpose:     "login",
		}).Return(&usecase.LoginVerified{
			UserID: 1234567890123,
			Role:   "ops",
			Email:  "ops@example.com",
			Session: usecase.Session{
				AccessToken:  "access",
				RefreshToken: "refresh",
				ExpiresIn:    15 * time.Minute,
			},
		}, nil)

		code, body := ts.do(t, http.MethodPost, "/api/v1/otp/verify",
			`{"phone_number":"+919876543210","otp_code":"482913","purpose":"login"}`, "")

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, map[string]any{
			"success":       true,
			"message":       "OTP verified successfully",
			"user_id":       "1234567890123",
			"role":          "ops",
			"email":         "ops@example.com",
			"access_token":  "access",
			"refresh_token": "refresh",
			"expires_in":    float64(900),
		}, body)
	})

	t.Run("account setup", func(t *testing.T) {
		ts := newTestServer(t)
		ts.uc.On("VerifyOTP", mock.Anything, mock.Anything).Return(&usecase.AccountSetupVerified{UserID: 77}, nil)

		code, body := ts.do(t, http.MethodPost, "/api/v1/otp/verify",
			`{"phone_number":"+919876543210","otp_code":"482913","purpose":"account_setup"}`, "")

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, map[string]any{
			"success": true,
			"message": "Phone number verified successfully",
			"user_id": "77",
		}, body)
	})

	t.Run("rejected", func(t *testing.T) {
		ts := newTestServer(t)
		ts.uc.On("VerifyOTP", mock.Anything, mock.Anything).
			Return(nil, goerror.NewBusiness("Invalid OTP code", goerror.CodeBadRequest))

		code, body := ts.do(t, http.MethodPost, "/api/v1/otp/verify",
			`{"phone_number":"+919876543210","otp_code":"000000","purpose":"login"}`, "")

		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, map[string]any{"success": false, "error": "Invalid OTP code"}, body)
	})

	t.Run("malformed body", func(t *testing.T) {
		ts := newTestServer(t)

		code, body := ts.do(t, http.MethodPost, "/api/v1/otp/verify", `{"phone_number":`, "")

		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, false, body["success"])
	})
}

func TestHTTPEndpoint_ResendOTP(t *testing.T) {
	const (
		payload = `{"phone_number":"+91 98765 43210","purpose":"login"}`
		key     = "otp:resend:login:+919876543210"
	)

	t.Run("first resend goes through", func(t *testing.T) {
		ts := newTestServer(t)
		ts.throttle.On("Acquire", mock.Anything, key, time.Minute).Return(true, time.Duration(0), nil)
		ts.uc.On("ResendOTP", mock.Anything, mock.MatchedBy(func(in usecase.ResendOTPInput) bool {
			return in.PhoneNumber == "+91 98765 43210" && in.Purpose == "login"
		})).Return(&usecase.SendOTPOutput{ExpiresIn: 5 * time.Minute}, nil)

		code, body := ts.do(t, http.MethodPost, "/api/v1/otp/resend", payload, "")

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "OTP resent successfully", body["message"])
	})

	t.Run("inside cooldown", func(t *testing.T) {
		ts := newTestServer(t)
		ts.throttle.On("Acquire", mock.Anything, key, time.Minute).Return(false, 42*time.Second, nil)

		code, body := ts.do(t, http.MethodPost, "/api/v1/otp/resend", payload, "")

		assert.Equal(t, http.StatusTooManyRequests, code)
		assert.Equal(t, "Please wait before requesting another OTP.", body["error"])
		assert.Equal(t, map[string]any{"retry_after_seconds": "42"}, body["details"])
		ts.uc.AssertNotCalled(t, "ResendOTP", mock.Anything, mock.Anything)
	})

	t.Run("failed resend releases the cooldown", func(t *testing.T) {
		ts := newTestServer(t)
		ts.throttle.On("Acquire", mock.Anything, key, time.Minute).Return(true, time.Duration(0), nil)
		ts.throttle.On("Release", mock.Anything, key).Return(nil)
		ts.uc.On("ResendOTP", mock.Anything, mock.Anything).Return(nil, goerror.NewDeliveryFailed(errors.New("gateway down")))

		code, body := ts.do(t, http.MethodPost, "/api/v1/otp/resend", payload, "")

		assert.Equal(t, http.StatusInternalServerError, code)
		assert.Equal(t, "Failed to deliver message", body["error"])
	})

	t.Run("cooldown store down", func(t *testing.T) {
		ts := newTestServer(t)
		ts.throttle.On("Acquire", mock.Anything, key, time.Minute).Return(false, time.Duration(0), errors.New("redis: connection refused"))
		ts.uc.On("ResendOTP", mock.Anything, mock.Anything).Return(&usecase.SendOTPOutput{ExpiresIn: 5 * time.Minute}, nil)

		code, _ := ts.do(t, http.MethodPost, "/api/v1/otp/resend", payload, "")

		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("cooldown logs keep the phone maskable", func(t *testing.T) {
		logs := captureLogs(t)

		ts := newTestServer(t)
		ts.throttle.On("Acquire", mock.Anything, key, time.Minute).Return(false, 42*time.Second, nil)

		code, _ := ts.do(t, http.MethodPost, "/api/v1/otp/resend", payload, "")

		assert.Equal(t, http.StatusTooManyRequests, code)
		assertPhoneOnlyUnderPhoneKey(t, logs, "+919876543210")
		assert.NotContains(t, logs.String(), "otp:resend:")
	})
}

// captureLogs points the default logger at a buffer for the rest of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	return &buf
}

// assertPhoneOnlyUnderPhoneKey checks that phone shows up in log records only
// as the value of the "phone" attribute, the one key the log pipeline tails.
func assertPhoneOnlyUnderPhoneKey(t *testing.T, logs *bytes.Buffer, phone string) {
	t.Helper()

	seen := false
	for line := range strings.SplitSeq(strings.TrimSpace(logs.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)

		for k, v := range rec {
			if k == "phone" {
				seen = seen || v == phone
				continue
			}
			raw, err := json.Marshal(v)
			require.NoError(t, err)
			assert.NotContains(t, string(raw), phone, "attribute %q of %q", k, rec["msg"])
		}
	}
	assert.True(t, seen, "no record carried the phone attribute")
}

func TestHTTPEndpoint_Session(t *testing.T) {
	ts := newTestServer(t)
	ts.uc.On("RefreshSession", mock.Anything, usecase.RefreshSessionInput{RefreshToken: "old"}).
		Return(&usecase.Session{AccessToken: "a2", RefreshToken: "r2", ExpiresIn: 15 * time.Minute}, nil)
	ts.uc.On("RevokeSession", mock.Anything, usecase.RevokeSessionInput{RefreshToken: "r2"}).Return(nil)

	code, body := ts.do(t, http.MethodPost, "/api/v1/otp/session/refresh", `{"refresh_token":"old"}`, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "a2", body["access_token"])
	assert.Equal(t, "r2", body["refresh_token"])
	assert.Equal(t, float64(900), body["expires_in"])

	code, body = ts.do(t, http.MethodPost, "/api/v1/otp/session/revoke", `{"refresh_token":"r2"}`, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"success": true, "message": "Logged out successfully"}, body)
}

func TestHTTPEndpoint_TokenList(t *testing.T) {
	t.Run("needs a bearer token", func(t *testing.T) {
		ts := newTestServer(t)

		code, body := ts.do(t, http.MethodGet, "/api/v1/otp/tokens", "", "")

		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "Authentication required", body["error"])
	})

	t.Run("passes filters and returns meta", func(t *testing.T) {
		ts := newTestServer(t)
		access, err := ts.jwt.Generate(9, "ops@example.com", "ops")
		require.NoError(t, err)

		createdAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
		ts.uc.On("TokenList", mock.MatchedBy(func(ctx context.Context) bool {
			clm := jwt.GetAuth(ctx)
			return clm != nil && clm.Role == "ops"
		}), usecase.TokenListInput{
			PhoneNumber: "+919876543210",
			Purpose:     "login",
			Statuses:    []string{"active", "consumed"},
			DateFrom:    createdAt,
			Size:        5,
			Page:        2,
		}).Return(&usecase.TokenListOutput{
			Page:  2,
			Size:  5,
			Total: 6,
			Tokens: []entity.Token{{
				ID:          42,
				PhoneNumber: "+919876543210",
				Purpose:     entity.PurposeLogin,
				UserID:      9,
				Status:      entity.TokenStatusActive,
				MaxAttempts: 3,
				ExpiresAt:   createdAt.Add(5 * time.Minute),
				CreatedAt:   createdAt,
			}},
		}, nil)

		code, body := ts.do(t, http.MethodGet,
			"/api/v1/otp/tokens?phone_number=%2B919876543210&purpose=login&status=active&status=consumed&date_from=2026-03-10T09:00:00Z&size=5&page=2",
			"", access)

		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, map[string]any{"total": float64(6), "size": float64(5), "page": float64(2)}, body["meta"])

		tokens, ok := body["tokens"].([]any)
		require.True(t, ok)
		require.Len(t, tokens, 1)
		tok := tokens[0].(map[string]any)
		assert.Equal(t, "42", tok["id"])
		assert.Equal(t, "active", tok["status"])
		assert.Equal(t, "login", tok["purpose"])
		assert.NotContains(t, tok, "verified_at")
		assert.NotContains(t, tok, "code_hash")
	})

	t.Run("bad date range", func(t *testing.T) {
		ts := newTestServer(t)
		access, err := ts.jwt.Generate(9, "ops@example.com", "ops")
		require.NoError(t, err)

		code, body := ts.do(t, http.MethodGet,
			"/api/v1/otp/tokens?date_from=2026-03-11T00:00:00Z&date_to=2026-03-10T00:00:00Z", "", access)

		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "date_from must be before date_to", body["error"])
	})
}

func TestHTTPEndpoint_TokenExport(t *testing.T) {
	ts := newTestServer(t)
	access, err := ts.jwt.Generate(9, "ops@example.com", "ops")
	require.NoError(t, err)

	ts.uc.On("TokenExport", mock.Anything, usecase.TokenExportInput{Purpose: "account_setup"}).Return(&usecase.TokenExportOutput{
		URL:       "https://storage.example.com/bgv-exports/otp-tokens/x.csv",
		ExpiresIn: 15 * time.Minute,
		Rows:      12,
	}, nil)

	code, body := ts.do(t, http.MethodGet, "/api/v1/otp/tokens-export?purpose=account_setup", "", access)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{
		"success":    true,
		"message":    "Export is ready to download",
		"url":        "https://storage.example.com/bgv-exports/otp-tokens/x.csv",
		"expires_in": float64(900),
		"rows":       float64(12),
	}, body)
}
