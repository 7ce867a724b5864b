package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shandysiswandi/bgvotp/internal/pkg/config"
	"github.com/shandysiswandi/bgvotp/internal/pkg/instrument"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{name: "remote addr with port", remote: "10.0.0.7:51234", want: "10.0.0.7"},
		{name: "true client ip wins", remote: "10.0.0.7:1", headers: map[string]string{"True-Client-IP": "203.0.113.9", "X-Real-IP": "198.51.100.1"}, want: "203.0.113.9"},
		{name: "first forwarded hop", remote: "10.0.0.7:1", headers: map[string]string{"X-Forwarded-For": " 198.51.100.4 , 10.0.0.1"}, want: "198.51.100.4"},
		{name: "garbage header falls back", remote: "[2001:db8::1]:443", headers: map[string]string{"X-Real-IP": "not-an-ip"}, want: "2001:db8::1"},
		{name: "mapped v4", remote: "[::ffff:192.0.2.5]:80", want: "192.0.2.5"},
		{name: "unparsable", remote: "pipe", want: "invalid IP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(r).String())
		})
	}
}

func TestCleanCorrelationID(t *testing.T) {
	assert.Equal(t, "abc", cleanCorrelationID("  abc "))
	assert.Equal(t, "", cleanCorrelationID("abc\r\nSet-Cookie: x"))
	assert.Len(t, cleanCorrelationID(strings.Repeat("a", 300)), maxCorrelationIDLen)
}

func TestBodyRedactor(t *testing.T) {
	cfg, err := config.NewViperFromBytes("yaml", []byte(`
instrument:
  log_mask_fields: [otp_code, refresh_token]
  log_tail_fields: [phone_number]
`))
	require.NoError(t, err)

	red := newBodyRedactor(cfg)
	got := red.redact([]byte(`{"phone_number":"+919876543210","otp_code":"482913","items":[{"refresh_token":"x"}],"n":1}`))

	assert.Equal(t, map[string]any{
		"phone_number": "*********3210",
		"otp_code":     "***",
		"items":        []any{map[string]any{"refresh_token": "***"}},
		"n":            float64(1),
	}, got)
	assert.Nil(t, red.redact(nil))
	assert.Equal(t, "<non-json body omitted>", red.redact([]byte("a=b")))
}

func TestMiddlewareMaintenance(t *testing.T) {
	cfg, err := config.NewViperFromBytes("yaml", []byte(`
app:
  maintenance:
    endpoints: ["/api/v1/otp/send"]
`))
	require.NoError(t, err)

	r := NewRouter(Config{
		Config:          cfg,
		Instrument:      instrument.NewNoop(),
		PublicEndpoints: map[string][]string{http.MethodPost: {"/api/v1/otp/send", "/api/v1/otp/verify"}},
	})
	ok := func(*Request) (any, error) { return map[string]any{}, nil }
	r.POST("/api/v1/otp/send", ok)
	r.POST("/api/v1/otp/verify", ok)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/otp/send", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/otp/verify", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPeekBodyRestoresBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`))

	assert.Equal(t, `{"a":1}`, string(peekBody(r)))

	var dst struct {
		A int `json:"a"`
	}
	require.NoError(t, (&Request{Request: r}).DecodeJSON(&dst))
	assert.Equal(t, 1, dst.A)
}
