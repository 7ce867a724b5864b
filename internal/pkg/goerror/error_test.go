package goerror

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_StatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "server", err: NewServer(errors.New("boom")), want: http.StatusInternalServerError},
		{name: "invalid input", err: NewInvalidInput(nil, "phone_number", "required"), want: http.StatusBadRequest},
		{name: "invalid format", err: NewInvalidFormat(), want: http.StatusBadRequest},
		{name: "bad request", err: NewBusiness("Invalid OTP code", CodeBadRequest), want: http.StatusBadRequest},
		{name: "not found", err: NewBusiness("user not found", CodeNotFound), want: http.StatusNotFound},
		{name: "forbidden", err: NewBusiness("account inactive", CodeForbidden), want: http.StatusForbidden},
		{name: "too many", err: NewTooManyRequest("slow down", time.Minute), want: http.StatusTooManyRequests},
		{name: "unavailable", err: NewUnavailable("try again", errors.New("db")), want: http.StatusServiceUnavailable},
		{name: "delivery", err: NewDeliveryFailed(errors.New("gateway")), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gerr *Error
			require.ErrorAs(t, tt.err, &gerr)
			assert.Equal(t, tt.want, gerr.StatusCode())
		})
	}
}

func TestNewTooManyRequest(t *testing.T) {
	err := NewTooManyRequest("Too many OTP requests", 1500*time.Millisecond)

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "Too many OTP requests", gerr.Msg())
	assert.Equal(t, 2*time.Second, gerr.RetryAfter())
	assert.Equal(t, map[string]string{"retry_after_seconds": "2"}, gerr.Fields())
	assert.Equal(t, TypeBusiness, gerr.Type())
}

func TestNewInvalidInput_OddPairs(t *testing.T) {
	err := NewInvalidInput(nil, "only_key")

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, CodeInvalidFormat, gerr.Code())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewUnavailable("Session creation failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "connection reset", err.Error())
}

func TestError_LogValue(t *testing.T) {
	err := NewUnavailable("SMS gateway unavailable", errors.New("dial tcp: timeout"))

	var gerr *Error
	require.ErrorAs(t, err, &gerr)

	got := map[string]string{}
	for _, a := range gerr.LogValue().Group() {
		got[a.Key] = a.Value.String()
	}
	assert.Equal(t, map[string]string{
		"type":   "server",
		"status": "503",
		"msg":    "SMS gateway unavailable",
		"cause":  "dial tcp: timeout",
	}, got)
}
