// Package goerror carries the user-facing message, HTTP mapping and retry
// hint of an error from the usecase up to the router.
package goerror

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// Sentinels returned by the repositories.
var (
	ErrNotFound = errors.New("resource not found")
	ErrConflict = errors.New("resource conflict")
)

type Type int

const (
	TypeServer Type = iota
	TypeBusiness
	TypeValidation
)

func (t Type) String() string {
	switch t {
	case TypeServer:
		return "server"
	case TypeBusiness:
		return "business"
	case TypeValidation:
		return "validation"
	}
	return "unknown"
}

type Code int

const (
	CodeInternal Code = iota
	CodeInvalidFormat
	CodeInvalidInput
	CodeBadRequest
	CodeNotFound
	CodeUnauthorized
	CodeForbidden
	CodeTooManyRequest
	CodeUnavailable
	// CodeDeliveryFailed is an SMS or email the provider refused.
	CodeDeliveryFailed
)

var codeStatus = map[Code]int{
	CodeInvalidFormat:  http.StatusBadRequest,
	CodeInvalidInput:   http.StatusBadRequest,
	CodeBadRequest:     http.StatusBadRequest,
	CodeNotFound:       http.StatusNotFound,
	CodeUnauthorized:   http.StatusUnauthorized,
	CodeForbidden:      http.StatusForbidden,
	CodeTooManyRequest: http.StatusTooManyRequests,
	CodeUnavailable:    http.StatusServiceUnavailable,
}

type Error struct {
	err     error
	msg     string
	errType Type
	code    Code
	fields  map[string]string
	retry   time.Duration
}

// Error prefers the wrapped cause so logs keep the root failure; Msg is what
// clients see.
func (e *Error) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	if e.msg != "" {
		return e.msg
	}
	return e.errType.String() + " error"
}

func (e *Error) Msg() string               { return e.msg }
func (e *Error) Type() Type                { return e.errType }
func (e *Error) Code() Code                { return e.code }
func (e *Error) Fields() map[string]string { return e.fields }
func (e *Error) RetryAfter() time.Duration { return e.retry }
func (e *Error) Unwrap() error             { return e.err }

func (e *Error) StatusCode() int {
	if s, ok := codeStatus[e.code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func (e *Error) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("type", e.errType.String()),
		slog.Int("status", e.StatusCode()),
		slog.String("msg", e.msg),
	}
	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}
	return slog.GroupValue(attrs...)
}

func NewServer(err error) error {
	return &Error{err: err, msg: "Internal server error", errType: TypeServer, code: CodeInternal}
}

func NewBusiness(msg string, code Code) error {
	return &Error{msg: msg, errType: TypeBusiness, code: code}
}

// NewInvalidInput wraps a validator error, or builds one from field/message
// pairs. An odd number of pairs is reported as a malformed body.
func NewInvalidInput(err error, kv ...string) error {
	if err != nil {
		return &Error{err: err, msg: "Validation error", errType: TypeValidation, code: CodeInvalidInput}
	}
	if len(kv)%2 != 0 {
		return NewInvalidFormat()
	}

	fields := make(map[string]string, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		fields[kv[i]] = kv[i+1]
	}
	return &Error{msg: "Validation error", errType: TypeValidation, code: CodeInvalidInput, fields: fields}
}

func NewInvalidFormat(msg ...string) error {
	m := "Invalid request body"
	if len(msg) > 0 {
		m = msg[0]
	}
	return &Error{msg: m, errType: TypeValidation, code: CodeInvalidFormat}
}

// NewTooManyRequest rounds retryAfter to whole seconds and also exposes it
// as the retry_after_seconds field.
func NewTooManyRequest(msg string, retryAfter time.Duration) error {
	retry := max(retryAfter.Round(time.Second), 0)

	return &Error{
		msg:     msg,
		errType: TypeBusiness,
		code:    CodeTooManyRequest,
		retry:   retry,
		fields:  map[string]string{"retry_after_seconds": strconv.FormatInt(int64(retry/time.Second), 10)},
	}
}

// NewUnavailable is a dependency failure worth retrying.
func NewUnavailable(msg string, err error) error {
	return &Error{err: err, msg: msg, errType: TypeServer, code: CodeUnavailable}
}

func NewDeliveryFailed(err error) error {
	return &Error{err: err, msg: "Failed to deliver message", errType: TypeServer, code: CodeDeliveryFailed}
}
