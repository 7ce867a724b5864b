package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/bgvotp/internal/pkg/goerror"
)

// maxBodyBytes caps JSON request bodies. OTP payloads are a few hundred bytes.
const maxBodyBytes = 64 << 10

type Request struct {
	*http.Request
}

func (r *Request) Query(key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// QueryAll accepts both repeated keys and comma separated values, so
// status=active&status=consumed and status=active,consumed are the same filter.
func (r *Request) QueryAll(key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		out = append(out, strings.Split(v, ",")...)
	}
	return lo.Compact(lo.Map(out, func(s string, _ int) string { return strings.TrimSpace(s) }))
}

// QueryInt32 returns 0 for an absent key.
func (r *Request) QueryInt32(key string) (int32, error) {
	raw := r.Query(key)
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, goerror.NewInvalidFormat("Invalid query " + key)
	}
	return int32(n), nil
}

// QueryTime returns the zero time for an absent key.
func (r *Request) QueryTime(key, layout string) (time.Time, error) {
	raw := r.Query(key)
	if raw == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(layout, raw)
	if err != nil {
		return time.Time{}, goerror.NewInvalidFormat("Invalid query " + key)
	}
	return t, nil
}

// DecodeJSON reads exactly one JSON value into dst. Unknown fields, trailing
// data and bodies over maxBodyBytes are rejected as malformed.
func (r *Request) DecodeJSON(dst any) error {
	if r == nil || r.Body == nil {
		return goerror.NewInvalidFormat()
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes+1))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return goerror.NewInvalidFormat()
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return goerror.NewInvalidFormat()
	}
	return nil
}
