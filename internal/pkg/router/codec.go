package router

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shandysiswandi/bgvotp/internal/pkg/goerror"
	"github.com/shandysiswandi/bgvotp/internal/pkg/validator"
)

const defaultSuccessMessage = "request has been successfully"

// encodeError writes {success:false, error, details}. Unknown errors become a 500
// without leaking their text.
func encodeError(w http.ResponseWriter, err error) {
	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		writeJSON(w, errorResponse{Error: "Internal server error"}, http.StatusInternalServerError)
		return
	}

	resp := errorResponse{Error: gerr.Msg()}

	var errValidate validator.FieldErrors
	if errors.As(err, &errValidate) {
		resp.Details = errValidate.Values()
	} else if len(gerr.Fields()) > 0 {
		resp.Details = gerr.Fields()
	}

	if ra := gerr.RetryAfter(); ra > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(ra.Seconds()), 10))
	}

	writeJSON(w, resp, gerr.StatusCode())
}

// encodeSuccess flattens the payload next to success and message. A payload that
// does not encode to a JSON object is placed under "data".
func encodeSuccess(w http.ResponseWriter, resp any) {
	code := http.StatusOK
	if sc, ok := resp.(interface {
		StatusCode() int
	}); ok {
		code = sc.StatusCode()
	}

	if code == http.StatusNoContent || resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	msg := defaultSuccessMessage
	if m, ok := resp.(interface {
		Message() string
	}); ok {
		msg = m.Message()
	}

	body := map[string]any{}

	raw, err := json.Marshal(resp)
	if err != nil {
		slog.Error("server: failed to encode response", "error", err)
		writeJSON(w, errorResponse{Error: "Internal server error"}, http.StatusInternalServerError)
		return
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		body = map[string]any{"data": json.RawMessage(raw)}
	}

	if m, ok := resp.(interface {
		Meta() map[string]any
	}); ok {
		if meta := m.Meta(); len(meta) > 0 {
			body["meta"] = meta
		}
	}

	body["success"] = true
	body["message"] = msg

	writeJSON(w, body, code)
}
