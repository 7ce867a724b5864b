package router

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/bgvotp/internal/pkg/config"
	"github.com/shandysiswandi/bgvotp/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const maxLoggedBody = 8 << 10

// recorder keeps the status, size and error of a response, plus the first
// maxLoggedBody bytes of its body.
type recorder struct {
	http.ResponseWriter
	status int
	bytes  int
	body   bytes.Buffer
	err    error
}

func (w *recorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *recorder) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if room := maxLoggedBody - w.body.Len(); room > 0 {
		w.body.Write(p[:min(len(p), room)])
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

func (w *recorder) SetError(err error)          { w.err = err }
func (w *recorder) Unwrap() http.ResponseWriter { return w.ResponseWriter }
func (w *recorder) statusCode() int             { return max(w.status, http.StatusOK) }
func (w *recorder) failed() bool                { return w.statusCode() >= http.StatusBadRequest }
func (w *recorder) serverFailed() bool          { return w.statusCode() >= http.StatusInternalServerError }

func matchedRoutePath(r *http.Request) string {
	if p := httprouter.ParamsFromContext(r.Context()).MatchedRoutePath(); p != "" {
		return p
	}
	return r.URL.Path
}

// bodyRedactor masks JSON bodies before they are logged. Bodies carry phone
// numbers, OTP codes and session tokens.
type bodyRedactor struct {
	mask map[string]bool
	tail map[string]bool
}

func newBodyRedactor(cfg config.Config) bodyRedactor {
	red := bodyRedactor{mask: map[string]bool{}, tail: map[string]bool{}}
	if cfg == nil {
		return red
	}
	for _, k := range cfg.GetArray("instrument.log_mask_fields") {
		red.mask[strings.ToLower(k)] = true
	}
	for _, k := range cfg.GetArray("instrument.log_tail_fields") {
		red.tail[strings.ToLower(k)] = true
	}
	return red
}

func (b bodyRedactor) redact(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return "<non-json body omitted>"
	}
	return b.walk(v)
}

func (b bodyRedactor) walk(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			switch key := strings.ToLower(k); {
			case b.mask[key]:
				out[k] = "***"
			case b.tail[key]:
				s, _ := inner.(string)
				out[k] = instrument.Tail(s)
			default:
				out[k] = b.walk(inner)
			}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = b.walk(inner)
		}
		return out
	default:
		return v
	}
}

// peekBody reads up to maxLoggedBody bytes and restores r.Body.
func peekBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	//nolint:errcheck // logging only
	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
	return head
}

// middlewareObservability traces each request, counts it and records its
// latency by route, and logs both ends. Response bodies are logged only for
// failures.
func middlewareObservability(cfg config.Config, ins instrument.Instrumentation) Middleware {
	red := newBodyRedactor(cfg)
	tracer := ins.Tracer("http.server")
	meter := ins.Meter("http.server")

	requests, err := meter.Int64Counter("http.server.requests", metric.WithDescription("HTTP requests served"))
	if err != nil {
		slog.Error("failed to create http request counter", "error", err)
	}
	latency, err := meter.Float64Histogram("http.server.duration", metric.WithDescription("HTTP request latency"), metric.WithUnit("ms"))
	if err != nil {
		slog.Error("failed to create http duration histogram", "error", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := matchedRoutePath(r)

			ctx, span := tracer.Start(r.Context(), r.Method+" "+route, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			slog.InfoContext(ctx, "request received",
				"method", r.Method,
				"path", route,
				"ip", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"body", red.redact(peekBody(r)),
			)

			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))

			attrs := []attribute.KeyValue{
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(route),
				semconv.HTTPResponseStatusCodeKey.Int(rec.statusCode()),
			}
			span.SetAttributes(attrs...)
			span.SetAttributes(attribute.Int("http.response_content_length", rec.bytes))
			if rec.err != nil {
				span.RecordError(rec.err)
			}
			if rec.serverFailed() {
				span.SetStatus(codes.Error, http.StatusText(rec.statusCode()))
			}

			elapsed := time.Since(start)
			if requests != nil {
				requests.Add(ctx, 1, metric.WithAttributes(attrs...))
			}
			if latency != nil {
				latency.Record(ctx, float64(elapsed.Microseconds())/1000, metric.WithAttributes(attrs...))
			}

			args := []any{"method", r.Method, "path", route, "status", rec.statusCode(), "bytes", rec.bytes, "latency_ms", elapsed.Milliseconds()}
			if rec.failed() {
				args = append(args, "body", red.redact(rec.body.Bytes()))
			}
			slog.InfoContext(ctx, "response sent", args...)
		})
	}
}
