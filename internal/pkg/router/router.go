package router

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/bgvotp/internal/pkg/config"
	"github.com/shandysiswandi/bgvotp/internal/pkg/instrument"
	"github.com/shandysiswandi/bgvotp/internal/pkg/jwt"
	"github.com/shandysiswandi/bgvotp/internal/pkg/uid"
)

// Handler returns a payload to encode as JSON, or an error to map onto a
// status code.
type Handler func(r *Request) (any, error)

type Config struct {
	Config     config.Config
	UUID       uid.StringID
	JWT        jwt.JWT
	Instrument instrument.Instrumentation
	// PublicEndpoints are route patterns, keyed by method, that skip bearer
	// authentication. GET /health is always public.
	PublicEndpoints map[string][]string
}

type errorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// routeSet answers "is this method and pattern listed".
type routeSet map[string]map[string]struct{}

func (s routeSet) add(method string, patterns ...string) {
	if s[method] == nil {
		s[method] = map[string]struct{}{}
	}
	for _, p := range patterns {
		s[method][p] = struct{}{}
	}
}

func (s routeSet) has(method, pattern string) bool {
	_, ok := s[method][pattern]
	return ok
}

type Router struct {
	hr  *httprouter.Router
	mws []Middleware
}

func NewRouter(cfg Config) *Router {
	public := routeSet{}
	public.add(http.MethodGet, "/health")
	for method, patterns := range cfg.PublicEndpoints {
		public.add(method, patterns...)
	}

	hr := httprouter.New()
	hr.SaveMatchedRoutePath = true
	hr.NotFound = statusHandler(http.StatusNotFound, "endpoint not found")
	hr.MethodNotAllowed = statusHandler(http.StatusMethodNotAllowed, "method not allowed")
	hr.GET("/health", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		writeJSON(w, map[string]any{"success": true, "message": "ok"}, http.StatusOK)
	})

	return &Router{
		hr: hr,
		// order matters: recovery first, auth last so every rejection is
		// still logged with a correlation id and client ip
		mws: []Middleware{
			middlewareRecoverer,
			middlewareClientIP,
			middlewareCorrelationID(cfg.UUID),
			middlewareObservability(cfg.Config, cfg.Instrument),
			middlewareMaintenance(cfg.Config),
			middlewareAuthentication(cfg.JWT, public),
		},
	}
}

func (r *Router) GET(path string, h Handler, mws ...Middleware) {
	r.Handle(http.MethodGet, path, h, mws...)
}

func (r *Router) POST(path string, h Handler, mws ...Middleware) {
	r.Handle(http.MethodPost, path, h, mws...)
}

// Handle registers h behind the router wide middleware followed by mws.
func (r *Router) Handle(method, path string, h Handler, mws ...Middleware) {
	r.hr.Handler(method, path, Chain(adapt(h), slices.Concat(r.mws, mws)...))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.hr.ServeHTTP(w, req)
}

func adapt(h Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resp, err := h(&Request{Request: req})
		if err == nil {
			encodeSuccess(w, resp)
			return
		}

		// lets the observability recorder log the cause, not just the status
		if rec, ok := w.(interface{ SetError(error) }); ok {
			rec.SetError(err)
		}
		encodeError(w, err)
	})
}

func statusHandler(code int, msg string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, errorResponse{Error: msg}, code)
	})
}

func writeJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("router: failed to encode response", "error", err)
	}
}
