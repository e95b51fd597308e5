// Package httpapi serves the queries of a schema Reader as a JSON API.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/CognitoIQ/ocxschema/internal/metrics"
	"github.com/CognitoIQ/ocxschema/internal/suggest"
	"github.com/CognitoIQ/ocxschema/xsd"
	"github.com/CognitoIQ/ocxschema/xsderrors"
)

const healthPath = "/healthz"

// Options configure the router.
type Options struct {
	Logger zerolog.Logger
	// Metrics, if set, records request metrics.
	Metrics *metrics.Collector
	// Gatherer, if set, is served at MetricsPath.
	Gatherer    prometheus.Gatherer
	MetricsPath string
	// Timeout bounds each request. Zero means 60 seconds.
	Timeout time.Duration
}

// Handler answers API requests from a Reader.
type Handler struct {
	reader *xsd.Reader
	logger zerolog.Logger
}

// NewRouter returns the API router for reader.
func NewRouter(reader *xsd.Reader, opts Options) chi.Router {
	h := &Handler{reader: reader, logger: opts.Logger}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(opts.Logger, opts.MetricsPath))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.Timeout))
	if opts.Metrics != nil {
		r.Use(NewMetricsMiddleware(opts.Metrics, opts.MetricsPath))
	}

	r.Get(healthPath, h.Health)
	if opts.Gatherer != nil {
		r.Handle(opts.MetricsPath, promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", h.Summary)
		r.Get("/declarations/{kind}", h.Declarations)
		r.Get("/lookup/{name}", h.Lookup)
		r.Get("/namespaces", h.Namespaces)
		r.Get("/changes", h.Changes)
		r.Post("/parse", h.Parse)
	})
	return r
}

// Health reports liveness and the reader state.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"status": "ok",
		"state":  h.reader.State().String(),
	}
	if m, err := h.reader.Model(); err == nil {
		resp["version"] = m.Version()
		resp["source"] = m.Source()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.reader.Summary()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Declarations lists the declarations of one kind. The optional q
// parameter keeps names containing it, ignoring case.
func (h *Handler) Declarations(w http.ResponseWriter, r *http.Request) {
	kind, err := xsd.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_kind", err.Error())
		return
	}
	decls, err := h.reader.Declarations(kind)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if q := strings.ToLower(r.URL.Query().Get("q")); q != "" {
		filtered := decls[:0]
		for _, d := range decls {
			if strings.Contains(strings.ToLower(d.Name), q) {
				filtered = append(filtered, d)
			}
		}
		decls = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":         kind,
		"count":        len(decls),
		"declarations": decls,
	})
}

type lookupResponse struct {
	*xsd.Declaration
	Source string `json:"source,omitempty"`
}

// Lookup returns one declaration. The optional kind restricts the
// search to one kind of declaration. With source=true the response
// also carries the XML the declaration was built from.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	m, err := h.reader.Model()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	name := chi.URLParam(r, "name")
	d := m.Lookup(name)
	if k := r.URL.Query().Get("kind"); k != "" {
		kind, err := xsd.ParseKind(k)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_kind", err.Error())
			return
		}
		d = m.LookupKind(name, kind)
	}
	if d == nil {
		resp := map[string]string{
			"code":    "not_found",
			"message": "no declaration named " + name,
		}
		if s, ok := suggest.Closest(name, m.ElementNames()); ok {
			resp["suggestion"] = s
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"error": resp})
		return
	}
	resp := lookupResponse{Declaration: d}
	if r.URL.Query().Get("source") == "true" {
		if node := m.Node(d); node != nil {
			resp.Source = node.String()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Namespaces(w http.ResponseWriter, r *http.Request) {
	ns, err := h.reader.Namespaces()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ns)
}

// Changes returns the schema history; filter is current or all
// (the default).
func (h *Handler) Changes(w http.ResponseWriter, r *http.Request) {
	filter := xsd.ChangeAll
	if f := r.URL.Query().Get("filter"); f != "" {
		var err error
		if filter, err = xsd.ParseChangeFilter(f); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
			return
		}
	}
	changes, err := h.reader.Changes(filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if changes == nil {
		changes = []xsd.Change{}
	}
	writeJSON(w, http.StatusOK, changes)
}

type parseRequest struct {
	Source string `json:"source"`
}

// Parse rebuilds the model from the source named in the request body.
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if req.Source == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "source is required")
		return
	}
	if err := h.reader.Process(r.Context(), req.Source); err != nil {
		h.fail(w, r, err)
		return
	}
	h.Summary(w, r)
}

// fail maps err onto a status code.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, xsderrors.ErrNotParsed):
		writeError(w, http.StatusServiceUnavailable, "not_parsed", err.Error())
	case errors.Is(err, xsderrors.ErrSourceNotFound):
		writeError(w, http.StatusNotFound, "source_not_found", err.Error())
	case errors.Is(err, xsderrors.ErrMalformedSchema):
		writeError(w, http.StatusUnprocessableEntity, "malformed_schema", err.Error())
	default:
		h.logger.Error().Err(err).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
