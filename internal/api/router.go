// Package api serves the read-only ops endpoints of the daemon: health,
// Prometheus metrics, resource states and the audit log.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"alpine-bot/internal/domain"
	"alpine-bot/internal/middleware"
)

// ResourceLister lists stored resources. resource.StateGuard implements it.
type ResourceLister interface {
	List(ctx context.Context) ([]domain.Resource, error)
	GetState(ctx context.Context, group string) (domain.State, error)
}

// AuditLister reads the audit log. repository.AuditRepo implements it.
type AuditLister interface {
	List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, error)
}

// Pinger checks the store. *sql.DB implements it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves the ops endpoints.
type Handler struct {
	resources ResourceLister
	audit     AuditLister
	db        Pinger
	logger    *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(resources ResourceLister, audit AuditLister, db Pinger, logger *slog.Logger) *Handler {
	return &Handler{resources: resources, audit: audit, db: db, logger: logger.With("component", "api")}
}

// NewRouter mounts the ops endpoints. ctx bounds background work of the
// middleware.
func NewRouter(ctx context.Context, h *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.RateLimiter(ctx, middleware.RateLimitConfig{RequestsPerSecond: 20, Burst: 40}))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Get("/resources", h.ListResources)
		r.Get("/resources/{name}", h.GetResource)
		r.Get("/audit", h.ListAudit)
	})
	return r
}

// Health reports whether the store answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type resourceJSON struct {
	Name      string    `json:"name"`
	Class     string    `json:"class"`
	State     string    `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}

type resourceList struct {
	Data []resourceJSON `json:"data"`
}

// ListResources returns every resource and its state.
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	list, err := h.resources.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := resourceList{Data: make([]resourceJSON, len(list))}
	for i, res := range list {
		out.Data[i] = resourceJSON{
			Name:      res.GroupName,
			Class:     string(res.Class),
			State:     res.State.String(),
			UpdatedAt: res.UpdatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// GetResource returns the state of one resource.
func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	state, err := h.resources.GetState(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name, "state": state.String()})
}

type auditJSON struct {
	ID        string    `json:"id"`
	Principal string    `json:"principal"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type auditList struct {
	Data          []auditJSON `json:"data"`
	NextPageToken string      `json:"next_page_token,omitempty"`
}

// ListAudit returns audit entries, newest first. Query parameters:
// principal, action, max_results and page_token.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := domain.PageRequest{PageToken: q.Get("page_token")}
	if v := q.Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, domain.ErrValidation("max_results must be an integer, got %q", v))
			return
		}
		page.MaxResults = n
	}

	limit, offset := page.Limit(), page.Offset()
	filter := domain.AuditFilter{Limit: limit + 1, Offset: offset}
	if v := q.Get("principal"); v != "" {
		filter.Principal = &v
	}
	if v := q.Get("action"); v != "" {
		filter.Action = &v
	}

	entries, err := h.audit.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	var out auditList
	if len(entries) > limit {
		entries = entries[:limit]
		out.NextPageToken = domain.EncodePageToken(offset + limit)
	}
	out.Data = make([]auditJSON, len(entries))
	for i, e := range entries {
		out.Data[i] = auditJSON{
			ID:        e.ID,
			Principal: e.Principal,
			Action:    e.Action,
			Target:    e.Target,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}
