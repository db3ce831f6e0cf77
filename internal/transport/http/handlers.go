package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/martinhantha/kutt/internal/domain"
	"github.com/martinhantha/kutt/internal/errx"
	"github.com/martinhantha/kutt/internal/filter"
	"github.com/martinhantha/kutt/internal/service"
)

// Listing limits
const (
	DefaultListLimit = 10
	MaxListLimit     = 50
)

// Handler holds the HTTP handlers for link resolution and management
type Handler struct {
	resolver      service.Resolver
	defaultDomain string
	logger        *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(resolver service.Resolver, defaultDomain string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		resolver:      resolver,
		defaultDomain: defaultDomain,
		logger:        logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type batchDeleteResponse struct {
	Removed int64 `json:"removed"`
}

// Redirect handles GET /{address} on the default domain
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if address == "" || !h.isDefaultHost(r.Host) {
		http.NotFound(w, r)
		return
	}

	link, err := h.resolver.Find(r.Context(), filter.ByAddress(address, domain.DefaultDomain()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if link == nil {
		http.NotFound(w, r)
		return
	}
	if link.Password != "" {
		h.writeJSON(w, http.StatusForbidden, errorResponse{Error: "link is password protected"})
		return
	}

	http.Redirect(w, r, link.Target, http.StatusFound)
}

// ListLinks handles GET /api/links
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	skip, err := parseUint(query.Get("skip"), 0)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "skip must be a non-negative integer"})
		return
	}
	limit, err := parseUint(query.Get("limit"), DefaultListLimit)
	if err != nil || limit == 0 {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
		return
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	search := strings.TrimSpace(query.Get("search"))

	rows, err := h.resolver.List(r.Context(), filter.Filter{}, domain.ListParams{Skip: skip, Limit: limit, Search: search})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	total, err := h.resolver.Count(r.Context(), filter.Filter{}, domain.SearchParams{Search: search})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if rows == nil {
		rows = []*domain.TargetRow{}
	}
	h.writeJSON(w, http.StatusOK, domain.ListLinksResponse{
		Total: total,
		Skip:  skip,
		Limit: limit,
		Data:  rows,
	})
}

// CreateLink handles POST /api/links
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.DebugContext(r.Context(), "invalid JSON in create link request", "error", err)
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	if req.Target == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "target is required"})
		return
	}
	if len(req.Target) > domain.MaxTargetLength {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "target is too long"})
		return
	}

	link, err := h.resolver.Create(r.Context(), domain.CreateLinkParams{
		Address:     strings.TrimSpace(req.Address),
		DomainID:    req.DomainID,
		Target:      req.Target,
		Language:    req.Language,
		Description: req.Description,
		Password:    req.Password,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, publicLink(link))
}

// UpdateLink handles PATCH /api/links/{id}
func (h *Handler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	id, ok := h.linkID(w, r)
	if !ok {
		return
	}

	var req domain.UpdateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	patch := domain.LinkPatch{
		Address:     req.Address,
		DomainID:    req.DomainID,
		Target:      req.Target,
		Language:    req.Language,
		Description: req.Description,
		Password:    req.Password,
	}
	if patch.IsEmpty() {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "nothing to update"})
		return
	}

	links, err := h.resolver.Update(r.Context(), filter.ByID(id), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(links) == 0 {
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "link not found"})
		return
	}

	h.writeJSON(w, http.StatusOK, publicLink(links[0]))
}

// DeleteLink handles DELETE /api/links/{id}
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	id, ok := h.linkID(w, r)
	if !ok {
		return
	}

	result, err := h.resolver.Remove(r.Context(), filter.ByID(id))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !result.Removed {
		if result.Error == nil {
			h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "link not found"})
			return
		}
		h.writeError(w, r, result.Error)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BatchDeleteLinks handles POST /api/links/batch-delete
func (h *Handler) BatchDeleteLinks(w http.ResponseWriter, r *http.Request) {
	var req domain.BatchDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	if len(req.IDs) == 0 {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "ids are required"})
		return
	}

	result, err := h.resolver.BatchRemove(r.Context(), filter.ByIDs(req.IDs...))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, batchDeleteResponse{Removed: result.Affected})
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.resolver.Ping(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "health check failed", "error", err)
		h.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "store unavailable"})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) isDefaultHost(host string) bool {
	if strings.EqualFold(host, h.defaultDomain) {
		return true
	}
	// DEFAULT_DOMAIN may omit the port the server listens on
	hostname, _, err := net.SplitHostPort(host)
	return err == nil && strings.EqualFold(hostname, h.defaultDomain)
}

func (h *Handler) linkID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid link id"})
		return 0, false
	}
	return id, true
}

// writeError maps an error kind to a status code
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	var message string
	switch status {
	case http.StatusNotFound:
		message = "link not found"
	case http.StatusConflict:
		message = "custom address is already in use"
	case http.StatusBadRequest:
		message = err.Error()
		var e *errx.Error
		if errors.As(err, &e) && e.Err != nil {
			message = e.Err.Error()
		}
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		message = http.StatusText(status)
	}

	h.writeJSON(w, status, errorResponse{Error: message})
}

func statusFor(err error) int {
	switch errx.KindOf(err) {
	case errx.NotFound:
		return http.StatusNotFound
	case errx.Invalid:
		return http.StatusBadRequest
	case errx.Conflict:
		return http.StatusConflict
	case errx.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// publicLink strips the password hash before a link leaves the process
func publicLink(link *domain.Link) *domain.Link {
	out := *link
	out.Password = ""
	return &out
}

func parseUint(raw string, fallback uint64) (uint64, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}
