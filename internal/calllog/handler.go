package calllog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/smartappt/voice-ai-platform/pkg/logging"
)

// Handler exposes read-only access to call records for the admin surface.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	if repo == nil {
		panic("calllog: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Routes mounts the call log endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{callID}", h.Get)
	return r
}

// List returns recent call logs. Route: GET /api/admin/call-logs?phone=...&limit=...
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	limit := int32(50)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || n <= 0 || n > 500 {
			http.Error(w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = int32(n)
	}
	logs, err := h.repo.List(r.Context(), phone, limit)
	if err != nil {
		h.logger.Error("list call logs failed", "error", err)
		http.Error(w, "failed to list call logs", http.StatusInternalServerError)
		return
	}
	if logs == nil {
		logs = []CallLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// Get returns one call record by call id. Route: GET /api/admin/call-logs/{callID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")
	entry, err := h.repo.GetByCallID(r.Context(), callID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "call log not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get call log failed", "error", err, "call_id", callID)
		http.Error(w, "failed to load call log", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
