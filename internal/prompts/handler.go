package prompts

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/smartappt/voice-ai-platform/pkg/logging"
)

// Handler exposes system prompt management for the admin surface.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	if repo == nil {
		panic("prompts: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Routes mounts the prompt endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Upsert)
	r.Get("/active", h.Active)
	r.Post("/{id}/activate", h.Activate)
	return r
}

// List returns all prompts. Route: GET /api/admin/prompts
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("list prompts failed", "error", err)
		http.Error(w, "failed to list prompts", http.StatusInternalServerError)
		return
	}
	if prompts == nil {
		prompts = []SystemPrompt{}
	}
	writeJSON(w, http.StatusOK, prompts)
}

// Active returns the content currently steering generation.
// Route: GET /api/admin/prompts/active
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	content, err := h.repo.ActivePrompt(r.Context())
	if err != nil {
		h.logger.Error("load active prompt failed", "error", err)
		http.Error(w, "failed to load active prompt", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": content})
}

// Upsert stores a prompt, optionally activating it. Route: POST /api/admin/prompts
func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	prompt, err := h.repo.Upsert(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalid) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("upsert prompt failed", "error", err)
		http.Error(w, "failed to store prompt", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, prompt)
}

// Activate switches the active prompt. Route: POST /api/admin/prompts/{id}/activate
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid prompt id", http.StatusBadRequest)
		return
	}
	if err := h.repo.Activate(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "prompt not found", http.StatusNotFound)
			return
		}
		h.logger.Error("activate prompt failed", "error", err, "id", id)
		http.Error(w, "failed to activate prompt", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": true})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
