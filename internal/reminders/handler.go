package reminders

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/smartappt/voice-ai-platform/internal/appointments"
	"github.com/smartappt/voice-ai-platform/pkg/logging"
)

// Handler exposes manual reminder operations for the admin surface.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("reminders: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes mounts the reminder endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/send/{id}", h.Send)
	r.Post("/send-all", h.SendAll)
	r.Get("/upcoming", h.Upcoming)
	return r
}

// Send places a reminder call for one appointment.
// Route: POST /api/reminders/send/{id}
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid appointment id", http.StatusBadRequest)
		return
	}
	resp, err := h.service.Send(r.Context(), id)
	if err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("send reminder failed", "error", err, "appointment_id", id)
		http.Error(w, "failed to place reminder call", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"call_sid": resp.SID,
		"status":   resp.Status,
	})
}

// SendAll places reminder calls for every scheduled appointment.
// Route: POST /api/reminders/send-all
func (h *Handler) SendAll(w http.ResponseWriter, r *http.Request) {
	placed, err := h.service.SendAll(r.Context(), 50)
	if err != nil {
		h.logger.Error("send-all reminders had failures", "error", err, "placed", placed)
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"placed": placed,
		"ok":     err == nil,
	})
}

// Upcoming lists appointments eligible for reminders.
// Route: GET /api/reminders/upcoming
func (h *Handler) Upcoming(w http.ResponseWriter, r *http.Request) {
	appts, err := h.service.Upcoming(r.Context(), 50)
	if err != nil {
		h.logger.Error("list upcoming reminders failed", "error", err)
		http.Error(w, "failed to list upcoming appointments", http.StatusInternalServerError)
		return
	}
	if appts == nil {
		appts = []appointments.Appointment{}
	}
	writeJSON(w, http.StatusOK, appts)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
