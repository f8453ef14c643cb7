package handlers

import (
	"context"
	"net/http"

	"github.com/smartappt/voice-ai-platform/internal/appointments"
	"github.com/smartappt/voice-ai-platform/internal/reminders"
	"github.com/smartappt/voice-ai-platform/internal/telephony"
	"github.com/smartappt/voice-ai-platform/pkg/logging"
)

const reminderLookupFailed = "Sorry, we could not find your appointment details. Goodbye!"

// AppointmentGetter loads one appointment for the reminder script.
type AppointmentGetter interface {
	Get(ctx context.Context, id int64) (*appointments.Appointment, error)
}

// ReminderWebhookHandler serves the TwiML spoken when a reminder call is
// answered. The appointment is re-read at answer time, so a cancellation
// between placement and answer changes nothing for the caller but keeps the
// spoken details current.
type ReminderWebhookHandler struct {
	appts  AppointmentGetter
	logger *logging.Logger
}

func NewReminderWebhookHandler(appts AppointmentGetter, logger *logging.Logger) *ReminderWebhookHandler {
	if appts == nil {
		panic("handlers: appointment getter required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ReminderWebhookHandler{appts: appts, logger: logger}
}

// ServeReminder speaks the reminder for one appointment.
// Route: POST /twilio/reminder-webhook?appointment_id=N
func (h *ReminderWebhookHandler) ServeReminder(w http.ResponseWriter, r *http.Request) {
	id, err := reminders.ParseAppointmentID(r.URL.Query())
	if err != nil {
		h.logger.Warn("reminder webhook without valid appointment id", "error", err)
		h.writeFailure(w)
		return
	}
	appt, err := h.appts.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("reminder appointment lookup failed", "error", err, "appointment_id", id)
		h.writeFailure(w)
		return
	}
	resp := telephony.NewVoiceResponse().
		Say(reminders.ReminderMessage(appt)).
		Hangup()
	writeTwiML(w, h.logger, resp)
}

func (h *ReminderWebhookHandler) writeFailure(w http.ResponseWriter) {
	resp := telephony.NewVoiceResponse().
		Say(reminderLookupFailed).
		Hangup()
	writeTwiML(w, h.logger, resp)
}
