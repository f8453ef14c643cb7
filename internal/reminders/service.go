package reminders

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/smartappt/voice-ai-platform/internal/appointments"
	"github.com/smartappt/voice-ai-platform/internal/twilioclient"
	"github.com/smartappt/voice-ai-platform/pkg/logging"
)

// AppointmentSource supplies the appointments reminders operate on.
type AppointmentSource interface {
	Get(ctx context.Context, id int64) (*appointments.Appointment, error)
	ListUpcoming(ctx context.Context, limit int32) ([]appointments.Appointment, error)
}

// CallPlacer places outbound calls.
type CallPlacer interface {
	CreateCall(ctx context.Context, req twilioclient.CallRequest) (*twilioclient.CallResponse, error)
}

// Service places reminder calls for scheduled appointments. The reminder is
// an outbound call whose TwiML is served by the reminder webhook, so the
// spoken content always reflects the appointment at answer time.
type Service struct {
	appts   AppointmentSource
	caller  CallPlacer
	baseURL string
	logger  *logging.Logger
	tracer  trace.Tracer
}

func NewService(appts AppointmentSource, caller CallPlacer, publicBaseURL string, logger *logging.Logger) *Service {
	if appts == nil {
		panic("reminders: appointment source required")
	}
	if caller == nil {
		panic("reminders: call placer required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		appts:   appts,
		caller:  caller,
		baseURL: publicBaseURL,
		logger:  logger,
		tracer:  otel.Tracer("smartappt.internal.reminders"),
	}
}

// Send places a reminder call for one appointment. Only scheduled
// appointments are eligible.
func (s *Service) Send(ctx context.Context, appointmentID int64) (*twilioclient.CallResponse, error) {
	ctx, span := s.tracer.Start(ctx, "reminders.send")
	defer span.End()

	appt, err := s.appts.Get(ctx, appointmentID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if appt.Status != appointments.StatusScheduled {
		return nil, fmt.Errorf("reminders: appointment %d is %s, not scheduled", appointmentID, appt.Status)
	}

	resp, err := s.caller.CreateCall(ctx, twilioclient.CallRequest{
		To:       appt.PhoneNumber,
		TwiMLURL: s.reminderURL(appt.ID),
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("reminders: place call: %w", err)
	}
	s.logger.Info("reminder call placed",
		"appointment_id", appt.ID,
		"call_sid", resp.SID,
	)
	return resp, nil
}

// SendAll places reminder calls for every scheduled appointment, continuing
// past individual failures. It returns how many calls were placed and the
// first error encountered, if any.
func (s *Service) SendAll(ctx context.Context, limit int32) (int, error) {
	ctx, span := s.tracer.Start(ctx, "reminders.send_all")
	defer span.End()

	appts, err := s.appts.ListUpcoming(ctx, limit)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("reminders: list upcoming: %w", err)
	}

	var (
		placed   int
		firstErr error
	)
	for _, appt := range appts {
		if _, err := s.caller.CreateCall(ctx, twilioclient.CallRequest{
			To:       appt.PhoneNumber,
			TwiMLURL: s.reminderURL(appt.ID),
		}); err != nil {
			s.logger.Error("reminder call failed", "error", err, "appointment_id", appt.ID)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		placed++
	}
	return placed, firstErr
}

// Upcoming lists the scheduled appointments the scheduler would remind.
func (s *Service) Upcoming(ctx context.Context, limit int32) ([]appointments.Appointment, error) {
	return s.appts.ListUpcoming(ctx, limit)
}

// ReminderMessage is what the reminder webhook speaks for an appointment.
func ReminderMessage(appt *appointments.Appointment) string {
	return fmt.Sprintf("Hello %s! This is a reminder for your %s appointment scheduled for %s. We look forward to seeing you. Goodbye!",
		appt.UserName, appt.Service, appt.Datetime)
}

// ErrMissingAppointmentID is returned when the reminder webhook is called
// without an appointment reference.
var ErrMissingAppointmentID = errors.New("reminders: appointment id required")

// ParseAppointmentID extracts the appointment id from reminder webhook
// query parameters.
func ParseAppointmentID(values url.Values) (int64, error) {
	raw := values.Get("appointment_id")
	if raw == "" {
		return 0, ErrMissingAppointmentID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("reminders: invalid appointment id %q", raw)
	}
	return id, nil
}

func (s *Service) reminderURL(appointmentID int64) string {
	return fmt.Sprintf("%s/twilio/reminder-webhook?appointment_id=%d", s.baseURL, appointmentID)
}
