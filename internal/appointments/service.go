package appointments

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/smartappt/voice-ai-platform/pkg/logging"
)

// Service is the booking facade used by the dialogue engine and the HTTP
// handlers.
type Service struct {
	repo   *Repository
	logger *logging.Logger
	tracer trace.Tracer
}

func NewService(repo *Repository, logger *logging.Logger) *Service {
	if repo == nil {
		panic("appointments: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
		tracer: otel.Tracer("smartappt.internal.appointments"),
	}
}

// BookAppointment validates and persists a booking captured during a call.
// It satisfies the dialogue engine's booker dependency.
func (s *Service) BookAppointment(ctx context.Context, name, phone, datetime, service, notes string) error {
	ctx, span := s.tracer.Start(ctx, "appointments.book")
	defer span.End()

	req := CreateRequest{
		UserName:    name,
		PhoneNumber: phone,
		Datetime:    datetime,
		Service:     service,
		Notes:       notes,
	}
	if err := req.Validate(); err != nil {
		span.RecordError(err)
		return err
	}
	appt, err := s.repo.Create(ctx, req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("appointments: book: %w", err)
	}
	s.logger.Info("appointment booked",
		"id", appt.ID,
		"service", appt.Service,
		"datetime", appt.Datetime,
	)
	return nil
}

// Create validates and persists an appointment from the HTTP surface.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, req)
}

// Get fetches one appointment.
func (s *Service) Get(ctx context.Context, id int64) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns appointments, optionally filtered.
func (s *Service) List(ctx context.Context, phone, status string) ([]Appointment, error) {
	if status != "" && !ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, status)
	}
	return s.repo.List(ctx, phone, status)
}

// ListUpcoming returns scheduled appointments for the reminder scheduler.
func (s *Service) ListUpcoming(ctx context.Context, limit int32) ([]Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListUpcoming(ctx, limit)
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, req)
}

// Cancel marks an appointment cancelled.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	return s.repo.UpdateStatus(ctx, id, StatusCancelled)
}

// Delete removes an appointment entirely.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
