package reminders

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/smartappt/voice-ai-platform/internal/appointments"
	"github.com/smartappt/voice-ai-platform/internal/twilioclient"
)

type stubAppointments struct {
	byID     map[int64]*appointments.Appointment
	upcoming []appointments.Appointment
}

func (s *stubAppointments) Get(_ context.Context, id int64) (*appointments.Appointment, error) {
	if appt, ok := s.byID[id]; ok {
		return appt, nil
	}
	return nil, appointments.ErrNotFound
}

func (s *stubAppointments) ListUpcoming(context.Context, int32) ([]appointments.Appointment, error) {
	return s.upcoming, nil
}

type stubCaller struct {
	mu       sync.Mutex
	requests []twilioclient.CallRequest
	failFor  map[string]error
}

func (s *stubCaller) CreateCall(_ context.Context, req twilioclient.CallRequest) (*twilioclient.CallResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failFor[req.To]; ok {
		return nil, err
	}
	s.requests = append(s.requests, req)
	return &twilioclient.CallResponse{SID: "CA" + req.To, Status: "queued"}, nil
}

func scheduled(id int64, phone string) appointments.Appointment {
	return appointments.Appointment{
		ID:          id,
		UserName:    "Ada",
		PhoneNumber: phone,
		Datetime:    "tomorrow 3pm",
		Service:     "consultation",
		Status:      appointments.StatusScheduled,
	}
}

func TestSendPlacesCallWithWebhookURL(t *testing.T) {
	appt := scheduled(7, "+15551230001")
	caller := &stubCaller{}
	svc := NewService(&stubAppointments{byID: map[int64]*appointments.Appointment{7: &appt}},
		caller, "https://voice.example.com", nil)

	resp, err := svc.Send(context.Background(), 7)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if resp.Status != "queued" {
		t.Fatalf("resp = %+v", resp)
	}
	if len(caller.requests) != 1 {
		t.Fatalf("calls = %d, want 1", len(caller.requests))
	}
	got := caller.requests[0]
	if got.To != "+15551230001" {
		t.Errorf("to = %q", got.To)
	}
	if got.TwiMLURL != "https://voice.example.com/twilio/reminder-webhook?appointment_id=7" {
		t.Errorf("twiml url = %q", got.TwiMLURL)
	}
}

func TestSendRejectsNonScheduled(t *testing.T) {
	appt := scheduled(7, "+15551230001")
	appt.Status = appointments.StatusCancelled
	svc := NewService(&stubAppointments{byID: map[int64]*appointments.Appointment{7: &appt}},
		&stubCaller{}, "https://voice.example.com", nil)

	if _, err := svc.Send(context.Background(), 7); err == nil {
		t.Fatal("expected error for cancelled appointment")
	}
}

func TestSendUnknownAppointment(t *testing.T) {
	svc := NewService(&stubAppointments{}, &stubCaller{}, "https://voice.example.com", nil)
	if _, err := svc.Send(context.Background(), 404); !errors.Is(err, appointments.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestSendAllContinuesPastFailures(t *testing.T) {
	caller := &stubCaller{failFor: map[string]error{"+15551230002": errors.New("busy")}}
	svc := NewService(&stubAppointments{upcoming: []appointments.Appointment{
		scheduled(1, "+15551230001"),
		scheduled(2, "+15551230002"),
		scheduled(3, "+15551230003"),
	}}, caller, "https://voice.example.com", nil)

	placed, err := svc.SendAll(context.Background(), 50)
	if placed != 2 {
		t.Fatalf("placed = %d, want 2", placed)
	}
	if err == nil {
		t.Fatal("expected first error to surface")
	}
}

func TestReminderMessage(t *testing.T) {
	appt := scheduled(1, "+15551230001")
	msg := ReminderMessage(&appt)
	for _, want := range []string{"Ada", "consultation", "tomorrow 3pm"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q: %s", want, msg)
		}
	}
}

func TestParseAppointmentID(t *testing.T) {
	if id, err := ParseAppointmentID(url.Values{"appointment_id": {"42"}}); err != nil || id != 42 {
		t.Fatalf("got (%d, %v)", id, err)
	}
	if _, err := ParseAppointmentID(url.Values{}); !errors.Is(err, ErrMissingAppointmentID) {
		t.Fatalf("got %v, want ErrMissingAppointmentID", err)
	}
	for _, bad := range []string{"abc", "0", "-3"} {
		if _, err := ParseAppointmentID(url.Values{"appointment_id": {bad}}); err == nil {
			t.Errorf("id %q: expected error", bad)
		}
	}
}
