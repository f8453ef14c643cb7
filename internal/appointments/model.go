package appointments

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalid marks request validation failures.
var ErrInvalid = errors.New("appointments: invalid request")

// Appointment statuses. Spoken-word scheduling means datetime stays free
// text; status is the only lifecycle field.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Appointment is one booked appointment.
type Appointment struct {
	ID          int64     `json:"id"`
	UserName    string    `json:"user_name"`
	PhoneNumber string    `json:"phone_number"`
	// Datetime is the caller's spoken scheduling phrase, stored verbatim
	// ("tomorrow at 3pm", "TBD"). Interpretation happens downstream.
	Datetime  string    `json:"datetime"`
	Service   string    `json:"service"`
	Notes     string    `json:"notes"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateRequest carries the fields needed to book an appointment.
type CreateRequest struct {
	UserName    string `json:"user_name"`
	PhoneNumber string `json:"phone_number"`
	Datetime    string `json:"datetime"`
	Service     string `json:"service"`
	Notes       string `json:"notes"`
}

// Validate normalizes and checks the request, filling the documented
// defaults for fields the caller never provided.
func (r *CreateRequest) Validate() error {
	r.UserName = strings.TrimSpace(r.UserName)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	r.Datetime = strings.TrimSpace(r.Datetime)
	r.Service = strings.TrimSpace(r.Service)
	r.Notes = strings.TrimSpace(r.Notes)

	if r.UserName == "" {
		return fmt.Errorf("%w: user_name is required", ErrInvalid)
	}
	if r.PhoneNumber == "" {
		return fmt.Errorf("%w: phone_number is required", ErrInvalid)
	}
	if r.Datetime == "" {
		r.Datetime = "TBD"
	}
	if r.Service == "" {
		r.Service = "General"
	}
	return nil
}

// UpdateRequest carries a partial appointment update. Nil fields are left
// unchanged.
type UpdateRequest struct {
	UserName *string `json:"user_name,omitempty"`
	Datetime *string `json:"datetime,omitempty"`
	Service  *string `json:"service,omitempty"`
	Notes    *string `json:"notes,omitempty"`
	Status   *string `json:"status,omitempty"`
}

// Validate rejects empty updates and unknown statuses.
func (r *UpdateRequest) Validate() error {
	if r.UserName == nil && r.Datetime == nil && r.Service == nil && r.Notes == nil && r.Status == nil {
		return fmt.Errorf("%w: no fields to update", ErrInvalid)
	}
	if r.Status != nil && !ValidStatus(*r.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, *r.Status)
	}
	return nil
}

// ValidStatus reports whether s is a known appointment status.
func ValidStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
