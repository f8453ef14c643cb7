package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when the appointment id does not exist.
var ErrNotFound = errors.New("appointments: not found")

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists appointments in Postgres.
type Repository struct {
	db querier
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Repository{db: pool}
}

func newRepositoryWithQuerier(db querier) *Repository {
	if db == nil {
		panic("appointments: querier required")
	}
	return &Repository{db: db}
}

const appointmentColumns = "id, user_name, phone_number, datetime, service, notes, status, created_at"

// Create inserts a new appointment in scheduled status and returns it.
func (r *Repository) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	query := `
		INSERT INTO appointments (user_name, phone_number, datetime, service, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + appointmentColumns
	row := r.db.QueryRow(ctx, query, req.UserName, req.PhoneNumber, req.Datetime, req.Service, req.Notes, StatusScheduled)
	appt, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("appointments: insert: %w", err)
	}
	return appt, nil
}

// GetByID fetches one appointment.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: get: %w", err)
	}
	return appt, nil
}

// List returns appointments newest first, optionally filtered by phone
// number and/or status.
func (r *Repository) List(ctx context.Context, phone, status string) ([]Appointment, error) {
	var (
		conds []string
		args  []any
	)
	if phone != "" {
		args = append(args, phone)
		conds = append(conds, fmt.Sprintf("phone_number = $%d", len(args)))
	}
	if status != "" {
		args = append(args, status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// ListUpcoming returns scheduled appointments created within the reminder
// window, oldest first. Datetime is free text, so the creation timestamp is
// the only orderable signal.
func (r *Repository) ListUpcoming(ctx context.Context, limit int32) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2`
	rows, err := r.db.Query(ctx, query, StatusScheduled, limit)
	if err != nil {
		return nil, fmt.Errorf("appointments: list upcoming: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// Update applies a partial update and returns the new row.
func (r *Repository) Update(ctx context.Context, id int64, req UpdateRequest) (*Appointment, error) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if req.UserName != nil {
		set("user_name", *req.UserName)
	}
	if req.Datetime != nil {
		set("datetime", *req.Datetime)
	}
	if req.Service != nil {
		set("service", *req.Service)
	}
	if req.Notes != nil {
		set("notes", *req.Notes)
	}
	if req.Status != nil {
		set("status", *req.Status)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE appointments SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), appointmentColumns)

	appt, err := scanAppointment(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: update: %w", err)
	}
	return appt, nil
}

// UpdateStatus moves an appointment through its lifecycle.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("appointments: invalid status %q", status)
	}
	ct, err := r.db.Exec(ctx, `UPDATE appointments SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("appointments: update status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an appointment.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("appointments: delete: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	if err := row.Scan(&a.ID, &a.UserName, &a.PhoneNumber, &a.Datetime, &a.Service, &a.Notes, &a.Status, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var out []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.UserName, &a.PhoneNumber, &a.Datetime, &a.Service, &a.Notes, &a.Status, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: rows: %w", err)
	}
	return out, nil
}
