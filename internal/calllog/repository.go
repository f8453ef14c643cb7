package calllog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no call log matches.
var ErrNotFound = errors.New("calllog: not found")

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists immutable call records in Postgres. Call logs are
// append-only; there is no update path.
type Repository struct {
	db querier
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("calllog: pgx pool required")
	}
	return &Repository{db: pool}
}

func newRepositoryWithQuerier(db querier) *Repository {
	if db == nil {
		panic("calllog: querier required")
	}
	return &Repository{db: db}
}

const callLogColumns = "id, call_id, phone_number, user_name, conversation_data, intent, sentiment, duration_seconds, created_at"

// Append records one completed call under a fresh call id.
func (r *Repository) Append(ctx context.Context, req AppendRequest) (*CallLog, error) {
	transcript := req.Transcript
	if transcript == nil {
		transcript = []TranscriptEntry{}
	}
	data, err := json.Marshal(transcript)
	if err != nil {
		return nil, fmt.Errorf("calllog: marshal transcript: %w", err)
	}
	callID := uuid.NewString()
	query := `
		INSERT INTO call_logs (call_id, phone_number, user_name, conversation_data, intent, sentiment, duration_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + callLogColumns
	row := r.db.QueryRow(ctx, query, callID, req.PhoneNumber, req.UserName, data, req.Intent, req.Sentiment, req.DurationSeconds)
	entry, err := scanCallLog(row)
	if err != nil {
		return nil, fmt.Errorf("calllog: insert: %w", err)
	}
	return entry, nil
}

// AppendCallLog satisfies the dialogue engine's call logger dependency.
func (r *Repository) AppendCallLog(ctx context.Context, req AppendRequest) error {
	_, err := r.Append(ctx, req)
	return err
}

// List returns call logs newest first, optionally filtered by phone number.
func (r *Repository) List(ctx context.Context, phone string, limit int32) ([]CallLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + callLogColumns + ` FROM call_logs`
	args := []any{}
	if phone != "" {
		query += ` WHERE phone_number = $1`
		args = append(args, phone)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("calllog: list: %w", err)
	}
	defer rows.Close()

	var out []CallLog
	for rows.Next() {
		entry, err := scanCallLog(rows)
		if err != nil {
			return nil, fmt.Errorf("calllog: scan: %w", err)
		}
		out = append(out, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("calllog: rows: %w", err)
	}
	return out, nil
}

// GetByCallID fetches one call record.
func (r *Repository) GetByCallID(ctx context.Context, callID string) (*CallLog, error) {
	query := `SELECT ` + callLogColumns + ` FROM call_logs WHERE call_id = $1`
	entry, err := scanCallLog(r.db.QueryRow(ctx, query, callID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("calllog: get: %w", err)
	}
	return entry, nil
}

func scanCallLog(row pgx.Row) (*CallLog, error) {
	var (
		entry CallLog
		data  []byte
	)
	if err := row.Scan(&entry.ID, &entry.CallID, &entry.PhoneNumber, &entry.UserName, &data, &entry.Intent, &entry.Sentiment, &entry.DurationSeconds, &entry.CreatedAt); err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &entry.Transcript); err != nil {
			return nil, fmt.Errorf("decode transcript: %w", err)
		}
	}
	return &entry, nil
}
