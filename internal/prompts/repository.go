package prompts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultPrompt steers generation when no active prompt row exists.
const DefaultPrompt = "You are a helpful AI assistant."

// ErrNotFound is returned when the prompt id does not exist.
var ErrNotFound = errors.New("prompts: not found")

// ErrInvalid marks request validation failures.
var ErrInvalid = errors.New("prompts: invalid request")

// SystemPrompt is one stored persona definition. At most one row is active
// at a time; the active row steers every generative turn.
type SystemPrompt struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UpsertRequest creates a prompt and, when Activate is set, makes it the
// single active one.
type UpsertRequest struct {
	Name     string `json:"name"`
	Content  string `json:"content"`
	Activate bool   `json:"activate"`
}

func (r *UpsertRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Content = strings.TrimSpace(r.Content)
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if r.Content == "" {
		return fmt.Errorf("%w: content is required", ErrInvalid)
	}
	return nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository persists system prompts in Postgres.
type Repository struct {
	db querier
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("prompts: pgx pool required")
	}
	return &Repository{db: pool}
}

func newRepositoryWithQuerier(db querier) *Repository {
	if db == nil {
		panic("prompts: querier required")
	}
	return &Repository{db: db}
}

const promptColumns = "id, name, content, active, created_at"

// ActivePrompt returns the content of the active prompt, falling back to
// DefaultPrompt when none is active. It satisfies the dialogue engine's
// prompt source dependency.
func (r *Repository) ActivePrompt(ctx context.Context) (string, error) {
	var content string
	err := r.db.QueryRow(ctx, `SELECT content FROM system_prompts WHERE active ORDER BY created_at DESC LIMIT 1`).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DefaultPrompt, nil
		}
		return "", fmt.Errorf("prompts: load active: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return DefaultPrompt, nil
	}
	return content, nil
}

// Upsert inserts a prompt. With Activate set, the insert and the
// deactivation of every other row happen in one transaction so exactly one
// prompt is active afterwards.
func (r *Repository) Upsert(ctx context.Context, req UpsertRequest) (*SystemPrompt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if !req.Activate {
		row := r.db.QueryRow(ctx, `
			INSERT INTO system_prompts (name, content, active)
			VALUES ($1, $2, false)
			RETURNING `+promptColumns, req.Name, req.Content)
		p, err := scanPrompt(row)
		if err != nil {
			return nil, fmt.Errorf("prompts: insert: %w", err)
		}
		return p, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("prompts: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE system_prompts SET active = false WHERE active`); err != nil {
		return nil, fmt.Errorf("prompts: deactivate: %w", err)
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO system_prompts (name, content, active)
		VALUES ($1, $2, true)
		RETURNING `+promptColumns, req.Name, req.Content)
	p, err := scanPrompt(row)
	if err != nil {
		return nil, fmt.Errorf("prompts: insert active: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("prompts: commit: %w", err)
	}
	return p, nil
}

// Activate makes an existing prompt the single active one.
func (r *Repository) Activate(ctx context.Context, id int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("prompts: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE system_prompts SET active = false WHERE active`); err != nil {
		return fmt.Errorf("prompts: deactivate: %w", err)
	}
	ct, err := tx.Exec(ctx, `UPDATE system_prompts SET active = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("prompts: activate: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("prompts: commit: %w", err)
	}
	return nil
}

// List returns all prompts, newest first.
func (r *Repository) List(ctx context.Context) ([]SystemPrompt, error) {
	rows, err := r.db.Query(ctx, `SELECT `+promptColumns+` FROM system_prompts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("prompts: list: %w", err)
	}
	defer rows.Close()

	var out []SystemPrompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("prompts: scan: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("prompts: rows: %w", err)
	}
	return out, nil
}

func scanPrompt(row pgx.Row) (*SystemPrompt, error) {
	var p SystemPrompt
	if err := row.Scan(&p.ID, &p.Name, &p.Content, &p.Active, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
