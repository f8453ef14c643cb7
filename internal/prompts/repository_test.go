package prompts

import (
	"context"
	"errors"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)
	return newRepositoryWithQuerier(mock), mock
}

func promptRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "name", "content", "active", "created_at"})
}

func TestActivePrompt(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT content FROM system_prompts WHERE active").
		WillReturnRows(pgxmock.NewRows([]string{"content"}).AddRow("Be a friendly scheduler."))

	content, err := repo.ActivePrompt(context.Background())
	if err != nil {
		t.Fatalf("active prompt: %v", err)
	}
	if content != "Be a friendly scheduler." {
		t.Fatalf("content = %q", content)
	}
}

func TestActivePromptFallsBackToDefault(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT content FROM system_prompts WHERE active").
		WillReturnError(pgx.ErrNoRows)

	content, err := repo.ActivePrompt(context.Background())
	if err != nil {
		t.Fatalf("active prompt: %v", err)
	}
	if content != DefaultPrompt {
		t.Fatalf("content = %q, want default", content)
	}
}

func TestActivePromptBlankContentFallsBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT content FROM system_prompts WHERE active").
		WillReturnRows(pgxmock.NewRows([]string{"content"}).AddRow("   "))

	content, err := repo.ActivePrompt(context.Background())
	if err != nil {
		t.Fatalf("active prompt: %v", err)
	}
	if content != DefaultPrompt {
		t.Fatalf("content = %q, want default", content)
	}
}

func TestUpsertInactiveSkipsTransaction(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	mock.ExpectQuery("INSERT INTO system_prompts").
		WithArgs("draft", "Be terse.").
		WillReturnRows(promptRows().AddRow(int64(1), "draft", "Be terse.", false, now))

	p, err := repo.Upsert(context.Background(), UpsertRequest{Name: "draft", Content: "Be terse."})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if p.Active {
		t.Fatal("inactive upsert must not activate")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertActivateDeactivatesOthersTransactionally(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE system_prompts SET active = false").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("INSERT INTO system_prompts").
		WithArgs("main", "Be warm.").
		WillReturnRows(promptRows().AddRow(int64(2), "main", "Be warm.", true, now))
	mock.ExpectCommit()

	p, err := repo.Upsert(context.Background(), UpsertRequest{Name: "main", Content: "Be warm.", Activate: true})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !p.Active {
		t.Fatal("activated upsert must return active prompt")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertRejectsEmptyFields(t *testing.T) {
	repo, _ := newMockRepo(t)
	if _, err := repo.Upsert(context.Background(), UpsertRequest{Name: "x"}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("got %v, want ErrInvalid", err)
	}
	if _, err := repo.Upsert(context.Background(), UpsertRequest{Content: "x"}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("got %v, want ErrInvalid", err)
	}
}

func TestActivateUnknownID(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE system_prompts SET active = false").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE system_prompts SET active = true").
		WithArgs(int64(99)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	if err := repo.Activate(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
