package repository

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping test")
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Skipf("Postgres not available, skipping test: %v", err)
	}

	repo := NewMutationRepository(db)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	db.MustExec(`TRUNCATE mutation_journal`)

	t.Cleanup(func() {
		db.Exec(`TRUNCATE mutation_journal`)
		db.Close()
	})
	return db
}

func TestMutationRepository_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMutationRepository(db)
	ctx := context.Background()

	committed := uuid.New()
	rolledBack := uuid.New()
	pending := uuid.New()

	for id, name := range map[uuid.UUID]string{committed: "create_post", rolledBack: "toggle_like", pending: "toggle_follow"} {
		if err := repo.Create(ctx, id, name); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	if err := repo.UpdateState(ctx, committed, MutationStateCommitted, nil); err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}
	msg := "toggle_like rejected: remote api: status=409"
	if err := repo.UpdateState(ctx, rolledBack, MutationStateRolledBack, &msg); err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}

	records, err := repo.ListRolledBack(ctx, 10)
	if err != nil {
		t.Fatalf("ListRolledBack failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d rolled-back records, want 1", len(records))
	}
	if records[0].ID != rolledBack || records[0].Name != "toggle_like" {
		t.Errorf("record = %+v", records[0])
	}
	if records[0].Error == nil || *records[0].Error != msg {
		t.Errorf("record error = %v, want %q", records[0].Error, msg)
	}

	open, err := repo.ListByStates(ctx, []string{MutationStatePending, MutationStateCommitted}, 10)
	if err != nil {
		t.Fatalf("ListByStates failed: %v", err)
	}
	if len(open) != 2 {
		t.Errorf("got %d pending/committed records, want 2", len(open))
	}
}
