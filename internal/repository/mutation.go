package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"feedsync/internal/model"
)

const mutationSchema = `
	CREATE TABLE IF NOT EXISTS mutation_journal (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		state      TEXT NOT NULL,
		error      TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_mutation_journal_state_created
		ON mutation_journal (state, created_at DESC);
`

// Journal states, matching optimistic.State.String().
const (
	MutationStatePending    = "pending"
	MutationStateCommitted  = "committed"
	MutationStateRolledBack = "rolled_back"
)

type mutationRepository struct {
	db *sqlx.DB
}

func NewMutationRepository(db *sqlx.DB) MutationRepository {
	return &mutationRepository{db: db}
}

func (r *mutationRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, mutationSchema); err != nil {
		return fmt.Errorf("create mutation_journal: %w", err)
	}
	return nil
}

func (r *mutationRepository) Create(ctx context.Context, id uuid.UUID, name string) error {
	query := `
		INSERT INTO mutation_journal (id, name, state)
		VALUES ($1, $2, $3)
	`
	_, err := r.db.ExecContext(ctx, query, id, name, MutationStatePending)
	if err != nil {
		return fmt.Errorf("insert mutation: %w", err)
	}
	return nil
}

func (r *mutationRepository) UpdateState(ctx context.Context, id uuid.UUID, state string, errMsg *string) error {
	query := `
		UPDATE mutation_journal
		SET state = $2, error = $3, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, state, errMsg)
	if err != nil {
		return fmt.Errorf("update mutation state: %w", err)
	}
	return nil
}

func (r *mutationRepository) ListByStates(ctx context.Context, states []string, limit int) ([]model.MutationRecord, error) {
	query := `
		SELECT id, name, state, error, created_at, updated_at
		FROM mutation_journal
		WHERE state = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	var records []model.MutationRecord
	if err := r.db.SelectContext(ctx, &records, query, pq.Array(states), limit); err != nil {
		return nil, fmt.Errorf("list mutations: %w", err)
	}
	return records, nil
}

func (r *mutationRepository) ListRolledBack(ctx context.Context, limit int) ([]model.MutationRecord, error) {
	return r.ListByStates(ctx, []string{MutationStateRolledBack}, limit)
}
