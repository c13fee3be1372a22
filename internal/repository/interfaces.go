package repository

import (
	"context"

	"github.com/google/uuid"

	"feedsync/internal/model"
)

type MutationRepository interface {
	// EnsureSchema creates the journal table if it does not exist
	EnsureSchema(ctx context.Context) error
	// Create records a new mutation in the pending state
	Create(ctx context.Context, id uuid.UUID, name string) error
	// UpdateState moves a mutation to a terminal state
	UpdateState(ctx context.Context, id uuid.UUID, state string, errMsg *string) error
	// ListByStates returns the newest mutations in any of the given states
	ListByStates(ctx context.Context, states []string, limit int) ([]model.MutationRecord, error)
	// ListRolledBack returns the newest rolled-back mutations
	ListRolledBack(ctx context.Context, limit int) ([]model.MutationRecord, error)
}
