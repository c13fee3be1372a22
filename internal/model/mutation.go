package model

import (
	"time"

	"github.com/google/uuid"
)

// MutationRecord is one journaled optimistic write.
type MutationRecord struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	State     string    `db:"state" json:"state"`
	Error     *string   `db:"error" json:"error,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// MutationListResponse is the response for listing journaled mutations.
type MutationListResponse struct {
	Mutations []MutationRecord `json:"mutations"`
}
