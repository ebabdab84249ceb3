package port

import (
	"context"

	"github.com/rl1809/putaway/internal/core/domain"
)

// AssignmentLog is the append-only decision log. It doubles as the
// idempotency check: a unit present in the log is never assigned again.
type AssignmentLog interface {
	// Append records a decision. Entries preserve commit order.
	Append(ctx context.Context, a domain.Assignment) error

	// Get returns the assignment for a unit, or nil if the unit has none.
	Get(ctx context.Context, unitID string) (*domain.Assignment, error)

	// Entries returns all recorded assignments in commit order.
	Entries(ctx context.Context) ([]domain.Assignment, error)
}
