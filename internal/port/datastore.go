package port

import (
	"context"

	"github.com/rl1809/putaway/internal/core/domain"
)

// DataStore is the external system of record the engine reads snapshots from
// and persists decisions to. Implementations live in adapter/storage.
type DataStore interface {
	// LoadLocations returns every storage location.
	LoadLocations(ctx context.Context) ([]domain.Location, error)

	// LoadInventory returns already-located stock.
	LoadInventory(ctx context.Context) ([]domain.StockRecord, error)

	// LoadUnlocatedUnits returns units awaiting placement, oldest receipt first.
	LoadUnlocatedUnits(ctx context.Context) ([]domain.Unit, error)

	// PersistAssignment durably records a placement decision.
	PersistAssignment(ctx context.Context, a domain.Assignment) error
}
