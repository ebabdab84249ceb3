// Package catalog holds the authoritative in-memory state of all storage
// locations plus a derived by-SKU inventory index. Commit is the only mutator
// and re-validates capacity and pick order inside its critical section, so a
// stale read can never over-commit a location.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rl1809/putaway/internal/core/domain"
)

var (
	ErrNotFound         = errors.New("location not found")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrOrderInversion   = errors.New("pick order inversion")
)

// Holding is one inventory-index entry: a location known to hold a SKU.
type Holding struct {
	LocationID      string
	OldestReceiptAt time.Time
	Available       int
	DistinctSKUs    int
}

// Catalog is the location store. All state behind mu; the bySKU index is
// maintained in the same critical sections as the location maps so the two
// can never diverge.
type Catalog struct {
	mu        sync.RWMutex
	locations map[string]*domain.Location
	bySKU     map[string]map[string]bool
}

// New builds a catalog from a location snapshot. Locations are deep-copied;
// the caller's slice is not retained.
func New(locations []domain.Location) (*Catalog, error) {
	c := &Catalog{
		locations: make(map[string]*domain.Location, len(locations)),
		bySKU:     make(map[string]map[string]bool),
	}
	for i := range locations {
		loc := locations[i].Clone()
		if loc.ID == "" {
			return nil, fmt.Errorf("location %d: empty id", i)
		}
		if _, dup := c.locations[loc.ID]; dup {
			return nil, fmt.Errorf("duplicate location id %s", loc.ID)
		}
		if loc.Mode == "" {
			loc.Mode = domain.CapacityModeQuantity
		}
		if loc.Occupants == nil {
			loc.Occupants = make(map[string]domain.Occupant)
		}
		c.locations[loc.ID] = loc
		for sku := range loc.Occupants {
			c.indexAdd(sku, loc.ID)
		}
	}
	return c, nil
}

// Seed folds already-located stock into location occupants. Unlike Commit it
// replays history, so an older receipt lowering a recorded oldest timestamp
// is expected and allowed.
func (c *Catalog) Seed(records []domain.StockRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, rec := range records {
		loc, ok := c.locations[rec.LocationID]
		if !ok {
			return fmt.Errorf("stock for unit %s: location %s: %w", rec.Unit.ID, rec.LocationID, ErrNotFound)
		}
		occ, held := loc.Occupants[rec.Unit.SKU]
		if !held {
			occ = domain.Occupant{OldestReceiptAt: rec.Unit.ReceiptAt}
		} else if rec.Unit.ReceiptAt.Before(occ.OldestReceiptAt) {
			occ.OldestReceiptAt = rec.Unit.ReceiptAt
		}
		occ.Quantity += rec.Unit.Quantity
		loc.Occupants[rec.Unit.SKU] = occ
		c.indexAdd(rec.Unit.SKU, loc.ID)

		// CanAccept short-circuits for a held SKU in SKU mode, so the check
		// must look at the contents as a whole.
		if !loc.WithinCapacity() {
			return fmt.Errorf("location %s over capacity after seeding unit %s: %w", loc.ID, rec.Unit.ID, ErrCapacityExceeded)
		}
	}
	return nil
}

// Find returns a copy of the location or ErrNotFound.
func (c *Catalog) Find(id string) (*domain.Location, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	loc, ok := c.locations[id]
	if !ok {
		return nil, fmt.Errorf("location %s: %w", id, ErrNotFound)
	}
	return loc.Clone(), nil
}

// AvailableCapacity returns remaining capacity under the location's mode.
func (c *Catalog) AvailableCapacity(id string) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	loc, ok := c.locations[id]
	if !ok {
		return 0, fmt.Errorf("location %s: %w", id, ErrNotFound)
	}
	return loc.AvailableCapacity(), nil
}

// OccupantsOf returns the SKUs currently held at the location, sorted.
func (c *Catalog) OccupantsOf(id string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	loc, ok := c.locations[id]
	if !ok {
		return nil, fmt.Errorf("location %s: %w", id, ErrNotFound)
	}
	skus := make([]string, 0, len(loc.Occupants))
	for sku := range loc.Occupants {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	return skus, nil
}

// Locations returns copies of every location, ordered by id.
func (c *Catalog) Locations() []domain.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Location, 0, len(c.locations))
	for _, loc := range c.locations {
		out = append(out, *loc.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EmptyLocations returns the ids of locations holding no stock, ordered by id.
func (c *Catalog) EmptyLocations() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var ids []string
	for id, loc := range c.locations {
		if loc.IsEmpty() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// SKUs returns every SKU with stock anywhere in the warehouse, sorted.
func (c *Catalog) SKUs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	skus := make([]string, 0, len(c.bySKU))
	for sku := range c.bySKU {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	return skus
}

// LocationsHolding returns the inventory-index entries for a SKU, ordered
// oldest receipt first, then by location id.
func (c *Catalog) LocationsHolding(sku string) []Holding {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var holdings []Holding
	for id := range c.bySKU[sku] {
		loc := c.locations[id]
		occ := loc.Occupants[sku]
		holdings = append(holdings, Holding{
			LocationID:      id,
			OldestReceiptAt: occ.OldestReceiptAt,
			Available:       loc.AvailableCapacity(),
			DistinctSKUs:    loc.DistinctSKUs(),
		})
	}
	sort.Slice(holdings, func(i, j int) bool {
		if !holdings[i].OldestReceiptAt.Equal(holdings[j].OldestReceiptAt) {
			return holdings[i].OldestReceiptAt.Before(holdings[j].OldestReceiptAt)
		}
		return holdings[i].LocationID < holdings[j].LocationID
	})
	return holdings
}

// Commit reserves qty units of sku at the location. It validates capacity and
// pick order against current state, so callers working from stale reads fail
// with ErrCapacityExceeded or ErrOrderInversion and retry instead of
// corrupting the location.
func (c *Catalog) Commit(id, sku string, qty int, receiptAt time.Time) (*domain.Location, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	loc, ok := c.locations[id]
	if !ok {
		return nil, fmt.Errorf("location %s: %w", id, ErrNotFound)
	}
	if !loc.CanAccept(sku, qty) {
		return nil, fmt.Errorf("location %s, sku %s: %w", id, sku, ErrCapacityExceeded)
	}
	if !loc.FIFOCompatible(sku, receiptAt) {
		return nil, fmt.Errorf("location %s, sku %s: %w", id, sku, ErrOrderInversion)
	}

	occ, held := loc.Occupants[sku]
	if !held {
		occ = domain.Occupant{OldestReceiptAt: receiptAt}
	}
	occ.Quantity += qty
	loc.Occupants[sku] = occ
	loc.Version++
	c.indexAdd(sku, id)

	return loc.Clone(), nil
}

// Release undoes a prior Commit when downstream persistence fails. A commit
// onto existing stock never lowered the recorded oldest receipt, so removing
// the quantity (and the occupant when it hits zero) restores the exact prior
// state.
func (c *Catalog) Release(id, sku string, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	loc, ok := c.locations[id]
	if !ok {
		return fmt.Errorf("location %s: %w", id, ErrNotFound)
	}
	occ, held := loc.Occupants[sku]
	if !held || occ.Quantity < qty {
		return fmt.Errorf("location %s holds %d of %s, cannot release %d", id, occ.Quantity, sku, qty)
	}
	occ.Quantity -= qty
	if occ.Quantity == 0 {
		delete(loc.Occupants, sku)
		c.indexRemove(sku, id)
	} else {
		loc.Occupants[sku] = occ
	}
	loc.Version++
	return nil
}

func (c *Catalog) indexAdd(sku, id string) {
	set, ok := c.bySKU[sku]
	if !ok {
		set = make(map[string]bool)
		c.bySKU[sku] = set
	}
	set[id] = true
}

func (c *Catalog) indexRemove(sku, id string) {
	set, ok := c.bySKU[sku]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(c.bySKU, sku)
	}
}
