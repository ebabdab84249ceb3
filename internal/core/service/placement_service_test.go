package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/putaway/internal/adapter/storage"
	"github.com/rl1809/putaway/internal/core/catalog"
	"github.com/rl1809/putaway/internal/core/domain"
	"github.com/rl1809/putaway/internal/core/similarity"
)

// failingStore rejects every persist, for rollback tests.
type failingStore struct {
	storage.MemoryStore
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) PersistAssignment(ctx context.Context, a domain.Assignment) error {
	return errDiskFull
}

func newService(t *testing.T, cat *catalog.Catalog, rel similarity.Relation) (*PlacementService, *storage.MemoryStore, *storage.MemoryLog) {
	t.Helper()
	store := storage.NewMemoryStore(nil, nil, nil)
	txlog := storage.NewMemoryLog()
	return NewPlacementService(cat, rel, store, txlog, zap.NewNop(), DefaultMaxRetries), store, txlog
}

func TestPlace_EmptyWarehouse(t *testing.T) {
	cat := newCatalog(t, quantityLocation("L1", 10), quantityLocation("L2", 10))
	svc, store, _ := newService(t, cat, similarity.None{})

	res := svc.Place(context.Background(), unit("U1", "SKU-A", 1, t1))

	require.Equal(t, StatusCommitted, res.Status)
	assert.Equal(t, domain.RationaleEmptySlot, res.Rationale)
	assert.Contains(t, []string{"L1", "L2"}, res.LocationID)
	require.Len(t, store.Assignments(), 1)
}

func TestPlace_SameSKUConsolidates(t *testing.T) {
	cat := newCatalog(t, quantityLocation("L1", 10), quantityLocation("L2", 10))
	mustCommit(t, cat, "L1", "SKU-A", 5, t0)
	svc, _, _ := newService(t, cat, similarity.None{})

	res := svc.Place(context.Background(), unit("U1", "SKU-A", 3, t1))

	require.Equal(t, StatusCommitted, res.Status)
	assert.Equal(t, "L1", res.LocationID)
	assert.Equal(t, domain.RationaleSameSKU, res.Rationale)

	loc, err := cat.Find("L1")
	require.NoError(t, err)
	assert.Equal(t, 8, loc.Occupants["SKU-A"].Quantity)
	assert.Equal(t, t0, loc.Occupants["SKU-A"].OldestReceiptAt)
}

func TestPlace_OlderUnitAvoidsInversion(t *testing.T) {
	cat := newCatalog(t, quantityLocation("L1", 10), quantityLocation("L2", 10))
	mustCommit(t, cat, "L1", "SKU-A", 5, t2)
	svc, _, _ := newService(t, cat, similarity.None{})

	res := svc.Place(context.Background(), unit("U1", "SKU-A", 1, t1))

	require.Equal(t, StatusCommitted, res.Status)
	assert.Equal(t, "L2", res.LocationID)
	assert.Equal(t, domain.RationaleEmptySlot, res.Rationale)

	loc, err := cat.Find("L1")
	require.NoError(t, err)
	assert.Equal(t, t2, loc.Occupants["SKU-A"].OldestReceiptAt)
}

func TestPlace_SimilarSKU(t *testing.T) {
	cat := newCatalog(t, quantityLocation("L1", 10), quantityLocation("L2", 10))
	mustCommit(t, cat, "L1", "SKU-A", 2, t0)

	rel := similarity.NewStatic(map[string][]string{"SKU-B": {"SKU-A"}}, false)
	svc, _, _ := newService(t, cat, rel)

	res := svc.Place(context.Background(), unit("U1", "SKU-B", 1, t1))

	require.Equal(t, StatusCommitted, res.Status)
	assert.Equal(t, "L1", res.LocationID)
	assert.Equal(t, domain.RationaleSimilarSKU, res.Rationale)
}

func TestPlace_NoCapacity(t *testing.T) {
	cat := newCatalog(t, quantityLocation("L1", 1))
	mustCommit(t, cat, "L1", "SKU-B", 1, t0)
	svc, store, _ := newService(t, cat, similarity.None{})

	res := svc.Place(context.Background(), unit("U1", "SKU-A", 1, t1))

	require.Equal(t, StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, ErrNoCapacity)
	assert.Empty(t, store.Assignments())
}

func TestPlace_Idempotent(t *testing.T) {
	cat := newCatalog(t, quantityLocation("L1", 10))
	svc, store, txlog := newService(t, cat, similarity.None{})

	u := unit("U1", "SKU-A", 2, t1)
	first := svc.Place(context.Background(), u)
	second := svc.Place(context.Background(), u)

	require.Equal(t, StatusCommitted, first.Status)
	require.Equal(t, StatusCommitted, second.Status)
	assert.Equal(t, first.LocationID, second.LocationID)

	// One assignment, one log entry, stock counted once.
	assert.Len(t, store.Assignments(), 1)
	entries, err := txlog.Entries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	loc, err := cat.Find("L1")
	require.NoError(t, err)
	assert.Equal(t, 2, loc.Occupants["SKU-A"].Quantity)
}

func TestPlace_Deterministic(t *testing.T) {
	build := func() *catalog.Catalog {
		cat := newCatalog(t, quantityLocation("L3", 10), quantityLocation("L1", 10), quantityLocation("L2", 10))
		mustCommit(t, cat, "L3", "SKU-A", 1, t0)
		mustCommit(t, cat, "L1", "SKU-A", 1, t0)
		return cat
	}

	u := unit("U1", "SKU-A", 1, t1)
	var chosen []string
	for i := 0; i < 5; i++ {
		svc, _, _ := newService(t, build(), similarity.None{})
		res := svc.Place(context.Background(), u)
		require.Equal(t, StatusCommitted, res.Status)
		chosen = append(chosen, res.LocationID)
	}
	for _, id := range chosen {
		assert.Equal(t, chosen[0], id)
	}
}

func TestPlace_PersistFailureRollsBack(t *testing.T) {
	cat := newCatalog(t, quantityLocation("L1", 10))
	txlog := storage.NewMemoryLog()
	svc := NewPlacementService(cat, similarity.None{}, &failingStore{}, txlog, zap.NewNop(), DefaultMaxRetries)

	res := svc.Place(context.Background(), unit("U1", "SKU-A", 2, t1))

	require.Equal(t, StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, errDiskFull)

	// No partial state: the reservation was released and nothing was logged.
	loc, err := cat.Find("L1")
	require.NoError(t, err)
	assert.True(t, loc.IsEmpty())
	entries, err := txlog.Entries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// failingLog rejects every append, for store/log divergence tests.
type failingLog struct {
	storage.MemoryLog
}

var errLogDown = errors.New("log unavailable")

func (f *failingLog) Append(ctx context.Context, a domain.Assignment) error {
	return errLogDown
}

func TestPlace_LogAppendFailureKeepsReservation(t *testing.T) {
	cat := newCatalog(t, quantityLocation("L1", 10))
	store := storage.NewMemoryStore(nil, nil, nil)
	svc := NewPlacementService(cat, similarity.None{}, store, &failingLog{}, zap.NewNop(), DefaultMaxRetries)

	res := svc.Place(context.Background(), unit("U1", "SKU-A", 2, t1))

	require.Equal(t, StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, errLogDown)

	// The store accepted the assignment before the log failed, so the
	// catalog must keep the stock rather than diverge from the store.
	require.Len(t, store.Assignments(), 1)
	loc, err := cat.Find("L1")
	require.NoError(t, err)
	assert.Equal(t, 2, loc.Occupants["SKU-A"].Quantity)
}

func TestPlace_ExpiredContext(t *testing.T) {
	cat := newCatalog(t, quantityLocation("L1", 10))
	svc, store, _ := newService(t, cat, similarity.None{})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	res := svc.Place(ctx, unit("U1", "SKU-A", 1, t1))

	require.Equal(t, StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, ErrTimeout)
	assert.Empty(t, store.Assignments())
}

func TestPlace_ConcurrentLastSlot(t *testing.T) {
	// L1 has one unit of room next to existing stock, L2 is empty. Both units
	// target L1; the loser of the race must land on L2.
	cat := newCatalog(t, quantityLocation("L1", 10), quantityLocation("L2", 10))
	mustCommit(t, cat, "L1", "SKU-A", 9, t0)
	svc, store, _ := newService(t, cat, similarity.None{})

	units := []domain.Unit{
		unit("U1", "SKU-A", 1, t1),
		unit("U2", "SKU-A", 1, t1),
	}
	runner := NewRunner(svc, 2, time.Second, zap.NewNop())
	results := runner.Run(context.Background(), units)

	var atL1, atL2 int
	for _, res := range results {
		require.Equal(t, StatusCommitted, res.Status)
		switch res.LocationID {
		case "L1":
			atL1++
		case "L2":
			atL2++
		}
	}
	assert.Equal(t, 1, atL1)
	assert.Equal(t, 1, atL2)

	loc, err := cat.Find("L1")
	require.NoError(t, err)
	assert.Equal(t, 10, loc.OnHand())
	assert.Len(t, store.Assignments(), 2)
}
