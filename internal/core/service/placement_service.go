package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/putaway/internal/core/catalog"
	"github.com/rl1809/putaway/internal/core/domain"
	"github.com/rl1809/putaway/internal/core/similarity"
	"github.com/rl1809/putaway/internal/port"
)

var ErrTimeout = errors.New("placement timed out")

const DefaultMaxRetries = 3

type PlacementStatus string

const (
	StatusPending   PlacementStatus = "pending"
	StatusDeciding  PlacementStatus = "deciding"
	StatusCommitted PlacementStatus = "committed"
	StatusFailed    PlacementStatus = "failed"
)

// Result is the terminal outcome of placing one unit. Failures carry the
// error; successes carry the chosen location and rationale.
type Result struct {
	UnitID     string
	Status     PlacementStatus
	LocationID string
	Rationale  domain.Rationale
	Err        error
}

// PlacementService decides and commits a storage location for one unit at a
// time: affinity resolve, FIFO rank, commit, persist, log. Lost races on
// capacity or pick order re-read current state and retry up to maxRetries.
type PlacementService struct {
	catalog    *catalog.Catalog
	resolver   *AffinityResolver
	ranker     *FIFORanker
	store      port.DataStore
	txlog      port.AssignmentLog
	logger     *zap.Logger
	maxRetries int
}

func NewPlacementService(cat *catalog.Catalog, rel similarity.Relation, store port.DataStore, txlog port.AssignmentLog, logger *zap.Logger, maxRetries int) *PlacementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &PlacementService{
		catalog:    cat,
		resolver:   NewAffinityResolver(cat, rel),
		ranker:     NewFIFORanker(cat),
		store:      store,
		txlog:      txlog,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Place runs the full decision for a single unit. Every terminal outcome is
// returned as a Result; no failure here aborts the rest of a batch.
func (s *PlacementService) Place(ctx context.Context, unit domain.Unit) Result {
	// Cancellation is honored while the unit is still pending.
	if err := ctx.Err(); err != nil {
		return s.failed(unit, deadlineErr(err))
	}

	existing, err := s.txlog.Get(ctx, unit.ID)
	if err != nil {
		return s.failed(unit, fmt.Errorf("assignment log lookup: %w", err))
	}
	if existing != nil {
		// Resubmission of a committed unit is a no-op, never a second
		// assignment.
		s.logger.Debug("unit already assigned",
			zap.String("unit_id", unit.ID),
			zap.String("location_id", existing.LocationID))
		return Result{
			UnitID:     unit.ID,
			Status:     StatusCommitted,
			LocationID: existing.LocationID,
			Rationale:  existing.Rationale,
		}
	}

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return s.failed(unit, deadlineErr(err))
		}

		candidates := s.resolver.Resolve(unit)
		locationID, rationale, err := s.ranker.Rank(unit, candidates)
		if err != nil {
			return s.failed(unit, err)
		}

		if _, err := s.catalog.Commit(locationID, unit.SKU, unit.Quantity, unit.ReceiptAt); err != nil {
			if errors.Is(err, catalog.ErrCapacityExceeded) || errors.Is(err, catalog.ErrOrderInversion) {
				// A concurrent commit consumed the slot between read and
				// commit; re-read and try again.
				s.logger.Debug("commit lost race, retrying",
					zap.String("unit_id", unit.ID),
					zap.String("location_id", locationID),
					zap.Int("attempt", attempt+1),
					zap.Error(err))
				continue
			}
			return s.failed(unit, err)
		}

		assignment := domain.Assignment{
			ID:         uuid.NewString(),
			UnitID:     unit.ID,
			SKU:        unit.SKU,
			Quantity:   unit.Quantity,
			LocationID: locationID,
			Rationale:  rationale,
			DecidedAt:  time.Now().UTC(),
		}

		if err := s.persist(ctx, assignment); err != nil {
			return s.failed(unit, err)
		}

		s.logger.Info("unit placed",
			zap.String("unit_id", unit.ID),
			zap.String("sku", unit.SKU),
			zap.String("location_id", locationID),
			zap.String("rationale", string(rationale)))

		return Result{
			UnitID:     unit.ID,
			Status:     StatusCommitted,
			LocationID: locationID,
			Rationale:  rationale,
		}
	}

	return s.failed(unit, fmt.Errorf("retries exhausted: %w", ErrNoCapacity))
}

// persist writes the assignment to the store and the log. A store failure
// releases the reservation so the unit stays unlocated and is safe to
// resubmit. A log failure after the store accepted the write must NOT
// release: the store already records the unit as located, so the catalog
// keeps the reservation and the missing log entry is flagged for
// reconciliation.
func (s *PlacementService) persist(ctx context.Context, a domain.Assignment) error {
	if err := s.store.PersistAssignment(ctx, a); err != nil {
		s.rollback(a)
		return fmt.Errorf("persist assignment: %w", err)
	}
	if err := s.txlog.Append(ctx, a); err != nil {
		s.logger.Error("CRITICAL: assignment persisted but log append failed",
			zap.String("unit_id", a.UnitID),
			zap.String("assignment_id", a.ID),
			zap.String("location_id", a.LocationID),
			zap.Error(err))
		return fmt.Errorf("assignment log append: %w", err)
	}
	return nil
}

func (s *PlacementService) rollback(a domain.Assignment) {
	if err := s.catalog.Release(a.LocationID, a.SKU, a.Quantity); err != nil {
		s.logger.Error("CRITICAL: rollback failed, catalog and store diverged",
			zap.String("unit_id", a.UnitID),
			zap.String("location_id", a.LocationID),
			zap.Error(err))
	}
}

func (s *PlacementService) failed(unit domain.Unit, err error) Result {
	s.logger.Warn("placement failed",
		zap.String("unit_id", unit.ID),
		zap.String("sku", unit.SKU),
		zap.Error(err))
	return Result{UnitID: unit.ID, Status: StatusFailed, Err: err}
}

func deadlineErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
