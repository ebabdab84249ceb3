package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rl1809/putaway/internal/core/domain"
)

const (
	locationsFile   = "locations.csv"
	unitsFile       = "units.csv"
	assignmentsFile = "assignments.csv"
)

var (
	locationHeader   = []string{"location_id", "zone", "aisle", "rack", "level", "capacity", "capacity_mode"}
	unitHeader       = []string{"unit_id", "sku", "quantity", "receipt_at", "expires_at", "location_id"}
	assignmentHeader = []string{"id", "unit_id", "sku", "quantity", "location_id", "rationale", "decided_at"}
)

// CSVStore is a DataStore over warehouse report exports: locations.csv and
// units.csv in, assignments.csv out. A unit with an empty location_id column
// is unlocated, mirroring the report convention of blank storage coordinates.
type CSVStore struct {
	dir string
	mu  sync.Mutex
}

func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{dir: dir}
}

func (s *CSVStore) LoadLocations(ctx context.Context) ([]domain.Location, error) {
	records, err := readCSV(filepath.Join(s.dir, locationsFile), locationHeader)
	if err != nil {
		return nil, err
	}

	locations := make([]domain.Location, 0, len(records))
	for i, rec := range records {
		capacity, err := strconv.Atoi(rec[5])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: capacity: %w", locationsFile, i+2, err)
		}
		mode := domain.CapacityMode(rec[6])
		if mode == "" {
			mode = domain.CapacityModeQuantity
		}
		locations = append(locations, domain.Location{
			ID:        rec[0],
			Zone:      rec[1],
			Aisle:     rec[2],
			Rack:      rec[3],
			Level:     rec[4],
			Capacity:  capacity,
			Mode:      mode,
			Occupants: make(map[string]domain.Occupant),
		})
	}
	return locations, nil
}

func (s *CSVStore) LoadInventory(ctx context.Context) ([]domain.StockRecord, error) {
	all, err := s.loadUnits()
	if err != nil {
		return nil, err
	}
	var located []domain.StockRecord
	for _, rec := range all {
		if rec.LocationID != "" {
			located = append(located, rec)
		}
	}
	return located, nil
}

func (s *CSVStore) LoadUnlocatedUnits(ctx context.Context) ([]domain.Unit, error) {
	all, err := s.loadUnits()
	if err != nil {
		return nil, err
	}
	var units []domain.Unit
	for _, rec := range all {
		if rec.LocationID == "" {
			units = append(units, rec.Unit)
		}
	}
	sort.Slice(units, func(i, j int) bool {
		if !units[i].ReceiptAt.Equal(units[j].ReceiptAt) {
			return units[i].ReceiptAt.Before(units[j].ReceiptAt)
		}
		return units[i].ID < units[j].ID
	})
	return units, nil
}

func (s *CSVStore) PersistAssignment(ctx context.Context, a domain.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, assignmentsFile)
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", assignmentsFile, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if fresh {
		if err := w.Write(assignmentHeader); err != nil {
			return fmt.Errorf("write %s header: %w", assignmentsFile, err)
		}
	}
	row := []string{
		a.ID, a.UnitID, a.SKU, strconv.Itoa(a.Quantity),
		a.LocationID, string(a.Rationale), a.DecidedAt.Format(time.RFC3339),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write assignment: %w", err)
	}
	w.Flush()
	return w.Error()
}

func (s *CSVStore) loadUnits() ([]domain.StockRecord, error) {
	records, err := readCSV(filepath.Join(s.dir, unitsFile), unitHeader)
	if err != nil {
		return nil, err
	}

	units := make([]domain.StockRecord, 0, len(records))
	for i, rec := range records {
		quantity, err := strconv.Atoi(rec[2])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: quantity: %w", unitsFile, i+2, err)
		}
		if quantity <= 0 {
			return nil, fmt.Errorf("%s row %d: quantity must be positive, got %d", unitsFile, i+2, quantity)
		}
		receiptAt, err := time.Parse(time.RFC3339, rec[3])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: receipt_at: %w", unitsFile, i+2, err)
		}
		unit := domain.Unit{
			ID:        rec[0],
			SKU:       rec[1],
			Quantity:  quantity,
			ReceiptAt: receiptAt,
		}
		if rec[4] != "" {
			expiresAt, err := time.Parse(time.RFC3339, rec[4])
			if err != nil {
				return nil, fmt.Errorf("%s row %d: expires_at: %w", unitsFile, i+2, err)
			}
			unit.ExpiresAt = &expiresAt
		}
		units = append(units, domain.StockRecord{Unit: unit, LocationID: rec[5]})
	}
	return units, nil
}

func readCSV(path string, expected []string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: missing header", filepath.Base(path))
	}
	if !headerMatches(records[0], expected) {
		return nil, fmt.Errorf("%s: header mismatch, expected %v, got %v", filepath.Base(path), expected, records[0])
	}
	for i, rec := range records[1:] {
		if len(rec) != len(expected) {
			return nil, fmt.Errorf("%s row %d: expected %d columns, got %d", filepath.Base(path), i+2, len(expected), len(rec))
		}
	}
	return records[1:], nil
}

func headerMatches(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
