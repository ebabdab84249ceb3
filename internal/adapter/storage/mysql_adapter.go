package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/putaway/internal/core/domain"
)

var ErrUnitAlreadyLocated = errors.New("unit already located")

// MySQLAdapter is the system-of-record DataStore. Locating a unit is guarded
// by `WHERE location_id IS NULL` so a replayed persist can never relocate
// stock.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) LoadLocations(ctx context.Context) ([]domain.Location, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT location_id, zone, aisle, rack, level, capacity, capacity_mode
		FROM locations`)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	var locations []domain.Location
	for rows.Next() {
		var loc domain.Location
		var mode string
		if err := rows.Scan(&loc.ID, &loc.Zone, &loc.Aisle, &loc.Rack, &loc.Level, &loc.Capacity, &mode); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		loc.Mode = domain.CapacityMode(mode)
		loc.Occupants = make(map[string]domain.Occupant)
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

func (m *MySQLAdapter) LoadInventory(ctx context.Context) ([]domain.StockRecord, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT unit_id, sku, quantity, receipt_at, expires_at, location_id
		FROM units WHERE location_id IS NOT NULL
		ORDER BY receipt_at, unit_id`)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	var records []domain.StockRecord
	for rows.Next() {
		rec, err := scanUnitRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (m *MySQLAdapter) LoadUnlocatedUnits(ctx context.Context) ([]domain.Unit, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT unit_id, sku, quantity, receipt_at, expires_at, location_id
		FROM units WHERE location_id IS NULL
		ORDER BY receipt_at, unit_id`)
	if err != nil {
		return nil, fmt.Errorf("query unlocated units: %w", err)
	}
	defer rows.Close()

	var units []domain.Unit
	for rows.Next() {
		rec, err := scanUnitRow(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, rec.Unit)
	}
	return units, rows.Err()
}

func (m *MySQLAdapter) PersistAssignment(ctx context.Context, a domain.Assignment) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO assignments (id, unit_id, sku, quantity, location_id, rationale, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UnitID, a.SKU, a.Quantity, a.LocationID, a.Rationale, a.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE units SET location_id = ?
		WHERE unit_id = ? AND location_id IS NULL`,
		a.LocationID, a.UnitID,
	)
	if err != nil {
		return fmt.Errorf("locate unit: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrUnitAlreadyLocated
	}

	return tx.Commit()
}

func scanUnitRow(rows *sql.Rows) (domain.StockRecord, error) {
	var rec domain.StockRecord
	var expiresAt sql.NullTime
	var locationID sql.NullString
	err := rows.Scan(&rec.Unit.ID, &rec.Unit.SKU, &rec.Unit.Quantity, &rec.Unit.ReceiptAt, &expiresAt, &locationID)
	if err != nil {
		return rec, fmt.Errorf("scan unit: %w", err)
	}
	if rec.Unit.Quantity <= 0 {
		return rec, fmt.Errorf("unit %s: quantity must be positive, got %d", rec.Unit.ID, rec.Unit.Quantity)
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		rec.Unit.ExpiresAt = &t
	}
	rec.LocationID = locationID.String
	return rec, nil
}
