package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/rl1809/putaway/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/putaway?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	return db
}

func seedTestUnit(t *testing.T, db *sql.DB, unitID string, located bool) {
	ctx := context.Background()
	var locationID interface{}
	if located {
		locationID = "test-loc-1"
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO units (unit_id, sku, quantity, receipt_at, expires_at, location_id)
		VALUES (?, 'TEST-SKU', 1, NOW(), NULL, ?)`,
		unitID, locationID,
	)
	if err != nil {
		t.Fatalf("seed unit: %v", err)
	}
	t.Cleanup(func() {
		db.ExecContext(ctx, `DELETE FROM assignments WHERE unit_id = ?`, unitID)
		db.ExecContext(ctx, `DELETE FROM units WHERE unit_id = ?`, unitID)
	})
}

func TestPersistAssignment_LocatesUnit(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	unitID := "test-unit-" + uuid.NewString()
	seedTestUnit(t, db, unitID, false)

	a := domain.Assignment{
		ID:         uuid.NewString(),
		UnitID:     unitID,
		SKU:        "TEST-SKU",
		Quantity:   1,
		LocationID: "test-loc-1",
		Rationale:  domain.RationaleEmptySlot,
		DecidedAt:  time.Now().UTC(),
	}
	if err := adapter.PersistAssignment(ctx, a); err != nil {
		t.Fatalf("PersistAssignment failed: %v", err)
	}

	var locationID sql.NullString
	err := db.QueryRowContext(ctx, `SELECT location_id FROM units WHERE unit_id = ?`, unitID).Scan(&locationID)
	if err != nil {
		t.Fatalf("query unit: %v", err)
	}
	if locationID.String != "test-loc-1" {
		t.Errorf("expected unit located at test-loc-1, got %q", locationID.String)
	}

	var count int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assignments WHERE unit_id = ?`, unitID).Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 assignment row, got %d", count)
	}
}

func TestPersistAssignment_AlreadyLocated(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	unitID := "test-unit-" + uuid.NewString()
	seedTestUnit(t, db, unitID, true)

	a := domain.Assignment{
		ID:         uuid.NewString(),
		UnitID:     unitID,
		SKU:        "TEST-SKU",
		Quantity:   1,
		LocationID: "test-loc-2",
		Rationale:  domain.RationaleEmptySlot,
		DecidedAt:  time.Now().UTC(),
	}
	err := adapter.PersistAssignment(ctx, a)
	if !errors.Is(err, ErrUnitAlreadyLocated) {
		t.Errorf("expected ErrUnitAlreadyLocated, got: %v", err)
	}
}

func TestLoadUnlocatedUnits_ExcludesLocated(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	locatedID := "test-unit-" + uuid.NewString()
	unlocatedID := "test-unit-" + uuid.NewString()
	seedTestUnit(t, db, locatedID, true)
	seedTestUnit(t, db, unlocatedID, false)

	units, err := adapter.LoadUnlocatedUnits(ctx)
	if err != nil {
		t.Fatalf("LoadUnlocatedUnits failed: %v", err)
	}

	found := map[string]bool{}
	for _, u := range units {
		found[u.ID] = true
	}
	if !found[unlocatedID] {
		t.Errorf("expected unlocated unit %s in results", unlocatedID)
	}
	if found[locatedID] {
		t.Errorf("located unit %s must not appear in results", locatedID)
	}
}
