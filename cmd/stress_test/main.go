package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/putaway/internal/adapter/storage"
	"github.com/rl1809/putaway/internal/core/catalog"
	"github.com/rl1809/putaway/internal/core/domain"
	"github.com/rl1809/putaway/internal/core/service"
	"github.com/rl1809/putaway/internal/core/similarity"
)

const (
	locationCount    = 5
	locationCapacity = 10
	totalUnits       = 80
	workers          = 16
)

// Contention harness: more units than the warehouse can hold, all placed
// concurrently. Exactly capacity-many units must commit and no location may
// end up over capacity.
func main() {
	locations := make([]domain.Location, 0, locationCount)
	for i := 0; i < locationCount; i++ {
		locations = append(locations, domain.Location{
			ID:       fmt.Sprintf("L%02d", i+1),
			Zone:     "A",
			Capacity: locationCapacity,
			Mode:     domain.CapacityModeQuantity,
		})
	}

	base := time.Now().Add(-time.Hour)
	units := make([]domain.Unit, 0, totalUnits)
	for i := 0; i < totalUnits; i++ {
		units = append(units, domain.Unit{
			ID:        fmt.Sprintf("U%03d", i+1),
			SKU:       "WIDGET-1",
			Quantity:  1,
			ReceiptAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	cat, err := catalog.New(locations)
	if err != nil {
		log.Fatalf("failed to build catalog: %v", err)
	}

	store := storage.NewMemoryStore(locations, nil, units)
	txlog := storage.NewMemoryLog()
	svc := service.NewPlacementService(cat, similarity.None{}, store, txlog, zap.NewNop(), service.DefaultMaxRetries)
	runner := service.NewRunner(svc, workers, 10*time.Second, zap.NewNop())

	start := time.Now()
	results := runner.Run(context.Background(), units)
	elapsed := time.Since(start)

	var committed, failed int
	for _, res := range results {
		if res.Status == service.StatusCommitted {
			committed++
		} else {
			failed++
		}
	}

	totalCapacity := locationCount * locationCapacity

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Total Capacity:   %d\n", totalCapacity)
	fmt.Printf("Total Units:      %d\n", totalUnits)
	fmt.Printf("Committed:        %d\n", committed)
	fmt.Printf("Failed:           %d\n", failed)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if committed == totalCapacity && failed == totalUnits-totalCapacity {
		fmt.Printf("PASS: exactly %d units committed, %d failed\n", totalCapacity, totalUnits-totalCapacity)
	} else {
		fmt.Printf("FAIL: expected %d committed/%d failed, got %d/%d\n",
			totalCapacity, totalUnits-totalCapacity, committed, failed)
	}

	overCapacity := false
	for _, loc := range cat.Locations() {
		if loc.OnHand() > loc.Capacity {
			overCapacity = true
			fmt.Printf("FAIL: location %s over capacity: %d/%d\n", loc.ID, loc.OnHand(), loc.Capacity)
		}
	}
	if !overCapacity {
		fmt.Println("PASS: no location over capacity")
	}

	entries, _ := txlog.Entries(context.Background())
	if len(entries) == committed {
		fmt.Printf("PASS: assignment log has %d entries\n", len(entries))
	} else {
		fmt.Printf("FAIL: assignment log has %d entries, expected %d\n", len(entries), committed)
	}
}
