package service

import (
	"errors"
	"testing"
	"time"

	"github.com/marcdm/DrimsNewBuildv2/internal/aid/entity"
	"github.com/shopspring/decimal"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func batch(id, batchNo string, usable, reserved int64, expiry *time.Time, received time.Time) entity.Inventory {
	return entity.Inventory{
		ID:          id,
		WarehouseID: "wh-1",
		ItemID:      "item-1",
		BatchNo:     batchNo,
		UsableQty:   d(usable),
		ReservedQty: d(reserved),
		ExpiryDate:  expiry,
		ReceivedAt:  received,
	}
}

func ts(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func tsp(s string) *time.Time {
	t := ts(s)
	return &t
}

func TestPlanAllocationEarliestExpiryFirst(t *testing.T) {
	batches := []entity.Inventory{
		batch("inv-late", "B2", 100, 0, tsp("2027-06-01"), ts("2026-01-01")),
		batch("inv-early", "B1", 100, 0, tsp("2026-12-01"), ts("2026-03-01")),
	}

	plan, err := PlanAllocation("item-1", d(150), decimal.Zero, batches)
	if err != nil {
		t.Fatalf("PlanAllocation: %v", err)
	}
	if len(plan.Lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(plan.Lines))
	}
	if plan.Lines[0].InventoryID != "inv-early" || !plan.Lines[0].Qty.Equal(d(100)) {
		t.Errorf("First line should take 100 from inv-early, got %s from %s", plan.Lines[0].Qty, plan.Lines[0].InventoryID)
	}
	if plan.Lines[1].InventoryID != "inv-late" || !plan.Lines[1].Qty.Equal(d(50)) {
		t.Errorf("Second line should take 50 from inv-late, got %s from %s", plan.Lines[1].Qty, plan.Lines[1].InventoryID)
	}
	if !plan.Allocated.Equal(d(150)) {
		t.Errorf("Expected allocated 150, got %s", plan.Allocated)
	}
}

func TestPlanAllocationNilExpiryLast(t *testing.T) {
	batches := []entity.Inventory{
		batch("inv-noexp", "B1", 100, 0, nil, ts("2025-01-01")),
		batch("inv-exp", "B2", 40, 0, tsp("2026-12-01"), ts("2026-05-01")),
	}

	plan, err := PlanAllocation("item-1", d(60), decimal.Zero, batches)
	if err != nil {
		t.Fatalf("PlanAllocation: %v", err)
	}
	if plan.Lines[0].InventoryID != "inv-exp" {
		t.Errorf("Expiring batch should drain first, got %s", plan.Lines[0].InventoryID)
	}
	if !plan.Lines[1].Qty.Equal(d(20)) {
		t.Errorf("Expected 20 from the non-expiring batch, got %s", plan.Lines[1].Qty)
	}
}

func TestPlanAllocationTieBreaks(t *testing.T) {
	exp := tsp("2026-12-01")
	batches := []entity.Inventory{
		batch("inv-c", "BC", 10, 0, exp, ts("2026-02-01")),
		batch("inv-b", "BB", 10, 0, exp, ts("2026-01-01")),
		batch("inv-a", "BA", 10, 0, exp, ts("2026-01-01")),
	}

	plan, err := PlanAllocation("item-1", d(30), decimal.Zero, batches)
	if err != nil {
		t.Fatalf("PlanAllocation: %v", err)
	}
	order := []string{plan.Lines[0].BatchNo, plan.Lines[1].BatchNo, plan.Lines[2].BatchNo}
	want := []string{"BA", "BB", "BC"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("Expected batch order %v, got %v", want, order)
		}
	}
}

func TestPlanAllocationDeterministic(t *testing.T) {
	batches := []entity.Inventory{
		batch("inv-1", "B1", 30, 5, tsp("2026-10-01"), ts("2026-01-01")),
		batch("inv-2", "B2", 50, 0, nil, ts("2026-02-01")),
		batch("inv-3", "B3", 20, 0, tsp("2026-08-01"), ts("2026-03-01")),
	}

	first, err := PlanAllocation("item-1", d(70), decimal.Zero, batches)
	if err != nil {
		t.Fatalf("PlanAllocation: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := PlanAllocation("item-1", d(70), decimal.Zero, batches)
		if err != nil {
			t.Fatalf("PlanAllocation: %v", err)
		}
		if len(again.Lines) != len(first.Lines) {
			t.Fatalf("Plan changed shape between runs")
		}
		for j := range first.Lines {
			if again.Lines[j].InventoryID != first.Lines[j].InventoryID ||
				again.Lines[j].BatchNo != first.Lines[j].BatchNo ||
				!again.Lines[j].Qty.Equal(first.Lines[j].Qty) {
				t.Fatalf("Plan line %d differs between runs: %+v vs %+v", j, first.Lines[j], again.Lines[j])
			}
		}
	}
}

func TestPlanAllocationRespectsReserved(t *testing.T) {
	batches := []entity.Inventory{
		batch("inv-1", "B1", 100, 80, tsp("2026-12-01"), ts("2026-01-01")),
	}

	plan, err := PlanAllocation("item-1", d(50), decimal.Zero, batches)
	if err != nil {
		t.Fatalf("PlanAllocation: %v", err)
	}
	if !plan.Allocated.Equal(d(20)) {
		t.Errorf("Only unreserved stock may be planned, expected 20, got %s", plan.Allocated)
	}
}

func TestPlanAllocationZeroAvailable(t *testing.T) {
	batches := []entity.Inventory{
		batch("inv-1", "B1", 50, 50, nil, ts("2026-01-01")),
	}

	plan, err := PlanAllocation("item-1", d(10), decimal.Zero, batches)
	if err != nil {
		t.Fatalf("Zero availability must not error: %v", err)
	}
	if len(plan.Lines) != 0 || !plan.Allocated.IsZero() {
		t.Errorf("Expected empty plan, got %d lines allocating %s", len(plan.Lines), plan.Allocated)
	}
}

func TestPlanAllocationAllowedCeiling(t *testing.T) {
	batches := []entity.Inventory{
		batch("inv-1", "B1", 100, 0, nil, ts("2026-01-01")),
	}

	plan, err := PlanAllocation("item-1", d(80), d(30), batches)
	if err != nil {
		t.Fatalf("PlanAllocation: %v", err)
	}
	if !plan.Target.Equal(d(30)) || !plan.Allocated.Equal(d(30)) {
		t.Errorf("Ceiling should bound the plan at 30, got target %s allocated %s", plan.Target, plan.Allocated)
	}
	if !plan.Capped() {
		t.Errorf("Plan bounded by the ceiling should report Capped")
	}
}

func TestPlanAllocationRejectsNonPositiveRequest(t *testing.T) {
	_, err := PlanAllocation("item-1", decimal.Zero, decimal.Zero, nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected ErrValidation, got %v", err)
	}
}
