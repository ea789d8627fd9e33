package service

import (
	"fmt"
	"sort"

	"github.com/marcdm/DrimsNewBuildv2/internal/aid/entity"
	"github.com/shopspring/decimal"
)

// AllocationLine draws a quantity from one inventory batch.
type AllocationLine struct {
	InventoryID string          `json:"inventory_id"`
	BatchNo     string          `json:"batch_no"`
	Qty         decimal.Decimal `json:"qty"`
}

// AllocationPlan is the ordered multi-batch split for one request line.
// Target is what the planner aimed for (request quantity, or the allowed
// ceiling when one applies); Allocated is what the batches could cover.
type AllocationPlan struct {
	ItemID    string           `json:"item_id"`
	Requested decimal.Decimal  `json:"requested"`
	Target    decimal.Decimal  `json:"target"`
	Allocated decimal.Decimal  `json:"allocated"`
	Lines     []AllocationLine `json:"lines"`
}

// Capped reports whether an allowed-limit ceiling below the request quantity
// bounded the plan target.
func (p *AllocationPlan) Capped() bool {
	return p.Target.LessThan(p.Requested)
}

// PlanAllocation computes the FEFO/FIFO batch split for requestQty of an item
// from the given batches. allowedQty is the review-time ceiling (zero or
// negative means uncapped). The function performs no mutation and is
// deterministic for equal input: batches are consumed earliest expiry first,
// batches without expiry last, receipt time then batch number breaking ties.
// Zero availability yields an empty plan, not an error; the caller resolves
// the line's status from the plan.
func PlanAllocation(itemID string, requestQty, allowedQty decimal.Decimal, batches []entity.Inventory) (*AllocationPlan, error) {
	if requestQty.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: requested quantity must be positive, got %s", ErrValidation, requestQty)
	}

	target := requestQty
	if allowedQty.GreaterThan(decimal.Zero) && allowedQty.LessThan(target) {
		target = allowedQty
	}

	ordered := make([]entity.Inventory, len(batches))
	copy(ordered, batches)
	sort.SliceStable(ordered, func(a, b int) bool {
		ba, bb := &ordered[a], &ordered[b]
		switch {
		case ba.ExpiryDate == nil && bb.ExpiryDate != nil:
			return false
		case ba.ExpiryDate != nil && bb.ExpiryDate == nil:
			return true
		case ba.ExpiryDate != nil && bb.ExpiryDate != nil && !ba.ExpiryDate.Equal(*bb.ExpiryDate):
			return ba.ExpiryDate.Before(*bb.ExpiryDate)
		}
		if !ba.ReceivedAt.Equal(bb.ReceivedAt) {
			return ba.ReceivedAt.Before(bb.ReceivedAt)
		}
		return ba.BatchNo < bb.BatchNo
	})

	plan := &AllocationPlan{
		ItemID:    itemID,
		Requested: requestQty,
		Target:    target,
		Allocated: decimal.Zero,
	}

	remaining := target
	for i := range ordered {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		available := ordered[i].AvailableQty()
		if available.LessThanOrEqual(decimal.Zero) {
			continue
		}
		take := decimal.Min(available, remaining)
		plan.Lines = append(plan.Lines, AllocationLine{
			InventoryID: ordered[i].ID,
			BatchNo:     ordered[i].BatchNo,
			Qty:         take,
		})
		plan.Allocated = plan.Allocated.Add(take)
		remaining = remaining.Sub(take)
	}

	return plan, nil
}
