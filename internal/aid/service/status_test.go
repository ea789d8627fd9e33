package service

import (
	"testing"

	"github.com/marcdm/DrimsNewBuildv2/internal/aid/entity"
	"github.com/shopspring/decimal"
)

func TestResolveItemStatus(t *testing.T) {
	cases := []struct {
		name      string
		requested int64
		allowed   int64
		allocated int64
		want      string
	}{
		{"nothing allocated", 100, 0, 0, entity.ItemStatusPending},
		{"fully filled", 100, 0, 100, entity.ItemStatusFilled},
		{"filled at uncapped ceiling", 100, 100, 100, entity.ItemStatusFilled},
		{"stock shortage", 100, 0, 40, entity.ItemStatusPartlyFilled},
		{"stopped by policy cap", 100, 40, 40, entity.ItemStatusAllowedLimit},
		{"short of a cap", 100, 60, 40, entity.ItemStatusPartlyFilled},
		{"cap above request irrelevant", 50, 80, 30, entity.ItemStatusPartlyFilled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveItemStatus(decimal.NewFromInt(tc.requested), decimal.NewFromInt(tc.allowed), decimal.NewFromInt(tc.allocated))
			if got != tc.want {
				t.Errorf("ResolveItemStatus(%d, %d, %d) = %s, want %s", tc.requested, tc.allowed, tc.allocated, got, tc.want)
			}
		})
	}
}

func TestItemApprovable(t *testing.T) {
	allocated := decimal.NewFromInt(5)
	zero := decimal.Zero

	if !itemApprovable(&entity.ReliefRequestItem{Status: entity.ItemStatusFilled}, allocated) {
		t.Errorf("Allocated line must be approvable")
	}
	if itemApprovable(&entity.ReliefRequestItem{Status: entity.ItemStatusPending}, zero) {
		t.Errorf("Pending line with no allocation must block approval")
	}
	if itemApprovable(&entity.ReliefRequestItem{Status: entity.ItemStatusUnavailable}, zero) {
		t.Errorf("Unavailability without a reason must block approval")
	}
	if !itemApprovable(&entity.ReliefRequestItem{Status: entity.ItemStatusUnavailable, StatusReason: "stock destroyed"}, zero) {
		t.Errorf("Explained unavailability must pass the gate")
	}
	if !itemApprovable(&entity.ReliefRequestItem{Status: entity.ItemStatusAwaitingAvailability, StatusReason: "restock due"}, zero) {
		t.Errorf("Awaiting availability with a reason must pass the gate")
	}
}
