package service

import (
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/entity"
	"github.com/shopspring/decimal"
)

// ResolveItemStatus classifies one request line from its quantities.
//
//	allocated == 0                      -> PENDING (preparer must allocate or
//	                                       record an unavailability status)
//	allocated == requested              -> FILLED
//	allocated == ceiling < requested    -> ALLOWED_LIMIT (the policy cap, not
//	                                       the stock, stopped the fill)
//	0 < allocated < requested           -> PARTLY_FILLED
//
// The explicit unavailability statuses (UNAVAILABLE / DENIED /
// AWAITING_AVAILABILITY) are recorded by the preparer directly, never derived
// here; callers keep them when allocated is zero and a reason is present.
func ResolveItemStatus(requestQty, allowedQty, allocatedQty decimal.Decimal) string {
	if allocatedQty.LessThanOrEqual(decimal.Zero) {
		return entity.ItemStatusPending
	}
	if allocatedQty.GreaterThanOrEqual(requestQty) {
		return entity.ItemStatusFilled
	}
	if allowedQty.GreaterThan(decimal.Zero) && allocatedQty.GreaterThanOrEqual(allowedQty) {
		return entity.ItemStatusAllowedLimit
	}
	return entity.ItemStatusPartlyFilled
}

// itemApprovable reports whether a request line passes the approval gate:
// either something was allocated, or the line carries an explicit
// unavailability status with a non-empty reason.
func itemApprovable(item *entity.ReliefRequestItem, allocated decimal.Decimal) bool {
	if allocated.GreaterThan(decimal.Zero) {
		return true
	}
	return entity.IsUnavailabilityStatus(item.Status) && item.StatusReason != ""
}
