package entity

// Relief request fulfillment statuses
const (
	RequestStatusAwaitingFulfillment = "AWAITING_FULFILLMENT"
	RequestStatusBeingPrepared       = "BEING_PREPARED"
	RequestStatusAwaitingApproval    = "AWAITING_APPROVAL"
	RequestStatusApproved            = "APPROVED"
	RequestStatusDenied              = "DENIED"
)

// Relief request item statuses. PENDING means the preparer has not yet
// resolved the line; it blocks submission but never appears past it.
const (
	ItemStatusPending              = "PENDING"
	ItemStatusFilled               = "FILLED"
	ItemStatusPartlyFilled         = "PARTLY_FILLED"
	ItemStatusUnavailable          = "UNAVAILABLE"
	ItemStatusDenied               = "DENIED"
	ItemStatusAwaitingAvailability = "AWAITING_AVAILABILITY"
	ItemStatusAllowedLimit         = "ALLOWED_LIMIT"
)

// Relief package statuses
const (
	PackageStatusDraft      = "DRAFT"
	PackageStatusFinal      = "FINAL"
	PackageStatusDenied     = "DENIED"
	PackageStatusDispatched = "DISPATCHED"
)

// unavailabilityStatuses are the explicit zero-allocation outcomes a preparer
// may record on a line. Each requires a non-empty reason.
var unavailabilityStatuses = map[string]bool{
	ItemStatusUnavailable:          true,
	ItemStatusDenied:               true,
	ItemStatusAwaitingAvailability: true,
}

// IsUnavailabilityStatus reports whether status is one of the explicit
// zero-allocation outcomes (Unavailable / Denied / Awaiting Availability).
func IsUnavailabilityStatus(status string) bool {
	return unavailabilityStatuses[status]
}

// IsItemStatus reports whether status belongs to the closed item status set.
func IsItemStatus(status string) bool {
	switch status {
	case ItemStatusPending, ItemStatusFilled, ItemStatusPartlyFilled,
		ItemStatusUnavailable, ItemStatusDenied,
		ItemStatusAwaitingAvailability, ItemStatusAllowedLimit:
		return true
	}
	return false
}
