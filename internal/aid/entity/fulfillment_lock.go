package entity

import "time"

// FulfillmentLock grants one preparer the exclusive right to edit a request's
// draft package. The primary key on relief_request_id makes the acquire race
// a plain insert conflict at the store; locks never expire on their own —
// cancel, submit, or an admin override removes them.
type FulfillmentLock struct {
	ReliefRequestID string    `json:"relief_request_id" gorm:"primaryKey;size:32"`
	HolderID        string    `json:"holder_id" gorm:"size:64;not null"`
	HolderName      string    `json:"holder_name" gorm:"size:100"`
	AcquiredAt      time.Time `json:"acquired_at" gorm:"not null"`
}

func (FulfillmentLock) TableName() string {
	return "fulfillment_locks"
}
