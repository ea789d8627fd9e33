package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Urgency indicators
const (
	UrgencyNormal = "N"
	UrgencyHigh   = "H"
)

// ReliefRequest is an agency's needs list. It is never physically deleted;
// the fulfillment status carries its lifecycle.
type ReliefRequest struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	AgencyID    string     `json:"agency_id" gorm:"size:32;not null;index"`
	RequestDate time.Time  `json:"request_date" gorm:"not null"`
	UrgencyInd  string     `json:"urgency_ind" gorm:"size:1;not null;default:N"`
	Status      string     `json:"status" gorm:"size:30;not null;default:AWAITING_FULFILLMENT;index"`
	ReviewBy    string     `json:"review_by" gorm:"size:64"`
	ReviewAt    *time.Time `json:"review_at"`
	ActionBy    string     `json:"action_by" gorm:"size:64"`
	ActionAt    *time.Time `json:"action_at"`
	CreatedBy   string     `json:"created_by" gorm:"size:64"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedBy   string     `json:"updated_by" gorm:"size:64"`
	UpdatedAt   time.Time  `json:"updated_at"`
	VersionNbr  int        `json:"version_nbr" gorm:"not null;default:1"`

	Agency *Agency             `json:"agency,omitempty" gorm:"foreignKey:AgencyID"`
	Items  []ReliefRequestItem `json:"items,omitempty" gorm:"foreignKey:ReliefRequestID"`
}

func (ReliefRequest) TableName() string {
	return "relief_requests"
}

// ReliefRequestItem is one requested line. allowed_qty is a review-time
// policy ceiling on the fill (0 = uncapped); issue_qty is what past approved
// packages have consumed.
type ReliefRequestItem struct {
	ID              string          `json:"id" gorm:"primaryKey;size:32"`
	ReliefRequestID string          `json:"relief_request_id" gorm:"size:32;not null;uniqueIndex:idx_request_item;index"`
	ItemID          string          `json:"item_id" gorm:"size:32;not null;uniqueIndex:idx_request_item"`
	RequestQty      decimal.Decimal `json:"request_qty" gorm:"type:decimal(12,4);not null"`
	AllowedQty      decimal.Decimal `json:"allowed_qty" gorm:"type:decimal(12,4);not null;default:0"`
	IssueQty        decimal.Decimal `json:"issue_qty" gorm:"type:decimal(12,4);not null;default:0"`
	UrgencyInd      string          `json:"urgency_ind" gorm:"size:1;not null;default:N"`
	RequiredByDate  *time.Time      `json:"required_by_date"`
	Status          string          `json:"status" gorm:"size:30;not null;default:PENDING"`
	StatusReason    string          `json:"status_reason" gorm:"size:255"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	VersionNbr      int             `json:"version_nbr" gorm:"not null;default:1"`

	Item *Item `json:"item,omitempty" gorm:"foreignKey:ItemID"`
}

func (ReliefRequestItem) TableName() string {
	return "relief_request_items"
}
