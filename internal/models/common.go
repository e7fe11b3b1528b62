// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BeforeCreate mints the primary key client-side, keeping inserts portable
// across database engines.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserType string

const (
	UserTypeArtist    UserType = "artist"
	UserTypeCollector UserType = "collector"
	UserTypeAdmin     UserType = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

type PurchaseStatus string

const (
	PurchaseStatusPending         PurchaseStatus = "pending"
	PurchaseStatusAddressProvided PurchaseStatus = "address_provided"
	PurchaseStatusPaymentPending  PurchaseStatus = "payment_pending"
	PurchaseStatusPaid            PurchaseStatus = "paid"
	PurchaseStatusShipped         PurchaseStatus = "shipped"
	PurchaseStatusDelivered       PurchaseStatus = "delivered"
	PurchaseStatusCompleted       PurchaseStatus = "completed"
	PurchaseStatusCancelled       PurchaseStatus = "cancelled"
	PurchaseStatusExpired         PurchaseStatus = "expired"
)

// statusRank orders the forward-moving purchase states. The terminal escapes
// (cancelled, expired) are handled separately in CanTransitionTo.
var statusRank = map[PurchaseStatus]int{
	PurchaseStatusPending:         0,
	PurchaseStatusAddressProvided: 1,
	PurchaseStatusPaymentPending:  2,
	PurchaseStatusPaid:            3,
	PurchaseStatusShipped:         4,
	PurchaseStatusDelivered:       5,
	PurchaseStatusCompleted:       6,
}

// IsTerminal reports whether no further transition is allowed from s.
func (s PurchaseStatus) IsTerminal() bool {
	return s == PurchaseStatusCompleted || s == PurchaseStatusCancelled || s == PurchaseStatusExpired
}

// CanTransitionTo enforces the forward-only status sequence: a purchase never
// moves back to an earlier state. Any non-terminal state may be cancelled;
// only pending may expire.
func (s PurchaseStatus) CanTransitionTo(next PurchaseStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == PurchaseStatusCancelled {
		return true
	}
	if next == PurchaseStatusExpired {
		return s == PurchaseStatusPending
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

type NotificationStatus string

const (
	NotificationStatusQueued NotificationStatus = "queued"
	NotificationStatusSent   NotificationStatus = "sent"
	NotificationStatusFailed NotificationStatus = "failed"
)
