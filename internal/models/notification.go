// internal/models/notification.go
package models

import (
	"time"
)

// NotificationOutbox queues email side effects so a slow or failing SMTP
// server can never roll back the state transition that produced them. Rows
// are written in the same transaction as the transition and drained by a
// background job.
type NotificationOutbox struct {
	BaseModel
	Recipient string             `json:"recipient" gorm:"size:255;not null"`
	Template  string             `json:"template" gorm:"size:50;not null"`
	Subject   string             `json:"subject" gorm:"size:255;not null"`
	Payload   JSONB              `json:"payload" gorm:"type:jsonb"`
	Status    NotificationStatus `json:"status" gorm:"type:varchar(20);default:'queued';index"`
	Attempts  int                `json:"attempts" gorm:"default:0"`
	LastError string             `json:"last_error" gorm:"type:text"`
	SentAt    *time.Time         `json:"sent_at"`
}
