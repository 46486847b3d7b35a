// Package models defines the GORM models for the Switchboard local store.
package models

import "time"

// Assistant status values. Anything the remote provider reports outside
// this set is normalized to StatusReady at translation time.
const (
	StatusReady   = "ready"
	StatusPending = "pending"
	StatusFailed  = "failed"
)

// Assistant is a virtual-assistant profile. A record is uniquely identified
// by RemoteID once the remote provider has confirmed it; until then the
// local ID is the only stable identifier and RemoteID may hold a
// locally-generated placeholder (or be empty).
type Assistant struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	RemoteID     string `gorm:"size:64;index"`
	Name         string `gorm:"not null"`
	Status       string `gorm:"size:16;default:ready;index"`
	SystemPrompt string `gorm:"type:text"`
	FirstMessage string `gorm:"type:text"`
	Model        string `gorm:"size:64"`
	Voice        string `gorm:"size:64"`
	OwnerID      string `gorm:"size:64;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
