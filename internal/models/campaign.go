package models

import "time"

// Campaign status values.
const (
	CampaignDraft   = "draft"
	CampaignActive  = "active"
	CampaignPaused  = "paused"
	CampaignStopped = "stopped"
)

// Campaign is an outbound-call campaign over a client group.
type Campaign struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"not null"`
	Status    string `gorm:"size:16;default:draft;index"`
	GroupID   *uint  `gorm:"index"`
	OwnerID   string `gorm:"size:64;index"`
	Progress  int    `gorm:"default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
	StartedAt *time.Time
	StoppedAt *time.Time

	Group *ClientGroup `gorm:"foreignKey:GroupID"`
}
