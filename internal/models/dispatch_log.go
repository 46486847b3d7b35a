package models

import "time"

// DispatchLog records one outbound dispatch attempt, accepted or not.
// Written best-effort by the orchestrator; failures to log never block
// the dispatch itself.
type DispatchLog struct {
	ID               uint   `gorm:"primaryKey;autoIncrement"`
	Action           string `gorm:"size:32;index"`
	CampaignID       *uint  `gorm:"index"`
	ClientID         *uint
	AssistantRemote  string `gorm:"size:64"`
	ResolutionSource string `gorm:"size:32"`
	Degraded         bool   `gorm:"default:false"`
	Accepted         bool   `gorm:"default:false"`
	Error            string `gorm:"type:text"`
	CreatedAt        time.Time
}
