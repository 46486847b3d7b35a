package dashboard

import (
	"time"

	"github.com/mkowalczyk/switchboard/internal/models"
	"gorm.io/gorm"
)

// CampaignCounts holds campaign totals by status.
type CampaignCounts struct {
	Draft   int `json:"draft"`
	Active  int `json:"active"`
	Paused  int `json:"paused"`
	Stopped int `json:"stopped"`
	Total   int `json:"total"`
}

// AssistantCounts holds assistant totals by status.
type AssistantCounts struct {
	Ready   int `json:"ready"`
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// DispatchCounts holds dispatch totals over the recent window.
type DispatchCounts struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Degraded int `json:"degraded"`
}

// SummaryData is the dashboard landing-page summary.
type SummaryData struct {
	Campaigns  CampaignCounts  `json:"campaigns"`
	Assistants AssistantCounts `json:"assistants"`
	Dispatches DispatchCounts  `json:"dispatches"`
}

// Summary aggregates campaign, assistant, and dispatch counts for an owner.
// Dispatch counts cover the last 24 hours.
func Summary(db *gorm.DB, ownerID string) (*SummaryData, error) {
	summary := &SummaryData{}

	type statusCount struct {
		Status string
		Count  int
	}

	var rows []statusCount
	q := db.Model(&models.Campaign{}).Select("status, count(*) as count").Group("status")
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		summary.Campaigns.Total += r.Count
		switch r.Status {
		case models.CampaignDraft:
			summary.Campaigns.Draft += r.Count
		case models.CampaignActive:
			summary.Campaigns.Active += r.Count
		case models.CampaignPaused:
			summary.Campaigns.Paused += r.Count
		case models.CampaignStopped:
			summary.Campaigns.Stopped += r.Count
		}
	}

	rows = rows[:0]
	q = db.Model(&models.Assistant{}).Select("status, count(*) as count").Group("status")
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		summary.Assistants.Total += r.Count
		switch r.Status {
		case models.StatusReady:
			summary.Assistants.Ready += r.Count
		case models.StatusPending:
			summary.Assistants.Pending += r.Count
		case models.StatusFailed:
			summary.Assistants.Failed += r.Count
		}
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	var logs []models.DispatchLog
	if err := db.Where("created_at >= ?", cutoff).Find(&logs).Error; err != nil {
		return nil, err
	}
	for _, l := range logs {
		if l.Accepted {
			summary.Dispatches.Accepted++
		} else {
			summary.Dispatches.Rejected++
		}
		if l.Degraded {
			summary.Dispatches.Degraded++
		}
	}

	return summary, nil
}

// DispatchRow holds one dispatch-log entry for display.
type DispatchRow struct {
	ID               uint      `json:"id"`
	Action           string    `json:"action"`
	CampaignID       *uint     `json:"campaign_id,omitempty"`
	ClientID         *uint     `json:"client_id,omitempty"`
	AssistantRemote  string    `json:"assistant_remote"`
	ResolutionSource string    `json:"resolution_source"`
	Degraded         bool      `json:"degraded"`
	Accepted         bool      `json:"accepted"`
	Error            string    `json:"error,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// RecentDispatches returns the newest dispatch-log entries, capped at limit.
func RecentDispatches(db *gorm.DB, limit int) ([]DispatchRow, error) {
	if limit <= 0 {
		limit = 100
	}
	var logs []models.DispatchLog
	if err := db.Order("id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}

	rows := make([]DispatchRow, len(logs))
	for i, l := range logs {
		rows[i] = DispatchRow{
			ID:               l.ID,
			Action:           l.Action,
			CampaignID:       l.CampaignID,
			ClientID:         l.ClientID,
			AssistantRemote:  l.AssistantRemote,
			ResolutionSource: l.ResolutionSource,
			Degraded:         l.Degraded,
			Accepted:         l.Accepted,
			Error:            l.Error,
			CreatedAt:        l.CreatedAt,
		}
	}
	return rows, nil
}
