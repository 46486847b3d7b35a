package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mkowalczyk/switchboard/internal/models"
	"gorm.io/gorm"
)

// dispatchEvent holds data for a dispatch SSE event.
type dispatchEvent struct {
	ID         uint   `json:"id"`
	Action     string `json:"action"`
	CampaignID *uint  `json:"campaign_id,omitempty"`
	Accepted   bool   `json:"accepted"`
	Degraded   bool   `json:"degraded"`
	Rejected   int64  `json:"rejected_count"`
}

// handleSSE streams dispatch-log activity to the frontend by polling for
// rows newer than the last one seen.
func handleSSE(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		// Only alert on rows created after the stream opened.
		var lastSeenID uint
		var latest models.DispatchLog
		if err := db.Order("id DESC").Limit(1).First(&latest).Error; err == nil {
			lastSeenID = latest.ID
		}

		ctx := c.Request.Context()
		ticker := time.NewTicker(3 * time.Second)
		heartbeat := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				var newRows []models.DispatchLog
				db.Where("id > ?", lastSeenID).Order("id ASC").Find(&newRows)
				if len(newRows) == 0 {
					continue
				}
				lastSeenID = newRows[len(newRows)-1].ID

				var rejected int64
				db.Model(&models.DispatchLog{}).Where("accepted = ?", false).Count(&rejected)

				for _, row := range newRows {
					writeSSE(c.Writer, "dispatch", dispatchEvent{
						ID:         row.ID,
						Action:     row.Action,
						CampaignID: row.CampaignID,
						Accepted:   row.Accepted,
						Degraded:   row.Degraded,
						Rejected:   rejected,
					})
				}
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
