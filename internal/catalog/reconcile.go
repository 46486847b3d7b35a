package catalog

import (
	"github.com/mkowalczyk/switchboard/internal/models"
	"github.com/mkowalczyk/switchboard/internal/provider"
)

// NormalizeStatus maps any status outside {ready,pending,failed} to ready.
// Remote providers report statuses of their own invention; anything we do
// not recognize is treated as usable.
func NormalizeStatus(status string) string {
	switch status {
	case models.StatusReady, models.StatusPending, models.StatusFailed:
		return status
	default:
		return models.StatusReady
	}
}

// translateRemote converts a provider record to a local AssistantRecord.
func translateRemote(r provider.RemoteAssistant) models.Assistant {
	return models.Assistant{
		RemoteID:     r.ID,
		Name:         r.Name,
		Status:       NormalizeStatus(r.Status),
		SystemPrompt: r.Instructions,
		FirstMessage: r.FirstMessage,
		Model:        r.Model,
		Voice:        r.Voice,
		OwnerID:      r.OwnerID(),
	}
}

// Merge combines local and remote assistant lists into one logical catalog.
//
// The join key is the remote id, never the local id: only the remote id is
// guaranteed unique across both sides once an assistant is confirmed
// remotely. When a local record shares a remote record's id, only its
// status is updated in place (remote status is more current than a stale
// local one); every other field keeps the local value. Remote-only records
// are appended, translated, in provider order after the original local
// order. Name equality never joins records here; name matching belongs to
// the resolver.
//
// When ownerID is non-empty, remote records carrying a different owner tag
// are filtered out before merging. Records without any owner tag are kept:
// providers that do not round-trip metadata leave records unscoped, and
// owner scoping is then the caller's problem.
func Merge(local []models.Assistant, remote []provider.RemoteAssistant, ownerID string) []models.Assistant {
	out := make([]models.Assistant, len(local))
	copy(out, local)

	byRemoteID := make(map[string]int, len(out))
	for i, a := range out {
		if a.RemoteID != "" {
			byRemoteID[a.RemoteID] = i
		}
	}

	for _, r := range remote {
		if r.ID == "" {
			continue
		}
		if ownerID != "" {
			if tag := r.OwnerID(); tag != "" && tag != ownerID {
				continue
			}
		}
		if i, ok := byRemoteID[r.ID]; ok {
			out[i].Status = NormalizeStatus(r.Status)
			continue
		}
		out = append(out, translateRemote(r))
		byRemoteID[r.ID] = len(out) - 1
	}

	return out
}
