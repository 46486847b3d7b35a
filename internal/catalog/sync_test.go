package catalog

import (
	"context"
	"testing"

	"github.com/mkowalczyk/switchboard/internal/models"
	"github.com/mkowalczyk/switchboard/internal/provider"
	"gorm.io/gorm"
)

func newTestSyncer(t *testing.T, remote RemoteCatalog, ownerID string) (*Syncer, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	s, err := NewSyncer(SyncerOpts{DB: db, Remote: remote, OwnerID: ownerID, Cron: "*/15 * * * *"})
	if err != nil {
		t.Fatalf("NewSyncer() = %v", err)
	}
	return s, db
}

func TestNewSyncer_Validation(t *testing.T) {
	db := openTestDB(t)
	if _, err := NewSyncer(SyncerOpts{}); err == nil {
		t.Error("expected error for missing db")
	}
	if _, err := NewSyncer(SyncerOpts{DB: db}); err == nil {
		t.Error("expected error for missing remote")
	}
	if _, err := NewSyncer(SyncerOpts{DB: db, Remote: &mockRemote{}, Cron: "not a cron"}); err == nil {
		t.Error("expected error for invalid cron expression")
	}
}

func TestSyncOnce_ConfirmsPlaceholder(t *testing.T) {
	remote := &mockRemote{assistants: []provider.RemoteAssistant{
		{ID: "r1", Name: "Sales Bot", Status: "ready"},
	}}
	s, db := newTestSyncer(t, remote, "")

	a := models.Assistant{Name: "Sales Bot", RemoteID: "pending-abcd1234", Status: models.StatusPending}
	db.Create(&a)

	n, err := s.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce() = %v", err)
	}
	if n != 1 {
		t.Errorf("updated = %d, want 1", n)
	}

	var got models.Assistant
	db.First(&got, a.ID)
	if got.RemoteID != "r1" || got.Status != models.StatusReady {
		t.Errorf("after sync = %q/%q, want r1/ready", got.RemoteID, got.Status)
	}
}

func TestSyncOnce_PropagatesStatusTransition(t *testing.T) {
	remote := &mockRemote{assistants: []provider.RemoteAssistant{
		{ID: "r1", Name: "A", Status: "failed"},
	}}
	s, db := newTestSyncer(t, remote, "")

	a := models.Assistant{Name: "A", RemoteID: "r1", Status: models.StatusPending}
	db.Create(&a)

	n, err := s.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce() = %v", err)
	}
	if n != 1 {
		t.Errorf("updated = %d, want 1", n)
	}

	var got models.Assistant
	db.First(&got, a.ID)
	if got.Status != models.StatusFailed {
		t.Errorf("Status = %q, want failed", got.Status)
	}
}

func TestSyncOnce_NoChangesIsZero(t *testing.T) {
	remote := &mockRemote{assistants: []provider.RemoteAssistant{
		{ID: "r1", Name: "A", Status: "ready"},
	}}
	s, db := newTestSyncer(t, remote, "")
	db.Create(&models.Assistant{Name: "A", RemoteID: "r1", Status: models.StatusReady})

	n, err := s.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce() = %v", err)
	}
	if n != 0 {
		t.Errorf("updated = %d, want 0", n)
	}
}

func TestSyncOnce_EmptyRemoteIsNoop(t *testing.T) {
	s, db := newTestSyncer(t, &mockRemote{}, "")
	db.Create(&models.Assistant{Name: "A", RemoteID: "pending-ffffffff", Status: models.StatusPending})

	n, err := s.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce() = %v", err)
	}
	if n != 0 {
		t.Errorf("updated = %d, want 0 for empty remote", n)
	}

	var got models.Assistant
	db.Where("name = ?", "A").First(&got)
	if !IsPlaceholder(got.RemoteID) {
		t.Errorf("placeholder lost on empty remote: %q", got.RemoteID)
	}
}

func TestSyncOnce_OwnerScoping(t *testing.T) {
	remote := &mockRemote{assistants: []provider.RemoteAssistant{
		{ID: "r1", Name: "A", Status: "ready",
			Metadata: map[string]string{provider.OwnerMetadataKey: "bob"}},
	}}
	s, db := newTestSyncer(t, remote, "alice")

	a := models.Assistant{Name: "A", RemoteID: "pending-00000001", Status: models.StatusPending, OwnerID: "alice"}
	db.Create(&a)

	n, err := s.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce() = %v", err)
	}
	if n != 0 {
		t.Errorf("updated = %d, want 0: bob's remote record must not confirm alice's placeholder", n)
	}
}
