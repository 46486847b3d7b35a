package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mkowalczyk/switchboard/internal/models"
	"github.com/mkowalczyk/switchboard/internal/notify"
	"github.com/mkowalczyk/switchboard/internal/resolver"
	"github.com/mkowalczyk/switchboard/internal/session"
	"github.com/mkowalczyk/switchboard/internal/transport"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ---------------------------------------------------------------------------
// Test doubles and helpers
// ---------------------------------------------------------------------------

type stubResolver struct {
	res   resolver.Resolution
	err   error
	calls int
}

func (s *stubResolver) Resolve(_ context.Context, _ resolver.Hints) (resolver.Resolution, error) {
	s.calls++
	return s.res, s.err
}

type recordingNotifier struct {
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, evt notify.Event) error {
	r.events = append(r.events, evt)
	return nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.DispatchLog{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

type orchestratorParts struct {
	orch     *Orchestrator
	resolver *stubResolver
	notifier *recordingNotifier
	sessions *session.Store
	db       *gorm.DB
}

func newTestOrchestrator(t *testing.T, workflowURL string, res resolver.Resolution, resErr error) orchestratorParts {
	t.Helper()
	parts := orchestratorParts{
		resolver: &stubResolver{res: res, err: resErr},
		notifier: &recordingNotifier{},
		sessions: session.NewStore(),
		db:       openTestDB(t),
	}
	orch, err := New(Opts{
		Resolver:     parts.resolver,
		HTTP:         transport.New(transport.Opts{Timeout: 200 * time.Millisecond}),
		WorkflowURL:  workflowURL,
		Sessions:     parts.sessions,
		DefaultModel: "gpt-4o-mini",
		DefaultVoice: "alloy",
		CallerNumber: "+15550100",
		Notifier:     parts.notifier,
		DB:           parts.db,
	})
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	parts.orch = orch
	return parts
}

func okResolution() resolver.Resolution {
	return resolver.Resolution{RemoteID: "r1", Source: resolver.SourceHint}
}

// ---------------------------------------------------------------------------
// Constructor
// ---------------------------------------------------------------------------

func TestNew_Validation(t *testing.T) {
	httpClient := transport.New(transport.Opts{})
	sessions := session.NewStore()

	if _, err := New(Opts{}); err == nil {
		t.Error("expected error for missing resolver")
	}
	if _, err := New(Opts{Resolver: &stubResolver{}}); err == nil {
		t.Error("expected error for missing http client")
	}
	if _, err := New(Opts{Resolver: &stubResolver{}, HTTP: httpClient}); err == nil {
		t.Error("expected error for missing workflow URL")
	}
	if _, err := New(Opts{Resolver: &stubResolver{}, HTTP: httpClient, WorkflowURL: "https://w"}); err == nil {
		t.Error("expected error for missing session store")
	}
	if _, err := New(Opts{Resolver: &stubResolver{}, HTTP: httpClient, WorkflowURL: "https://w", Sessions: sessions}); err != nil {
		t.Errorf("New() = %v, want nil with minimal opts", err)
	}
}

// ---------------------------------------------------------------------------
// Happy path
// ---------------------------------------------------------------------------

func TestDispatch_StartCampaign(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	parts := newTestOrchestrator(t, srv.URL, okResolution(), nil)
	result, err := parts.orch.Dispatch(context.Background(), ActionStartCampaign, Context{
		CampaignID:  4,
		OwnerID:     "alice",
		ClientCount: 25,
	})
	if err != nil {
		t.Fatalf("Dispatch() = %v", err)
	}
	if !result.Accepted {
		t.Error("Accepted = false, want true")
	}

	if got.Action != ActionStartCampaign || got.CampaignID != 4 || got.OwnerID != "alice" {
		t.Errorf("payload = %+v", got)
	}
	if got.AdditionalData.ClientCount != 25 {
		t.Errorf("client_count = %d, want 25", got.AdditionalData.ClientCount)
	}
	if got.AdditionalData.CallerNumber != "+15550100" {
		t.Errorf("caller_number = %q, want fixed caller tag", got.AdditionalData.CallerNumber)
	}
	if got.AdditionalData.AssistantID != "r1" || got.AdditionalData.ResolutionSource != "hint" {
		t.Errorf("identity diagnostics = %+v", got.AdditionalData)
	}
	if got.AdditionalData.SchemaVersion != "sb-1" || got.AdditionalData.Timestamp == "" {
		t.Errorf("version/timestamp = %+v", got.AdditionalData)
	}
	if got.CallConfig == nil || got.CallConfig.Model != "gpt-4o-mini" || got.CallConfig.Voice != "alloy" {
		t.Errorf("callConfig = %+v, want configured defaults", got.CallConfig)
	}
}

func TestDispatch_CallConfigFromSession(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	parts := newTestOrchestrator(t, srv.URL, okResolution(), nil)
	parts.sessions.SetCallConfig(session.CallConfig{Model: "gpt-4o", Voice: "nova"})

	if _, err := parts.orch.Dispatch(context.Background(), ActionStopCampaign, Context{CampaignID: 1}); err != nil {
		t.Fatalf("Dispatch() = %v", err)
	}
	if got.CallConfig.Model != "gpt-4o" || got.CallConfig.Voice != "nova" {
		t.Errorf("callConfig = %+v, want session override", got.CallConfig)
	}
}

func TestDispatch_PauseCarriesProgress(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	parts := newTestOrchestrator(t, srv.URL, okResolution(), nil)
	if _, err := parts.orch.Dispatch(context.Background(), ActionPauseCampaign, Context{CampaignID: 2, Progress: 60}); err != nil {
		t.Fatalf("Dispatch() = %v", err)
	}
	if got.AdditionalData.Progress != 60 {
		t.Errorf("progress = %d, want 60", got.AdditionalData.Progress)
	}
}

// ---------------------------------------------------------------------------
// Failure handling
// ---------------------------------------------------------------------------

func TestDispatch_TimeoutIsNotAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	parts := newTestOrchestrator(t, srv.URL, okResolution(), nil)
	result, err := parts.orch.Dispatch(context.Background(), ActionStopCampaign, Context{CampaignID: 4})
	if err != nil {
		t.Fatalf("Dispatch() = %v, want nil error for transport failure", err)
	}
	if result.Accepted {
		t.Error("Accepted = true after timeout, want false")
	}

	// The operator hears about it.
	found := false
	for _, evt := range parts.notifier.events {
		if evt.Title == "dispatch rejected" {
			found = true
		}
	}
	if !found {
		t.Errorf("events = %+v, want a dispatch rejected warning", parts.notifier.events)
	}
}

func TestDispatch_NonSuccessIsNotAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	parts := newTestOrchestrator(t, srv.URL, okResolution(), nil)
	result, err := parts.orch.Dispatch(context.Background(), ActionStartCampaign, Context{CampaignID: 1})
	if err != nil {
		t.Fatalf("Dispatch() = %v", err)
	}
	if result.Accepted {
		t.Error("Accepted = true for 502, want false")
	}
}

func TestDispatch_DegradedResolutionWarns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	degraded := resolver.Resolution{RemoteID: "fb", Source: resolver.SourceFallback, Degraded: true}
	parts := newTestOrchestrator(t, srv.URL, degraded, nil)

	result, err := parts.orch.Dispatch(context.Background(), ActionInitiateCall, Context{
		CampaignID: 1, ClientID: 2, ClientPhone: "+15550123",
	})
	if err != nil {
		t.Fatalf("Dispatch() = %v", err)
	}
	if !result.Accepted || !result.Resolution.Degraded {
		t.Errorf("result = %+v", result)
	}

	found := false
	for _, evt := range parts.notifier.events {
		if evt.Title == "degraded resolution" && evt.Severity == notify.SeverityWarning {
			found = true
		}
	}
	if !found {
		t.Errorf("events = %+v, want a degraded resolution warning", parts.notifier.events)
	}
}

func TestDispatch_ResolverErrorIsTerminal(t *testing.T) {
	parts := newTestOrchestrator(t, "http://unused.invalid", resolver.Resolution{}, resolver.ErrNoIdentity)
	_, err := parts.orch.Dispatch(context.Background(), ActionStopCampaign, Context{CampaignID: 1})
	if err == nil {
		t.Fatal("expected error when no identity can be resolved")
	}
	if !strings.Contains(err.Error(), "no identity resolved") {
		t.Errorf("error = %v", err)
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func TestDispatch_Validation(t *testing.T) {
	tests := []struct {
		name    string
		action  Action
		dc      Context
		wantErr string
	}{
		{"create assistant without name", ActionCreateAssistant, Context{}, "requires name"},
		{"call without campaign", ActionInitiateCall, Context{ClientID: 1, ClientPhone: "+1"}, "requires campaign id"},
		{"call without client", ActionInitiateCall, Context{CampaignID: 1, ClientPhone: "+1"}, "requires client id"},
		{"call without phone", ActionInitiateCall, Context{CampaignID: 1, ClientID: 1}, "requires client phone"},
		{"start without campaign", ActionStartCampaign, Context{}, "requires campaign id"},
		{"stop without campaign", ActionStopCampaign, Context{}, "requires campaign id"},
		{"unknown action", Action("reticulate"), Context{}, "unknown action"},
	}

	parts := newTestOrchestrator(t, "http://unused.invalid", okResolution(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parts.orch.Dispatch(context.Background(), tt.action, tt.dc)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.wantErr)
			}
		})
	}

	if parts.resolver.calls != 0 {
		t.Errorf("resolver called %d times during validation failures, want 0", parts.resolver.calls)
	}
}

// ---------------------------------------------------------------------------
// Dispatch log
// ---------------------------------------------------------------------------

func TestDispatch_WritesLogRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	parts := newTestOrchestrator(t, srv.URL, okResolution(), nil)
	if _, err := parts.orch.Dispatch(context.Background(), ActionStopCampaign, Context{CampaignID: 9}); err != nil {
		t.Fatalf("Dispatch() = %v", err)
	}

	var rows []models.DispatchLog
	if err := parts.db.Find(&rows).Error; err != nil {
		t.Fatalf("read dispatch log: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("log rows = %d, want 1", len(rows))
	}
	row := rows[0]
	if row.Action != "stop_campaign" || row.Accepted || row.AssistantRemote != "r1" {
		t.Errorf("log row = %+v", row)
	}
	if row.CampaignID == nil || *row.CampaignID != 9 {
		t.Errorf("log campaign = %v, want 9", row.CampaignID)
	}
	if row.Error == "" {
		t.Error("log row has empty error for rejected dispatch")
	}
}
