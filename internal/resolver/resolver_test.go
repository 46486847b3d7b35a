package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/mkowalczyk/switchboard/internal/catalog"
	"github.com/mkowalczyk/switchboard/internal/models"
	"github.com/mkowalczyk/switchboard/internal/provider"
	"github.com/mkowalczyk/switchboard/internal/session"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockRemote struct {
	assistants []provider.RemoteAssistant
	listCalls  int
	getCalls   int
}

func (m *mockRemote) ListAll(_ context.Context) []provider.RemoteAssistant {
	m.listCalls++
	return m.assistants
}

func (m *mockRemote) GetByID(_ context.Context, remoteID string) *provider.RemoteAssistant {
	m.getCalls++
	for i := range m.assistants {
		if m.assistants[i].ID == remoteID {
			return &m.assistants[i]
		}
	}
	return nil
}

type mockLocal map[uint]*models.Assistant

func (m mockLocal) Get(id uint) (*models.Assistant, error) {
	if a, ok := m[id]; ok {
		return a, nil
	}
	return nil, catalog.ErrNotFound
}

func newTestResolver(t *testing.T, remote *mockRemote, local mockLocal, sessions *session.Store, fallback string) *Resolver {
	t.Helper()
	if local == nil {
		local = mockLocal{}
	}
	if sessions == nil {
		sessions = session.NewStore()
	}
	r, err := New(Opts{Remote: remote, Local: local, Sessions: sessions, FallbackID: fallback})
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return r
}

// ---------------------------------------------------------------------------
// Constructor
// ---------------------------------------------------------------------------

func TestNew_Validation(t *testing.T) {
	if _, err := New(Opts{}); err == nil {
		t.Error("expected error for missing remote")
	}
	if _, err := New(Opts{Remote: &mockRemote{}}); err == nil {
		t.Error("expected error for missing local store")
	}
	if _, err := New(Opts{Remote: &mockRemote{}, Local: mockLocal{}}); err == nil {
		t.Error("expected error for missing session store")
	}
}

// ---------------------------------------------------------------------------
// Strategy 1: explicit hint
// ---------------------------------------------------------------------------

func TestResolve_HintShortCircuits(t *testing.T) {
	remote := &mockRemote{assistants: []provider.RemoteAssistant{{ID: "other"}}}
	r := newTestResolver(t, remote, nil, nil, "fb")

	got, err := r.Resolve(context.Background(), Hints{RemoteID: "X"})
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if got.RemoteID != "X" || got.Source != SourceHint || got.Degraded {
		t.Errorf("Resolve() = %+v, want X/hint", got)
	}
	if remote.listCalls != 0 || remote.getCalls != 0 {
		t.Errorf("network calls = %d list, %d get, want none", remote.listCalls, remote.getCalls)
	}
}

// ---------------------------------------------------------------------------
// Strategy 2: name match
// ---------------------------------------------------------------------------

func TestResolve_NameMatch(t *testing.T) {
	tests := []struct {
		name      string
		catalog   []provider.RemoteAssistant
		hint      string
		want      string
	}{
		{
			name:    "hint contains candidate, case-insensitive",
			catalog: []provider.RemoteAssistant{{ID: "r1", Name: "sales"}},
			hint:    "Sales Bot",
			want:    "r1",
		},
		{
			name:    "candidate contains hint",
			catalog: []provider.RemoteAssistant{{ID: "r2", Name: "Enterprise Sales Bot Deluxe"}},
			hint:    "sales bot",
			want:    "r2",
		},
		{
			name: "first match wins",
			catalog: []provider.RemoteAssistant{
				{ID: "r1", Name: "Support"},
				{ID: "r2", Name: "Sales One"},
				{ID: "r3", Name: "Sales Two"},
			},
			hint: "sales",
			want: "r2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(t, &mockRemote{assistants: tt.catalog}, nil, nil, "fb")
			got, err := r.Resolve(context.Background(), Hints{Name: tt.hint})
			if err != nil {
				t.Fatalf("Resolve() = %v", err)
			}
			if got.RemoteID != tt.want || got.Source != SourceNameMatch {
				t.Errorf("Resolve() = %+v, want %s/name_match", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Strategy 3: local record
// ---------------------------------------------------------------------------

func TestResolve_LocalRecordWithRemoteID(t *testing.T) {
	local := mockLocal{7: {ID: 7, RemoteID: "r7", Name: "A"}}
	remote := &mockRemote{}
	r := newTestResolver(t, remote, local, nil, "fb")

	got, err := r.Resolve(context.Background(), Hints{LocalID: 7})
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if got.RemoteID != "r7" || got.Source != SourceLocalRecord {
		t.Errorf("Resolve() = %+v, want r7/local_record", got)
	}
}

func TestResolve_LocalIDTriedAsRemoteID(t *testing.T) {
	// The local record has no remote id; the local id itself happens to be
	// a valid remote id.
	local := mockLocal{7: {ID: 7, Name: "A"}}
	remote := &mockRemote{assistants: []provider.RemoteAssistant{{ID: "7", Name: "A"}}}
	r := newTestResolver(t, remote, local, nil, "fb")

	got, err := r.Resolve(context.Background(), Hints{LocalID: 7})
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if got.RemoteID != "7" || got.Source != SourceLocalRecord {
		t.Errorf("Resolve() = %+v, want 7/local_record", got)
	}
}

func TestResolve_PlaceholderRemoteIDIsNotResolved(t *testing.T) {
	local := mockLocal{7: {ID: 7, RemoteID: "pending-abcd1234", Name: "A"}}
	r := newTestResolver(t, &mockRemote{}, local, nil, "fb")

	got, err := r.Resolve(context.Background(), Hints{LocalID: 7})
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if got.Source != SourceFallback {
		t.Errorf("Resolve() = %+v, want fallback: placeholders are not dispatchable ids", got)
	}
}

// ---------------------------------------------------------------------------
// Strategy 4: cached selection
// ---------------------------------------------------------------------------

func TestResolve_CachedSelectionRemoteID(t *testing.T) {
	sessions := session.NewStore()
	sessions.SetSelection(session.Selection{LocalID: 1, RemoteID: "r-cached", Name: "A"})
	r := newTestResolver(t, &mockRemote{}, nil, sessions, "fb")

	got, err := r.Resolve(context.Background(), Hints{})
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if got.RemoteID != "r-cached" || got.Source != SourceCachedSelection {
		t.Errorf("Resolve() = %+v, want r-cached/cached_selection", got)
	}
}

func TestResolve_CachedSelectionNameOnly(t *testing.T) {
	sessions := session.NewStore()
	sessions.SetSelection(session.Selection{Name: "Sales"})
	remote := &mockRemote{assistants: []provider.RemoteAssistant{{ID: "r1", Name: "Sales Bot"}}}
	r := newTestResolver(t, remote, nil, sessions, "fb")

	got, err := r.Resolve(context.Background(), Hints{})
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if got.RemoteID != "r1" || got.Source != SourceCachedSelection {
		t.Errorf("Resolve() = %+v, want r1/cached_selection", got)
	}
}

func TestResolve_HintBeatsCache(t *testing.T) {
	sessions := session.NewStore()
	sessions.SetSelection(session.Selection{RemoteID: "r-stale"})
	r := newTestResolver(t, &mockRemote{}, nil, sessions, "fb")

	got, _ := r.Resolve(context.Background(), Hints{RemoteID: "r-fresh"})
	if got.RemoteID != "r-fresh" {
		t.Errorf("Resolve() = %+v, want explicit hint to beat cache", got)
	}
}

// ---------------------------------------------------------------------------
// Strategy 5: first available
// ---------------------------------------------------------------------------

func TestResolve_FirstAvailable(t *testing.T) {
	remote := &mockRemote{assistants: []provider.RemoteAssistant{
		{ID: "r1", Name: "Alpha"},
		{ID: "r2", Name: "Beta"},
	}}
	r := newTestResolver(t, remote, nil, nil, "fb")

	got, err := r.Resolve(context.Background(), Hints{})
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if got.RemoteID != "r1" || got.Source != SourceFirstAvailable {
		t.Errorf("Resolve() = %+v, want r1/first_available", got)
	}
}

// ---------------------------------------------------------------------------
// Strategy 6: fallback
// ---------------------------------------------------------------------------

func TestResolve_EmptyEverythingFallsBack(t *testing.T) {
	r := newTestResolver(t, &mockRemote{}, nil, nil, "assistant-default")

	got, err := r.Resolve(context.Background(), Hints{})
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if got.RemoteID != "assistant-default" || got.Source != SourceFallback || !got.Degraded {
		t.Errorf("Resolve() = %+v, want degraded fallback", got)
	}
}

func TestResolve_RemoteOutageDegradesToFallback(t *testing.T) {
	// A remote outage shows up here as empty listings (the adapter fails
	// open); name resolution finds nothing and the cascade ends degraded.
	r := newTestResolver(t, &mockRemote{}, nil, nil, "fb")

	got, err := r.Resolve(context.Background(), Hints{Name: "Sales Bot"})
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if !got.Degraded || got.RemoteID != "fb" {
		t.Errorf("Resolve() = %+v, want degraded fb", got)
	}
}

func TestResolve_NoFallbackIsTerminal(t *testing.T) {
	r := newTestResolver(t, &mockRemote{}, nil, nil, "")

	_, err := r.Resolve(context.Background(), Hints{})
	if !errors.Is(err, ErrNoIdentity) {
		t.Errorf("Resolve() error = %v, want ErrNoIdentity", err)
	}
}

// ---------------------------------------------------------------------------
// looseMatch
// ---------------------------------------------------------------------------

func TestLooseMatch(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Sales Bot", "sales", true},
		{"sales", "SALES BOT", true},
		{"Support", "sales", false},
		{"", "sales", false},
		{"sales", "", false},
	}
	for _, tt := range tests {
		if got := looseMatch(tt.a, tt.b); got != tt.want {
			t.Errorf("looseMatch(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
