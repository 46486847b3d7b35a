// Package session holds per-session mutable state behind an explicit store
// rather than ambient globals. A Store is created at session start and
// cleared on logout; writes are last-write-wins by design, since only
// user-driven actions mutate it.
package session

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Fixed keys under which session values are serialized.
const (
	selectionKey  = "selected_assistant"
	callConfigKey = "call_config"
)

// Selection is the most recently chosen assistant, kept as a source of
// identity hints and as the default for dispatch actions.
type Selection struct {
	LocalID  uint   `json:"local_id,omitempty"`
	RemoteID string `json:"remote_id,omitempty"`
	Name     string `json:"name,omitempty"`
}

// CallConfig is the model/voice pair attached to outbound calls.
type CallConfig struct {
	Model string `json:"model"`
	Voice string `json:"voice"`
}

// Store is a small key-value store for session state. Values are stored
// serialized so the store can be backed by any string-to-string medium.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

// Get returns the raw value for key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores a raw value under key, overwriting any previous value.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Delete removes key from the store.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Reset clears all session state (logout).
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
}

// SetSelection records the chosen assistant under the fixed selection key.
func (s *Store) SetSelection(sel Selection) error {
	data, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("session: marshal selection: %w", err)
	}
	s.Set(selectionKey, string(data))
	return nil
}

// Selection returns the cached selection, or ok=false if none is set or
// the stored value cannot be decoded.
func (s *Store) Selection() (Selection, bool) {
	raw, ok := s.Get(selectionKey)
	if !ok {
		return Selection{}, false
	}
	var sel Selection
	if err := json.Unmarshal([]byte(raw), &sel); err != nil {
		return Selection{}, false
	}
	return sel, true
}

// ClearSelection removes the cached selection (e.g. when the selected
// assistant is deleted).
func (s *Store) ClearSelection() {
	s.Delete(selectionKey)
}

// SetCallConfig stores the model/voice pair for outbound calls.
func (s *Store) SetCallConfig(cc CallConfig) error {
	data, err := json.Marshal(cc)
	if err != nil {
		return fmt.Errorf("session: marshal call config: %w", err)
	}
	s.Set(callConfigKey, string(data))
	return nil
}

// CallConfig returns the configured model/voice pair, or ok=false when unset.
func (s *Store) CallConfig() (CallConfig, bool) {
	raw, ok := s.Get(callConfigKey)
	if !ok {
		return CallConfig{}, false
	}
	var cc CallConfig
	if err := json.Unmarshal([]byte(raw), &cc); err != nil {
		return CallConfig{}, false
	}
	return cc, true
}
