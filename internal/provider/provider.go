// Package provider is the adapter for the remote voice-assistant catalog.
//
// Listing and fetching fail open: transport errors and non-success statuses
// yield empty results so callers can fall back to the local catalog.
// Creation is the one operation whose failure is surfaced, because the UI
// must report it.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/mkowalczyk/switchboard/internal/transport"
	"golang.org/x/oauth2"
)

// OwnerMetadataKey is the metadata tag the provider round-trips for owner
// scoping. Providers that drop custom metadata leave records unscoped; the
// caller is expected to treat that as visible-to-all.
const OwnerMetadataKey = "owner_id"

// RemoteAssistant is the provider's wire representation of an assistant.
type RemoteAssistant struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Status       string            `json:"status"`
	Instructions string            `json:"instructions"`
	FirstMessage string            `json:"firstMessage"`
	Model        string            `json:"model"`
	Voice        string            `json:"voice"`
	Metadata     map[string]string `json:"metadata"`
}

// OwnerID returns the owner tag embedded in metadata, if any.
func (r RemoteAssistant) OwnerID() string {
	return r.Metadata[OwnerMetadataKey]
}

// RemoteRejectedError reports a non-success status from the provider.
type RemoteRejectedError struct {
	StatusCode int
	Body       string
}

func (e *RemoteRejectedError) Error() string {
	return fmt.Sprintf("provider: rejected with status %d: %s", e.StatusCode, e.Body)
}

// CreateRequest holds the fields for creating a remote assistant.
type CreateRequest struct {
	Name         string
	FirstMessage string
	SystemPrompt string
	OwnerID      string
}

// CreateResult is the outcome of a create call. Some providers return only
// an acknowledgement; AckOnly is set and RemoteID is empty in that case,
// and the caller synthesizes a placeholder id until sync confirms one.
type CreateResult struct {
	RemoteID string
	AckOnly  bool
}

// Client talks to the remote assistant API.
type Client struct {
	base string
	http *transport.Client
}

// Opts holds parameters for creating a Client.
type Opts struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// HTTPClient overrides the default bearer-token client (tests).
	HTTPClient *http.Client
}

// New creates a provider Client. The default HTTP client carries the API
// key as a bearer token on every request.
func New(opts Opts) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("provider: base URL is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		if opts.APIKey == "" {
			return nil, fmt.Errorf("provider: API key is required")
		}
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.APIKey})
		hc = oauth2.NewClient(context.Background(), src)
	}
	return &Client{
		base: opts.BaseURL,
		http: transport.New(transport.Opts{Timeout: opts.Timeout, HTTPClient: hc}),
	}, nil
}

// ListAll fetches every remote assistant. Fails open: on any transport
// error or non-success status it returns an empty list, since callers
// treat absence as "try local only."
func (c *Client) ListAll(ctx context.Context) []RemoteAssistant {
	req, err := http.NewRequest(http.MethodGet, c.base+"/assistant", nil)
	if err != nil {
		log.Printf("provider: build list request: %v", err)
		return nil
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		log.Printf("provider: list assistants: %v", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("provider: list assistants: status %d", resp.StatusCode)
		return nil
	}

	var out []RemoteAssistant
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Printf("provider: decode assistant list: %v", err)
		return nil
	}
	return out
}

// GetByID fetches a single remote assistant. Returns nil on any failure.
func (c *Client) GetByID(ctx context.Context, remoteID string) *RemoteAssistant {
	if remoteID == "" {
		return nil
	}
	req, err := http.NewRequest(http.MethodGet, c.base+"/assistant/"+remoteID, nil)
	if err != nil {
		return nil
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		log.Printf("provider: get assistant %s: %v", remoteID, err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}

	var out RemoteAssistant
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Printf("provider: decode assistant %s: %v", remoteID, err)
		return nil
	}
	return &out
}

// Create registers a new assistant with the provider. Non-success statuses
// surface as *RemoteRejectedError.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	body := map[string]interface{}{
		"name":         req.Name,
		"firstMessage": req.FirstMessage,
		"instructions": req.SystemPrompt,
		"metadata":     map[string]string{OwnerMetadataKey: req.OwnerID},
	}
	resp, err := c.http.PostJSON(ctx, c.base+"/assistant", body)
	if err != nil {
		return nil, fmt.Errorf("provider: create assistant: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RemoteRejectedError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var decoded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil || decoded.ID == "" {
		// Acknowledgement-only response: the provider accepted the request
		// but has not assigned an id yet.
		return &CreateResult{AckOnly: true}, nil
	}
	return &CreateResult{RemoteID: decoded.ID}, nil
}

// DeleteByID removes a remote assistant. Returns false on any failure;
// never raises, because local deletion must proceed regardless.
func (c *Client) DeleteByID(ctx context.Context, remoteID string) bool {
	if remoteID == "" {
		return false
	}
	req, err := http.NewRequest(http.MethodDelete, c.base+"/assistant/"+remoteID, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		log.Printf("provider: delete assistant %s: %v", remoteID, err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
