package catalog

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"github.com/mkowalczyk/switchboard/internal/models"
	"github.com/mkowalczyk/switchboard/internal/provider"
	"github.com/mkowalczyk/switchboard/internal/session"
	"gorm.io/gorm"
)

// placeholderPrefix marks locally-generated remote ids that stand in until
// the sync loop confirms the provider-assigned id.
const placeholderPrefix = "pending-"

// RemoteCatalog abstracts the provider client, enabling test mocks.
type RemoteCatalog interface {
	ListAll(ctx context.Context) []provider.RemoteAssistant
	GetByID(ctx context.Context, remoteID string) *provider.RemoteAssistant
	Create(ctx context.Context, req provider.CreateRequest) (*provider.CreateResult, error)
	DeleteByID(ctx context.Context, remoteID string) bool
}

// Catalog ties the local store, the remote provider, and the session store
// together for assistant lifecycle operations.
type Catalog struct {
	db       *gorm.DB
	remote   RemoteCatalog
	sessions *session.Store
}

// Opts holds parameters for creating a Catalog.
type Opts struct {
	DB       *gorm.DB
	Remote   RemoteCatalog
	Sessions *session.Store
}

// New creates a Catalog.
func New(opts Opts) (*Catalog, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("catalog: db is required")
	}
	if opts.Remote == nil {
		return nil, fmt.Errorf("catalog: remote is required")
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("catalog: session store is required")
	}
	return &Catalog{db: opts.DB, remote: opts.Remote, sessions: opts.Sessions}, nil
}

// MergedList returns the reconciled local+remote catalog for an owner.
// A remote listing failure degrades to the local view only.
func (c *Catalog) MergedList(ctx context.Context, ownerID string) ([]models.Assistant, error) {
	local, err := List(c.db, ownerID)
	if err != nil {
		return nil, err
	}
	remote := c.remote.ListAll(ctx)
	return Merge(local, remote, ownerID), nil
}

// CreateRequest holds the fields for creating an assistant.
type CreateRequest struct {
	Name         string
	SystemPrompt string
	FirstMessage string
	Model        string
	Voice        string
	OwnerID      string
}

// Create registers the assistant with the remote provider, then records it
// locally. Provider failure is surfaced: the UI must report creation
// failures. An acknowledgement-only response yields a pending record with
// a placeholder remote id; the sync loop confirms the real id later. The
// new record becomes the session's cached selection.
func (c *Catalog) Create(ctx context.Context, req CreateRequest) (*models.Assistant, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("catalog: name is required")
	}

	result, err := c.remote.Create(ctx, provider.CreateRequest{
		Name:         req.Name,
		FirstMessage: req.FirstMessage,
		SystemPrompt: req.SystemPrompt,
		OwnerID:      req.OwnerID,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: create %q: %w", req.Name, err)
	}

	a := models.Assistant{
		Name:         req.Name,
		SystemPrompt: req.SystemPrompt,
		FirstMessage: req.FirstMessage,
		Model:        req.Model,
		Voice:        req.Voice,
		OwnerID:      req.OwnerID,
	}
	if result.AckOnly {
		a.RemoteID = newPlaceholderID()
		a.Status = models.StatusPending
	} else {
		a.RemoteID = result.RemoteID
		a.Status = models.StatusReady
	}

	if err := Save(c.db, &a); err != nil {
		return nil, err
	}

	if err := c.sessions.SetSelection(session.Selection{
		LocalID:  a.ID,
		RemoteID: a.RemoteID,
		Name:     a.Name,
	}); err != nil {
		log.Printf("catalog: cache selection for %q: %v", a.Name, err)
	}
	return &a, nil
}

// Delete removes an assistant. Remote deletion is attempted first but is
// best-effort: a remote failure is logged, never propagated, and local
// deletion proceeds regardless. The cached selection is cleared when it
// points at the deleted record.
func (c *Catalog) Delete(ctx context.Context, id uint) error {
	a, err := Get(c.db, id)
	if err != nil {
		return err
	}

	if a.RemoteID != "" && !IsPlaceholder(a.RemoteID) {
		if !c.remote.DeleteByID(ctx, a.RemoteID) {
			log.Printf("catalog: remote delete of %s failed, deleting locally anyway", a.RemoteID)
		}
	}

	if err := DeleteLocal(c.db, id); err != nil {
		return err
	}

	if sel, ok := c.sessions.Selection(); ok && sel.LocalID == id {
		c.sessions.ClearSelection()
	}
	return nil
}

// Select records an assistant as the session's cached selection.
func (c *Catalog) Select(id uint) (*models.Assistant, error) {
	a, err := Get(c.db, id)
	if err != nil {
		return nil, err
	}
	if err := c.sessions.SetSelection(session.Selection{
		LocalID:  a.ID,
		RemoteID: a.RemoteID,
		Name:     a.Name,
	}); err != nil {
		return nil, err
	}
	return a, nil
}

// IsPlaceholder reports whether a remote id is a locally-generated
// placeholder awaiting confirmation.
func IsPlaceholder(remoteID string) bool {
	return strings.HasPrefix(remoteID, placeholderPrefix)
}

// newPlaceholderID generates a placeholder remote id.
func newPlaceholderID() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return placeholderPrefix + "00000000"
	}
	return placeholderPrefix + hex.EncodeToString(b[:])
}
