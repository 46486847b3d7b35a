// Package resolver turns sparse identity hints into a confirmed remote
// assistant id.
//
// Resolution is an ordered cascade: known truth first (an explicit remote
// id), then matching heuristics (name, local record), then cached state,
// then "pick something", then a fixed last-resort default. The first
// strategy to produce a non-empty id wins and the rest are skipped. A
// remote call failing or timing out inside a strategy means "this strategy
// found nothing" — the cascade proceeds, so call dispatch is never blocked
// on missing identity data.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mkowalczyk/switchboard/internal/catalog"
	"github.com/mkowalczyk/switchboard/internal/models"
	"github.com/mkowalczyk/switchboard/internal/provider"
	"github.com/mkowalczyk/switchboard/internal/session"
)

// Resolution source tags, recorded in dispatch diagnostics.
const (
	SourceHint            = "hint"
	SourceNameMatch       = "name_match"
	SourceLocalRecord     = "local_record"
	SourceCachedSelection = "cached_selection"
	SourceFirstAvailable  = "first_available"
	SourceFallback        = "fallback"
)

// ErrNoIdentity is the defensive terminal state: every strategy including
// the fallback produced nothing. It can only occur when no fallback id is
// configured.
var ErrNoIdentity = errors.New("resolver: no identity resolved")

// Hints is the partial information available for a call or campaign action.
// Any subset may be set.
type Hints struct {
	RemoteID string
	Name     string
	LocalID  uint
	OwnerID  string
}

// Resolution is the outcome of a resolve.
type Resolution struct {
	RemoteID string
	Source   string
	// Degraded marks a resolution that succeeded only by reaching the
	// fixed fallback rather than a precise match.
	Degraded bool
}

// RemoteCatalog abstracts the provider operations the resolver needs.
type RemoteCatalog interface {
	ListAll(ctx context.Context) []provider.RemoteAssistant
	GetByID(ctx context.Context, remoteID string) *provider.RemoteAssistant
}

// LocalStore abstracts the local catalog lookup.
type LocalStore interface {
	Get(id uint) (*models.Assistant, error)
}

// strategy is one step of the cascade. An empty id means "found nothing".
type strategy struct {
	source string
	fn     func(ctx context.Context, h Hints) string
}

// Resolver resolves identity hints against the remote catalog, the local
// store, and the session's cached selection.
type Resolver struct {
	remote     RemoteCatalog
	local      LocalStore
	sessions   *session.Store
	fallbackID string
	strategies []strategy
}

// Opts holds parameters for creating a Resolver.
type Opts struct {
	Remote   RemoteCatalog
	Local    LocalStore
	Sessions *session.Store
	// FallbackID is the known-good default assistant used when every
	// other strategy fails. Leaving it empty makes exhaustion terminal.
	FallbackID string
}

// New creates a Resolver.
func New(opts Opts) (*Resolver, error) {
	if opts.Remote == nil {
		return nil, fmt.Errorf("resolver: remote catalog is required")
	}
	if opts.Local == nil {
		return nil, fmt.Errorf("resolver: local store is required")
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("resolver: session store is required")
	}
	r := &Resolver{
		remote:     opts.Remote,
		local:      opts.Local,
		sessions:   opts.Sessions,
		fallbackID: opts.FallbackID,
	}
	r.strategies = []strategy{
		{SourceHint, r.fromHint},
		{SourceNameMatch, r.byName},
		{SourceLocalRecord, r.byLocalRecord},
		{SourceCachedSelection, r.fromCache},
		{SourceFirstAvailable, r.firstAvailable},
	}
	return r, nil
}

// Resolve runs the cascade. It always terminates with some identifier as
// long as a fallback id is configured; ErrNoIdentity is returned only when
// the cascade is exhausted and no fallback exists.
func (r *Resolver) Resolve(ctx context.Context, h Hints) (Resolution, error) {
	for _, s := range r.strategies {
		if id := s.fn(ctx, h); id != "" {
			return Resolution{RemoteID: id, Source: s.source}, nil
		}
	}
	if r.fallbackID != "" {
		return Resolution{RemoteID: r.fallbackID, Source: SourceFallback, Degraded: true}, nil
	}
	return Resolution{}, ErrNoIdentity
}

// fromHint accepts an explicit remote id as already resolved.
func (r *Resolver) fromHint(_ context.Context, h Hints) string {
	return h.RemoteID
}

// byName matches the hinted name against the remote catalog, loosely and
// case-insensitively in both directions, taking the first match.
func (r *Resolver) byName(ctx context.Context, h Hints) string {
	if h.Name == "" {
		return ""
	}
	return r.matchName(ctx, h.Name)
}

func (r *Resolver) matchName(ctx context.Context, name string) string {
	for _, candidate := range r.remote.ListAll(ctx) {
		if looseMatch(candidate.Name, name) {
			return candidate.ID
		}
	}
	return ""
}

// byLocalRecord resolves through the local catalog: a stored remote id
// wins outright; otherwise the local id itself is tried against the remote
// catalog, covering deployments where the two id spaces coincide by
// construction.
func (r *Resolver) byLocalRecord(ctx context.Context, h Hints) string {
	if h.LocalID == 0 {
		return ""
	}
	rec, err := r.local.Get(h.LocalID)
	if err != nil {
		return ""
	}
	if rec.RemoteID != "" && !catalog.IsPlaceholder(rec.RemoteID) {
		return rec.RemoteID
	}
	if remote := r.remote.GetByID(ctx, strconv.FormatUint(uint64(h.LocalID), 10)); remote != nil {
		return remote.ID
	}
	return ""
}

// fromCache uses the session's cached selection: its remote id if present,
// else a name match on its cached name. The cache may be stale, which is
// why it ranks below the direct heuristics.
func (r *Resolver) fromCache(ctx context.Context, _ Hints) string {
	sel, ok := r.sessions.Selection()
	if !ok {
		return ""
	}
	if sel.RemoteID != "" && !catalog.IsPlaceholder(sel.RemoteID) {
		return sel.RemoteID
	}
	if sel.Name != "" {
		return r.matchName(ctx, sel.Name)
	}
	return ""
}

// firstAvailable picks from the full remote list: the first loose name
// match when a name hint exists, else the first record overall.
func (r *Resolver) firstAvailable(ctx context.Context, h Hints) string {
	all := r.remote.ListAll(ctx)
	if len(all) == 0 {
		return ""
	}
	if h.Name != "" {
		for _, candidate := range all {
			if looseMatch(candidate.Name, h.Name) {
				return candidate.ID
			}
		}
	}
	return all[0].ID
}

// looseMatch reports a case-insensitive substring match in either direction.
func looseMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	la, lb := strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(la, lb) || strings.Contains(lb, la)
}
