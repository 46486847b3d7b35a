package catalog

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mkowalczyk/switchboard/internal/provider"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextCronDuration parses a 5-field cron expression and returns the duration
// until the next fire time. Returns 0 on parse error.
func nextCronDuration(expr string) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	next := sched.Next(time.Now())
	d := time.Until(next)
	if d < 0 {
		return 0
	}
	return d
}

// Syncer periodically reconciles the local catalog against the remote
// provider: it confirms placeholder remote ids and propagates status
// transitions (pending -> ready/failed).
type Syncer struct {
	db          *gorm.DB
	remote      RemoteCatalog
	ownerID     string
	cronExpr    string
	warnedScope bool
}

// SyncerOpts holds parameters for creating a Syncer.
type SyncerOpts struct {
	DB      *gorm.DB
	Remote  RemoteCatalog
	OwnerID string
	Cron    string // 5-field cron expression
}

// NewSyncer creates a Syncer.
func NewSyncer(opts SyncerOpts) (*Syncer, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("catalog: syncer db is required")
	}
	if opts.Remote == nil {
		return nil, fmt.Errorf("catalog: syncer remote is required")
	}
	if opts.Cron != "" {
		if _, err := cronParser.Parse(opts.Cron); err != nil {
			return nil, fmt.Errorf("catalog: syncer cron %q: %w", opts.Cron, err)
		}
	}
	return &Syncer{db: opts.DB, remote: opts.Remote, ownerID: opts.OwnerID, cronExpr: opts.Cron}, nil
}

// Run fires SyncOnce on the configured cron schedule until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) {
	d := nextCronDuration(s.cronExpr)
	if d <= 0 {
		log.Printf("catalog: sync disabled (no valid schedule)")
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if n, err := s.SyncOnce(ctx); err != nil {
				log.Printf("catalog: sync: %v", err)
			} else if n > 0 {
				log.Printf("catalog: sync updated %d assistants", n)
			}
			if d := nextCronDuration(s.cronExpr); d > 0 {
				timer.Reset(d)
			} else {
				return
			}
		}
	}
}

// SyncOnce performs a single reconciliation pass and returns the number of
// local records updated. A remote listing failure is not an error; the
// pass simply finds nothing to do.
func (s *Syncer) SyncOnce(ctx context.Context) (int, error) {
	remote := s.remote.ListAll(ctx)
	if len(remote) == 0 {
		return 0, nil
	}
	s.warnScopeGap(remote)

	byID := make(map[string]provider.RemoteAssistant, len(remote))
	byName := make(map[string]provider.RemoteAssistant, len(remote))
	for _, r := range remote {
		if s.ownerID != "" {
			if tag := r.OwnerID(); tag != "" && tag != s.ownerID {
				continue
			}
		}
		byID[r.ID] = r
		if _, ok := byName[r.Name]; !ok {
			byName[r.Name] = r
		}
	}

	local, err := List(s.db, s.ownerID)
	if err != nil {
		return 0, err
	}

	updated := 0
	for i := range local {
		a := &local[i]
		switch {
		case a.RemoteID == "" || IsPlaceholder(a.RemoteID):
			// Awaiting confirmation: adopt the provider-assigned id for an
			// exact name match.
			r, ok := byName[a.Name]
			if !ok {
				continue
			}
			a.RemoteID = r.ID
			a.Status = NormalizeStatus(r.Status)
			if err := Save(s.db, a); err != nil {
				return updated, err
			}
			updated++
		default:
			r, ok := byID[a.RemoteID]
			if !ok {
				continue
			}
			if st := NormalizeStatus(r.Status); st != a.Status {
				a.Status = st
				if err := Save(s.db, a); err != nil {
					return updated, err
				}
				updated++
			}
		}
	}
	return updated, nil
}

// warnScopeGap logs once when the provider drops owner metadata entirely,
// because remote records then degrade to visible-to-all-owners.
func (s *Syncer) warnScopeGap(remote []provider.RemoteAssistant) {
	if s.warnedScope || s.ownerID == "" {
		return
	}
	for _, r := range remote {
		if r.OwnerID() != "" {
			return
		}
	}
	s.warnedScope = true
	log.Printf("catalog: provider returns no owner metadata; remote records are not owner-scoped")
}
