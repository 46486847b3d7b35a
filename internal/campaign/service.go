// Package campaign drives call-campaign lifecycle: create, start, pause,
// stop, and per-client call initiation. Every transition is mirrored to
// the workflow endpoint through the dispatch orchestrator, but local state
// is the source of truth for pause and stop: an operator's stop must hold
// even when the workflow side is unreachable.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkowalczyk/switchboard/internal/dispatch"
	"github.com/mkowalczyk/switchboard/internal/models"
	"github.com/mkowalczyk/switchboard/internal/resolver"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a campaign or client does not exist.
var ErrNotFound = errors.New("campaign: not found")

// InvalidTransitionError reports a lifecycle operation applied to a
// campaign in the wrong state.
type InvalidTransitionError struct {
	Op     string
	Status string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("campaign: cannot %s a %s campaign", e.Op, e.Status)
}

// Dispatcher abstracts the dispatch orchestrator, enabling test doubles.
type Dispatcher interface {
	Dispatch(ctx context.Context, action dispatch.Action, dc dispatch.Context) (dispatch.Result, error)
}

// Result pairs the updated campaign with the dispatch outcome, so callers
// can report "stopped locally, but the workflow did not confirm".
type Result struct {
	Campaign *models.Campaign
	Dispatch dispatch.Result
}

// Service runs campaign lifecycle operations.
type Service struct {
	db         *gorm.DB
	dispatcher Dispatcher
	ownerID    string
}

// Opts holds parameters for creating a Service.
type Opts struct {
	DB         *gorm.DB
	Dispatcher Dispatcher
	OwnerID    string
}

// New creates a Service.
func New(opts Opts) (*Service, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("campaign: db is required")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("campaign: dispatcher is required")
	}
	return &Service{db: opts.DB, dispatcher: opts.Dispatcher, ownerID: opts.OwnerID}, nil
}

// List returns the owner's campaigns, oldest first.
func (s *Service) List() ([]models.Campaign, error) {
	var out []models.Campaign
	q := s.db.Order("id ASC")
	if s.ownerID != "" {
		q = q.Where("owner_id = ?", s.ownerID)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("campaign: list: %w", err)
	}
	return out, nil
}

// Get returns one campaign by id.
func (s *Service) Get(id uint) (*models.Campaign, error) {
	var c models.Campaign
	if err := s.db.First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("campaign: get %d: %w", id, err)
	}
	return &c, nil
}

// Create persists a draft campaign and announces it to the workflow
// endpoint. The local row is kept even when the announcement is rejected;
// the campaign can be re-announced by starting it.
func (s *Service) Create(ctx context.Context, name string, groupID *uint) (Result, error) {
	if name == "" {
		return Result{}, fmt.Errorf("campaign: name is required")
	}
	c := models.Campaign{
		Name:    name,
		Status:  models.CampaignDraft,
		GroupID: groupID,
		OwnerID: s.ownerID,
	}
	if err := s.db.Create(&c).Error; err != nil {
		return Result{}, fmt.Errorf("campaign: create %q: %w", name, err)
	}

	count, err := s.clientCount(groupID)
	if err != nil {
		return Result{}, err
	}
	dr, err := s.dispatcher.Dispatch(ctx, dispatch.ActionCreateCampaign, dispatch.Context{
		CampaignID:  c.ID,
		OwnerID:     s.ownerID,
		ClientCount: count,
		Hints:       resolver.Hints{OwnerID: s.ownerID},
	})
	if err != nil {
		return Result{Campaign: &c}, err
	}
	return Result{Campaign: &c, Dispatch: dr}, nil
}

// Start activates a campaign. Activation requires workflow acceptance:
// a campaign whose start was rejected stays in its prior state, because
// claiming "active" with no calls being made would mislead the operator.
func (s *Service) Start(ctx context.Context, id uint) (Result, error) {
	c, err := s.Get(id)
	if err != nil {
		return Result{}, err
	}
	if c.Status != models.CampaignDraft && c.Status != models.CampaignPaused {
		return Result{}, &InvalidTransitionError{Op: "start", Status: c.Status}
	}

	count, err := s.clientCount(c.GroupID)
	if err != nil {
		return Result{}, err
	}
	dr, err := s.dispatcher.Dispatch(ctx, dispatch.ActionStartCampaign, dispatch.Context{
		CampaignID:  c.ID,
		OwnerID:     c.OwnerID,
		ClientCount: count,
		Hints:       resolver.Hints{OwnerID: c.OwnerID},
	})
	if err != nil {
		return Result{Campaign: c}, err
	}
	if !dr.Accepted {
		return Result{Campaign: c, Dispatch: dr}, nil
	}

	now := time.Now().UTC()
	c.Status = models.CampaignActive
	c.StartedAt = &now
	if err := s.save(c); err != nil {
		return Result{}, err
	}
	return Result{Campaign: c, Dispatch: dr}, nil
}

// Pause suspends an active campaign. The local transition happens even
// when the workflow rejects the dispatch: a paused campaign must not keep
// being treated as active on the dashboard.
func (s *Service) Pause(ctx context.Context, id uint) (Result, error) {
	c, err := s.Get(id)
	if err != nil {
		return Result{}, err
	}
	if c.Status != models.CampaignActive {
		return Result{}, &InvalidTransitionError{Op: "pause", Status: c.Status}
	}

	dr, err := s.dispatcher.Dispatch(ctx, dispatch.ActionPauseCampaign, dispatch.Context{
		CampaignID: c.ID,
		OwnerID:    c.OwnerID,
		Progress:   c.Progress,
		Hints:      resolver.Hints{OwnerID: c.OwnerID},
	})
	if err != nil {
		return Result{Campaign: c}, err
	}

	c.Status = models.CampaignPaused
	if err := s.save(c); err != nil {
		return Result{}, err
	}
	return Result{Campaign: c, Dispatch: dr}, nil
}

// Stop ends a campaign. Like Pause, the local transition always happens;
// the dispatch outcome is surfaced in the result for reporting.
func (s *Service) Stop(ctx context.Context, id uint) (Result, error) {
	c, err := s.Get(id)
	if err != nil {
		return Result{}, err
	}
	if c.Status != models.CampaignActive && c.Status != models.CampaignPaused {
		return Result{}, &InvalidTransitionError{Op: "stop", Status: c.Status}
	}

	dr, err := s.dispatcher.Dispatch(ctx, dispatch.ActionStopCampaign, dispatch.Context{
		CampaignID: c.ID,
		OwnerID:    c.OwnerID,
		Hints:      resolver.Hints{OwnerID: c.OwnerID},
	})
	if err != nil {
		return Result{Campaign: c}, err
	}

	now := time.Now().UTC()
	c.Status = models.CampaignStopped
	c.StoppedAt = &now
	if err := s.save(c); err != nil {
		return Result{}, err
	}
	return Result{Campaign: c, Dispatch: dr}, nil
}

// Call initiates a single outbound call to one client of a campaign.
func (s *Service) Call(ctx context.Context, campaignID, clientID uint) (Result, error) {
	c, err := s.Get(campaignID)
	if err != nil {
		return Result{}, err
	}
	if c.Status != models.CampaignActive {
		return Result{}, &InvalidTransitionError{Op: "call within", Status: c.Status}
	}

	var client models.Client
	if err := s.db.First(&client, clientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Result{}, ErrNotFound
		}
		return Result{}, fmt.Errorf("campaign: client %d: %w", clientID, err)
	}

	dr, err := s.dispatcher.Dispatch(ctx, dispatch.ActionInitiateCall, dispatch.Context{
		CampaignID:  c.ID,
		ClientID:    client.ID,
		ClientName:  client.Name,
		ClientPhone: client.Phone,
		OwnerID:     c.OwnerID,
		Hints:       resolver.Hints{OwnerID: c.OwnerID},
	})
	if err != nil {
		return Result{Campaign: c}, err
	}
	return Result{Campaign: c, Dispatch: dr}, nil
}

// SetProgress records campaign progress reported back by the workflow side.
func (s *Service) SetProgress(id uint, progress int) error {
	if progress < 0 || progress > 100 {
		return fmt.Errorf("campaign: progress %d out of range", progress)
	}
	c, err := s.Get(id)
	if err != nil {
		return err
	}
	c.Progress = progress
	return s.save(c)
}

func (s *Service) clientCount(groupID *uint) (int, error) {
	if groupID == nil {
		return 0, nil
	}
	var n int64
	if err := s.db.Model(&models.Client{}).Where("group_id = ?", *groupID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("campaign: count clients: %w", err)
	}
	return int(n), nil
}

func (s *Service) save(c *models.Campaign) error {
	if err := s.db.Save(c).Error; err != nil {
		return fmt.Errorf("campaign: save %d: %w", c.ID, err)
	}
	return nil
}
