// Package dispatch assembles and sends outbound action payloads to the
// workflow-automation endpoint.
package dispatch

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/mkowalczyk/switchboard/internal/models"
	"github.com/mkowalczyk/switchboard/internal/notify"
	"github.com/mkowalczyk/switchboard/internal/resolver"
	"github.com/mkowalczyk/switchboard/internal/session"
	"github.com/mkowalczyk/switchboard/internal/transport"
	"gorm.io/gorm"
)

// IdentityResolver abstracts the resolver, enabling test doubles.
type IdentityResolver interface {
	Resolve(ctx context.Context, h resolver.Hints) (resolver.Resolution, error)
}

// Context carries the per-action inputs supplied by the caller. Any field
// not relevant to the action is left zero.
type Context struct {
	CampaignID   uint
	ClientID     uint
	ClientName   string
	ClientPhone  string
	OwnerID      string
	ClientCount  int
	Progress     int
	Name         string // create_assistant
	SystemPrompt string // create_assistant
	FirstMessage string // create_assistant
	Hints        resolver.Hints
}

// Result is the outcome of a dispatch.
type Result struct {
	Accepted   bool
	Resolution resolver.Resolution
}

// Orchestrator resolves identity, builds the ActionPayload, and POSTs it
// to the workflow endpoint. It never retries: a rejected or timed-out
// dispatch is reported as not accepted and the caller decides what local
// state may still advance.
type Orchestrator struct {
	resolver     IdentityResolver
	http         *transport.Client
	workflowURL  string
	sessions     *session.Store
	defaults     session.CallConfig
	callerNumber string
	notifier     notify.Notifier
	db           *gorm.DB // optional; enables dispatch logging
}

// Opts holds parameters for creating an Orchestrator.
type Opts struct {
	Resolver     IdentityResolver
	HTTP         *transport.Client
	WorkflowURL  string
	Sessions     *session.Store
	DefaultModel string
	DefaultVoice string
	CallerNumber string          // fixed caller-identity tag for start_campaign
	Notifier     notify.Notifier // defaults to notify.LogNotifier
	DB           *gorm.DB        // optional
}

// New creates an Orchestrator.
func New(opts Opts) (*Orchestrator, error) {
	if opts.Resolver == nil {
		return nil, fmt.Errorf("dispatch: resolver is required")
	}
	if opts.HTTP == nil {
		return nil, fmt.Errorf("dispatch: http client is required")
	}
	if opts.WorkflowURL == "" {
		return nil, fmt.Errorf("dispatch: workflow URL is required")
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("dispatch: session store is required")
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Orchestrator{
		resolver:     opts.Resolver,
		http:         opts.HTTP,
		workflowURL:  opts.WorkflowURL,
		sessions:     opts.Sessions,
		defaults:     session.CallConfig{Model: opts.DefaultModel, Voice: opts.DefaultVoice},
		callerNumber: opts.CallerNumber,
		notifier:     notifier,
		db:           opts.DB,
	}, nil
}

// Dispatch sends one action. The returned error is non-nil only for
// invalid input or an unresolvable identity; transport failures and
// workflow rejections yield Accepted=false with a nil error, because the
// caller may still advance local state (a stopped campaign stays stopped
// even when the provider is unreachable).
func (o *Orchestrator) Dispatch(ctx context.Context, action Action, dc Context) (Result, error) {
	if err := validate(action, dc); err != nil {
		return Result{}, err
	}

	res, err := o.resolver.Resolve(ctx, dc.Hints)
	if err != nil {
		o.notify(ctx, notify.Event{
			Title:    "identity resolution failed",
			Body:     fmt.Sprintf("%s: %v", action, err),
			Severity: notify.SeverityError,
		})
		return Result{}, fmt.Errorf("dispatch: %s: %w", action, err)
	}
	if res.Degraded {
		o.notify(ctx, notify.Event{
			Title:    "degraded resolution",
			Body:     fmt.Sprintf("%s fell back to the default assistant %s", action, res.RemoteID),
			Severity: notify.SeverityWarning,
			Fields:   []notify.Field{{Name: "action", Value: string(action)}},
		})
	}

	payload := o.buildPayload(action, dc, res)

	accepted := true
	var dispatchErr string
	resp, err := o.http.PostJSON(ctx, o.workflowURL, payload)
	if err != nil {
		accepted = false
		dispatchErr = err.Error()
	} else {
		resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			accepted = false
			dispatchErr = fmt.Sprintf("workflow returned status %d", resp.StatusCode)
		}
	}

	if !accepted {
		o.notify(ctx, notify.Event{
			Title:    "dispatch rejected",
			Body:     fmt.Sprintf("%s: %s", action, dispatchErr),
			Severity: notify.SeverityWarning,
			Fields: []notify.Field{
				{Name: "action", Value: string(action)},
				{Name: "campaign", Value: strconv.FormatUint(uint64(dc.CampaignID), 10)},
			},
		})
	}

	o.logDispatch(action, dc, res, accepted, dispatchErr)
	return Result{Accepted: accepted, Resolution: res}, nil
}

// buildPayload assembles the ActionPayload for one action.
func (o *Orchestrator) buildPayload(action Action, dc Context, res resolver.Resolution) Payload {
	data := AdditionalData{
		AssistantID:      res.RemoteID,
		AssistantLocalID: dc.Hints.LocalID,
		AssistantName:    dc.Hints.Name,
		ResolutionSource: res.Source,
		Degraded:         res.Degraded,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		SchemaVersion:    schemaVersion,
	}

	switch action {
	case ActionStartCampaign:
		data.ClientCount = dc.ClientCount
		data.CallerNumber = o.callerNumber
	case ActionCreateCampaign:
		data.ClientCount = dc.ClientCount
	case ActionPauseCampaign:
		data.Progress = dc.Progress
	}

	cc, ok := o.sessions.CallConfig()
	if !ok || cc.Model == "" {
		cc = o.defaults
	}

	return Payload{
		Action:         action,
		CampaignID:     dc.CampaignID,
		ClientID:       dc.ClientID,
		ClientName:     dc.ClientName,
		ClientPhone:    dc.ClientPhone,
		OwnerID:        dc.OwnerID,
		Name:           dc.Name,
		SystemPrompt:   dc.SystemPrompt,
		FirstMessage:   dc.FirstMessage,
		AdditionalData: data,
		CallConfig:     &CallConfig{Model: cc.Model, Voice: cc.Voice},
	}
}

// validate enforces the required fields of each action.
func validate(action Action, dc Context) error {
	missing := func(field string) error {
		return fmt.Errorf("dispatch: %s requires %s", action, field)
	}
	switch action {
	case ActionCreateAssistant:
		if dc.Name == "" {
			return missing("name")
		}
	case ActionInitiateCall:
		if dc.CampaignID == 0 {
			return missing("campaign id")
		}
		if dc.ClientID == 0 {
			return missing("client id")
		}
		if dc.ClientPhone == "" {
			return missing("client phone")
		}
	case ActionStartCampaign, ActionPauseCampaign, ActionStopCampaign, ActionCreateCampaign:
		if dc.CampaignID == 0 {
			return missing("campaign id")
		}
	default:
		return fmt.Errorf("dispatch: unknown action %q", action)
	}
	return nil
}

// notify delivers an operator event, best-effort.
func (o *Orchestrator) notify(ctx context.Context, evt notify.Event) {
	if err := o.notifier.Notify(ctx, evt); err != nil {
		log.Printf("dispatch: notify %q: %v", evt.Title, err)
	}
}

// logDispatch writes a DispatchLog row, best-effort.
func (o *Orchestrator) logDispatch(action Action, dc Context, res resolver.Resolution, accepted bool, dispatchErr string) {
	if o.db == nil {
		return
	}
	row := models.DispatchLog{
		Action:           string(action),
		AssistantRemote:  res.RemoteID,
		ResolutionSource: res.Source,
		Degraded:         res.Degraded,
		Accepted:         accepted,
		Error:            dispatchErr,
	}
	if dc.CampaignID != 0 {
		row.CampaignID = &dc.CampaignID
	}
	if dc.ClientID != 0 {
		row.ClientID = &dc.ClientID
	}
	if err := o.db.Create(&row).Error; err != nil {
		log.Printf("dispatch: log %s: %v", action, err)
	}
}
