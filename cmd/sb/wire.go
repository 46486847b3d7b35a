package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mkowalczyk/switchboard/internal/campaign"
	"github.com/mkowalczyk/switchboard/internal/catalog"
	"github.com/mkowalczyk/switchboard/internal/config"
	"github.com/mkowalczyk/switchboard/internal/db"
	"github.com/mkowalczyk/switchboard/internal/dispatch"
	"github.com/mkowalczyk/switchboard/internal/models"
	"github.com/mkowalczyk/switchboard/internal/notify"
	"github.com/mkowalczyk/switchboard/internal/notify/discord"
	"github.com/mkowalczyk/switchboard/internal/notify/slack"
	"github.com/mkowalczyk/switchboard/internal/provider"
	"github.com/mkowalczyk/switchboard/internal/resolver"
	"github.com/mkowalczyk/switchboard/internal/session"
	"github.com/mkowalczyk/switchboard/internal/transport"
	"golang.org/x/term"
	"gorm.io/gorm"
)

// services bundles everything a command needs, wired from one config file.
type services struct {
	cfg       *config.Config
	db        *gorm.DB
	sessions  *session.Store
	provider  *provider.Client
	catalog   *catalog.Catalog
	orch      *dispatch.Orchestrator
	campaigns *campaign.Service
}

// connectFromConfig loads config and returns a GORM DB connection.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}

// buildServices wires the full dispatch stack from a config file.
func buildServices(configPath string, out io.Writer) (*services, error) {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := ensureAPIKey(cfg, out); err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.Dispatch.TimeoutMs) * time.Millisecond
	prov, err := provider.New(provider.Opts{
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore()
	cat, err := catalog.New(catalog.Opts{DB: gormDB, Remote: prov, Sessions: sessions})
	if err != nil {
		return nil, err
	}

	res, err := resolver.New(resolver.Opts{
		Remote:     prov,
		Local:      localStore{db: gormDB},
		Sessions:   sessions,
		FallbackID: cfg.Dispatch.FallbackAssistantID,
	})
	if err != nil {
		return nil, err
	}

	orch, err := dispatch.New(dispatch.Opts{
		Resolver:     res,
		HTTP:         transport.New(transport.Opts{Timeout: timeout}),
		WorkflowURL:  cfg.Workflow.URL,
		Sessions:     sessions,
		DefaultModel: cfg.Dispatch.DefaultModel,
		DefaultVoice: cfg.Dispatch.DefaultVoice,
		CallerNumber: cfg.Dispatch.CallerNumber,
		Notifier:     buildNotifier(cfg),
		DB:           gormDB,
	})
	if err != nil {
		return nil, err
	}

	campaigns, err := campaign.New(campaign.Opts{
		DB:         gormDB,
		Dispatcher: orch,
		OwnerID:    cfg.Owner,
	})
	if err != nil {
		return nil, err
	}

	return &services{
		cfg:       cfg,
		db:        gormDB,
		sessions:  sessions,
		provider:  prov,
		catalog:   cat,
		orch:      orch,
		campaigns: campaigns,
	}, nil
}

// buildNotifier assembles the operator notification fan-out from config.
// Logging is always on; Slack and Discord join when credentials are set.
func buildNotifier(cfg *config.Config) notify.Notifier {
	notifiers := []notify.Notifier{notify.LogNotifier{}}

	if cfg.Notify.Slack.ChannelID != "" {
		if n, err := slack.New(slack.Opts{
			BotToken:  cfg.Notify.Slack.BotToken,
			ChannelID: cfg.Notify.Slack.ChannelID,
		}); err == nil {
			notifiers = append(notifiers, n)
		}
	}
	if cfg.Notify.Discord.ChannelID != "" {
		if n, err := discord.New(discord.Opts{
			BotToken:  cfg.Notify.Discord.BotToken,
			ChannelID: cfg.Notify.Discord.ChannelID,
		}); err == nil {
			notifiers = append(notifiers, n)
		}
	}

	if len(notifiers) == 1 {
		return notifiers[0]
	}
	return notify.Multi(notifiers)
}

// ensureAPIKey prompts for the provider API key when neither config nor
// environment supplies one. The prompt never echoes; non-interactive runs
// fail instead of hanging.
func ensureAPIKey(cfg *config.Config, out io.Writer) error {
	if cfg.Provider.APIKey != "" {
		return nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("provider API key is required (set provider.api_key or SWITCHBOARD_API_KEY)")
	}

	fmt.Fprint(out, "Provider API key: ")
	key, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("read API key: %w", err)
	}
	cfg.Provider.APIKey = strings.TrimSpace(string(key))
	if cfg.Provider.APIKey == "" {
		return fmt.Errorf("provider API key is required")
	}
	return nil
}

// localStore adapts the catalog's package-level Get to the resolver's
// LocalStore interface.
type localStore struct {
	db *gorm.DB
}

func (l localStore) Get(id uint) (*models.Assistant, error) {
	return catalog.Get(l.db, id)
}

// truncate shortens s to max runes, appending an ellipsis when cut.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
