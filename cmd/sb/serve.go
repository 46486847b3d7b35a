package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mkowalczyk/switchboard/internal/catalog"
	"github.com/mkowalczyk/switchboard/internal/dashboard"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard API server",
		Long:  "Serves the JSON API for the campaign dashboard and, when enabled, runs the periodic catalog sync loop.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default from config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	svc, err := buildServices(configPath, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if port == 0 {
		port = svc.cfg.Server.Port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if svc.cfg.Sync.Enabled {
		syncer, err := catalog.NewSyncer(catalog.SyncerOpts{
			DB:      svc.db,
			Remote:  svc.provider,
			OwnerID: svc.cfg.Owner,
			Cron:    svc.cfg.Sync.Cron,
		})
		if err != nil {
			return err
		}
		go syncer.Run(ctx)
		fmt.Fprintf(cmd.OutOrStdout(), "Catalog sync scheduled (%s)\n", svc.cfg.Sync.Cron)
	}

	return dashboard.Start(ctx, dashboard.StartOpts{
		DB:         svc.db,
		Catalog:    svc.catalog,
		Campaigns:  svc.campaigns,
		Dispatcher: svc.orch,
		OwnerID:    svc.cfg.Owner,
		Port:       port,
		Out:        cmd.OutOrStdout(),
	})
}
