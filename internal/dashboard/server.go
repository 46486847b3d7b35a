// Package dashboard serves the JSON API consumed by the campaign dashboard
// frontend: the merged assistant catalog, campaign lifecycle actions, and a
// dispatch event stream.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mkowalczyk/switchboard/internal/campaign"
	"github.com/mkowalczyk/switchboard/internal/catalog"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	DB        *gorm.DB
	Catalog   *catalog.Catalog
	Campaigns *campaign.Service
	// Dispatcher, when set, announces assistant creation to the workflow
	// endpoint via the create_assistant action.
	Dispatcher campaign.Dispatcher
	OwnerID    string
	Port       int
	Out        io.Writer
}

// Start launches the dashboard HTTP server. It blocks until ctx is
// cancelled, then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Port <= 0 {
		opts.Port = 8080
	}
	router, err := newRouter(opts)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard API running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// newRouter validates opts and builds the gin router.
func newRouter(opts StartOpts) (*gin.Engine, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("dashboard: db is required")
	}
	if opts.Catalog == nil {
		return nil, fmt.Errorf("dashboard: catalog is required")
	}
	if opts.Campaigns == nil {
		return nil, fmt.Errorf("dashboard: campaign service is required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, opts)
	return router, nil
}
