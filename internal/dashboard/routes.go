package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mkowalczyk/switchboard/internal/campaign"
	"github.com/mkowalczyk/switchboard/internal/catalog"
	"github.com/mkowalczyk/switchboard/internal/dispatch"
	"github.com/mkowalczyk/switchboard/internal/models"
	"github.com/mkowalczyk/switchboard/internal/resolver"
)

// registerRoutes sets up all API routes on the gin router.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	router.GET("/healthz", handleHealth)

	api := router.Group("/api")
	{
		api.GET("/assistants", handleAssistantList(opts))
		api.POST("/assistants", handleAssistantCreate(opts))
		api.DELETE("/assistants/:id", handleAssistantDelete(opts))
		api.POST("/assistants/:id/select", handleAssistantSelect(opts))

		api.GET("/campaigns", handleCampaignList(opts))
		api.POST("/campaigns", handleCampaignCreate(opts))
		api.POST("/campaigns/:id/start", handleCampaignAction(opts, "start"))
		api.POST("/campaigns/:id/pause", handleCampaignAction(opts, "pause"))
		api.POST("/campaigns/:id/stop", handleCampaignAction(opts, "stop"))
		api.POST("/campaigns/:id/calls", handleCall(opts))

		api.GET("/summary", handleSummary(opts))
		api.GET("/dispatches", handleDispatchList(opts))
		api.GET("/events", handleSSE(opts.DB))
	}
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func handleAssistantList(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		merged, err := opts.Catalog.MergedList(c.Request.Context(), opts.OwnerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"assistants": merged})
	}
}

func handleAssistantCreate(opts StartOpts) gin.HandlerFunc {
	type request struct {
		Name         string `json:"name" binding:"required"`
		SystemPrompt string `json:"system_prompt"`
		FirstMessage string `json:"first_message"`
		Model        string `json:"model"`
		Voice        string `json:"voice"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		a, err := opts.Catalog.Create(c.Request.Context(), catalog.CreateRequest{
			Name:         req.Name,
			SystemPrompt: req.SystemPrompt,
			FirstMessage: req.FirstMessage,
			Model:        req.Model,
			Voice:        req.Voice,
			OwnerID:      opts.OwnerID,
		})
		if err != nil {
			// Creation must surface provider failures to the UI.
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		announced := announceCreate(c.Request.Context(), opts, a, req.SystemPrompt, req.FirstMessage)
		c.JSON(http.StatusCreated, gin.H{"assistant": a, "announced": announced})
	}
}

// announceCreate dispatches create_assistant to the workflow endpoint,
// best-effort; the assistant already exists either way.
func announceCreate(ctx context.Context, opts StartOpts, a *models.Assistant, systemPrompt, firstMessage string) bool {
	if opts.Dispatcher == nil {
		return false
	}
	hints := resolver.Hints{Name: a.Name, LocalID: a.ID, OwnerID: opts.OwnerID}
	if !catalog.IsPlaceholder(a.RemoteID) {
		hints.RemoteID = a.RemoteID
	}
	result, err := opts.Dispatcher.Dispatch(ctx, dispatch.ActionCreateAssistant, dispatch.Context{
		Name:         a.Name,
		SystemPrompt: systemPrompt,
		FirstMessage: firstMessage,
		OwnerID:      opts.OwnerID,
		Hints:        hints,
	})
	return err == nil && result.Accepted
}

func handleAssistantDelete(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		if err := opts.Catalog.Delete(c.Request.Context(), id); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, catalog.ErrNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": id})
	}
}

func handleAssistantSelect(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		a, err := opts.Catalog.Select(id)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, catalog.ErrNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"selected": a})
	}
}

func handleCampaignList(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		campaigns, err := opts.Campaigns.List()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"campaigns": campaigns})
	}
}

func handleCampaignCreate(opts StartOpts) gin.HandlerFunc {
	type request struct {
		Name    string `json:"name" binding:"required"`
		GroupID *uint  `json:"group_id"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := opts.Campaigns.Create(c.Request.Context(), req.Name, req.GroupID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, campaignResponse(result))
	}
}

func handleCampaignAction(opts StartOpts, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}

		var result campaign.Result
		var err error
		switch action {
		case "start":
			result, err = opts.Campaigns.Start(c.Request.Context(), id)
		case "pause":
			result, err = opts.Campaigns.Pause(c.Request.Context(), id)
		case "stop":
			result, err = opts.Campaigns.Stop(c.Request.Context(), id)
		}
		if err != nil {
			c.JSON(actionStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, campaignResponse(result))
	}
}

func handleCall(opts StartOpts) gin.HandlerFunc {
	type request struct {
		ClientID uint `json:"client_id" binding:"required"`
	}
	return func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := opts.Campaigns.Call(c.Request.Context(), id, req.ClientID)
		if err != nil {
			c.JSON(actionStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, campaignResponse(result))
	}
}

func handleSummary(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := Summary(opts.DB, opts.OwnerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func handleDispatchList(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := RecentDispatches(opts.DB, 100)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"dispatches": rows})
	}
}

// campaignResponse shapes a lifecycle result: the campaign plus whether the
// workflow side confirmed the action.
func campaignResponse(r campaign.Result) gin.H {
	return gin.H{
		"campaign": r.Campaign,
		"accepted": r.Dispatch.Accepted,
		"degraded": r.Dispatch.Resolution.Degraded,
	}
}

// actionStatus maps campaign errors to HTTP status codes.
func actionStatus(err error) int {
	var ite *campaign.InvalidTransitionError
	switch {
	case errors.Is(err, campaign.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &ite):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// paramID parses the :id route parameter, writing a 400 on failure.
func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}
