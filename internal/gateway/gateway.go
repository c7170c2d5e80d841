// Package gateway exposes the client facade over a local HTTP surface for
// desktop UI panels
package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/deskpilot/deskpilot/internal/client"
	"github.com/deskpilot/deskpilot/internal/storage"
	"github.com/deskpilot/deskpilot/pkg/types"
	"github.com/deskpilot/deskpilot/pkg/utils"
)

// Gateway represents the local HTTP service
type Gateway struct {
	config *types.ServerConfig
	router *gin.Engine
	server *http.Server
	client *client.Client
	store  *storage.Store
	logger *utils.Logger
}

// New creates a new Gateway instance. store may be nil when call history is
// disabled.
func New(cfg *types.ServerConfig, c *client.Client, store *storage.Store, logger *utils.Logger) *Gateway {
	if logger.GetLevel() == logrus.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLoggingMiddleware(logger))

	g := &Gateway{
		config: cfg,
		router: router,
		client: c,
		store:  store,
		logger: logger,
	}
	g.setupRoutes()
	return g
}

// setupRoutes configures the API routes
func (g *Gateway) setupRoutes() {
	g.router.GET("/health", g.healthCheck)

	v1 := g.router.Group("/v1")
	{
		v1.POST("/call", g.call)
		v1.POST("/analyze", g.analyze)
		v1.POST("/test", g.testConnection)
		v1.GET("/status", g.providerStatus)
		v1.GET("/history", g.history)
	}
}

// Start starts the HTTP server and blocks until shutdown
func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Host, g.config.Port)

	g.server = &http.Server{
		Addr:         addr,
		Handler:      g.router,
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
		IdleTimeout:  g.config.IdleTimeout,
	}

	g.logger.WithField("address", addr).Info("Starting deskpilot API")

	if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (g *Gateway) Stop(ctx context.Context) error {
	g.logger.Info("Shutting down deskpilot API")
	if g.server != nil {
		return g.server.Shutdown(ctx)
	}
	return nil
}

// healthCheck reports process liveness, not provider health
func (g *Gateway) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// call runs one orchestrated completion
func (g *Gateway) call(c *gin.Context) {
	var req struct {
		ModelHint string             `json:"model_hint"`
		Prompt    string             `json:"prompt" binding:"required"`
		Content   string             `json:"content" binding:"required"`
		Options   *types.CallOptions `json:"options"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Invalid request format"}})
		return
	}

	result := g.client.CallModel(c.Request.Context(), req.ModelHint, req.Prompt, req.Content, req.Options)
	c.JSON(http.StatusOK, result)
}

// analyze runs a fixed analysis template over content
func (g *Gateway) analyze(c *gin.Context) {
	var req struct {
		Content string             `json:"content" binding:"required"`
		Type    string             `json:"type" binding:"required"`
		Options *types.CallOptions `json:"options"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Invalid request format"}})
		return
	}

	result := g.client.AnalyzeContent(c.Request.Context(), req.Content, req.Type, req.Options)
	c.JSON(http.StatusOK, result)
}

// testConnection runs one lightweight round-trip
func (g *Gateway) testConnection(c *gin.Context) {
	c.JSON(http.StatusOK, g.client.TestConnection(c.Request.Context()))
}

// providerStatus returns the health snapshot
func (g *Gateway) providerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": g.client.ProviderStatus()})
}

// history returns recent call records and per-provider totals
func (g *Gateway) history(c *gin.Context) {
	if g.store == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}

	records, err := g.store.Recent(50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "Failed to read call history"}})
		return
	}
	totals, err := g.store.ProviderTotals()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "Failed to aggregate call history"}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"enabled": true, "recent": records, "totals": totals})
}

// requestLoggingMiddleware logs one line per request
func requestLoggingMiddleware(logger *utils.Logger) gin.HandlerFunc {
	return gin.LoggerWithWriter(logger.Out)
}
