// Package client provides the stable facade feature modules call into.
// Whatever happens underneath, callers always receive a well-formed
// CallResult and branch on its Error field, never on a panic or a Go error.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/deskpilot/deskpilot/internal/health"
	"github.com/deskpilot/deskpilot/internal/storage"
	"github.com/deskpilot/deskpilot/pkg/types"
	"github.com/deskpilot/deskpilot/pkg/utils"
)

// Executor runs one orchestrated call
type Executor interface {
	Execute(ctx context.Context, req *types.CallRequest) (*types.CallResult, error)
}

// DescriptorSource resolves provider descriptors for the status snapshot
type DescriptorSource interface {
	Descriptor(key string) *types.ProviderConfig
}

// Config tunes the facade
type Config struct {
	// CacheTTL bounds how long analysis results are reused; zero disables
	// the cache.
	CacheTTL time.Duration
}

// Client is the single entry point for feature modules
type Client struct {
	config      Config
	executor    Executor
	tracker     *health.Tracker
	descriptors DescriptorSource
	store       *storage.Store
	cache       *gocache.Cache
	logger      *utils.Logger
}

// New creates the facade. store may be nil when call history is disabled.
func New(config Config, executor Executor, tracker *health.Tracker, descriptors DescriptorSource, store *storage.Store, logger *utils.Logger) *Client {
	var cache *gocache.Cache
	if config.CacheTTL > 0 {
		cache = gocache.New(config.CacheTTL, 2*config.CacheTTL)
	}
	return &Client{
		config:      config,
		executor:    executor,
		tracker:     tracker,
		descriptors: descriptors,
		store:       store,
		cache:       cache,
		logger:      logger,
	}
}

// CallModel forwards a prompt/content pair to the orchestrator. modelHint is
// advisory only: it rides along as the preferred model but never changes
// candidate ordering, which stays governed by health and configured priority.
func (c *Client) CallModel(ctx context.Context, modelHint, prompt, content string, opts *types.CallOptions) *types.CallResult {
	requestID := uuid.NewString()

	if modelHint != "" {
		if opts == nil {
			opts = &types.CallOptions{}
		}
		if opts.PreferredModel == "" {
			opts.PreferredModel = modelHint
		}
	}

	req := &types.CallRequest{
		Prompt:  prompt,
		Content: content,
		Options: opts,
	}

	result, err := c.executor.Execute(ctx, req)
	if err != nil {
		c.logger.WithRequestID(requestID).WithError(err).Error("All providers exhausted")
		result = &types.CallResult{
			Text:     fmt.Sprintf("AI call failed: %v", err),
			Provider: "none",
			Error:    true,
		}
		c.record(requestID, req, result, err)
		return result
	}

	c.record(requestID, req, result, nil)
	return result
}

// TestConnection performs one lightweight call and reports which provider
// answered
func (c *Client) TestConnection(ctx context.Context) *types.ConnectionTest {
	result := c.CallModel(ctx, "", "You are a connectivity probe.", "Reply with OK.", &types.CallOptions{
		MaxTokens: intPtr(5),
	})

	if result.Error {
		return &types.ConnectionTest{
			OK:       false,
			Provider: result.Provider,
			Message:  result.Text,
		}
	}
	return &types.ConnectionTest{
		OK:             true,
		Provider:       result.Provider,
		ResponseTimeMs: result.ResponseTimeMs,
	}
}

// ProviderStatus returns the health snapshot joined with descriptor name and
// cost, for UI and telemetry consumers
func (c *Client) ProviderStatus() map[string]types.ProviderStatus {
	snapshot := c.tracker.Snapshot()
	for key, status := range snapshot {
		if desc := c.descriptors.Descriptor(key); desc != nil {
			status.Name = desc.Name
			status.CostPerToken = desc.CostPerToken
			snapshot[key] = status
		}
	}
	return snapshot
}

// record writes call history best-effort, off the hot path
func (c *Client) record(requestID string, req *types.CallRequest, result *types.CallResult, callErr error) {
	if c.store == nil {
		return
	}

	rec := &storage.CallRecord{
		RequestID:      requestID,
		Provider:       result.Provider,
		PromptChars:    len(req.Prompt),
		ContentChars:   len(req.Content),
		TotalTokens:    result.Usage.TotalTokens,
		ResponseTimeMs: result.ResponseTimeMs,
		Success:        !result.Error,
	}
	if desc := c.descriptors.Descriptor(result.Provider); desc != nil {
		rec.Model = desc.Model
	}
	if callErr != nil {
		rec.ErrorMessage = callErr.Error()
	}

	go c.store.Save(rec)
}

func intPtr(v int) *int {
	return &v
}
