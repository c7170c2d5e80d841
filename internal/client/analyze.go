package client

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/deskpilot/deskpilot/pkg/types"
)

// Analysis types understood by AnalyzeContent
const (
	AnalyzeCategorize = "categorize"
	AnalyzeSummarize  = "summarize"
	AnalyzeKeywords   = "keywords"
	AnalyzeSentiment  = "sentiment"
)

// analysisPrompts maps analysis types to their fixed system prompts
var analysisPrompts = map[string]string{
	AnalyzeCategorize: "You are a file categorization assistant. Assign the content to exactly one category and reply with the category name only.",
	AnalyzeSummarize:  "You are a summarization assistant. Produce a concise summary of the content in at most three sentences.",
	AnalyzeKeywords:   "You are a keyword extraction assistant. Reply with the five most relevant keywords, comma-separated.",
	AnalyzeSentiment:  "You are a sentiment analysis assistant. Reply with one word: positive, negative or neutral.",
}

// AnalyzeContent runs a fixed analysis prompt over the content. Results are
// cached by (type, content) since the agent frequently re-scans unchanged
// files; failures are never cached.
func (c *Client) AnalyzeContent(ctx context.Context, content, analysisType string, opts *types.CallOptions) *types.CallResult {
	prompt, ok := analysisPrompts[analysisType]
	if !ok {
		return &types.CallResult{
			Text:     fmt.Sprintf("unknown analysis type %q", analysisType),
			Provider: "none",
			Error:    true,
		}
	}

	cacheKey := analysisType + ":" + contentHash(content)
	if c.cache != nil {
		if cached, found := c.cache.Get(cacheKey); found {
			result := cached.(types.CallResult)
			return &result
		}
	}

	result := c.CallModel(ctx, "", prompt, content, opts)
	if c.cache != nil && !result.Error {
		c.cache.SetDefault(cacheKey, *result)
	}
	return result
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
