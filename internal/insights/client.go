package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/freshlabs/compliance-dashboard/internal/compliance"
)

// Degraded-feature messages surfaced when insights cannot be produced.
// Missing configuration is never a hard failure.
var (
	msgNotConfigured = "AI insights are not configured. Set an API key to enable executive risk summaries."
	msgUnavailable   = "Unable to generate AI insights at this time. Please check your connection."
)

// Client produces executive risk summaries over pending compliances using
// an external generative model. The feature degrades gracefully to a
// user-visible explanatory message when unconfigured or unreachable.
type Client struct {
	apiKey   string
	endpoint string
	model    string
	logger   *zap.Logger
	http     *resty.Client
}

// Config carries the client settings
type Config struct {
	APIKey   string
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// NewClient creates an insight client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	httpClient := resty.New()
	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}
	return &Client{
		apiKey:   cfg.APIKey,
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		logger:   logger,
		http:     httpClient,
	}
}

// Enabled reports whether the external credential is configured
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type candidate struct {
	Content content `json:"content"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

// Summarize returns 3-4 executive-level bullet points on risk, penalties
// and prioritized actions for the pending compliance set. The returned
// list is always usable; degraded states report a single message entry.
func (c *Client) Summarize(ctx context.Context, pending []compliance.ComplianceRecord) []string {
	if !c.Enabled() {
		return []string{msgNotConfigured}
	}

	type item struct {
		Name   string `json:"name"`
		Due    string `json:"due"`
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	data := make([]item, 0, len(pending))
	for _, p := range pending {
		reason := p.DelayReason
		if reason == "" {
			reason = "Not provided"
		}
		data = append(data, item{Name: p.Name, Due: p.DueDate, Status: string(p.Status), Reason: reason})
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		c.logger.Error("Failed to encode insight payload", zap.Error(err))
		return []string{msgUnavailable}
	}

	prompt := fmt.Sprintf(`As a financial compliance risk analyst, review the following pending tax compliances and provide a high-level executive summary (3-4 bullet points) on potential risks, penalties, and prioritized action items.

Data: %s

Format: JSON with a key "summary" as an array of strings.`, encoded)

	req := generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{ResponseMimeType: "application/json"},
	}

	var result generateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&result).
		Post(fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.endpoint, c.model))
	if err != nil {
		c.logger.Error("Insight request failed", zap.Error(err))
		return []string{msgUnavailable}
	}
	if resp.IsError() {
		c.logger.Error("Insight request rejected",
			zap.Int("status", resp.StatusCode()),
		)
		return []string{msgUnavailable}
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return []string{msgUnavailable}
	}

	var parsed struct {
		Summary []string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(result.Candidates[0].Content.Parts[0].Text), &parsed); err != nil {
		c.logger.Error("Failed to parse insight response", zap.Error(err))
		return []string{msgUnavailable}
	}
	if len(parsed.Summary) == 0 {
		return []string{msgUnavailable}
	}

	return parsed.Summary
}
