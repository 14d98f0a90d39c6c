package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/MikeSquared-Agency/Vantage/internal/store"
)

const (
	DefaultModel     = "claude-sonnet-4-20250514"
	DefaultMaxTokens = 1500
)

// ClaudeGenerator asks an Anthropic model for insights and falls back to
// rules when the call or its output fails.
type ClaudeGenerator struct {
	client    sdk.Client
	model     string
	maxTokens int64
	fallback  Generator
	logger    *slog.Logger
}

func NewClaudeGenerator(apiKey, model string, maxTokens int, logger *slog.Logger, opts ...option.RequestOption) *ClaudeGenerator {
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &ClaudeGenerator{
		client:    sdk.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
		model:     model,
		maxTokens: int64(maxTokens),
		fallback:  RuleGenerator{},
		logger:    logger,
	}
}

func (g *ClaudeGenerator) Generate(ctx context.Context, rec *store.ResultRecord) ([]Insight, error) {
	if rec == nil {
		return nil, errors.New("no record")
	}
	out, err := g.generate(ctx, rec)
	if err == nil && len(out) > 0 {
		return out, nil
	}
	g.logger.Warn("model insights unavailable, using rule-based insights", "record_id", rec.ID, "error", err)
	return g.fallback.Generate(ctx, rec)
}

func (g *ClaudeGenerator) generate(ctx context.Context, rec *store.ResultRecord) ([]Insight, error) {
	msg, err := g.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(g.model),
		MaxTokens: g.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(buildPrompt(rec))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("insights: create message: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		text.WriteString(block.Text)
	}
	return parseInsights(text.String())
}

func buildPrompt(rec *store.ResultRecord) string {
	var b strings.Builder
	b.WriteString("You are a commercial real estate analyst for NYC. Analyze this location and generate 4-5 actionable insights.\n\n")
	fmt.Fprintf(&b, "Neighborhood: %s\n", rec.Neighborhood)
	if rec.OverallScore != nil {
		fmt.Fprintf(&b, "Overall Score: %d/100\n", *rec.OverallScore)
	}
	fmt.Fprintf(&b, "Monthly Rent: $%.0f\n", rec.RentEstimate)
	fmt.Fprintf(&b, "Business Type: %s\n", rec.BusinessType)
	fmt.Fprintf(&b, "Target Demographic: %s\n", rec.TargetDemo)

	b.WriteString("\nMetrics:\n")
	if loc := rec.Location; loc != nil {
		fmt.Fprintf(&b, "- Foot Traffic: %d/100\n", loc.Breakdown.FootTraffic.Score)
		fmt.Fprintf(&b, "- Transit Access: %d/100\n", loc.Breakdown.TransitAccess.Score)
	}
	if comp := rec.Competitor; comp != nil {
		fmt.Fprintf(&b, "- Competition: %d/100\n", comp.Score)
		b.WriteString("\nNearby Competitors:\n")
		for i, c := range comp.Breakdown.Competitors {
			if i == 5 {
				break
			}
			fmt.Fprintf(&b, "- %s: %.1f stars (%d reviews)\n", c.Name, c.Rating, c.Reviews)
		}
	}
	if rev := rec.Revenue; rev != nil {
		b.WriteString("\nRevenue Projections:\n")
		fmt.Fprintf(&b, "- Conservative: $%d/mo\n- Moderate: $%d/mo\n- Optimistic: $%d/mo\n", rev.Conservative, rev.Moderate, rev.Optimistic)
		fmt.Fprintf(&b, "- Breakeven: %d months\n", rev.BreakevenMonths)
	}

	b.WriteString(`
Generate insights in JSON format with this exact structure:
{
  "insights": [
    {
      "type": "opportunity|risk|trend|tip",
      "title": "Short title (max 6 words)",
      "description": "Actionable insight (2-3 sentences)"
    }
  ]
}

Focus on:
- Specific opportunities based on metrics and competition
- Risks to consider (rent, competition, market trends)
- Demographic or market trends
- Actionable tips for success

Return ONLY valid JSON, no markdown or extra text.`)
	return b.String()
}

// parseInsights decodes the model's JSON, tolerating a markdown code fence,
// and keeps at most MaxInsights complete entries.
func parseInsights(text string) ([]Insight, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var payload struct {
		Insights []Insight `json:"insights"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("insights: parse response: %w", err)
	}

	var out []Insight
	for _, in := range payload.Insights {
		if in.Type == "" || in.Title == "" || in.Description == "" {
			continue
		}
		out = append(out, in)
		if len(out) == MaxInsights {
			break
		}
	}
	return out, nil
}
