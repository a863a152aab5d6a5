package oracle

import (
	"context"

	"github.com/hauldata/fleetqa/internal/config"
	"github.com/hauldata/fleetqa/internal/model"
	"github.com/hauldata/fleetqa/internal/resilience"
	"github.com/hauldata/fleetqa/pkg/anthropic"
)

const anthropicSystem = "You are a data cleaning expert for vehicle telemetry. Respond with a JSON list of correction proposals only, no prose."

// anthropicOracle asks Claude for corrections over the messages API.
type anthropicOracle struct {
	client      anthropic.Client
	model       string
	temperature float64
	maxTokens   int64
}

// NewAnthropic creates an Oracle backed by the Anthropic messages API.
func NewAnthropic(client anthropic.Client, cfg config.OracleConfig) Oracle {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	return &anthropicOracle{
		client:      client,
		model:       cfg.AnthropicModel,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}
}

func (o *anthropicOracle) RequestCorrections(ctx context.Context, batch []model.Record, stats model.MonthStats) ([]model.Proposal, error) {
	prompt, err := BuildPrompt(batch, stats)
	if err != nil {
		return nil, err
	}

	temp := o.temperature
	resp, err := o.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       o.model,
		MaxTokens:   o.maxTokens,
		System:      anthropicSystem,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		if code, ok := anthropic.StatusCode(err); ok {
			return nil, resilience.NewStatusError(err, code)
		}
		return nil, err
	}

	return parseProposals(resp.Text()), nil
}
