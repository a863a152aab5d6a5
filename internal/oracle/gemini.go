package oracle

import (
	"context"
	"errors"

	"github.com/hauldata/fleetqa/internal/config"
	"github.com/hauldata/fleetqa/internal/model"
	"github.com/hauldata/fleetqa/internal/resilience"
	"github.com/hauldata/fleetqa/pkg/gemini"
)

// geminiOracle asks Gemini for corrections, requesting a JSON response body.
type geminiOracle struct {
	client      gemini.Client
	temperature float64
	maxTokens   int64
}

// NewGemini creates an Oracle backed by the Gemini generateContent API.
func NewGemini(client gemini.Client, cfg config.OracleConfig) Oracle {
	return &geminiOracle{
		client:      client,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

func (o *geminiOracle) RequestCorrections(ctx context.Context, batch []model.Record, stats model.MonthStats) ([]model.Proposal, error) {
	prompt, err := BuildPrompt(batch, stats)
	if err != nil {
		return nil, err
	}

	temp := o.temperature
	req := gemini.GenerateRequest{
		Contents: []gemini.Content{
			{Parts: []gemini.Part{{Text: prompt}}},
		},
		GenerationConfig: &gemini.GenerationConfig{
			Temperature:      &temp,
			ResponseMimeType: "application/json",
		},
	}
	if o.maxTokens > 0 {
		req.GenerationConfig.MaxOutputTokens = &o.maxTokens
	}

	resp, err := o.client.GenerateContent(ctx, req)
	if err != nil {
		var apiErr *gemini.APIError
		if errors.As(err, &apiErr) {
			return nil, resilience.NewStatusError(err, apiErr.StatusCode)
		}
		return nil, err
	}

	return parseProposals(resp.Text()), nil
}
