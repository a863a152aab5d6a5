package oracle

import (
	"strings"

	"go.uber.org/zap"

	"github.com/hauldata/fleetqa/internal/model"
)

// cleanJSON strips markdown code fences and leading/trailing prose around
// the JSON payload. Handles both list and single-object responses.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Prefer a list payload; fall back to a single object.
	lstart := strings.Index(text, "[")
	ostart := strings.Index(text, "{")
	if lstart >= 0 && (ostart < 0 || lstart < ostart) {
		if end := strings.LastIndex(text, "]"); end > lstart {
			return strings.TrimSpace(text[lstart : end+1])
		}
	}
	if ostart >= 0 {
		if end := strings.LastIndex(text, "}"); end > ostart {
			return strings.TrimSpace(text[ostart : end+1])
		}
	}

	return strings.TrimSpace(text)
}

// parseProposals turns raw oracle text into validated proposals. Any parse
// failure degrades to zero proposals; this is not an error condition.
func parseProposals(text string) []model.Proposal {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	proposals, ok := model.ParseProposals([]byte(cleanJSON(text)))
	if !ok {
		zap.L().Debug("oracle: unparseable response, treating as no proposals",
			zap.Int("response_len", len(text)),
		)
		return nil
	}
	return proposals
}
