package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// TargetManualCheck is the sentinel target meaning "flagged but not
// auto-fixable": the proposal reports the anomaly without proposing a value.
const TargetManualCheck = "manual_check"

// Proposal is a single candidate fix for one field of one record, as
// returned by the inference oracle. Original, Proposed, and Reference are
// loosely typed because the oracle echoes whatever shape the source value
// had (numbers for metrics, strings for times).
type Proposal struct {
	ID        int    `json:"id"`
	Target    string `json:"target"`
	Original  any    `json:"original"`
	Proposed  any    `json:"proposed"`
	Reference any    `json:"reference"`
	Reason    string `json:"reason"`
}

// HasProposed reports whether the oracle actually proposed a replacement
// value. A nil Proposed means "reported only, no fix applied".
func (p Proposal) HasProposed() bool {
	return p.Proposed != nil
}

// ParseProposals validates raw oracle JSON into strict proposals. A single
// object is normalized to a one-element list. Items with a missing or
// mistyped id or target are dropped outright rather than partially trusted.
// Unparseable payloads yield (nil, false); the caller treats that as "oracle
// found nothing".
func ParseProposals(raw []byte) ([]Proposal, bool) {
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		var single map[string]any
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, false
		}
		items = []map[string]any{single}
	}

	out := make([]Proposal, 0, len(items))
	for _, m := range items {
		id, ok := CoerceInt(m["id"])
		if !ok {
			continue
		}
		target, ok := m["target"].(string)
		if !ok || strings.TrimSpace(target) == "" {
			continue
		}
		reason, _ := m["reason"].(string)
		out = append(out, Proposal{
			ID:        id,
			Target:    strings.TrimSpace(target),
			Original:  m["original"],
			Proposed:  m["proposed"],
			Reference: m["reference"],
			Reason:    reason,
		})
	}
	return out, true
}

// CoerceInt converts a loosely typed JSON value to an int.
func CoerceInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// CoerceFloat converts a loosely typed JSON value to a float64.
func CoerceFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// FormatValue renders a loosely typed proposal value for CSV output.
// Numbers print without a trailing ".0" when integral, matching the way the
// source values were recorded.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
