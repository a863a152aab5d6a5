package pipeline

import (
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hauldata/fleetqa/internal/config"
	"github.com/hauldata/fleetqa/internal/model"
)

// Validator is the safety net between the oracle and the output artifact.
// It rejects proposals that are physically impossible or semantically unsafe
// even when syntactically well-formed. Rules fail closed: any value that
// cannot be evaluated rejects the whole proposal.
type Validator struct {
	cfg config.CleanConfig
}

// NewValidator creates a Validator with the given physical limits.
func NewValidator(cfg config.CleanConfig) *Validator {
	return &Validator{cfg: cfg}
}

// Accept reports whether the proposal is safe to persist, with a short
// rejection reason for logging.
func (v *Validator) Accept(p model.Proposal) (bool, string) {
	// Reporting without a fix is always acceptable.
	if !p.HasProposed() {
		return true, ""
	}

	switch p.Target {
	case "reurea":
		return v.acceptUrea(p)
	case "time":
		return v.acceptTime(p)
	case "distance":
		return v.acceptCeiling(p, v.cfg.MaxDistance, "distance above daily ceiling")
	case "speed":
		return v.acceptCeiling(p, v.cfg.MaxSpeed, "speed above ceiling")
	}
	return true, ""
}

// acceptUrea guards against invented values and against discarding a
// legitimately precise recording in favor of a coarse denomination.
// Single-digit event-count fixes (6 → 20) stay allowed.
func (v *Validator) acceptUrea(p model.Proposal) (bool, string) {
	if p.Original == nil {
		return false, "urea fix invented from missing original"
	}
	if s, ok := p.Original.(string); ok && strings.TrimSpace(s) == "" {
		return false, "urea fix invented from blank original"
	}

	orig, origOK := model.CoerceFloat(p.Original)
	prop, propOK := model.CoerceFloat(p.Proposed)
	if !propOK {
		return false, "urea proposal not numeric"
	}
	if origOK && orig >= v.cfg.UreaPreciseMin && math.Abs(orig-prop) > v.cfg.UreaMaxDiff {
		return false, "urea fix discards precise original"
	}
	return true, ""
}

// acceptTime rejects proposed times whose hour component is >= 24.
func (v *Validator) acceptTime(p model.Proposal) (bool, string) {
	s, ok := p.Proposed.(string)
	if !ok {
		return false, "time proposal not text"
	}
	parts := strings.Split(strings.TrimSpace(s), ":")
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return false, "time proposal hour unparseable"
	}
	if h >= 24 {
		return false, "time proposal hour >= 24"
	}
	return true, ""
}

func (v *Validator) acceptCeiling(p model.Proposal, ceiling float64, reason string) (bool, string) {
	val, ok := model.CoerceFloat(p.Proposed)
	if !ok {
		return false, "proposal not numeric"
	}
	if val > ceiling {
		return false, reason
	}
	return true, ""
}

// Filter returns the accepted subset of proposals. Rejections are logged,
// not surfaced as errors; they simply never reach the output artifact.
func (v *Validator) Filter(proposals []model.Proposal) []model.Proposal {
	out := make([]model.Proposal, 0, len(proposals))
	for _, p := range proposals {
		ok, reason := v.Accept(p)
		if !ok {
			zap.L().Debug("validator: rejected proposal",
				zap.Int("id", p.ID),
				zap.String("target", p.Target),
				zap.String("reason", reason),
			)
			continue
		}
		out = append(out, p)
	}
	return out
}
