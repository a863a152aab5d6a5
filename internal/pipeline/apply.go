package pipeline

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hauldata/fleetqa/internal/ingest"
	"github.com/hauldata/fleetqa/internal/model"
)

// Apply merges an accepted-proposal artifact back into the driving log and
// writes the corrected log to outPath. Rows flagged manual_check or lacking
// a proposed value are skipped. Returns the number of cell edits applied.
func Apply(logPath, proposalPath, outPath string) (int, error) {
	records, err := ingest.ReadRecords(logPath)
	if err != nil {
		return 0, eris.Wrap(err, "apply: read log")
	}
	proposals, err := ingest.ReadProposals(proposalPath)
	if err != nil {
		return 0, eris.Wrap(err, "apply: read proposals")
	}

	byID := make(map[int]int, len(records))
	for i, r := range records {
		byID[r.ID] = i
	}

	applied := 0
	for _, p := range proposals {
		if p.Target == model.TargetManualCheck || !p.HasProposed() {
			continue
		}
		i, ok := byID[p.ID]
		if !ok {
			zap.L().Debug("proposal for unknown record", zap.Int("id", p.ID))
			continue
		}
		if setField(&records[i], p.Target, p.Proposed) {
			applied++
		}
	}

	if err := ingest.WriteRecords(outPath, records); err != nil {
		return applied, eris.Wrap(err, "apply: write corrected log")
	}
	zap.L().Info("corrections applied",
		zap.Int("edits", applied),
		zap.String("out", outPath))
	return applied, nil
}

// setField writes a proposed value into the named column. Unknown targets
// and uncoercible values are ignored.
func setField(r *model.Record, target string, value any) bool {
	if target == "time" {
		s, ok := value.(string)
		if !ok {
			return false
		}
		r.Time = s
		return true
	}

	f, ok := model.CoerceFloat(value)
	if !ok {
		return false
	}
	switch target {
	case "distance":
		r.Distance = &f
	case "consumed_fuel":
		r.ConsumedFuel = &f
	case "fuel_efficiency":
		r.FuelEfficiency = &f
	case "speed":
		r.Speed = &f
	case "refuel":
		r.Refuel = &f
	case "reurea":
		r.Reurea = &f
	case "cumulative_distance":
		r.CumulativeDistance = &f
	default:
		return false
	}
	return true
}
