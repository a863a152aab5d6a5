// Package pipeline implements the correction core: reference derivation,
// suspect selection, batched oracle requests, proposal validation, and
// incremental persistence.
package pipeline

import (
	"math"

	"github.com/hauldata/fleetqa/internal/model"
)

// BuildReferences returns a copy of records augmented with fractional hours
// and the six cross-checked reference values. Pure transform: the input is
// never mutated and repeated application yields identical output.
//
// Each reference is computed only when its inputs are present and divisors
// are positive; otherwise it stays absent. A reference for field X never
// uses X's own recorded value.
func BuildReferences(records []model.Record) []model.Record {
	out := make([]model.Record, len(records))
	for i, r := range records {
		r.Hours = model.ParseHours(r.Time)

		r.RefDistPhys = mulRef(r.Speed, r.Hours)
		r.RefDistFuel = mulRef(r.ConsumedFuel, r.FuelEfficiency)
		r.RefFuel = divRef(r.Distance, r.FuelEfficiency)
		r.RefEff = divRef(r.Distance, r.ConsumedFuel)
		r.RefSpeed = divRef(r.Distance, r.Hours)
		r.RefTime = divRef(r.Distance, r.Speed)

		out[i] = r
	}
	return out
}

func mulRef(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return round2(*a * *b)
}

func divRef(num, den *float64) *float64 {
	if num == nil || den == nil || *den <= 0 {
		return nil
	}
	return round2(*num / *den)
}

func round2(v float64) *float64 {
	r := math.Round(v*100) / 100
	return &r
}
