package pipeline

import (
	"math"
	"sort"
	"strings"

	"github.com/hauldata/fleetqa/internal/config"
	"github.com/hauldata/fleetqa/internal/model"
)

// MonthGroup is one calendar-month bucket: its context statistics plus the
// records flagged as suspects within it.
type MonthGroup struct {
	Month    string
	Stats    model.MonthStats
	Suspects []model.Record
}

// Selector flags records worth sending to the oracle.
type Selector struct {
	cfg config.CleanConfig
}

// NewSelector creates a Selector with the given tunables.
func NewSelector(cfg config.CleanConfig) *Selector {
	return &Selector{cfg: cfg}
}

// AnnotatePrevOdometer sets PrevCumDist on each record to the previous
// non-missing odometer reading of the same vehicle in date order. It runs
// once, globally, before bucketing; the lookup is read-only during the
// concurrent phase. The input slice is not mutated; output preserves input
// order.
func AnnotatePrevOdometer(records []model.Record) []model.Record {
	out := make([]model.Record, len(records))
	copy(out, records)

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := out[idx[a]], out[idx[b]]
		if ra.VehicleID != rb.VehicleID {
			return ra.VehicleID < rb.VehicleID
		}
		return ra.Date < rb.Date
	})

	lastSeen := make(map[string]*float64)
	for _, i := range idx {
		r := &out[i]
		if prev, ok := lastSeen[r.VehicleID]; ok {
			r.PrevCumDist = prev
		}
		if r.CumulativeDistance != nil {
			lastSeen[r.VehicleID] = r.CumulativeDistance
		}
	}
	return out
}

// Select partitions records into month buckets, computes per-bucket
// statistics over the full bucket, and returns the buckets that contain at
// least one suspect, sorted by month. Records must already carry reference
// fields and PrevCumDist.
func (s *Selector) Select(records []model.Record) []MonthGroup {
	buckets := make(map[string][]model.Record)
	for _, r := range records {
		m := r.Month()
		if m == "" {
			continue
		}
		buckets[m] = append(buckets[m], r)
	}

	months := make([]string, 0, len(buckets))
	for m := range buckets {
		months = append(months, m)
	}
	sort.Strings(months)

	var groups []MonthGroup
	for _, m := range months {
		group := buckets[m]
		var suspects []model.Record
		for _, r := range group {
			if s.IsSuspect(r) {
				suspects = append(suspects, r)
			}
		}
		if len(suspects) == 0 {
			continue
		}
		groups = append(groups, MonthGroup{
			Month:    m,
			Stats:    model.ComputeMonthStats(m, group),
			Suspects: suspects,
		})
	}
	return groups
}

// IsSuspect applies the five independent anomaly rules, OR-combined.
func (s *Selector) IsSuspect(r model.Record) bool {
	return s.fuelMismatch(r) ||
		s.physMismatch(r) ||
		s.badTime(r) ||
		s.ureaSuspicion(r) ||
		s.odometerRegression(r)
}

// fuelMismatch checks the fuel-economy identity distance/fuel == efficiency
// against the configured relative tolerance (boundary exclusive).
func (s *Selector) fuelMismatch(r model.Record) bool {
	if r.Distance == nil || r.ConsumedFuel == nil || r.FuelEfficiency == nil {
		return false
	}
	if *r.ConsumedFuel <= 0 || *r.FuelEfficiency <= 0 {
		return false
	}
	dev := math.Abs((*r.Distance / *r.ConsumedFuel - *r.FuelEfficiency) / *r.FuelEfficiency)
	return dev > s.cfg.FuelTolerance
}

// physMismatch checks recorded distance against the speed×time reference.
func (s *Selector) physMismatch(r model.Record) bool {
	if r.RefDistPhys == nil || r.Distance == nil || *r.Distance <= 0 {
		return false
	}
	return math.Abs(*r.Distance-*r.RefDistPhys) / *r.Distance > s.cfg.PhysTolerance
}

// badTime flags elapsed-time text that fails HH:MM:SS parsing or parses
// with an hour past the operational-day ceiling or minute >= 60. Values
// without a colon are not this rule's concern.
func (s *Selector) badTime(r model.Record) bool {
	t := r.Time
	if t == "" || !strings.Contains(t, ":") {
		return false
	}
	h, m, _, ok := model.TimeParts(t)
	if !ok {
		return true
	}
	return h >= s.cfg.MaxHoursPerDay || m >= 60
}

// ureaSuspicion flags urea volumes recorded as single-digit event counts.
func (s *Selector) ureaSuspicion(r model.Record) bool {
	if r.Reurea == nil {
		return false
	}
	for _, v := range s.cfg.UreaEventVals {
		if *r.Reurea == v {
			return true
		}
	}
	return false
}

// odometerRegression flags a cumulative distance strictly below the same
// vehicle's previous non-missing reading.
func (s *Selector) odometerRegression(r model.Record) bool {
	if r.CumulativeDistance == nil || r.PrevCumDist == nil {
		return false
	}
	return *r.CumulativeDistance < *r.PrevCumDist
}
