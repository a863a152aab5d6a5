// Package model defines the telemetry record, correction proposal, and
// monthly statistics types shared across the pipeline.
package model

import (
	"strconv"
	"strings"
)

// Record is one day-and-vehicle telemetry observation. IDs are assigned by
// row position after a date sort and are stable for the lifetime of a run.
// Records are immutable inputs; the pipeline emits proposals referencing
// them by ID instead of mutating them.
type Record struct {
	ID        int    `json:"id"`
	Date      string `json:"date"`
	VehicleID string `json:"vehicle_id"`

	Distance           *float64 `json:"distance"`
	ConsumedFuel       *float64 `json:"consumed_fuel"`
	FuelEfficiency     *float64 `json:"fuel_efficiency"`
	Speed              *float64 `json:"speed"`
	Refuel             *float64 `json:"refuel,omitempty"`
	Reurea             *float64 `json:"reurea"`
	CumulativeDistance *float64 `json:"cumulative_distance"`

	// Time is the elapsed driving duration as recorded, normally "HH:MM:SS"
	// text. Malformed values are preserved so anomaly rules can see them.
	Time string `json:"time"`

	// Derived fields, populated by the reference engine.
	Hours       *float64 `json:"-"`
	RefDistPhys *float64 `json:"ref_dist_phys,omitempty"`
	RefDistFuel *float64 `json:"ref_dist_fuel,omitempty"`
	RefFuel     *float64 `json:"ref_fuel,omitempty"`
	RefEff      *float64 `json:"ref_efficiency,omitempty"`
	RefSpeed    *float64 `json:"ref_speed,omitempty"`
	RefTime     *float64 `json:"ref_time,omitempty"`

	// PrevCumDist is the previous non-missing odometer reading for the same
	// vehicle in date order. Computed once globally before batching.
	PrevCumDist *float64 `json:"prev_cum_dist,omitempty"`
}

// Month returns the calendar-month bucket ("2019-05") for the record, or ""
// when the date is too short to carry one.
func (r Record) Month() string {
	if len(r.Date) < 7 {
		return ""
	}
	return r.Date[:7]
}

// Float returns a pointer to v. Convenience for optional record fields.
func Float(v float64) *float64 {
	return &v
}

// ParseHours converts elapsed-time text to fractional hours. It accepts
// "H:MM:SS", "H:MM", or a bare number, and returns nil for anything else.
// Malformed text is not an error; downstream rules treat nil as
// "cannot cross-check".
func ParseHours(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) != 2 && len(parts) != 3 {
			return nil
		}
		nums := make([]int, len(parts))
		for i, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil
			}
			nums[i] = n
		}
		h := float64(nums[0]) + float64(nums[1])/60
		if len(nums) == 3 {
			h += float64(nums[2]) / 3600
		}
		return &h
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// TimeParts splits "HH:MM:SS" text into integer components. ok is false when
// the text does not consist of exactly three integer fields.
func TimeParts(s string) (h, m, sec int, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	vals := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, 0, 0, false
		}
		vals[i] = n
	}
	return vals[0], vals[1], vals[2], true
}
