package model

// MonthStats holds per-month-bucket averages used as context for the oracle.
// Computed once before batching and read-only during the concurrent phase.
type MonthStats struct {
	Month       string  `json:"month"`
	Records     int     `json:"records"`
	AvgDistance float64 `json:"avg_distance"`
	AvgEff      float64 `json:"avg_efficiency"`
	AvgFuel     float64 `json:"avg_fuel"`
}

// ComputeMonthStats averages distance, efficiency, and fuel over the present
// values of a month bucket.
func ComputeMonthStats(month string, records []Record) MonthStats {
	st := MonthStats{Month: month, Records: len(records)}

	var distSum, effSum, fuelSum float64
	var distN, effN, fuelN int
	for _, r := range records {
		if r.Distance != nil {
			distSum += *r.Distance
			distN++
		}
		if r.FuelEfficiency != nil {
			effSum += *r.FuelEfficiency
			effN++
		}
		if r.ConsumedFuel != nil {
			fuelSum += *r.ConsumedFuel
			fuelN++
		}
	}
	if distN > 0 {
		st.AvgDistance = distSum / float64(distN)
	}
	if effN > 0 {
		st.AvgEff = effSum / float64(effN)
	}
	if fuelN > 0 {
		st.AvgFuel = fuelSum / float64(fuelN)
	}
	return st
}
