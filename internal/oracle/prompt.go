package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/hauldata/fleetqa/internal/model"
)

// fewShotExamples covers the typo classes the oracle is expected to
// recognize: unit errors, copy-paste duplication, missing/extra/neighbor-key
// digits, decimal shifts, logical regressions, and ambiguous cases that must
// map to manual_check.
const fewShotExamples = `[Case 1: Unit Error (Reurea)]
- Input: {"id": 10, "reurea": 6}
- Reasoning: Single digit reurea (1~9) is a recording error (Event count). Force replace with standard unit 20L.
- Output: [{"id": 10, "target": "reurea", "original": 6, "proposed": 20, "reference": null, "reason": "Unit error correction (Force 6 -> 20L). Standard refill volume."}]

[Case 2: Copy-Paste Error (Distance == Fuel)]
- Input: {"id": 55, "distance": 133.51, "consumed_fuel": 133.51, "fuel_efficiency": 2.77}
- Context: Monthly Avg Distance = 450.0 km
- Reasoning:
  1. Distance and Fuel are identical (133.51). One is wrong.
  2. Compare with Avg Dist (450.0): 133.51 is suspiciously low.
  3. Assume Fuel (133.51) is correct. Recalculate Dist = Fuel * Eff.
- Output: [{"id": 55, "target": "distance", "original": 133.51, "proposed": 369.8, "reference": 369.8, "reason": "Copy error (Dist=Fuel). Recalculated distance using fuel * efficiency."}]

[Case 3: Digit Omission (Leading Digit)]
- Input: {"id": 41, "distance": 36.9, "ref_dist_fuel": 538.75}
- Reasoning: Original (36.9) is too small vs Reference (538.75). Missing leading '5'. 536.9 matches reference closely.
- Output: [{"id": 41, "target": "distance", "original": 36.9, "proposed": 536.9, "reference": 538.75, "reason": "Missing leading digit '5' detected (36.9 -> 536.9)."}]

[Case 4: Digit Omission (Middle Digit)]
- Input: {"id": 42, "consumed_fuel": 17.51, "ref_fuel": 179.17}
- Reasoning: Original (17.51) vs Ref (179.17). Missing '9' in middle makes 179.51.
- Output: [{"id": 42, "target": "consumed_fuel", "original": 17.51, "proposed": 179.51, "reference": 179.17, "reason": "Missing digit '9' detected (17.51 -> 179.51)."}]

[Case 5: Fat Finger (Double Entry)]
- Input: {"id": 22, "distance": 4718.1, "ref_dist_fuel": 478.8}
- Reasoning: 4718.1 is physically impossible (>1500km). Likely double-tapped '1'. 478.1 is close to Ref.
- Output: [{"id": 22, "target": "distance", "original": 4718.1, "proposed": 478.1, "reference": 478.8, "reason": "Fat finger typo (4718.1 -> 478.1). Matches calculated distance."}]

[Case 6: Keypad Neighbor Typo]
- Input: {"id": 35, "distance": 638.1, "ref_dist_fuel": 537.3}
- Reasoning: 638.1 vs 537.3. Keypad '6' is above '5'. 538.1 matches Ref.
- Output: [{"id": 35, "target": "distance", "original": 638.1, "proposed": 538.1, "reference": 537.3, "reason": "Keypad typo suspected (6->5). Validated by calc."}]

[Case 7: Cumulative Distance Regression (Logic Error)]
- Input: {"id": 1254, "cumulative_distance": 131185.0, "prev_cum_dist": 131343.0}
- Reasoning: Current < Previous. Impossible. Requires manual check.
- Output: [{"id": 1254, "target": "cumulative_distance", "original": 131185.0, "proposed": null, "reference": 131343.0, "reason": "Logic Error: Cumulative distance regression. Manual Check Required."}]

[Case 8: Time Outlier (> 20h)]
- Input: {"id": 720, "time": "35:27:00", "ref_time": "3:30"}
- Reasoning: Time 35h is physically impossible (> 20h). Likely typo 35 -> 03.
- Output: [{"id": 720, "target": "time", "original": "35:27:00", "proposed": "03:27:00", "reference": "03:30", "reason": "Time outlier (>20h). Corrected to 03:xx based on reference."}]

[Case 9: Impossible Distance (Decimal Error)]
- Input: {"id": 501, "distance": 5305, "time": "12:12:00", "speed": 43.1}
- Reasoning: 5305km is impossible (>1500km). Do NOT adjust time to 123h. Fix distance decimal: 5305 -> 530.5.
- Output: [{"id": 501, "target": "distance", "original": 5305, "proposed": 530.5, "reference": 525.8, "reason": "Impossible distance outlier. Corrected typo (5305 -> 530.5)."}]

[Case 10: Ambiguous / Unsolvable]
- Input: {"id": 99, "time": "11:64"}
- Reasoning: Invalid format, ambiguous fix.
- Output: [{"id": 99, "target": "manual_check", "original": "11:64", "proposed": null, "reference": null, "reason": "Invalid time format & ambiguous. Manual review."}]`

const promptTemplate = `You are a Data Cleaning Expert.
Your goal is to detect and fix typos by comparing 'User Input' vs 'Calculated Reference'.

[Context Info (Averages)]
- Monthly Avg Distance: %.1f km
- Monthly Avg Efficiency: %.2f km/L
- Monthly Avg Fuel: %.1f L

[Logic: Visual Pattern Matching]
For each row, I provide the 'Original Input' and the 'Calculated Reference' (derived from other variables).
1. Compare the **Original** value with its corresponding **Reference** value.
2. If they differ significantly, check if the **Reference** value looks like a corrected version of the **Original** (e.g., typo, missing digit, wrong decimal).
3. **Priority:** Trust the value that resolves the conflict with minimum edits to the original digits.

[Columns Provided]
- original: distance, consumed_fuel, fuel_efficiency, speed, time
- reference:
- ref_dist_phys (from Speed*Time)
- ref_dist_fuel (from Fuel*Eff)
- ref_fuel (from Dist/Eff)
- ref_efficiency (from Dist/Fuel)
- ref_speed (from Dist/Time)
- ref_time (from Dist/Speed)

[Few-Shot Example]
%s

[Output Schema]
Return a JSON list. If valid, return [].
{
    "id": (int),
    "target": (str),
    "original": (value),
    "proposed": (value),
    "reference": (value),
    "reason": (str)
}

[Data to Analyze]
%s`

// BuildPrompt renders the instructional template for one batch. Records are
// embedded as a compact JSON list carrying the bounded field set plus the
// reference hints.
func BuildPrompt(batch []model.Record, stats model.MonthStats) (string, error) {
	rows := make([]map[string]any, 0, len(batch))
	for _, r := range batch {
		rows = append(rows, map[string]any{
			"id":                  r.ID,
			"date":                r.Date,
			"vehicle_id":          r.VehicleID,
			"distance":            r.Distance,
			"consumed_fuel":       r.ConsumedFuel,
			"fuel_efficiency":     r.FuelEfficiency,
			"time":                nullableString(r.Time),
			"speed":               r.Speed,
			"reurea":              r.Reurea,
			"cumulative_distance": r.CumulativeDistance,
			"prev_cum_dist":       r.PrevCumDist,
			"ref_dist_phys":       r.RefDistPhys,
			"ref_dist_fuel":       r.RefDistFuel,
			"ref_fuel":            r.RefFuel,
			"ref_efficiency":      r.RefEff,
			"ref_speed":           r.RefSpeed,
			"ref_time":            r.RefTime,
		})
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return "", eris.Wrap(err, "oracle: marshal batch")
	}

	return fmt.Sprintf(promptTemplate, stats.AvgDistance, stats.AvgEff, stats.AvgFuel, fewShotExamples, string(data)), nil
}

func nullableString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
