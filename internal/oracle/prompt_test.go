package oracle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hauldata/fleetqa/internal/model"
)

func TestBuildPrompt(t *testing.T) {
	batch := []model.Record{{
		ID:          7,
		Date:        "2019-05-14",
		VehicleID:   "MAN TGX",
		Distance:    model.Float(36.9),
		RefDistFuel: model.Float(538.75),
		Time:        "",
	}}
	stats := model.MonthStats{
		Month:       "2019-05",
		Records:     30,
		AvgDistance: 450.0,
		AvgEff:      2.85,
		AvgFuel:     155.2,
	}

	prompt, err := BuildPrompt(batch, stats)
	require.NoError(t, err)

	// Monthly context lands in the header.
	assert.Contains(t, prompt, "Monthly Avg Distance: 450.0 km")
	assert.Contains(t, prompt, "Monthly Avg Efficiency: 2.85 km/L")

	// Records are embedded with their references.
	assert.Contains(t, prompt, `"id":7`)
	assert.Contains(t, prompt, `"ref_dist_fuel":538.75`)

	// Blank time serializes as null, not empty text.
	assert.Contains(t, prompt, `"time":null`)

	// The worked examples survive templating.
	assert.Contains(t, prompt, "manual_check")
	assert.Contains(t, prompt, "[Case 10: Ambiguous / Unsolvable]")

	// Data comes last so truncation hits records, not instructions.
	assert.Greater(t, strings.Index(prompt, `"id":7`), strings.Index(prompt, "[Output Schema]"))
}
