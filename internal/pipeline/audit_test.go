package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hauldata/fleetqa/internal/config"
	"github.com/hauldata/fleetqa/internal/model"
)

func testAuditConfig() config.AuditConfig {
	return config.AuditConfig{
		MaxSpeed:      110,
		EffMin:        1.5,
		EffMax:        5.5,
		MaxHours:      20,
		PhysTolerance: 0.20,
	}
}

func issues(findings []Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Issue)
	}
	return out
}

func TestAuditor_CleanRecordHasNoFindings(t *testing.T) {
	a := NewAuditor(testAuditConfig())

	findings := a.Audit([]model.Record{{
		ID: 0, Date: "2019-05-01", VehicleID: "A",
		Distance:       model.Float(450),
		ConsumedFuel:   model.Float(150),
		FuelEfficiency: model.Float(3.0),
		Speed:          model.Float(60),
		Time:           "7:30:00",
	}})
	assert.Empty(t, findings)
}

func TestAuditor_FlagsEachRule(t *testing.T) {
	a := NewAuditor(testAuditConfig())

	records := []model.Record{
		{ID: 0, Date: "2019-05-01", VehicleID: "A", CumulativeDistance: model.Float(125000)},
		{ID: 1, Date: "2019-05-02", VehicleID: "A", CumulativeDistance: model.Float(120000)}, // regression
		{ID: 2, Date: "2019-05-03", VehicleID: "A", Speed: model.Float(150)},
		{ID: 3, Date: "2019-05-04", VehicleID: "A", FuelEfficiency: model.Float(9.5)},
		{ID: 4, Date: "2019-05-05", VehicleID: "A", Time: "22:00:00"},
		{ID: 5, Date: "2019-05-06", VehicleID: "A",
			Distance: model.Float(100), Speed: model.Float(60), Time: "1:00:00"}, // 100 vs 60 km estimate
	}

	findings := a.Audit(records)
	got := issues(findings)
	assert.ElementsMatch(t, []string{
		"odometer_regression",
		"speed_out_of_range",
		"efficiency_out_of_range",
		"driving_time_excessive",
		"distance_implausible",
	}, got)
}

func TestAuditor_EfficiencyBounds(t *testing.T) {
	a := NewAuditor(testAuditConfig())

	low := a.Audit([]model.Record{{ID: 0, Date: "2019-05-01", FuelEfficiency: model.Float(1.2)}})
	require.Len(t, low, 1)
	assert.Equal(t, "efficiency_out_of_range", low[0].Issue)

	edge := a.Audit([]model.Record{{ID: 0, Date: "2019-05-01", FuelEfficiency: model.Float(5.5)}})
	assert.Empty(t, edge)
}
