package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHours(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *float64
	}{
		{"full clock", "2:30:00", Float(2.5)},
		{"hours minutes", "2:30", Float(2.5)},
		{"seconds contribute", "1:00:36", Float(1.01)},
		{"bare float", "2.5", Float(2.5)},
		{"dirty hours kept", "25:00:00", Float(25)},
		{"dirty minutes kept", "14:90:00", Float(15.5)},
		{"empty", "", nil},
		{"garbage", "휴무", nil},
		{"too many fields", "1:2:3:4", nil},
		{"non numeric part", "1:xx:00", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseHours(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestTimeParts(t *testing.T) {
	h, m, s, ok := TimeParts("14:30:00")
	require.True(t, ok)
	assert.Equal(t, 14, h)
	assert.Equal(t, 30, m)
	assert.Equal(t, 0, s)

	_, _, _, ok = TimeParts("14:30")
	assert.False(t, ok)

	_, _, _, ok = TimeParts("aa:bb:cc")
	assert.False(t, ok)
}

func TestRecordMonth(t *testing.T) {
	r := Record{Date: "2019-05-14"}
	assert.Equal(t, "2019-05", r.Month())

	assert.Equal(t, "", Record{Date: "2019"}.Month())
	assert.Equal(t, "", Record{}.Month())
}

func TestComputeMonthStats(t *testing.T) {
	records := []Record{
		{Distance: Float(100), FuelEfficiency: Float(2.0), ConsumedFuel: Float(50)},
		{Distance: Float(300), FuelEfficiency: Float(3.0)},
		{}, // all absent, must not drag averages down
	}
	stats := ComputeMonthStats("2019-05", records)
	assert.Equal(t, "2019-05", stats.Month)
	assert.Equal(t, 3, stats.Records)
	assert.InDelta(t, 200, stats.AvgDistance, 1e-9)
	assert.InDelta(t, 2.5, stats.AvgEff, 1e-9)
	assert.InDelta(t, 50, stats.AvgFuel, 1e-9)
}
