package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/hauldata/fleetqa/internal/model"
)

func createTestWorkbook(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestConvertXLSX(t *testing.T) {
	in := createTestWorkbook(t, map[string][][]string{
		"2019.05": {
			{"만 트렉터 운행일지"},
			{""},
			{"날짜", "1일 주행거리", "연료 소모량", "연비", "총 운행시간", "평균 운행속도", "요소수", "총 주행거리"},
			{"2019-05-02", "450", "150", "3", "14. 30", "60", "30", "120450"},
			{"2019-05-01", "1,200", "400", "3", "7:30:00", "60", "", "120000"},
			{"합계", "1650", "550", "", "", "", "", ""},   // subtotal row, no date
			{"2019-05-03", "", "", "", "", "", "", ""},    // ghost row, no activity
		},
	})
	out := filepath.Join(t.TempDir(), "log.csv")

	n, err := ConvertXLSX(in, out, ConvertOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := ReadRecords(out)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Date-sorted with row-position ids.
	assert.Equal(t, 0, got[0].ID)
	assert.Equal(t, "2019-05-01", got[0].Date)
	assert.Equal(t, "2019-05-02", got[1].Date)

	// Title row identified the vehicle.
	assert.Equal(t, "MAN TGX", got[0].VehicleID)

	// Thousands separator stripped.
	require.NotNil(t, got[0].Distance)
	assert.Equal(t, 1200.0, *got[0].Distance)

	// Dotted time normalized; clock time preserved.
	assert.Equal(t, "7:30:00", got[0].Time)
	assert.Equal(t, "14:30:00", got[1].Time)

	// Odometer mapped through the cumulative alias, not the daily one.
	require.NotNil(t, got[1].CumulativeDistance)
	assert.Equal(t, 120450.0, *got[1].CumulativeDistance)
}

func TestConvertXLSX_VehicleOverride(t *testing.T) {
	in := createTestWorkbook(t, map[string][][]string{
		"Sheet1": {
			{"날짜", "1일 주행거리"},
			{"2019-05-01", "100"},
		},
	})
	out := filepath.Join(t.TempDir(), "log.csv")

	_, err := ConvertXLSX(in, out, ConvertOptions{Vehicle: "Scania"})
	require.NoError(t, err)

	got, err := ReadRecords(out)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Scania", got[0].VehicleID)
}

func TestConvertXLSX_SheetWithoutHeaderSkipped(t *testing.T) {
	in := createTestWorkbook(t, map[string][][]string{
		"메모": {
			{"이 시트는 메모입니다"},
		},
		"2019.06": {
			{"날짜", "1일 주행거리"},
			{"2019-06-01", "250"},
		},
	})
	out := filepath.Join(t.TempDir(), "log.csv")

	n, err := ConvertXLSX(in, out, ConvertOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"14. 30", "14:30:00"},
		{"14,,20", "14:20:00"},
		{"14.45", "14:45:00"},
		{"14", "14:00:00"},
		{"7:30:00", "7:30:00"},
		{"25:10", "25:10"}, // dirty but colon-formatted stays untouched
		{"", ""},
		{"0", ""},
		{"휴무", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeTime(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeDate(t *testing.T) {
	got, ok := normalizeDate("2019-05-01")
	require.True(t, ok)
	assert.Equal(t, "2019-05-01", got)

	got, ok = normalizeDate("2019.05.01")
	require.True(t, ok)
	assert.Equal(t, "2019-05-01", got)

	// Excel serial for 2019-05-01.
	got, ok = normalizeDate("43586")
	require.True(t, ok)
	assert.Equal(t, "2019-05-01", got)

	_, ok = normalizeDate("합계")
	assert.False(t, ok)
	_, ok = normalizeDate("")
	assert.False(t, ok)
}

func TestMatchColumn_LongestAliasWins(t *testing.T) {
	aliases, err := LoadAliases("")
	require.NoError(t, err)

	taken := map[string]bool{}
	assert.Equal(t, "cumulative_distance", matchColumn(aliases, "총 주행거리", taken))
	assert.Equal(t, "distance", matchColumn(aliases, "1일 주행거리", taken))
	assert.Equal(t, "", matchColumn(aliases, "비고", taken))
}

func TestLoadAliases_YAMLOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("distance:\n  - 운행KM\n"), 0o644))

	aliases, err := LoadAliases(path)
	require.NoError(t, err)

	taken := map[string]bool{}
	assert.Equal(t, "distance", matchColumn(aliases, "운행KM", taken))
	// Builtin spellings are preserved.
	assert.Equal(t, "date", matchColumn(aliases, "날짜", taken))
}

func TestPruneGhostRows(t *testing.T) {
	records := []model.Record{
		{Date: "2019-05-01", Distance: model.Float(100)},
		{Date: "2019-05-02"},                              // nothing at all
		{Date: "2019-05-03", Distance: model.Float(0)},    // zero is not activity
		{Date: "2019-05-04", Time: "7:30:00"},             // time alone keeps the row
		{Date: "2019-05-05", Refuel: model.Float(200)},
	}
	got := pruneGhostRows(records)
	require.Len(t, got, 3)
	assert.Equal(t, "2019-05-01", got[0].Date)
	assert.Equal(t, "2019-05-04", got[1].Date)
	assert.Equal(t, "2019-05-05", got[2].Date)
}
