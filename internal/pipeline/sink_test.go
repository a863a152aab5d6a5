package pipeline

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hauldata/fleetqa/internal/model"
)

func sinkRecords() []model.Record {
	return []model.Record{
		{ID: 0, Date: "2019-05-01", VehicleID: "MAN TGX"},
		{ID: 1, Date: "2019-05-02", VehicleID: "MAN TGX"},
		{ID: 2, Date: "2019-06-01", VehicleID: "Scania"},
	}
}

func readArtifact(t *testing.T, path string) [][]string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(raw), "\xef\xbb\xbf"), "artifact must carry a BOM")

	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(raw), "\xef\xbb\xbf")))
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestSink_AppendAndFinalize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proposals.csv")
	sink, err := NewSink(path, sinkRecords())
	require.NoError(t, err)

	// Batches land out of id order.
	n, err := sink.Append([]model.Proposal{
		{ID: 2, Target: "speed", Original: float64(150), Proposed: float64(85), Reason: "digit swap"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = sink.Append([]model.Proposal{
		{ID: 0, Target: "time", Original: "25:00:00", Proposed: "15:00:00", Reason: "hour typo"},
		{ID: 99, Target: "speed", Proposed: float64(80)}, // unknown id dropped
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, sink.Finalize())

	rows := readArtifact(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "date", "vehicle_id", "target", "original", "proposed", "reference", "reason"}, rows[0])

	// Stable id order after finalize.
	assert.Equal(t, "0", rows[1][0])
	assert.Equal(t, "2019-05-01", rows[1][1])
	assert.Equal(t, "MAN TGX", rows[1][2])
	assert.Equal(t, "15:00:00", rows[1][5])

	assert.Equal(t, "2", rows[2][0])
	assert.Equal(t, "Scania", rows[2][2])
	assert.Equal(t, "85", rows[2][5])
}

func TestSink_FinalizeDeduplicatesLastWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proposals.csv")
	sink, err := NewSink(path, sinkRecords())
	require.NoError(t, err)

	_, err = sink.Append([]model.Proposal{
		{ID: 1, Target: "speed", Proposed: float64(80), Reason: "first"},
	})
	require.NoError(t, err)
	_, err = sink.Append([]model.Proposal{
		{ID: 1, Target: "speed", Proposed: float64(90), Reason: "second"},
		{ID: 1, Target: "time", Proposed: "10:00:00"},
	})
	require.NoError(t, err)

	require.NoError(t, sink.Finalize())

	rows := readArtifact(t, path)
	require.Len(t, rows, 3)

	// Same (id, target): later append wins. Different target survives.
	assert.Equal(t, "90", rows[1][5])
	assert.Equal(t, "second", rows[1][7])
	assert.Equal(t, "time", rows[2][3])
}

func TestSink_EmptyRunLeavesHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proposals.csv")
	sink, err := NewSink(path, sinkRecords())
	require.NoError(t, err)
	require.NoError(t, sink.Finalize())

	rows := readArtifact(t, path)
	assert.Len(t, rows, 1)
}
