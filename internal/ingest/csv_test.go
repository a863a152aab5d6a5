package ingest

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"github.com/hauldata/fleetqa/internal/model"
)

func TestReadRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	content := "\xef\xbb\xbf" + `date,vehicle_id,distance,consumed_fuel,fuel_efficiency,time,speed,refuel,reurea,cumulative_distance
2019-05-01,MAN TGX,450,150,3,7:30:00,60,,30,120000
2019-05-02,MAN TGX,,,,,,,,
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// IDs follow row position.
	assert.Equal(t, 0, got[0].ID)
	assert.Equal(t, 1, got[1].ID)

	assert.Equal(t, "2019-05-01", got[0].Date)
	assert.Equal(t, "MAN TGX", got[0].VehicleID)
	require.NotNil(t, got[0].Distance)
	assert.Equal(t, 450.0, *got[0].Distance)
	assert.Equal(t, "7:30:00", got[0].Time)

	// Blank cells are absent, not zero.
	assert.Nil(t, got[1].Distance)
	assert.Nil(t, got[1].Reurea)
	assert.Equal(t, "", got[1].Time)
}

func TestReadRecords_EUCKRFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")

	utf8Content := `date,vehicle_id,distance,consumed_fuel,fuel_efficiency,time,speed,refuel,reurea,cumulative_distance
2019-05-01,대우프리마,450,150,3,7:30:00,60,,30,120000
`
	var buf bytes.Buffer
	w := transform.NewWriter(&buf, korean.EUCKR.NewEncoder())
	_, err := io.WriteString(w, utf8Content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	got, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "대우프리마", got[0].VehicleID)
}

func TestWriteRecords_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")

	in := []model.Record{
		{ID: 0, Date: "2019-05-01", VehicleID: "Scania", Distance: model.Float(450.5), Time: "7:30:00"},
		{ID: 1, Date: "2019-05-02", VehicleID: "Scania"},
	}
	require.NoError(t, WriteRecords(path, in))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "\xef\xbb\xbf"))

	got, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, in[0].Date, got[0].Date)
	require.NotNil(t, got[0].Distance)
	assert.Equal(t, 450.5, *got[0].Distance)
	assert.Nil(t, got[1].Distance)
}

func TestReadProposals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proposals.csv")
	content := `id,date,vehicle_id,target,original,proposed,reference,reason
3,2019-05-01,MAN TGX,time,25:00:00,15:00:00,7.5,hour typo
4,2019-05-02,MAN TGX,reurea,6,20,,event count
bad,,,speed,,,,
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := ReadProposals(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 3, got[0].ID)
	assert.Equal(t, "time", got[0].Target)
	assert.Equal(t, "15:00:00", got[0].Proposed) // times stay text
	assert.Equal(t, 20.0, got[1].Proposed)       // numbers come back numeric
}
