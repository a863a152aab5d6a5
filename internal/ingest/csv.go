// Package ingest reads and writes the driving-log formats: the normalized
// CSV the pipeline consumes, the proposal artifact it emits, and the raw
// vendor xlsx exports the clean CSV is converted from.
package ingest

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"github.com/hauldata/fleetqa/internal/model"
)

const utf8BOM = "\xef\xbb\xbf"

// recordColumns is the normalized log schema, in file order.
var recordColumns = []string{
	"date", "vehicle_id", "distance", "consumed_fuel", "fuel_efficiency",
	"time", "speed", "refuel", "reurea", "cumulative_distance",
}

// ReadRecords loads a normalized driving log. IDs are assigned by row
// position so they are reproducible across runs over the same file. Files
// are tried as UTF-8 first and fall back to EUC-KR, since vendor exports
// predate the normalization step.
func ReadRecords(path string) ([]model.Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read log")
	}
	raw = decodeText(raw)

	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: parse log")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := headerIndex(rows[0])
	if _, ok := col["date"]; !ok {
		return nil, eris.New("ingest: log has no date column")
	}

	records := make([]model.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		get := func(name string) string {
			j, ok := col[name]
			if !ok || j >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[j])
		}
		records = append(records, model.Record{
			ID:                 i,
			Date:               get("date"),
			VehicleID:          get("vehicle_id"),
			Distance:           parseOptional(get("distance")),
			ConsumedFuel:       parseOptional(get("consumed_fuel")),
			FuelEfficiency:     parseOptional(get("fuel_efficiency")),
			Time:               get("time"),
			Speed:              parseOptional(get("speed")),
			Refuel:             parseOptional(get("refuel")),
			Reurea:             parseOptional(get("reurea")),
			CumulativeDistance: parseOptional(get("cumulative_distance")),
		})
	}
	return records, nil
}

// WriteRecords writes a normalized driving log with a UTF-8 BOM.
func WriteRecords(path string, records []model.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "ingest: create log")
	}
	defer f.Close()

	if _, err := f.WriteString(utf8BOM); err != nil {
		return eris.Wrap(err, "ingest: write bom")
	}
	w := csv.NewWriter(f)
	if err := w.Write(recordColumns); err != nil {
		return eris.Wrap(err, "ingest: write header")
	}
	for _, r := range records {
		row := []string{
			r.Date,
			r.VehicleID,
			formatOptional(r.Distance),
			formatOptional(r.ConsumedFuel),
			formatOptional(r.FuelEfficiency),
			r.Time,
			formatOptional(r.Speed),
			formatOptional(r.Refuel),
			formatOptional(r.Reurea),
			formatOptional(r.CumulativeDistance),
		}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "ingest: write row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "ingest: flush log")
}

// ReadProposals loads a proposal artifact produced by a correction run.
func ReadProposals(path string) ([]model.Proposal, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read proposals")
	}
	raw = decodeText(raw)

	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: parse proposals")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := headerIndex(rows[0])
	proposals := make([]model.Proposal, 0, len(rows)-1)
	for _, row := range rows[1:] {
		get := func(name string) string {
			j, ok := col[name]
			if !ok || j >= len(row) {
				return ""
			}
			return row[j]
		}
		id, err := strconv.Atoi(strings.TrimSpace(get("id")))
		if err != nil {
			continue
		}
		proposals = append(proposals, model.Proposal{
			ID:        id,
			Target:    strings.TrimSpace(get("target")),
			Original:  cellValue(get("original")),
			Proposed:  cellValue(get("proposed")),
			Reference: cellValue(get("reference")),
			Reason:    get("reason"),
		})
	}
	return proposals, nil
}

// decodeText strips a UTF-8 BOM or, failing valid UTF-8, transcodes EUC-KR.
func decodeText(raw []byte) []byte {
	if bytes.HasPrefix(raw, []byte(utf8BOM)) {
		return raw[len(utf8BOM):]
	}
	if utf8.Valid(raw) {
		return raw
	}
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), korean.EUCKR.NewDecoder()))
	if err != nil {
		return raw
	}
	return decoded
}

func headerIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return col
}

// parseOptional converts a cell to a float pointer; blank and non-numeric
// cells are absent values, not errors.
func parseOptional(s string) *float64 {
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// cellValue gives CSV cells back the loose typing the oracle emitted:
// numerics become float64, blanks become nil, the rest stay strings.
func cellValue(s string) any {
	t := strings.TrimSpace(s)
	if t == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return f
	}
	return s
}
