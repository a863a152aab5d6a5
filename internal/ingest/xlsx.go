package ingest

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/hauldata/fleetqa/internal/model"
)

// headerScanRows bounds the search for the header row in each sheet. Vendor
// exports put free-form titles and vehicle info above the real header.
const headerScanRows = 20

// ConvertOptions configures a raw-export conversion.
type ConvertOptions struct {
	// AliasFile optionally extends the built-in header alias table.
	AliasFile string
	// Vehicle overrides sheet-level vehicle detection for the whole file.
	Vehicle string
}

// ConvertXLSX normalizes a raw vendor export into the standard driving-log
// CSV: per-sheet header detection, column aliasing, vehicle identification,
// numeric and time cleaning, ghost-row pruning, and a final date sort.
// Returns the number of rows written.
func ConvertXLSX(inPath, outPath string, opts ConvertOptions) (int, error) {
	aliases, err := LoadAliases(opts.AliasFile)
	if err != nil {
		return 0, err
	}

	f, err := xlsx.OpenFile(inPath)
	if err != nil {
		return 0, eris.Wrap(err, "ingest: open workbook")
	}

	var records []model.Record
	for _, sheet := range f.Sheets {
		rows, err := convertSheet(sheet, aliases, opts.Vehicle)
		if err != nil {
			zap.L().Warn("sheet skipped",
				zap.String("sheet", sheet.Name),
				zap.Error(err))
			continue
		}
		zap.L().Info("sheet converted",
			zap.String("sheet", sheet.Name),
			zap.Int("rows", len(rows)))
		records = append(records, rows...)
	}

	records = pruneGhostRows(records)

	sort.SliceStable(records, func(a, b int) bool {
		return records[a].Date < records[b].Date
	})
	for i := range records {
		records[i].ID = i
	}

	if err := WriteRecords(outPath, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

func convertSheet(sheet *xlsx.Sheet, aliases map[string][]string, vehicle string) ([]model.Record, error) {
	if vehicle == "" {
		vehicle = detectVehicle(sheet)
	}

	headerIdx := findHeaderRow(sheet, aliases)
	if headerIdx < 0 {
		return nil, eris.New("ingest: no date header found")
	}

	// Column position → normalized name, first alias match wins.
	cols := map[int]string{}
	taken := map[string]bool{}
	for j, cell := range sheet.Rows[headerIdx].Cells {
		if name := matchColumn(aliases, cell.String(), taken); name != "" {
			cols[j] = name
			taken[name] = true
		}
	}

	var records []model.Record
	for _, row := range sheet.Rows[headerIdx+1:] {
		fields := map[string]string{}
		for j, cell := range row.Cells {
			if name, ok := cols[j]; ok {
				fields[name] = strings.TrimSpace(cell.String())
			}
		}
		date, ok := normalizeDate(fields["date"])
		if !ok {
			continue // blank, subtotal, or remark row
		}
		records = append(records, model.Record{
			Date:               date,
			VehicleID:          vehicle,
			Distance:           cleanNumeric(fields["distance"]),
			ConsumedFuel:       cleanNumeric(fields["consumed_fuel"]),
			FuelEfficiency:     cleanNumeric(fields["fuel_efficiency"]),
			Time:               normalizeTime(fields["time"]),
			Speed:              cleanNumeric(fields["speed"]),
			Refuel:             cleanNumeric(fields["refuel"]),
			Reurea:             cleanNumeric(fields["reurea"]),
			CumulativeDistance: cleanNumeric(fields["cumulative_distance"]),
		})
	}
	return records, nil
}

// findHeaderRow locates the first row containing a date alias.
func findHeaderRow(sheet *xlsx.Sheet, aliases map[string][]string) int {
	limit := len(sheet.Rows)
	if limit > headerScanRows {
		limit = headerScanRows
	}
	for i := 0; i < limit; i++ {
		for _, cell := range sheet.Rows[i].Cells {
			h := normalizeHeader(cell.String())
			for _, alias := range aliases["date"] {
				if h != "" && strings.Contains(h, normalizeHeader(alias)) {
					return i
				}
			}
		}
	}
	return -1
}

// detectVehicle inspects the title cells above the header for a known make.
func detectVehicle(sheet *xlsx.Sheet) string {
	var b strings.Builder
	limit := len(sheet.Rows)
	if limit > 3 {
		limit = 3
	}
	for i := 0; i < limit; i++ {
		for _, cell := range sheet.Rows[i].Cells {
			b.WriteString(cell.String())
			b.WriteString(" ")
		}
	}
	title := b.String()
	switch {
	case strings.Contains(title, "대우") || strings.Contains(title, "프리마"):
		return "Daewoo Prima"
	case strings.Contains(title, "만") || strings.Contains(title, "MAN"):
		return "MAN TGX"
	case strings.Contains(title, "스카니아") || strings.Contains(strings.ToLower(title), "scania"):
		return "Scania"
	default:
		return "Unknown Vehicle"
	}
}

var dateLayouts = []string{
	"2006-01-02", "2006.01.02", "2006/01/02",
	"2006-01-02 15:04:05", "01-02-06", "1/2/06", "01/02/2006",
	"Jan 2, 2006", "2-Jan-06",
}

// normalizeDate coerces a cell to "YYYY-MM-DD". Excel serial numbers and
// the layouts tealeg renders are all accepted; anything else marks the row
// as non-data.
func normalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	// Excel serial date.
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 20000 && serial < 80000 {
		epoch := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
		return epoch.AddDate(0, 0, int(serial)).Format("2006-01-02"), true
	}
	return "", false
}

// cleanNumeric strips thousands separators and stray text from a numeric
// cell. Unusable cells become absent values.
func cleanNumeric(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

var timeDigits = regexp.MustCompile(`(\d+)\D+(\d+)`)

// normalizeTime rewrites elapsed-time cells to "HH:MM:SS" text without
// validating them. "14. 30" becomes "14:30:00" and a dirty "25:10" stays
// "25:10" so the anomaly rules can flag it downstream.
func normalizeTime(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return ""
	}
	if strings.Contains(s, ":") {
		return s
	}

	if m := timeDigits.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("%02d:%02d:00", h, min)
	}

	// Bare float: "14.45" means 14h45m by vendor convention.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return ""
	}
	h := int(f)
	min := int(math.Round((f - float64(h)) * 100))
	return fmt.Sprintf("%02d:%02d:00", h, min)
}

// pruneGhostRows drops rows carrying no activity at all: no distance, fuel,
// urea, or refuel figure and no elapsed time. Sheets pad the calendar with
// idle days that say nothing.
func pruneGhostRows(records []model.Record) []model.Record {
	kept := records[:0]
	for _, r := range records {
		if hasActivity(r) {
			kept = append(kept, r)
		}
	}
	return kept
}

func hasActivity(r model.Record) bool {
	for _, v := range []*float64{r.Distance, r.Refuel, r.Reurea, r.ConsumedFuel} {
		if v != nil && *v != 0 {
			return true
		}
	}
	t := strings.TrimSpace(r.Time)
	return t != "" && t != "0"
}
