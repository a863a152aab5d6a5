package pipeline

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/hauldata/fleetqa/internal/config"
	"github.com/hauldata/fleetqa/internal/ingest"
	"github.com/hauldata/fleetqa/internal/model"
)

// Finding is one rule violation detected by the static audit.
type Finding struct {
	ID        int
	Date      string
	VehicleID string
	Issue     string
	Column    string
	Value     string
	Message   string
}

// Auditor flags records that violate hard physical bounds without calling
// the oracle. It is the cheap pre-flight check run before a correction pass
// and the post-flight check run after one.
type Auditor struct {
	cfg config.AuditConfig
}

func NewAuditor(cfg config.AuditConfig) *Auditor {
	return &Auditor{cfg: cfg}
}

// Audit derives references, annotates odometer history, and applies the
// static rules to every record.
func (a *Auditor) Audit(records []model.Record) []Finding {
	records = BuildReferences(records)
	records = AnnotatePrevOdometer(records)

	var findings []Finding
	for _, r := range records {
		findings = append(findings, a.check(r)...)
	}
	return findings
}

func (a *Auditor) check(r model.Record) []Finding {
	var out []Finding
	add := func(issue, column, value, msg string) {
		out = append(out, Finding{
			ID: r.ID, Date: r.Date, VehicleID: r.VehicleID,
			Issue: issue, Column: column, Value: value, Message: msg,
		})
	}

	if r.CumulativeDistance != nil && r.PrevCumDist != nil && *r.CumulativeDistance < *r.PrevCumDist {
		add("odometer_regression", "cumulative_distance", formatFloat(*r.CumulativeDistance),
			fmt.Sprintf("odometer fell below previous reading %s", formatFloat(*r.PrevCumDist)))
	}
	if r.Speed != nil && *r.Speed > a.cfg.MaxSpeed {
		add("speed_out_of_range", "speed", formatFloat(*r.Speed),
			fmt.Sprintf("exceeds %s km/h", formatFloat(a.cfg.MaxSpeed)))
	}
	if r.FuelEfficiency != nil && (*r.FuelEfficiency < a.cfg.EffMin || *r.FuelEfficiency > a.cfg.EffMax) {
		add("efficiency_out_of_range", "fuel_efficiency", formatFloat(*r.FuelEfficiency),
			fmt.Sprintf("outside [%s, %s] km/l", formatFloat(a.cfg.EffMin), formatFloat(a.cfg.EffMax)))
	}
	if r.Hours != nil && *r.Hours > a.cfg.MaxHours {
		add("driving_time_excessive", "time", r.Time,
			fmt.Sprintf("more than %s hours in one day", formatFloat(a.cfg.MaxHours)))
	}
	if r.Distance != nil && r.RefDistPhys != nil && *r.Distance > 0 {
		dev := math.Abs(*r.Distance-*r.RefDistPhys) / *r.Distance
		if dev > a.cfg.PhysTolerance {
			add("distance_implausible", "distance", formatFloat(*r.Distance),
				fmt.Sprintf("deviates %.0f%% from speed×time estimate %s",
					dev*100, formatFloat(*r.RefDistPhys)))
		}
	}
	return out
}

// WriteReport writes findings as a CSV report.
func WriteReport(path string, findings []Finding) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "audit: create report")
	}
	defer f.Close()

	if _, err := f.WriteString(utf8BOM); err != nil {
		return eris.Wrap(err, "audit: write bom")
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "date", "vehicle_id", "issue_type", "column", "value", "message"}); err != nil {
		return eris.Wrap(err, "audit: write header")
	}
	for _, fd := range findings {
		row := []string{
			strconv.Itoa(fd.ID), fd.Date, fd.VehicleID,
			fd.Issue, fd.Column, fd.Value, fd.Message,
		}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "audit: write row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "audit: flush report")
}

// AuditFile is the file-to-file convenience wrapper used by the CLI.
func AuditFile(cfg config.AuditConfig, inPath, outPath string) (int, error) {
	records, err := ingest.ReadRecords(inPath)
	if err != nil {
		return 0, eris.Wrap(err, "audit: read input")
	}
	findings := NewAuditor(cfg).Audit(records)
	if err := WriteReport(outPath, findings); err != nil {
		return len(findings), err
	}
	return len(findings), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
