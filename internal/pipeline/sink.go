package pipeline

import (
	"encoding/csv"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/hauldata/fleetqa/internal/model"
)

// utf8BOM prefixes the artifact so spreadsheet tools pick up the encoding.
const utf8BOM = "\xef\xbb\xbf"

// proposalColumns is the output artifact schema.
var proposalColumns = []string{"id", "date", "vehicle_id", "target", "original", "proposed", "reference", "reason"}

// Sink is the append-only output artifact for accepted proposals. It is the
// only mutable shared resource during the concurrent phase; all writes are
// serialized behind a mutex. Rows are appended as each batch resolves and
// the final ordering is restored by Finalize.
type Sink struct {
	mu    sync.Mutex
	f     *os.File
	w     *csv.Writer
	path  string
	index map[int]model.Record
}

// NewSink creates the artifact, writes the header once, and indexes the
// original records by id so proposals can be re-joined with their date and
// vehicle.
func NewSink(path string, records []model.Record) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrap(err, "sink: create artifact")
	}
	if _, err := f.WriteString(utf8BOM); err != nil {
		f.Close()
		return nil, eris.Wrap(err, "sink: write bom")
	}

	w := csv.NewWriter(f)
	if err := w.Write(proposalColumns); err != nil {
		f.Close()
		return nil, eris.Wrap(err, "sink: write header")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, eris.Wrap(err, "sink: flush header")
	}

	index := make(map[int]model.Record, len(records))
	for _, r := range records {
		index[r.ID] = r
	}

	return &Sink{f: f, w: w, path: path, index: index}, nil
}

// Append joins date and vehicle_id onto each proposal by id and writes the
// rows. Proposals whose id is unknown are dropped. Returns the number of
// rows written.
func (s *Sink) Append(proposals []model.Proposal) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	written := 0
	for _, p := range proposals {
		rec, ok := s.index[p.ID]
		if !ok {
			continue
		}
		row := []string{
			strconv.Itoa(p.ID),
			rec.Date,
			rec.VehicleID,
			p.Target,
			model.FormatValue(p.Original),
			model.FormatValue(p.Proposed),
			model.FormatValue(p.Reference),
			p.Reason,
		}
		if err := s.w.Write(row); err != nil {
			return written, eris.Wrap(err, "sink: write row")
		}
		written++
	}

	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return written, eris.Wrap(err, "sink: flush")
	}
	return written, nil
}

// Finalize closes the artifact, re-reads it, stably sorts rows by id, keeps
// the last appended row per (id, target) pair, and rewrites the file in
// place. On failure the unsorted but complete artifact is preserved and the
// caller logs and moves on.
func (s *Sink) Finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.f.Close(); err != nil {
		return eris.Wrap(err, "sink: close artifact")
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return eris.Wrap(err, "sink: reread artifact")
	}

	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(raw), utf8BOM)))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return eris.Wrap(err, "sink: parse artifact")
	}
	if len(rows) <= 1 {
		return nil
	}

	header, body := rows[0], rows[1:]

	// Last-writer-wins per (id, target); append order is authoritative.
	type key struct {
		id     string
		target string
	}
	seen := make(map[key]int, len(body))
	var dedup [][]string
	for _, row := range body {
		if len(row) < 4 {
			continue
		}
		k := key{id: row[0], target: row[3]}
		if i, dup := seen[k]; dup {
			dedup[i] = row
			continue
		}
		seen[k] = len(dedup)
		dedup = append(dedup, row)
	}

	sort.SliceStable(dedup, func(a, b int) bool {
		ai, aerr := strconv.Atoi(dedup[a][0])
		bi, berr := strconv.Atoi(dedup[b][0])
		if aerr != nil || berr != nil {
			return dedup[a][0] < dedup[b][0]
		}
		return ai < bi
	})

	f, err := os.Create(s.path)
	if err != nil {
		return eris.Wrap(err, "sink: rewrite artifact")
	}
	defer f.Close()

	if _, err := f.WriteString(utf8BOM); err != nil {
		return eris.Wrap(err, "sink: rewrite bom")
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "sink: rewrite header")
	}
	if err := w.WriteAll(dedup); err != nil {
		return eris.Wrap(err, "sink: rewrite rows")
	}
	w.Flush()
	return eris.Wrap(w.Error(), "sink: rewrite flush")
}

// Path returns the artifact location.
func (s *Sink) Path() string {
	return s.path
}
