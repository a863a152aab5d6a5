// Package store persists normalized driving logs and correction proposals
// for the read API and ad-hoc analysis. SQLite is the default single-file
// backend; Postgres serves shared deployments.
package store

import (
	"context"
	"time"

	"github.com/hauldata/fleetqa/internal/model"
)

// LogFilter specifies criteria for listing driving-log rows.
type LogFilter struct {
	VehicleID string `json:"vehicle_id,omitempty"`
	Month     string `json:"month,omitempty"` // "2019-05"
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// LoadRun records one ingestion of a source file into the database.
type LoadRun struct {
	ID       string    `json:"id"`
	Source   string    `json:"source"`
	Records  int       `json:"records"`
	LoadedAt time.Time `json:"loaded_at"`
}

// ProposalRow is a stored correction proposal joined with the record it
// targets.
type ProposalRow struct {
	model.Proposal
	Date      string `json:"date"`
	VehicleID string `json:"vehicle_id"`
}

// Store defines the persistence interface for driving logs and proposals.
type Store interface {
	// Logs
	InsertRecords(ctx context.Context, runID string, records []model.Record) (int, error)
	ListRecords(ctx context.Context, filter LogFilter) ([]model.Record, error)

	// Proposals
	InsertProposals(ctx context.Context, runID string, rows []ProposalRow) (int, error)
	ListProposals(ctx context.Context, filter LogFilter) ([]ProposalRow, error)

	// Load runs
	CreateLoadRun(ctx context.Context, source string) (*LoadRun, error)
	FinishLoadRun(ctx context.Context, runID string, records int) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
