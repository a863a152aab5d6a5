// Package oracle abstracts the external text-inference service that proposes
// corrections for suspect telemetry records.
package oracle

import (
	"context"

	"github.com/hauldata/fleetqa/internal/model"
)

// Oracle proposes corrections for one batch of suspect records given the
// owning month's statistics. A nil proposal slice with a nil error means the
// oracle found nothing (unparseable responses degrade silently rather than
// escalate). Errors are returned only for transport
// failures so the caller can decide whether to retry.
type Oracle interface {
	RequestCorrections(ctx context.Context, batch []model.Record, stats model.MonthStats) ([]model.Proposal, error)
}
