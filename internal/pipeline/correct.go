package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hauldata/fleetqa/internal/config"
	"github.com/hauldata/fleetqa/internal/model"
	"github.com/hauldata/fleetqa/internal/oracle"
	"github.com/hauldata/fleetqa/internal/resilience"
)

// batch is one unit of work sent to the oracle: a slice of suspect records
// plus the monthly stats they are judged against.
type batch struct {
	month   string
	index   int
	records []model.Record
	stats   model.MonthStats
}

// Requester fans suspect batches out to the oracle with bounded concurrency.
// A batch that exhausts its retries is abandoned, not fatal: the run
// produces whatever the remaining batches yield.
type Requester struct {
	oracle    oracle.Oracle
	validator *Validator
	reporter  Reporter
	cfg       config.CleanConfig
	schedule  resilience.Schedule
}

func NewRequester(o oracle.Oracle, v *Validator, rep Reporter, cfg config.CleanConfig, retry config.RetryConfig) *Requester {
	if rep == nil {
		rep = NopReporter()
	}
	return &Requester{
		oracle:    o,
		validator: v,
		reporter:  rep,
		cfg:       cfg,
		schedule: resilience.Schedule{
			MaxAttempts:    retry.MaxAttempts,
			TransientDelay: time.Duration(retry.TransientDelaySecs) * time.Second,
			RateLimitStep:  time.Duration(retry.RateLimitStepSecs) * time.Second,
		},
	}
}

// Run slices the month groups into batches, dispatches them concurrently,
// and streams accepted proposals into the sink as each batch resolves.
// Returns the total number of rows written. Cancellation of ctx stops
// dispatch and in-flight retries.
func (rq *Requester) Run(ctx context.Context, groups []MonthGroup, sink *Sink) (int, error) {
	batches := rq.slice(groups)

	suspects := 0
	for _, b := range batches {
		suspects += len(b.records)
	}
	rq.reporter.RunStarted(len(batches), suspects)

	limit := rq.cfg.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	written := make([]int, len(batches))
	for i, b := range batches {
		g.Go(func() error {
			n, err := rq.runBatch(ctx, b, sink)
			if err != nil {
				return err
			}
			written[i] = n
			return nil
		})
	}

	err := g.Wait()
	total := 0
	for _, n := range written {
		total += n
	}
	rq.reporter.RunFinished(total)
	return total, err
}

// runBatch drives one batch through retry, validation, and the sink. Oracle
// errors that survive the retry schedule are absorbed here; only context
// cancellation and sink failures propagate.
func (rq *Requester) runBatch(ctx context.Context, b batch, sink *Sink) (int, error) {
	sched := rq.schedule
	sched.OnRetry = resilience.RetryLogger("oracle", "request corrections")

	proposals, err := resilience.DoVal(ctx, sched, func(ctx context.Context) ([]model.Proposal, error) {
		return rq.oracle.RequestCorrections(ctx, b.records, b.stats)
	})
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		rq.reporter.BatchFailed(b.month, b.index, err)
		return 0, nil
	}

	accepted := rq.validator.Filter(proposals)
	n, err := sink.Append(accepted)
	if err != nil {
		return n, err
	}
	rq.reporter.BatchDone(b.month, b.index, n)
	return n, nil
}

// slice cuts each month group into batches of at most BatchSize records.
// Batches never span months so the stats in the prompt always describe the
// records they accompany.
func (rq *Requester) slice(groups []MonthGroup) []batch {
	size := rq.cfg.BatchSize
	if size <= 0 {
		size = 1
	}
	var batches []batch
	for _, g := range groups {
		for i := 0; i < len(g.Suspects); i += size {
			end := i + size
			if end > len(g.Suspects) {
				end = len(g.Suspects)
			}
			batches = append(batches, batch{
				month:   g.Month,
				index:   len(batches),
				records: g.Suspects[i:end],
				stats:   g.Stats,
			})
		}
	}
	return batches
}
