package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hauldata/fleetqa/internal/config"
	"github.com/hauldata/fleetqa/internal/ingest"
	"github.com/hauldata/fleetqa/internal/oracle"
)

// Pipeline wires the stages of a correction run together.
type Pipeline struct {
	oracle   oracle.Oracle
	cfg      config.CleanConfig
	retry    config.RetryConfig
	reporter Reporter
}

func New(o oracle.Oracle, cfg config.CleanConfig, retry config.RetryConfig, rep Reporter) *Pipeline {
	if rep == nil {
		rep = NewZapReporter()
	}
	return &Pipeline{oracle: o, cfg: cfg, retry: retry, reporter: rep}
}

// Run reads the input log, derives references, selects suspects, requests
// corrections in concurrent batches, and writes accepted proposals to
// outPath. Returns the number of proposal rows written. Oracle failures are
// absorbed per batch; only a missing input file, I/O on the artifact, and
// cancellation abort the run.
func (p *Pipeline) Run(ctx context.Context, inPath, outPath string) (int, error) {
	records, err := ingest.ReadRecords(inPath)
	if err != nil {
		return 0, eris.Wrap(err, "pipeline: read input")
	}
	zap.L().Info("input loaded", zap.String("path", inPath), zap.Int("records", len(records)))

	records = BuildReferences(records)
	records = AnnotatePrevOdometer(records)

	groups := NewSelector(p.cfg).Select(records)
	if len(groups) == 0 {
		zap.L().Info("no suspect records found")
	}

	sink, err := NewSink(outPath, records)
	if err != nil {
		return 0, err
	}

	validator := NewValidator(p.cfg)
	requester := NewRequester(p.oracle, validator, p.reporter, p.cfg, p.retry)

	total, runErr := requester.Run(ctx, groups, sink)

	// Always finalize: a partial artifact in stable order beats losing the
	// rows that did land.
	if err := sink.Finalize(); err != nil {
		zap.L().Warn("artifact left unsorted", zap.String("path", outPath), zap.Error(err))
	}

	if runErr != nil {
		return total, eris.Wrap(runErr, "pipeline: correction run")
	}
	return total, nil
}
