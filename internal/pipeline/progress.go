package pipeline

import "go.uber.org/zap"

// Reporter receives run progress. The pipeline calls it from multiple
// goroutines, so implementations must be safe for concurrent use.
type Reporter interface {
	RunStarted(totalBatches, totalSuspects int)
	BatchDone(month string, batchIndex, proposals int)
	BatchFailed(month string, batchIndex int, err error)
	RunFinished(totalProposals int)
}

type zapReporter struct{}

// NewZapReporter reports progress through the global logger.
func NewZapReporter() Reporter { return zapReporter{} }

func (zapReporter) RunStarted(totalBatches, totalSuspects int) {
	zap.L().Info("correction run started",
		zap.Int("batches", totalBatches),
		zap.Int("suspects", totalSuspects))
}

func (zapReporter) BatchDone(month string, batchIndex, proposals int) {
	zap.L().Info("batch complete",
		zap.String("month", month),
		zap.Int("batch", batchIndex),
		zap.Int("proposals", proposals))
}

func (zapReporter) BatchFailed(month string, batchIndex int, err error) {
	zap.L().Warn("batch abandoned",
		zap.String("month", month),
		zap.Int("batch", batchIndex),
		zap.Error(err))
}

func (zapReporter) RunFinished(totalProposals int) {
	zap.L().Info("correction run finished", zap.Int("proposals", totalProposals))
}

type nopReporter struct{}

// NopReporter discards all progress events.
func NopReporter() Reporter { return nopReporter{} }

func (nopReporter) RunStarted(int, int)            {}
func (nopReporter) BatchDone(string, int, int)     {}
func (nopReporter) BatchFailed(string, int, error) {}
func (nopReporter) RunFinished(int)                {}
