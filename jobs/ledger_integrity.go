package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/opticlinic/opticlinic/internal/accounting"
	jobmetrics "github.com/opticlinic/opticlinic/internal/jobs"
)

// IntegrityChecker reports ledger transactions whose lines do not balance.
type IntegrityChecker interface {
	CheckIntegrity(ctx context.Context) ([]accounting.Imbalance, error)
}

// LedgerIntegrityJob verifies that every ledger transaction balances.
type LedgerIntegrityJob struct {
	Checker IntegrityChecker
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

func NewLedgerIntegrityJob(checker IntegrityChecker, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{Checker: checker, Logger: logger, Metrics: metrics}
}

// Handle fails the task when any imbalance is found so it surfaces in the
// failure counter and the asynq retry queue.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Checker == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	tracker := j.Metrics.Track(TaskLedgerIntegrity)
	defer func() { err = tracker.End(err) }()

	start := time.Now()
	logger := loggerOr(j.Logger).With(slog.String("job", TaskLedgerIntegrity))
	imbalances, err := j.Checker.CheckIntegrity(ctx)
	if err != nil {
		logger.Error("integrity check failed", slog.Any("error", err))
		return err
	}
	for _, im := range imbalances {
		logger.Warn("unbalanced ledger transaction",
			slog.String("transaction_id", im.TransactionID.String()),
			slog.String("debit", im.Debit.StringFixed(2)),
			slog.String("credit", im.Credit.StringFixed(2)),
		)
	}
	j.Metrics.AddImbalances(len(imbalances))
	logger.Info("integrity check completed",
		slog.Int("imbalances", len(imbalances)),
		slog.Duration("duration", time.Since(start)))
	if len(imbalances) > 0 {
		return fmt.Errorf("ledger integrity: %d unbalanced transactions", len(imbalances))
	}
	return nil
}

func loggerOr(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
