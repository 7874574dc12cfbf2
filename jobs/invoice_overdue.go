package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/opticlinic/opticlinic/internal/jobs"
)

// OverdueMarker moves past-due sent invoices to overdue.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context) (int64, error)
}

// InvoiceOverdueJob runs the daily overdue sweep.
type InvoiceOverdueJob struct {
	Marker  OverdueMarker
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

func NewInvoiceOverdueJob(marker OverdueMarker, logger *slog.Logger, metrics *jobmetrics.Metrics) *InvoiceOverdueJob {
	return &InvoiceOverdueJob{Marker: marker, Logger: logger, Metrics: metrics}
}

func (j *InvoiceOverdueJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Marker == nil {
		return errors.New("invoice overdue: handler not configured")
	}
	tracker := j.Metrics.Track(TaskInvoicesMarkOverdue)
	defer func() { err = tracker.End(err) }()

	n, err := j.Marker.MarkOverdue(ctx)
	if err != nil {
		loggerOr(j.Logger).Error("overdue sweep failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddOverdue(int(n))
	loggerOr(j.Logger).Info("overdue sweep completed", slog.Int64("invoices", n))
	return nil
}
