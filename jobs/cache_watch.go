package jobs

import (
	"context"
	"fmt"
	"log/slog"

	jobmetrics "github.com/opticlinic/opticlinic/internal/jobs"
)

// VersionSource streams cache versions as writers bump them.
type VersionSource interface {
	Subscribe(ctx context.Context) (<-chan int64, error)
}

// WatchCacheVersions follows the payments cache bump channel until ctx ends,
// exporting each version so stale API replicas show up as a gauge mismatch.
func WatchCacheVersions(ctx context.Context, src VersionSource, logger *slog.Logger, metrics *jobmetrics.Metrics) error {
	if src == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	versions, err := src.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("jobs: subscribe cache versions: %w", err)
	}
	for ver := range versions {
		metrics.SetCacheVersion(ver)
		logger.Debug("payments cache bumped", slog.Int64("version", ver))
	}
	return ctx.Err()
}
