package hen

import (
	"context"
	"time"

	"github.com/jw6ventures/henboard/internal/metrics"
)

func observeBackend(ctx context.Context, operation string) func() {
	start := time.Now()
	return func() {
		metrics.ObserveBackendLatency(ctx, operation, start)
	}
}
