package monitor

import (
	"context"
	"log/slog"
	"time"
)

// Track logs the start of a scoped operation and returns a function that
// logs its end with the elapsed time. Pass the named error return so that
// failures are logged at error level:
//
//	defer monitor.Track(ctx, "AgentEngine.Run")(&err)
func Track(ctx context.Context, name string) func(*error) {
	start := time.Now()
	slog.DebugContext(ctx, "Started", "op", name)

	return func(errp *error) {
		elapsed := time.Since(start)
		if errp != nil && *errp != nil {
			slog.ErrorContext(ctx, "Failed", "op", name, "duration", elapsed, "error", *errp)
			return
		}
		slog.InfoContext(ctx, "Finished", "op", name, "duration", elapsed)
	}
}
