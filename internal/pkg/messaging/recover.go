package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shandysiswandi/bgvotp/internal/pkg/stacktrace"
)

// runHandler calls handler and turns a panic into an error so one bad message
// does not stop the consumer.
func runHandler(ctx context.Context, driver string, handler Handler, msg Message) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "panic", rvr, stacktrace.Attr())
			err = fmt.Errorf("messaging: panic in %s handler: %v", driver, rvr)
		}
	}()

	return handler(ctx, msg)
}
