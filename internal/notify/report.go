package notify

import (
	"context"

	"github.com/conneroisu/assetforge/internal/logging"
)

// Report hands err to the notifier and the logger and lets the calling task
// end normally. It replaces the stream-bound error callback: everything it
// needs is passed explicitly.
func Report(ctx context.Context, err error, notifier Notifier, logger logging.Logger) {
	if err == nil {
		return
	}
	if notifier != nil {
		notifier.Notify(ctx, err)
	}
	if logger != nil {
		logger.Warn(ctx, err, "compile error reported, task continues")
	}
}
