package triggered

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/operion-triggered/pkg/metrics"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

// worker drives one workflow through one cycle.
type worker struct {
	workflow  protocol.Workflow
	name      string
	channelID string
	logger    *slog.Logger
	metrics   metrics.Sink
}

func newWorker(channelID string, workflow protocol.Workflow, logger *slog.Logger, sink metrics.Sink) *worker {
	name := workflow.FriendlyName()

	return &worker{
		workflow:  workflow,
		name:      name,
		channelID: channelID,
		logger:    logger.With("friendly_name", name),
		metrics:   sink,
	}
}

// run starts the workflow and, for polled workflows, performs the single
// scan of this cycle. Failures and panics are logged and reported as false.
func (w *worker) run(ctx context.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.ErrorContext(ctx, "Workflow panicked", "panic", fmt.Sprint(r))
			w.metrics.WorkerFailed(w.channelID, w.name)
			ok = false
		}
	}()

	if err := w.workflow.Start(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to start workflow", "error", err)
		w.metrics.WorkerFailed(w.channelID, w.name)

		return false
	}

	if polled, isPolled := w.workflow.(protocol.PolledWorkflow); isPolled {
		if err := polled.Poll(ctx); err != nil {
			w.logger.ErrorContext(ctx, "Workflow poll failed", "error", err)
			w.metrics.WorkerFailed(w.channelID, w.name)

			return false
		}
	}

	w.logger.DebugContext(ctx, "Worker finished")

	return true
}
