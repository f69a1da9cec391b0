package reminders

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ledgerkeep/billing-console/pkg/logger"
)

// Worker drains due reminders from the queue on a fixed interval
type Worker struct {
	queue    *Queue
	interval time.Duration
	done     chan struct{}
}

// NewWorker creates a reminder worker
func NewWorker(queue *Queue, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Worker{
		queue:    queue,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start processes due reminders until ctx is cancelled or Stop is called
func (w *Worker) Start(ctx context.Context) {
	logger.Info("Reminder worker started",
		zap.Duration("interval", w.interval),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Reminder worker stopping: context cancelled")
			return
		case <-w.done:
			logger.Info("Reminder worker stopped")
			return
		case <-ticker.C:
			fired := w.queue.ProcessDue(time.Now().UTC())
			if len(fired) > 0 {
				logger.Info("Processed due reminders", zap.Int("count", len(fired)))
			}
		}
	}
}

// Stop signals the worker loop to exit
func (w *Worker) Stop() {
	close(w.done)
}
