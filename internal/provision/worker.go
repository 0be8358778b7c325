package provision

import (
	"context"
	"errors"
	"time"

	"squadmarket/internal/store"
)

// Worker polls the job queue and drains it on every tick.
type Worker struct {
	svc         *Service
	pollEvery   time.Duration
	maxAttempts int32
}

func NewWorker(svc *Service, pollEvery time.Duration, maxAttempts int32) *Worker {
	return &Worker{
		svc:         svc,
		pollEvery:   pollEvery,
		maxAttempts: maxAttempts,
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()

	w.svc.log.Info("provisioning worker started", "poll_every", w.pollEvery.String())
	for {
		select {
		case <-ctx.Done():
			w.svc.log.Info("provisioning worker shutdown")
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for {
		err := w.svc.ProcessNext(ctx, w.maxAttempts)
		if err == nil {
			continue
		}
		if errors.Is(err, store.ErrNoJob) {
			return
		}
		w.svc.log.Error("queue processing failed", "err", err)
		return
	}
}
