package runner

import (
	"context"
	"time"

	"github.com/mikey/llm-mail-agent/internal/core"
	"go.uber.org/zap"
)

// PollRunner drives the pipeline on a fixed interval
type PollRunner struct {
	service  *core.PipelineService
	logger   *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewPollRunner creates a new polling runner
func NewPollRunner(service *core.PipelineService, interval time.Duration, logger *zap.Logger) *PollRunner {
	return &PollRunner{
		service:  service,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins polling the mailbox. The first sweep runs immediately.
func (r *PollRunner) Start() error {
	r.logger.Info("Poll runner starting", zap.Duration("interval", r.interval))

	go func() {
		defer close(r.doneCh)

		r.sweep()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.sweep()
			case <-r.stopCh:
				return
			}
		}
	}()

	return nil
}

// sweep processes one batch of unprocessed messages
func (r *PollRunner) sweep() {
	results, err := r.service.ProcessUnprocessed(context.Background())
	if err != nil {
		r.logger.Error("Sweep failed", zap.Error(err))
		return
	}
	if len(results) == 0 {
		return
	}

	counts := make(map[core.PipelineOutcome]int)
	for _, res := range results {
		counts[res.Outcome]++
	}

	fields := []zap.Field{zap.Int("processed", len(results))}
	for outcome, n := range counts {
		fields = append(fields, zap.Int(string(outcome), n))
	}
	r.logger.Info("Sweep finished", fields...)
}

// Stop stops the polling loop and waits for it to drain
func (r *PollRunner) Stop() error {
	close(r.stopCh)
	<-r.doneCh
	r.logger.Info("Poll runner stopped")
	return nil
}
