package runner

import (
	"context"

	"github.com/mikey/llm-mail-agent/internal/core"
	"go.uber.org/zap"
)

// OnceRunner performs a single mailbox sweep and returns, for cron-style
// deployments
type OnceRunner struct {
	service *core.PipelineService
	logger  *zap.Logger
}

// NewOnceRunner creates a new single-sweep runner
func NewOnceRunner(service *core.PipelineService, logger *zap.Logger) *OnceRunner {
	return &OnceRunner{
		service: service,
		logger:  logger,
	}
}

// Start runs one sweep synchronously
func (r *OnceRunner) Start() error {
	results, err := r.service.ProcessUnprocessed(context.Background())
	if err != nil {
		return err
	}

	for _, res := range results {
		r.logger.Info("Message processed",
			zap.String("message_id", res.MessageID),
			zap.String("outcome", string(res.Outcome)))
	}
	r.logger.Info("Single sweep finished", zap.Int("processed", len(results)))
	return nil
}

// Stop is a no-op for the single-sweep runner
func (r *OnceRunner) Stop() error {
	return nil
}
