package factory

import (
	"fmt"

	"github.com/mikey/llm-mail-agent/internal/adapters/runner"
	"github.com/mikey/llm-mail-agent/internal/config"
	"github.com/mikey/llm-mail-agent/internal/core"
	"github.com/mikey/llm-mail-agent/internal/ports"
	"go.uber.org/zap"
)

// RunnerFactory creates agent runners based on configuration
type RunnerFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.PipelineService
}

// NewRunnerFactory creates a new runner factory
func NewRunnerFactory(cfg *config.Config, logger *zap.Logger, service *core.PipelineService) *RunnerFactory {
	return &RunnerFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateAgentRunner creates an agent runner based on the configuration
func (f *RunnerFactory) CreateAgentRunner() (ports.AgentRunner, error) {
	mode := f.cfg.GetString("server.mode")

	switch mode {
	case "poll":
		interval, err := f.cfg.GetDuration("server.poll_interval")
		if err != nil {
			return nil, fmt.Errorf("invalid poll interval: %w", err)
		}
		return runner.NewPollRunner(f.service, interval, f.logger), nil
	case "once":
		return runner.NewOnceRunner(f.service, f.logger), nil
	case "cli":
		return runner.NewCliRunner(
			f.service,
			f.logger,
			f.cfg.GetBool("cli.verbose"),
		)
	default:
		return nil, fmt.Errorf("unsupported server mode: %s", mode)
	}
}
