package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-mail-agent/internal/adapters/gmail"
	"github.com/mikey/llm-mail-agent/internal/bypass"
	"github.com/mikey/llm-mail-agent/internal/config"
	"github.com/mikey/llm-mail-agent/internal/core"
	"github.com/mikey/llm-mail-agent/internal/factory"
	"github.com/mikey/llm-mail-agent/internal/logging"
	"github.com/mikey/llm-mail-agent/internal/ports"
	"github.com/mikey/llm-mail-agent/internal/prompts"
	"github.com/mikey/llm-mail-agent/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewSenderFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewRunnerFactory); err != nil {
		return nil, err
	}

	// Register text generation client
	if err := container.Provide(func(f *factory.LLMFactory) (core.TextGenerator, error) {
		return f.CreateTextGenerator()
	}); err != nil {
		return nil, err
	}

	// Register embedder
	if err := container.Provide(func(f *factory.LLMFactory, textgen core.TextGenerator) core.Embedder {
		return f.CreateEmbedder(textgen)
	}); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register prompt templates
	if err := container.Provide(func() core.TemplateRenderer {
		return prompts.NewRegistry()
	}); err != nil {
		return nil, err
	}

	// Register Gmail client
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (*gmail.GmailClient, error) {
		f := gmail.NewFactory(cfg, logger)
		return f.CreateClient(context.Background())
	}); err != nil {
		return nil, err
	}

	// Register mail gateway
	if err := container.Provide(func(client *gmail.GmailClient) core.MailGateway {
		return client
	}); err != nil {
		return nil, err
	}

	// Register reply sender
	if err := container.Provide(func(f *factory.SenderFactory) (core.ReplySender, error) {
		return f.CreateReplySender()
	}); err != nil {
		return nil, err
	}

	// Register context store
	if err := container.Provide(func(f *factory.StoreFactory) (core.ContextStore, error) {
		return f.CreateContextStore()
	}); err != nil {
		return nil, err
	}

	// Register bypass checker
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.BypassChecker {
		return bypass.NewChecker(cfg.GetStringSlice("pipeline.bypass_senders"), logger)
	}); err != nil {
		return nil, err
	}

	// Register pipeline service
	if err := container.Provide(func(
		textgen core.TextGenerator,
		templates core.TemplateRenderer,
		gateway core.MailGateway,
		ctxStore core.ContextStore,
		sender core.ReplySender,
		bypassChecker core.BypassChecker,
		textProcessor *utils.TextProcessor,
		logger *zap.Logger,
		cfg *config.Config,
	) *core.PipelineService {
		labels := cfg.GetLabels()
		return core.NewPipelineService(
			textgen,
			templates,
			gateway,
			ctxStore,
			sender,
			bypassChecker,
			textProcessor,
			logger,
			core.LabelSet{
				Archive:         labels.Archive,
				NoResponse:      labels.NoResponse,
				Decline:         labels.Decline,
				ScheduleMeeting: labels.ScheduleMeeting,
				ResponseNeeded:  labels.ResponseNeeded,
				Draft:           labels.Draft,
			},
			cfg.GetString("pipeline.signature"),
			cfg.GetInt("pipeline.max_content_size"),
			cfg.GetInt("pipeline.max_concurrent"),
		)
	}); err != nil {
		return nil, err
	}

	// Register agent runner
	if err := container.Provide(func(f *factory.RunnerFactory) (ports.AgentRunner, error) {
		return f.CreateAgentRunner()
	}); err != nil {
		return nil, err
	}

	return container, nil
}
