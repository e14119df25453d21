package di

import (
	"flag"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-mail-agent/internal/adapters/runner"
	"github.com/mikey/llm-mail-agent/internal/adapters/store"
	"github.com/mikey/llm-mail-agent/internal/bypass"
	"github.com/mikey/llm-mail-agent/internal/config"
	"github.com/mikey/llm-mail-agent/internal/core"
	"github.com/mikey/llm-mail-agent/internal/factory"
	"github.com/mikey/llm-mail-agent/internal/logging"
	"github.com/mikey/llm-mail-agent/internal/prompts"
	"github.com/mikey/llm-mail-agent/internal/utils"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// LLM provider flags
	Provider       string
	MaxTokens      int
	Temperature    float64
	TopP           float64
	MaxContentSize int

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Gemini flags
	GeminiAPIKey    string
	GeminiModelName string

	// OpenAI flags
	OpenAIAPIKey    string
	OpenAIModelName string

	// Drafting flags
	Signature string

	// Input flags
	InputFile  string
	Verbose    bool
	JSONLog    bool
	ConfigFile string

	// Edit analysis flags
	DraftFile  string
	EditedFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// LLM provider flags
	flag.StringVar(&flags.Provider, "provider", "openai", "LLM provider (bedrock, gemini, openai)")
	flag.IntVar(&flags.MaxTokens, "max-tokens", 1000, "Maximum tokens for LLM response")
	flag.Float64Var(&flags.Temperature, "temperature", 0.1, "Temperature for LLM generation")
	flag.Float64Var(&flags.TopP, "top-p", 0.9, "Top-p for LLM generation")
	flag.IntVar(&flags.MaxContentSize, "max-content-size", 12000, "Maximum email content size to send to the model")

	// Bedrock flags
	flag.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	flag.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	flag.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	flag.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-pro", "Gemini model name")

	// OpenAI flags
	flag.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	flag.StringVar(&flags.OpenAIModelName, "openai-model", "gpt-4", "OpenAI model name")

	// Drafting flags
	flag.StringVar(&flags.Signature, "signature", "Best,\nAndrew", "Signature required in drafted replies")

	// Input flags
	flag.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	// Edit analysis flags
	flag.StringVar(&flags.DraftFile, "draft", "", "Drafted reply file; with -edited, analyze the human edits instead of triaging")
	flag.StringVar(&flags.EditedFile, "edited", "", "Human-edited reply file, used with -draft")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.New()
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// Register LLM factory
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}

	// Register text generation client
	if err := container.Provide(func(f *factory.LLMFactory) (core.TextGenerator, error) {
		return f.CreateTextGenerator()
	}); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register prompt templates
	if err := container.Provide(func() core.TemplateRenderer {
		return prompts.NewRegistry()
	}); err != nil {
		return nil, err
	}

	// Register context store, kept in memory for the lifetime of the run
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (core.ContextStore, error) {
		retention, err := cfg.GetDuration("store.retention")
		if err != nil {
			return nil, err
		}
		// No embedder for one-shot runs, the store starts empty
		return store.NewMemoryStore(nil, cfg.GetInt("store.max_results"), retention, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register pipeline service with no mailbox attached
	if err := container.Provide(func(
		textgen core.TextGenerator,
		templates core.TemplateRenderer,
		ctxStore core.ContextStore,
		textProcessor *utils.TextProcessor,
		logger *zap.Logger,
		cfg *config.Config,
	) *core.PipelineService {
		labels := cfg.GetLabels()
		return core.NewPipelineService(
			textgen,
			templates,
			nil, // No mailbox for CLI
			ctxStore,
			nil, // Drafts are printed, not delivered
			bypass.NewChecker(cfg.GetStringSlice("pipeline.bypass_senders"), logger),
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

	// Register CLI runner
	if err := container.Provide(func(service *core.PipelineService, logger *zap.Logger, flags *CLIFlags) (*runner.CliRunner, error) {
		return runner.NewCliRunner(service, logger, flags.Verbose)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Set some cli specific settings
	v.Set("server.mode", "cli")
	v.Set("cli.verbose", flags.Verbose)
	v.Set("store.type", "memory")

	// Set LLM provider
	v.Set("llm.provider", flags.Provider)

	// Set provider-specific configuration
	switch flags.Provider {
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
		v.Set("bedrock.max_tokens", flags.MaxTokens)
		v.Set("bedrock.temperature", flags.Temperature)
		v.Set("bedrock.top_p", flags.TopP)
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
		v.Set("gemini.model_name", flags.GeminiModelName)
		v.Set("gemini.max_tokens", flags.MaxTokens)
		v.Set("gemini.temperature", flags.Temperature)
		v.Set("gemini.top_p", flags.TopP)
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
		v.Set("openai.model_name", flags.OpenAIModelName)
		v.Set("openai.max_tokens", flags.MaxTokens)
		v.Set("openai.temperature", flags.Temperature)
		v.Set("openai.top_p", flags.TopP)
	}

	// Set drafting configuration
	v.Set("pipeline.signature", flags.Signature)
	v.Set("pipeline.max_content_size", flags.MaxContentSize)

	return config.NewFromViper(v)
}
