package factory

import (
	"fmt"

	"github.com/mikey/llm-mail-agent/internal/adapters/bedrock"
	"github.com/mikey/llm-mail-agent/internal/adapters/gemini"
	"github.com/mikey/llm-mail-agent/internal/adapters/openai"
	"github.com/mikey/llm-mail-agent/internal/config"
	"github.com/mikey/llm-mail-agent/internal/core"
	"go.uber.org/zap"
)

// LLMFactory creates text generation clients
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTextGenerator creates a new text generation client based on the configuration
func (f *LLMFactory) CreateTextGenerator() (core.TextGenerator, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "bedrock":
		factory := bedrock.NewFactory(f.cfg, f.logger)
		return factory.CreateClient()
	case "gemini":
		factory := gemini.NewFactory(f.cfg, f.logger)
		return factory.CreateClient()
	case "openai":
		factory := openai.NewFactory(f.cfg, f.logger)
		return factory.CreateClient()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}

// CreateEmbedder derives an embedder from the text generation client.
// Every provider client implements both concerns, so the embedder is
// the same client when an embedding model is configured and nil
// otherwise; stores fall back to recency ordering without one.
func (f *LLMFactory) CreateEmbedder(textgen core.TextGenerator) core.Embedder {
	if !f.embeddingConfigured() {
		f.logger.Info("No embedding model configured, context retrieval will use recency ordering")
		return nil
	}
	if embedder, ok := textgen.(core.Embedder); ok {
		return embedder
	}
	return nil
}

func (f *LLMFactory) embeddingConfigured() bool {
	switch f.cfg.GetLLM().Provider {
	case "bedrock":
		return f.cfg.GetBedrock().EmbeddingModelID != ""
	case "gemini":
		return f.cfg.GetGemini().EmbeddingModel != ""
	case "openai":
		return f.cfg.GetOpenAI().EmbeddingModel != ""
	}
	return false
}
