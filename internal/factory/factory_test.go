package factory

import (
	"path/filepath"
	"testing"

	"github.com/mikey/llm-mail-agent/internal/adapters/gmail"
	"github.com/mikey/llm-mail-agent/internal/adapters/runner"
	"github.com/mikey/llm-mail-agent/internal/adapters/smtp"
	"github.com/mikey/llm-mail-agent/internal/adapters/store"
	"github.com/mikey/llm-mail-agent/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T, overrides map[string]any) *config.Config {
	t.Helper()
	v := config.NewEmptyViper()
	for key, value := range overrides {
		v.Set(key, value)
	}
	return config.NewFromViper(v)
}

func TestCreateTextGenerator(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
		errPart   string
	}{
		{
			name:      "openai with key",
			overrides: map[string]any{"openai.api_key": "sk-test"},
		},
		{
			name:    "openai without key",
			errPart: "api key is not configured",
		},
		{
			name:      "gemini without key",
			overrides: map[string]any{"llm.provider": "gemini"},
			errPart:   "api key is not configured",
		},
		{
			name:      "unsupported provider",
			overrides: map[string]any{"llm.provider": "llama"},
			errPart:   "unsupported LLM provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewLLMFactory(testConfig(t, tt.overrides), zap.NewNop())
			textgen, err := f.CreateTextGenerator()
			if tt.errPart != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errPart)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, textgen)
		})
	}
}

func TestCreateEmbedder(t *testing.T) {
	cfg := testConfig(t, map[string]any{"openai.api_key": "sk-test"})
	f := NewLLMFactory(cfg, zap.NewNop())
	textgen, err := f.CreateTextGenerator()
	require.NoError(t, err)

	// The default configuration names an embedding model, so the client
	// doubles as the embedder
	embedder := f.CreateEmbedder(textgen)
	assert.Same(t, textgen, embedder)
}

func TestCreateEmbedderWithoutModel(t *testing.T) {
	cfg := testConfig(t, map[string]any{
		"openai.api_key":         "sk-test",
		"openai.embedding_model": "",
	})
	f := NewLLMFactory(cfg, zap.NewNop())
	textgen, err := f.CreateTextGenerator()
	require.NoError(t, err)

	assert.Nil(t, f.CreateEmbedder(textgen))
}

func TestCreateContextStore(t *testing.T) {
	f := NewStoreFactory(testConfig(t, nil), zap.NewNop(), nil)

	s, err := f.CreateContextStore()
	require.NoError(t, err)
	memStore, ok := s.(*store.MemoryStore)
	require.True(t, ok)
	memStore.Stop()
}

func TestCreateContextStoreSQLite(t *testing.T) {
	cfg := testConfig(t, map[string]any{
		"store.type":        "sqlite",
		"store.sqlite_path": filepath.Join(t.TempDir(), "nested", "context.db"),
	})
	f := NewStoreFactory(cfg, zap.NewNop(), nil)

	s, err := f.CreateContextStore()
	require.NoError(t, err)
	sqliteStore, ok := s.(*store.SQLiteStore)
	require.True(t, ok)
	sqliteStore.Stop()
}

func TestCreateContextStoreErrors(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
		errPart   string
	}{
		{
			name:      "invalid retention",
			overrides: map[string]any{"store.retention": "forever"},
			errPart:   "invalid store retention",
		},
		{
			name:      "unsupported type",
			overrides: map[string]any{"store.type": "redis"},
			errPart:   "unsupported store type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewStoreFactory(testConfig(t, tt.overrides), zap.NewNop(), nil)
			_, err := f.CreateContextStore()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestCreateReplySender(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		wantType any
		errPart  string
	}{
		{
			name:     "draft mode",
			mode:     "draft",
			wantType: &gmail.DraftSender{},
		},
		{
			name:     "send mode",
			mode:     "send",
			wantType: &gmail.DirectSender{},
		},
		{
			name:     "smtp mode",
			mode:     "smtp",
			wantType: &smtp.Sender{},
		},
		{
			name:    "unsupported mode",
			mode:    "carrier-pigeon",
			errPart: "unsupported delivery mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, map[string]any{"delivery.mode": tt.mode})
			f := NewSenderFactory(cfg, zap.NewNop(), nil)
			sender, err := f.CreateReplySender()
			if tt.errPart != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errPart)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, sender)
		})
	}
}

func TestCreateAgentRunner(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
		wantType  any
		errPart   string
	}{
		{
			name:     "poll mode by default",
			wantType: &runner.PollRunner{},
		},
		{
			name:      "once mode",
			overrides: map[string]any{"server.mode": "once"},
			wantType:  &runner.OnceRunner{},
		},
		{
			name:      "cli mode",
			overrides: map[string]any{"server.mode": "cli"},
			wantType:  &runner.CliRunner{},
		},
		{
			name:      "invalid poll interval",
			overrides: map[string]any{"server.poll_interval": "often"},
			errPart:   "invalid poll interval",
		},
		{
			name:      "unsupported mode",
			overrides: map[string]any{"server.mode": "cron"},
			errPart:   "unsupported server mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewRunnerFactory(testConfig(t, tt.overrides), zap.NewNop(), nil)
			agentRunner, err := f.CreateAgentRunner()
			if tt.errPart != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errPart)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, agentRunner)
		})
	}
}
