package gmail

import (
	"context"

	"github.com/mikey/llm-mail-agent/internal/config"
	"github.com/mikey/llm-mail-agent/internal/core"
	"go.uber.org/zap"
)

// Factory creates new instances of GmailClient
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for GmailClient instances
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClient creates an authenticated GmailClient
func (f *Factory) CreateClient(ctx context.Context) (*GmailClient, error) {
	gmailCfg := f.cfg.GetGmail()
	labelsCfg := f.cfg.GetLabels()

	labels := core.LabelSet{
		Archive:         labelsCfg.Archive,
		NoResponse:      labelsCfg.NoResponse,
		Decline:         labelsCfg.Decline,
		ScheduleMeeting: labelsCfg.ScheduleMeeting,
		ResponseNeeded:  labelsCfg.ResponseNeeded,
		Draft:           labelsCfg.Draft,
	}

	return NewGmailClient(
		ctx,
		gmailCfg.CredentialsFile,
		gmailCfg.TokenFile,
		gmailCfg.MaxThreads,
		gmailCfg.MaxMessagesPerThread,
		labels,
		f.logger,
	)
}
