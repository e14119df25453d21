package factory

import (
	"fmt"

	"github.com/mikey/llm-mail-agent/internal/adapters/gmail"
	"github.com/mikey/llm-mail-agent/internal/adapters/smtp"
	"github.com/mikey/llm-mail-agent/internal/config"
	"github.com/mikey/llm-mail-agent/internal/core"
	"go.uber.org/zap"
)

// SenderFactory creates reply senders based on configuration
type SenderFactory struct {
	cfg    *config.Config
	logger *zap.Logger
	client *gmail.GmailClient
}

// NewSenderFactory creates a new sender factory
func NewSenderFactory(cfg *config.Config, logger *zap.Logger, client *gmail.GmailClient) *SenderFactory {
	return &SenderFactory{
		cfg:    cfg,
		logger: logger,
		client: client,
	}
}

// CreateReplySender creates a reply sender based on the configuration
func (f *SenderFactory) CreateReplySender() (core.ReplySender, error) {
	mode := f.cfg.GetString("delivery.mode")

	switch mode {
	case "draft":
		return gmail.NewDraftSender(f.client, f.logger), nil
	case "send":
		return gmail.NewDirectSender(f.client, f.logger), nil
	case "smtp":
		smtpCfg := f.cfg.GetSMTP()
		return smtp.NewSender(
			smtpCfg.Host,
			smtpCfg.Port,
			smtpCfg.Username,
			smtpCfg.Password,
			smtpCfg.From,
			f.logger,
		), nil
	default:
		return nil, fmt.Errorf("unsupported delivery mode: %s", mode)
	}
}
