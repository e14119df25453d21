package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"github.com/mikey/llm-mail-agent/internal/core"
	"go.uber.org/zap"
	gmail "google.golang.org/api/gmail/v1"
)

// buildReplyRaw builds the RFC 2822 reply message and encodes it for the
// Gmail API. Threading headers come from the original message so mail
// clients keep the conversation together.
func buildReplyRaw(original *core.IncomingMessage, draft *core.DraftReply) string {
	var b strings.Builder

	b.WriteString("To: ")
	b.WriteString(draft.To)
	b.WriteString("\r\n")

	b.WriteString("Subject: ")
	b.WriteString(encodeRFC2047(draft.Subject))
	b.WriteString("\r\n")

	if original != nil {
		if id := firstHeader(original, "message-id"); id != "" {
			b.WriteString("In-Reply-To: ")
			b.WriteString(id)
			b.WriteString("\r\n")

			references := firstHeader(original, "references")
			if references != "" {
				references = references + " " + id
			} else {
				references = id
			}
			b.WriteString("References: ")
			b.WriteString(references)
			b.WriteString("\r\n")
		}
	}

	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("\r\n")
	b.WriteString(draft.Body)

	return base64.URLEncoding.EncodeToString([]byte(b.String()))
}

// encodeRFC2047 encodes a header value when it carries non-ASCII
// characters
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}

func firstHeader(m *core.IncomingMessage, name string) string {
	if vs := m.Headers[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// CreateDraft stores the reply as a Gmail draft on the original thread
// and returns the draft id
func (c *GmailClient) CreateDraft(ctx context.Context, original *core.IncomingMessage, draft *core.DraftReply) (string, error) {
	created, err := c.svc.Users.Drafts.Create(c.userID, &gmail.Draft{
		Message: &gmail.Message{
			Raw:      buildReplyRaw(original, draft),
			ThreadId: draft.ThreadID,
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create draft: %w", err)
	}
	return created.Id, nil
}

// SendReply sends the reply immediately on the original thread and
// returns the sent message id
func (c *GmailClient) SendReply(ctx context.Context, original *core.IncomingMessage, draft *core.DraftReply) (string, error) {
	sent, err := c.svc.Users.Messages.Send(c.userID, &gmail.Message{
		Raw:      buildReplyRaw(original, draft),
		ThreadId: draft.ThreadID,
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to send reply: %w", err)
	}
	return sent.Id, nil
}

// DraftSender delivers replies as mailbox drafts for human review
type DraftSender struct {
	client *GmailClient
	logger *zap.Logger
}

// NewDraftSender creates a reply sender that leaves drafts in the mailbox
func NewDraftSender(client *GmailClient, logger *zap.Logger) *DraftSender {
	return &DraftSender{
		client: client,
		logger: logger,
	}
}

// DeliverReply stores the reply as a draft
func (s *DraftSender) DeliverReply(ctx context.Context, original *core.IncomingMessage, draft *core.DraftReply) (string, error) {
	id, err := s.client.CreateDraft(ctx, original, draft)
	if err != nil {
		return "", err
	}

	s.logger.Info("Draft created",
		zap.String("draft_id", id),
		zap.String("thread_id", draft.ThreadID))
	return id, nil
}

// DirectSender sends replies immediately without review
type DirectSender struct {
	client *GmailClient
	logger *zap.Logger
}

// NewDirectSender creates a reply sender that sends replies right away
func NewDirectSender(client *GmailClient, logger *zap.Logger) *DirectSender {
	return &DirectSender{
		client: client,
		logger: logger,
	}
}

// DeliverReply sends the reply on the original thread
func (s *DirectSender) DeliverReply(ctx context.Context, original *core.IncomingMessage, draft *core.DraftReply) (string, error) {
	id, err := s.client.SendReply(ctx, original, draft)
	if err != nil {
		return "", err
	}

	s.logger.Info("Reply sent",
		zap.String("message_id", id),
		zap.String("thread_id", draft.ThreadID))
	return id, nil
}
