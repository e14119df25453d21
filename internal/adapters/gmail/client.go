package gmail

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mikey/llm-mail-agent/internal/core"
	"go.uber.org/zap"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// System label ids used when scanning and mutating threads
const (
	labelInbox     = "INBOX"
	labelUnread    = "UNREAD"
	labelImportant = "IMPORTANT"
	labelSnoozed   = "SNOOZED"
	labelDraft     = "DRAFT"
)

// labelCombos are scanned in priority order when listing unprocessed
// threads: urgent unread mail first, then the general inbox
var labelCombos = [][]string{
	{labelUnread, labelImportant},
	{labelUnread, labelInbox},
	{labelImportant},
	{labelInbox},
}

// GmailClient implements the mailbox gateway on the Gmail API
type GmailClient struct {
	svc                  *gmail.Service
	userID               string
	selfAddress          string
	maxThreads           int
	maxMessagesPerThread int
	managedLabels        core.LabelSet
	logger               *zap.Logger

	mu       sync.Mutex
	labelIDs map[string]string
}

// NewGmailClient creates an authenticated Gmail client
func NewGmailClient(
	ctx context.Context,
	credentialsFile string,
	tokenFile string,
	maxThreads int,
	maxMessagesPerThread int,
	managedLabels core.LabelSet,
	logger *zap.Logger,
) (*GmailClient, error) {
	httpClient, err := newHTTPClient(ctx, credentialsFile, tokenFile)
	if err != nil {
		return nil, err
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	c := &GmailClient{
		svc:                  svc,
		userID:               "me",
		maxThreads:           maxThreads,
		maxMessagesPerThread: maxMessagesPerThread,
		managedLabels:        managedLabels,
		logger:               logger,
		labelIDs:             make(map[string]string),
	}

	profile, err := svc.Users.GetProfile(c.userID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to load Gmail profile: %w", err)
	}
	c.selfAddress = strings.ToLower(profile.EmailAddress)

	logger.Info("Gmail client ready", zap.String("account", c.selfAddress))
	return c, nil
}

// Archive removes the message from the inbox, clears its unread flag and
// applies the archive label
func (c *GmailClient) Archive(ctx context.Context, messageID string) error {
	req := &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{labelInbox, labelUnread},
	}
	if c.managedLabels.Archive != "" {
		id, err := c.ensureLabel(ctx, c.managedLabels.Archive)
		if err != nil {
			return err
		}
		req.AddLabelIds = []string{id}
	}

	_, err := c.svc.Users.Messages.Modify(c.userID, messageID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to archive message %s: %w", messageID, err)
	}

	c.logger.Debug("Message archived", zap.String("message_id", messageID))
	return nil
}
