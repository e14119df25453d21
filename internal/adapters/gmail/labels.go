package gmail

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	gmail "google.golang.org/api/gmail/v1"
)

// Label applies a named label to the message, creating the label on
// first use
func (c *GmailClient) Label(ctx context.Context, messageID string, tag string) error {
	id, err := c.ensureLabel(ctx, tag)
	if err != nil {
		return err
	}

	_, err = c.svc.Users.Messages.Modify(c.userID, messageID, &gmail.ModifyMessageRequest{
		AddLabelIds: []string{id},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to label message %s with %q: %w", messageID, tag, err)
	}

	c.logger.Debug("Message labeled",
		zap.String("message_id", messageID),
		zap.String("label", tag))
	return nil
}

// ensureLabel resolves a label name to its id, creating the label when
// it does not exist yet
func (c *GmailClient) ensureLabel(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	if id, ok := c.labelIDs[name]; ok {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	resp, err := c.svc.Users.Labels.List(c.userID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to list labels: %w", err)
	}
	for _, l := range resp.Labels {
		if l.Name == name {
			c.rememberLabel(name, l.Id)
			return l.Id, nil
		}
	}

	created, err := c.svc.Users.Labels.Create(c.userID, &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create label %q: %w", name, err)
	}

	c.logger.Info("Created Gmail label", zap.String("label", name))
	c.rememberLabel(name, created.Id)
	return created.Id, nil
}

func (c *GmailClient) rememberLabel(name, id string) {
	c.mu.Lock()
	c.labelIDs[name] = id
	c.mu.Unlock()
}

// managedLabelIDs resolves the ids of the agent's own labels that already
// exist in the mailbox. Threads carrying any of them were handled in an
// earlier run.
func (c *GmailClient) managedLabelIDs(ctx context.Context) (map[string]bool, error) {
	resp, err := c.svc.Users.Labels.List(c.userID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}

	names := make(map[string]bool)
	for _, n := range c.managedLabels.Names() {
		if n != "" {
			names[n] = true
		}
	}

	ids := make(map[string]bool)
	for _, l := range resp.Labels {
		if names[l.Name] {
			ids[l.Id] = true
			c.rememberLabel(l.Name, l.Id)
		}
	}
	return ids, nil
}
