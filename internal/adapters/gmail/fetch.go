package gmail

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikey/llm-mail-agent/internal/core"
	"go.uber.org/zap"
	gmail "google.golang.org/api/gmail/v1"
)

// ListUnprocessed scans the priority label combinations and returns the
// newest message of each thread the agent has not acted on yet
func (c *GmailClient) ListUnprocessed(ctx context.Context) ([]*core.IncomingMessage, error) {
	handled, err := c.managedLabelIDs(ctx)
	if err != nil {
		return nil, err
	}

	var out []*core.IncomingMessage
	seen := make(map[string]bool)

	for _, combo := range labelCombos {
		if len(out) >= c.maxThreads {
			break
		}

		resp, err := c.svc.Users.Threads.List(c.userID).
			LabelIds(combo...).
			MaxResults(int64(c.maxThreads)).
			Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list threads for labels %v: %w", combo, err)
		}

		for _, t := range resp.Threads {
			if len(out) >= c.maxThreads {
				break
			}
			if seen[t.Id] {
				continue
			}
			seen[t.Id] = true

			msg, err := c.newestThreadMessage(ctx, t.Id, handled)
			if err != nil {
				return nil, err
			}
			if msg != nil {
				out = append(out, msg)
			}
		}
	}

	c.logger.Info("Listed unprocessed threads",
		zap.Int("scanned", len(seen)),
		zap.Int("unprocessed", len(out)))
	return out, nil
}

// newestThreadMessage fetches a thread and returns its newest inbound
// message, or nil when the thread needs no attention: already labeled by
// the agent, snoozed, or waiting on the other side
func (c *GmailClient) newestThreadMessage(ctx context.Context, threadID string, handled map[string]bool) (*core.IncomingMessage, error) {
	thread, err := c.svc.Users.Threads.Get(c.userID, threadID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get thread %s: %w", threadID, err)
	}

	msgs := thread.Messages
	inspected := 0
	for i := len(msgs) - 1; i >= 0 && inspected < c.maxMessagesPerThread; i-- {
		m := msgs[i]
		inspected++
		// Our own unsent drafts sit on top of the thread; look past them
		if containsLabel(m.LabelIds, labelDraft) {
			continue
		}

		for _, id := range m.LabelIds {
			if handled[id] {
				c.logger.Debug("Skipping thread already handled", zap.String("thread_id", threadID))
				return nil, nil
			}
		}
		if containsLabel(m.LabelIds, labelSnoozed) {
			c.logger.Debug("Skipping snoozed thread", zap.String("thread_id", threadID))
			return nil, nil
		}

		parsed := parseMessage(m)
		parsed.Order = inspected
		if core.SenderAddress(parsed.From) == c.selfAddress {
			// The last word in this thread is ours
			return nil, nil
		}
		return parsed, nil
	}

	return nil, nil
}

// parseMessage converts a Gmail message into the pipeline's message type
func parseMessage(msg *gmail.Message) *core.IncomingMessage {
	m := &core.IncomingMessage{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		LabelIDs: msg.LabelIds,
		Headers:  make(map[string][]string),
	}

	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			switch strings.ToLower(header.Name) {
			case "subject":
				m.Subject = header.Value
			case "from":
				m.From = header.Value
			case "to":
				m.To = splitAddresses(header.Value)
			case "date":
				m.Date = normalizeDate(header.Value)
			default:
				if isUsefulHeader(header.Name) {
					key := strings.ToLower(header.Name)
					m.Headers[key] = append(m.Headers[key], header.Value)
				}
			}
		}
		m.Body = extractBody(msg.Payload)
	}

	// Fall back to the internal timestamp when the Date header is missing
	if m.Date == "" && msg.InternalDate > 0 {
		m.Date = formatInternalDate(msg.InternalDate)
	}

	return m
}

func splitAddresses(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
