package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/mikey/llm-mail-agent/internal/core"
	"go.uber.org/zap"
)

// Sender delivers replies through an authenticated SMTP relay. Unlike
// the mailbox senders it cannot thread by provider id, so it relies on
// In-Reply-To and References headers.
type Sender struct {
	host     string
	port     int
	username string
	password string
	from     string
	logger   *zap.Logger
}

// NewSender creates a new SMTP relay sender
func NewSender(host string, port int, username, password, from string, logger *zap.Logger) *Sender {
	return &Sender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		logger:   logger,
	}
}

// DeliverReply sends the reply through the relay and returns the
// generated message id
func (s *Sender) DeliverReply(ctx context.Context, original *core.IncomingMessage, draft *core.DraftReply) (string, error) {
	to := core.SenderAddress(draft.To)
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.domain())
	data := buildMessage(s.from, messageID, original, draft)

	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	// Get hostname for EHLO
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	// Connect to the relay with a timeout
	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to connect to SMTP relay: %w", err)
	}

	// Set a deadline for the connection
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return "", fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := gosmtp.NewClient(conn)
	defer c.Close()

	// Send EHLO
	if err := c.Hello(hostname); err != nil {
		return "", fmt.Errorf("EHLO failed: %w", err)
	}

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return "", fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	if s.username != "" {
		auth := sasl.NewPlainClient("", s.username, s.password)
		if err := c.Auth(auth); err != nil {
			return "", fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	// Set the sender
	if err := c.Mail(s.from, nil); err != nil {
		return "", fmt.Errorf("MAIL FROM failed: %w", err)
	}

	// Set the recipient
	if err := c.Rcpt(to, nil); err != nil {
		return "", fmt.Errorf("RCPT TO failed: %w", err)
	}

	// Send the message data
	wc, err := c.Data()
	if err != nil {
		return "", fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return "", fmt.Errorf("failed to send message data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close data writer: %w", err)
	}

	// Quit the connection
	if err := c.Quit(); err != nil {
		s.logger.Warn("QUIT command failed", zap.Error(err))
	}

	s.logger.Info("Reply relayed over SMTP",
		zap.String("smtp_message_id", messageID),
		zap.String("to", to))
	return messageID, nil
}

// buildMessage builds the RFC 2822 reply with threading headers
func buildMessage(from, messageID string, original *core.IncomingMessage, draft *core.DraftReply) []byte {
	var b strings.Builder

	b.WriteString("From: ")
	b.WriteString(from)
	b.WriteString("\r\n")

	b.WriteString("To: ")
	b.WriteString(draft.To)
	b.WriteString("\r\n")

	b.WriteString("Subject: ")
	b.WriteString(encodeRFC2047(draft.Subject))
	b.WriteString("\r\n")

	b.WriteString("Message-ID: ")
	b.WriteString(messageID)
	b.WriteString("\r\n")

	b.WriteString("Date: ")
	b.WriteString(time.Now().Format(time.RFC1123Z))
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

	return []byte(b.String())
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

func (s *Sender) domain() string {
	if i := strings.LastIndex(s.from, "@"); i >= 0 && i+1 < len(s.from) {
		return s.from[i+1:]
	}
	return "localhost"
}
