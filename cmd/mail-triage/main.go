package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"

	"github.com/mikey/llm-mail-agent/internal/adapters/runner"
	"github.com/mikey/llm-mail-agent/internal/core"
	"github.com/mikey/llm-mail-agent/internal/di"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	// Build the dependency injection container
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the triage
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run reads one email, runs the pipeline against it and prints the result
func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	cliRunner *runner.CliRunner,
	textgen core.TextGenerator,
) error {
	defer logger.Sync()

	// Edit-analysis mode compares a drafted reply with its edited form
	if flags.DraftFile != "" || flags.EditedFile != "" {
		if flags.DraftFile == "" || flags.EditedFile == "" {
			logger.Fatal("Edit analysis needs both -draft and -edited")
		}
		draftBody, err := os.ReadFile(flags.DraftFile)
		if err != nil {
			logger.Fatal("Failed to read draft file", zap.Error(err), zap.String("file", flags.DraftFile))
		}
		editedBody, err := os.ReadFile(flags.EditedFile)
		if err != nil {
			logger.Fatal("Failed to read edited file", zap.Error(err), zap.String("file", flags.EditedFile))
		}
		if _, err := cliRunner.AnalyzeEdits(context.Background(), string(draftBody), string(editedBody)); err != nil {
			logger.Fatal("Failed to analyze edits", zap.Error(err))
		}
		closeClient(logger, textgen)
		return nil
	}

	// Read email from file or stdin
	var emailReader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", flags.InputFile))
		}
		defer file.Close()
		emailReader = file
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	// Parse email
	msg, err := mail.ReadMessage(bufio.NewReader(emailReader))
	if err != nil {
		logger.Fatal("Failed to parse email", zap.Error(err))
	}

	from := msg.Header.Get("From")
	to := msg.Header.Get("To")
	subject := msg.Header.Get("Subject")
	date := msg.Header.Get("Date")

	// Read body
	bodyBytes, err := io.ReadAll(msg.Body)
	if err != nil {
		logger.Fatal("Failed to read email body", zap.Error(err))
	}

	// Create the message
	incoming := &core.IncomingMessage{
		ID:      localMessageID(msg),
		From:    from,
		To:      splitRecipients(to),
		Subject: subject,
		Date:    date,
		Body:    string(bodyBytes),
		Headers: make(map[string][]string),
	}

	// Copy headers
	for k, v := range msg.Header {
		incoming.Headers[strings.ToLower(k)] = v
	}

	if _, err := cliRunner.ProcessMessage(context.Background(), incoming); err != nil {
		logger.Fatal("Failed to process message", zap.Error(err))
	}

	closeClient(logger, textgen)
	return nil
}

// closeClient closes the LLM client when it holds a connection
func closeClient(logger *zap.Logger, textgen core.TextGenerator) {
	if closer, ok := textgen.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}
}

// localMessageID picks an identifier for a message supplied outside any mailbox
func localMessageID(msg *mail.Message) string {
	if id := msg.Header.Get("Message-Id"); id != "" {
		return strings.Trim(id, "<>")
	}
	return "local"
}

// splitRecipients splits a To header into individual addresses
func splitRecipients(to string) []string {
	parts := strings.Split(to, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
