package core

import (
	"context"
)

// TextGenerator defines the interface for hosted text-generation services.
// Calls are synchronous and atomic; no streaming contract is required.
type TextGenerator interface {
	// Complete executes a prompt against the model and returns its raw text
	Complete(ctx context.Context, prompt string) (string, error)

	// ModelName returns the identifier of the underlying model
	ModelName() string
}

// Embedder defines the interface for text-embedding services
type Embedder interface {
	// Embed returns the embedding vector for a piece of text
	Embed(ctx context.Context, text string) ([]float32, error)
}

// MailGateway defines the interface for the mailbox provider. Reply
// delivery is a separate concern carried by ReplySender.
type MailGateway interface {
	// ListUnprocessed returns the newest message of each thread the agent
	// has not acted on yet
	ListUnprocessed(ctx context.Context) ([]*IncomingMessage, error)

	// Archive removes the message from the inbox and marks it handled
	Archive(ctx context.Context, messageID string) error

	// Label applies a named label to the message, creating it if needed
	Label(ctx context.Context, messageID string, tag string) error
}

// ReplySender delivers a drafted reply according to the configured
// delivery mode (mailbox draft, direct send, or SMTP relay)
type ReplySender interface {
	// DeliverReply persists or sends the reply and returns a provider id
	DeliverReply(ctx context.Context, original *IncomingMessage, draft *DraftReply) (string, error)
}

// ContextStore defines the interface for retrieval-augmented history
type ContextStore interface {
	// Retrieve returns stored texts relevant to the key, semantically
	// ranked when an embedder is available, by recency otherwise
	Retrieve(ctx context.Context, key string) ([]string, error)

	// Store persists a text under the key
	Store(ctx context.Context, key string, text string) error

	// RecordRun appends a run to the audit log
	RecordRun(ctx context.Context, rec *RunRecord) error
}

// TemplateRenderer resolves a prompt template by its stable id and renders
// the inputs into it. Template content is opaque to the pipeline.
type TemplateRenderer interface {
	Render(templateID string, inputs map[string]string) (string, error)
}

// BypassChecker decides whether a sender is handled without model calls
type BypassChecker interface {
	ShouldBypass(address string) bool
}
