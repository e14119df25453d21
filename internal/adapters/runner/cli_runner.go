package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/llm-mail-agent/internal/core"
	"go.uber.org/zap"
)

// CliRunner processes one locally supplied message and prints the
// outcome to stdout
type CliRunner struct {
	service *core.PipelineService
	logger  *zap.Logger
	verbose bool
}

// NewCliRunner creates a new CLI runner
func NewCliRunner(service *core.PipelineService, logger *zap.Logger, verbose bool) (*CliRunner, error) {
	return &CliRunner{
		service: service,
		logger:  logger,
		verbose: verbose,
	}, nil
}

// ProcessMessage runs the pipeline for one message and displays the result
func (r *CliRunner) ProcessMessage(ctx context.Context, msg *core.IncomingMessage) (*core.PipelineResult, error) {
	r.logger.Debug("Processing message", zap.String("sender", msg.From))

	// Print message summary
	fmt.Printf("\n=== Message ===\n")
	fmt.Printf("From: %s\n", msg.From)
	fmt.Printf("To: %s\n", strings.Join(msg.To, ", "))
	fmt.Printf("Subject: %s\n", msg.Subject)
	fmt.Printf("Body length: %d bytes\n", len(msg.Body))

	// Print body preview if verbose
	if r.verbose {
		preview := msg.Body
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Printf("\nBody preview:\n%s\n", preview)
	}

	fmt.Printf("\n=== Pipeline ===\n")
	fmt.Printf("Running stages against the model...\n")
	startTime := time.Now()
	result := r.service.Process(ctx, msg)
	duration := time.Since(startTime)

	// Print results
	fmt.Printf("\n=== Result ===\n")
	fmt.Printf("Outcome: %s\n", result.Outcome)
	if result.Summary != nil {
		fmt.Printf("Key points:\n")
		for _, p := range result.Summary.KeyPoints {
			fmt.Printf("  - %s\n", p)
		}
		fmt.Printf("Sentiment: %s\n", result.Summary.Sentiment)
	}
	if result.Decision != "" {
		fmt.Printf("Needs response: %s\n", result.Decision)
	}
	if result.Category != "" {
		fmt.Printf("Category: %s\n", result.Category)
	}
	if result.Meeting != "" {
		fmt.Printf("Meeting request: %s\n", result.Meeting)
	}
	if result.Draft != nil {
		fmt.Printf("\nDraft reply to %s:\n%s\n", result.Draft.To, result.Draft.Body)
	}
	if result.Err != nil {
		fmt.Printf("Error: %v\n", result.Err)
	}
	fmt.Printf("Model used: %s\n", result.ModelUsed)
	fmt.Printf("Processing time: %v\n", duration)

	return result, nil
}

// AnalyzeEdits compares a drafted reply with its human-edited form and
// displays what the edits imply about the writer's preferences
func (r *CliRunner) AnalyzeEdits(ctx context.Context, draftBody, editedBody string) (*core.EditorAnalysis, error) {
	fmt.Printf("\n=== Edit analysis ===\n")
	analysis, err := r.service.AnalyzeEdits(ctx, draftBody, editedBody)
	if err != nil {
		return nil, err
	}

	fmt.Printf("Summary: %s\n", analysis.ChangesSummary)
	if len(analysis.SpecificChanges) > 0 {
		fmt.Printf("\nChanges:\n")
		for _, c := range analysis.SpecificChanges {
			fmt.Printf("  - [%s] %q -> %q (%s)\n", c.Type, c.Original, c.Edited, c.LikelyReason)
		}
	}
	if len(analysis.InferredPreferences) > 0 {
		fmt.Printf("\nInferred preferences:\n")
		for _, p := range analysis.InferredPreferences {
			fmt.Printf("  - %s\n", p)
		}
	}
	if len(analysis.Recommendations) > 0 {
		fmt.Printf("\nRecommendations:\n")
		for _, rec := range analysis.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}

	return analysis, nil
}

// Start is a no-op for the CLI runner
func (r *CliRunner) Start() error {
	return nil
}

// Stop is a no-op for the CLI runner
func (r *CliRunner) Stop() error {
	return nil
}
