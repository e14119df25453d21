package core

import (
	"context"

	"go.uber.org/zap"
)

// StageAdapter binds one pipeline stage to its prompt template and the
// text-generation client. It performs the remote call and hands the raw
// model text to the stage's schema decoder; it never interprets content.
type StageAdapter struct {
	name      string
	textgen   TextGenerator
	templates TemplateRenderer
	logger    *zap.Logger
}

// NewStageAdapter creates a stage adapter
func NewStageAdapter(name string, textgen TextGenerator, templates TemplateRenderer, logger *zap.Logger) *StageAdapter {
	return &StageAdapter{
		name:      name,
		textgen:   textgen,
		templates: templates,
		logger:    logger,
	}
}

// Name returns the stage name
func (a *StageAdapter) Name() string {
	return a.name
}

// Invoke renders the inputs into the template and executes it against the
// model, returning the raw response text
func (a *StageAdapter) Invoke(ctx context.Context, templateID string, inputs map[string]string) (string, error) {
	prompt, err := a.templates.Render(templateID, inputs)
	if err != nil {
		return "", &UpstreamError{Service: "templates", Op: templateID, Err: err}
	}

	a.logger.Debug("Invoking stage",
		zap.String("stage", a.name),
		zap.String("template_id", templateID),
		zap.Int("prompt_size", len(prompt)))

	raw, err := a.textgen.Complete(ctx, prompt)
	if err != nil {
		return "", &UpstreamError{Service: "textgen", Op: a.name, Err: err}
	}

	return raw, nil
}
