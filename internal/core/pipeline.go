package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/llm-mail-agent/internal/utils"
	"go.uber.org/zap"
)

// Template ids are stable identifiers for versioned prompt assets. The
// pipeline treats template content as opaque; only the declared output
// schema of each id matters here.
const (
	TemplateSummarizer     = "email_summarizer"
	TemplateNeedsResponse  = "email_needs_response"
	TemplateCategorizer    = "email_categorizer"
	TemplateMeetingDecider = "meeting_request_decider"
	TemplateScheduleWriter = "schedule_email_writer"
	TemplateEmailWriter    = "email_writer"
	TemplateEditor         = "email_editor"
)

// preferencesKey is the context-store key for drafting preferences
// inferred from human edits
const preferencesKey = "user_preferences"

// runState tracks the position of a run in its state machine
type runState int

const (
	stateStarted runState = iota
	stateSummarized
	stateDecided
	stateCategorized
	stateDrafted
	stateTerminated
)

// String returns the state name
func (s runState) String() string {
	switch s {
	case stateStarted:
		return "started"
	case stateSummarized:
		return "summarized"
	case stateDecided:
		return "decided"
	case stateCategorized:
		return "categorized"
	case stateDrafted:
		return "drafted"
	case stateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// sideEffectPlan accumulates the mailbox and store writes of a run.
// Nothing in it executes until the run reaches its terminal decision.
type sideEffectPlan struct {
	labels       []string
	archive      bool
	draft        *DraftReply
	contextKey   string
	contextTexts []string
}

// pipelineRun is the per-message execution context. Each run owns its
// data exclusively; runs never share state.
type pipelineRun struct {
	id     string
	msg    *IncomingMessage
	state  runState
	plan   sideEffectPlan
	result *PipelineResult
}

// PipelineService orchestrates the summarize, decide, categorize and
// draft stages for each incoming message and commits the resulting
// mailbox side effects after the terminal decision
type PipelineService struct {
	summarize  *StageAdapter
	decide     *StageAdapter
	categorize *StageAdapter
	meeting    *StageAdapter
	draft      *StageAdapter
	editor     *StageAdapter

	gateway       MailGateway
	store         ContextStore
	sender        ReplySender
	bypass        BypassChecker
	textProcessor *utils.TextProcessor
	logger        *zap.Logger

	labels         LabelSet
	signature      string
	modelName      string
	maxContentSize int
	maxConcurrent  int
}

// NewPipelineService creates a new pipeline service
func NewPipelineService(
	textgen TextGenerator,
	templates TemplateRenderer,
	gateway MailGateway,
	store ContextStore,
	sender ReplySender,
	bypass BypassChecker,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
	labels LabelSet,
	signature string,
	maxContentSize int,
	maxConcurrent int,
) *PipelineService {
	return &PipelineService{
		summarize:      NewStageAdapter("summarize", textgen, templates, logger),
		decide:         NewStageAdapter("decide", textgen, templates, logger),
		categorize:     NewStageAdapter("categorize", textgen, templates, logger),
		meeting:        NewStageAdapter("meeting", textgen, templates, logger),
		draft:          NewStageAdapter("draft", textgen, templates, logger),
		editor:         NewStageAdapter("editor", textgen, templates, logger),
		gateway:        gateway,
		store:          store,
		sender:         sender,
		bypass:         bypass,
		textProcessor:  textProcessor,
		logger:         logger,
		labels:         labels,
		signature:      signature,
		modelName:      textgen.ModelName(),
		maxContentSize: maxContentSize,
		maxConcurrent:  maxConcurrent,
	}
}

// Process runs the full pipeline for one message. It always returns a
// result with a terminal outcome; stage failures become error outcomes
// rather than Go errors so a bad message cannot take down a batch.
func (s *PipelineService) Process(ctx context.Context, msg *IncomingMessage) *PipelineResult {
	run := &pipelineRun{
		id:    uuid.NewString(),
		msg:   msg,
		state: stateStarted,
		result: &PipelineResult{
			MessageID: msg.ID,
			ThreadID:  msg.ThreadID,
			ModelUsed: s.modelName,
			StartedAt: time.Now(),
		},
	}
	run.result.RunID = run.id

	logger := s.logger.With(zap.String("run_id", run.id), zap.String("message_id", msg.ID))
	logger.Info("Starting pipeline run",
		zap.String("sender", msg.From),
		zap.String("subject", msg.Subject))

	sender := SenderAddress(msg.From)
	if s.bypass != nil && s.bypass.ShouldBypass(sender) {
		logger.Info("Sender matches bypass rules, archiving without model calls",
			zap.String("sender", sender))
		run.plan.labels = append(run.plan.labels, s.labels.NoResponse)
		run.plan.archive = true
		return s.terminate(ctx, logger, run, OutcomeNoActionNeeded)
	}

	emailContent := s.messageContent(msg)

	// Summarize
	if err := cancelled(ctx); err != nil {
		return s.fail(ctx, logger, run, err)
	}
	raw, err := s.summarize.Invoke(ctx, TemplateSummarizer, map[string]string{
		"email_content": emailContent,
	})
	if err != nil {
		return s.fail(ctx, logger, run, err)
	}
	summary, err := DecodeSummary(s.summarize.Name(), raw)
	if err != nil {
		return s.fail(ctx, logger, run, err)
	}
	run.result.Summary = summary
	run.state = stateSummarized
	logger.Info("Message summarized",
		zap.Int("key_points", len(summary.KeyPoints)),
		zap.Int("action_items", len(summary.RequestsActionItems)),
		zap.String("sentiment", summary.Sentiment))

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return s.fail(ctx, logger, run, &UpstreamError{Service: "pipeline", Op: "encode summary", Err: err})
	}

	// Decide
	if err := cancelled(ctx); err != nil {
		return s.fail(ctx, logger, run, err)
	}
	raw, err = s.decide.Invoke(ctx, TemplateNeedsResponse, map[string]string{
		"summary": string(summaryJSON),
	})
	if err != nil {
		return s.fail(ctx, logger, run, err)
	}
	decision, err := DecodeResponseDecision(s.decide.Name(), raw)
	if err != nil {
		return s.fail(ctx, logger, run, err)
	}
	run.result.Decision = decision
	run.state = stateDecided
	logger.Info("Response decision made", zap.String("decision", string(decision)))

	run.plan.contextKey = sender
	run.plan.contextTexts = append(run.plan.contextTexts, string(summaryJSON))

	if decision == ResponseNotNeeded {
		run.plan.labels = append(run.plan.labels, s.labels.NoResponse)
		run.plan.archive = true
		return s.terminate(ctx, logger, run, OutcomeNoActionNeeded)
	}

	// Categorize
	if err := cancelled(ctx); err != nil {
		return s.fail(ctx, logger, run, err)
	}
	raw, err = s.categorize.Invoke(ctx, TemplateCategorizer, map[string]string{
		"email_content": emailContent,
	})
	if err != nil {
		return s.fail(ctx, logger, run, err)
	}
	category, err := DecodeCategoryDecision(s.categorize.Name(), raw)
	if err != nil {
		return s.fail(ctx, logger, run, err)
	}
	run.result.Category = category
	run.state = stateCategorized
	logger.Info("Message categorized", zap.String("category", string(category)))

	if category == CategoryDecline {
		run.plan.labels = append(run.plan.labels, s.labels.Decline)
		run.plan.archive = true
		return s.terminate(ctx, logger, run, OutcomeDeclined)
	}

	// Meeting decider selects which writer template drafts the reply
	if err := cancelled(ctx); err != nil {
		return s.fail(ctx, logger, run, err)
	}
	raw, err = s.meeting.Invoke(ctx, TemplateMeetingDecider, map[string]string{
		"email_content": emailContent,
	})
	if err != nil {
		return s.fail(ctx, logger, run, err)
	}
	meeting, err := DecodeMeetingDecision(s.meeting.Name(), raw)
	if err != nil {
		return s.fail(ctx, logger, run, err)
	}
	run.result.Meeting = meeting
	logger.Info("Meeting request decision made", zap.String("is_meeting_request", string(meeting)))

	history, err := s.retrieveHistory(ctx, sender)
	if err != nil {
		return s.fail(ctx, logger, run, err)
	}

	writerTemplate := TemplateEmailWriter
	stageLabel := s.labels.ResponseNeeded
	if meeting == MeetingYes {
		writerTemplate = TemplateScheduleWriter
		stageLabel = s.labels.ScheduleMeeting
	}

	// Draft
	if err := cancelled(ctx); err != nil {
		return s.fail(ctx, logger, run, err)
	}
	raw, err = s.draft.Invoke(ctx, writerTemplate, map[string]string{
		"email_content": emailContent,
		"summary":       string(summaryJSON),
		"history":       history,
		"signature":     s.signature,
	})
	if err != nil {
		return s.fail(ctx, logger, run, err)
	}
	body, err := ValidateDraftBody(s.draft.Name(), raw, s.signature)
	if err != nil {
		return s.fail(ctx, logger, run, err)
	}
	run.result.Draft = &DraftReply{
		To:       msg.From,
		Subject:  "Re: " + msg.Subject,
		Body:     body,
		ThreadID: msg.ThreadID,
	}
	run.state = stateDrafted
	logger.Info("Reply drafted",
		zap.String("template_id", writerTemplate),
		zap.Int("body_size", len(body)))

	run.plan.labels = append(run.plan.labels, stageLabel, s.labels.Draft)
	run.plan.archive = true
	run.plan.draft = run.result.Draft
	return s.terminate(ctx, logger, run, OutcomeDrafted)
}

// ProcessBatch processes messages concurrently under a bounded worker
// pool. Each message gets its own independent run.
func (s *PipelineService) ProcessBatch(ctx context.Context, msgs []*IncomingMessage) []*PipelineResult {
	if len(msgs) == 0 {
		return nil
	}

	maxWorkers := s.maxConcurrent
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup
	results := make([]*PipelineResult, len(msgs))

	for i, msg := range msgs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, msg *IncomingMessage) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = s.Process(ctx, msg)
		}(i, msg)
	}
	wg.Wait()

	return results
}

// ProcessUnprocessed lists unhandled messages from the mailbox and
// processes them as one batch
func (s *PipelineService) ProcessUnprocessed(ctx context.Context) ([]*PipelineResult, error) {
	if s.gateway == nil {
		return nil, fmt.Errorf("no mail gateway configured")
	}

	msgs, err := s.gateway.ListUnprocessed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed messages: %w", err)
	}
	if len(msgs) == 0 {
		s.logger.Info("No unprocessed messages found")
		return nil, nil
	}

	s.logger.Info("Processing unprocessed messages", zap.Int("count", len(msgs)))
	return s.ProcessBatch(ctx, msgs), nil
}

// AnalyzeEdits compares a drafted reply with its human-edited final form
// and stores the inferred drafting preferences for future runs
func (s *PipelineService) AnalyzeEdits(ctx context.Context, draftBody, editedBody string) (*EditorAnalysis, error) {
	raw, err := s.editor.Invoke(ctx, TemplateEditor, map[string]string{
		"draft_email":  draftBody,
		"edited_email": editedBody,
	})
	if err != nil {
		return nil, err
	}
	analysis, err := DecodeEditorAnalysis(s.editor.Name(), raw)
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		for _, pref := range analysis.InferredPreferences {
			if err := s.store.Store(ctx, preferencesKey, pref); err != nil {
				s.logger.Error("Failed to store inferred preference", zap.Error(err))
			}
		}
	}

	s.logger.Info("Draft edits analyzed",
		zap.Int("specific_changes", len(analysis.SpecificChanges)),
		zap.Int("inferred_preferences", len(analysis.InferredPreferences)))
	return analysis, nil
}

// messageContent renders the message as the model-facing JSON payload,
// cleaned and truncated to the configured size limit
func (s *PipelineService) messageContent(msg *IncomingMessage) string {
	payload := struct {
		From    string `json:"from"`
		To      string `json:"to"`
		Subject string `json:"subject"`
		Date    string `json:"date"`
		Body    string `json:"body"`
	}{
		From:    msg.From,
		To:      strings.Join(msg.To, ", "),
		Subject: msg.Subject,
		Date:    msg.Date,
		Body:    msg.Body,
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return s.textProcessor.TruncateText(msg.Body, s.maxContentSize)
	}
	return s.textProcessor.TruncateText(string(b), s.maxContentSize)
}

// retrieveHistory fetches prior correspondence for the sender plus any
// stored drafting preferences
func (s *PipelineService) retrieveHistory(ctx context.Context, sender string) (string, error) {
	if s.store == nil {
		return "", nil
	}

	entries, err := s.store.Retrieve(ctx, sender)
	if err != nil {
		return "", &UpstreamError{Service: "store", Op: "retrieve history", Err: err}
	}
	prefs, err := s.store.Retrieve(ctx, preferencesKey)
	if err != nil {
		return "", &UpstreamError{Service: "store", Op: "retrieve preferences", Err: err}
	}

	var b strings.Builder
	if len(entries) > 0 {
		b.WriteString(strings.Join(entries, "\n---\n"))
	}
	if len(prefs) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Drafting preferences:\n- ")
		b.WriteString(strings.Join(prefs, "\n- "))
	}
	return b.String(), nil
}

// terminate commits the side-effect plan and closes the run with its
// business outcome. A commit failure downgrades the run to an upstream
// error outcome.
func (s *PipelineService) terminate(ctx context.Context, logger *zap.Logger, run *pipelineRun, outcome PipelineOutcome) *PipelineResult {
	run.result.Outcome = outcome
	if err := s.commit(ctx, logger, run); err != nil {
		run.result.Outcome = OutcomeUpstreamServiceError
		run.result.Err = err
		logger.Error("Failed to commit side effects", zap.Error(err))
	}

	run.state = stateTerminated
	run.result.CompletedAt = time.Now()
	s.recordRun(ctx, logger, run)

	logger.Info("Pipeline run terminated",
		zap.String("outcome", string(run.result.Outcome)),
		zap.Duration("elapsed", run.result.CompletedAt.Sub(run.result.StartedAt)))
	return run.result
}

// fail closes the run with an error outcome. The side-effect plan is
// discarded; a failed run leaves the mailbox untouched.
func (s *PipelineService) fail(ctx context.Context, logger *zap.Logger, run *pipelineRun, err error) *PipelineResult {
	run.plan = sideEffectPlan{}
	run.result.Err = err
	run.result.Outcome = OutcomeForError(err)
	run.state = stateTerminated
	run.result.CompletedAt = time.Now()
	s.recordRun(ctx, logger, run)

	logger.Error("Pipeline run failed",
		zap.String("outcome", string(run.result.Outcome)),
		zap.Error(err))
	return run.result
}

// commit applies the deferred side effects: reply delivery first, then
// labels, then archive. Context-store writes are best effort and never
// fail the run.
func (s *PipelineService) commit(ctx context.Context, logger *zap.Logger, run *pipelineRun) error {
	if s.gateway == nil {
		logger.Debug("No mail gateway configured, skipping mailbox side effects")
	} else {
		if run.plan.draft != nil {
			if s.sender == nil {
				return &UpstreamError{Service: "mail", Op: "deliver reply", Err: fmt.Errorf("no reply sender configured")}
			}
			id, err := s.sender.DeliverReply(ctx, run.msg, run.plan.draft)
			if err != nil {
				return &UpstreamError{Service: "mail", Op: "deliver reply", Err: err}
			}
			run.result.DraftID = id
			logger.Info("Reply delivered", zap.String("delivery_id", id))
		}
		for _, tag := range run.plan.labels {
			if err := s.gateway.Label(ctx, run.msg.ID, tag); err != nil {
				return &UpstreamError{Service: "mail", Op: "label", Err: err}
			}
		}
		if run.plan.archive {
			if err := s.gateway.Archive(ctx, run.msg.ID); err != nil {
				return &UpstreamError{Service: "mail", Op: "archive", Err: err}
			}
		}
	}

	if s.store != nil && run.plan.contextKey != "" {
		for _, text := range run.plan.contextTexts {
			if err := s.store.Store(ctx, run.plan.contextKey, text); err != nil {
				logger.Error("Failed to store context entry", zap.Error(err))
			}
		}
	}
	return nil
}

// recordRun appends the run to the audit log
func (s *PipelineService) recordRun(ctx context.Context, logger *zap.Logger, run *pipelineRun) {
	if s.store == nil {
		return
	}
	rec := &RunRecord{
		RunID:       run.id,
		MessageID:   run.msg.ID,
		Outcome:     run.result.Outcome,
		ModelUsed:   run.result.ModelUsed,
		StartedAt:   run.result.StartedAt,
		CompletedAt: run.result.CompletedAt,
	}
	if err := s.store.RecordRun(ctx, rec); err != nil {
		logger.Error("Failed to record run", zap.Error(err))
	}
}

// cancelled reports context cancellation at a stage boundary
func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &UpstreamError{Service: "pipeline", Op: "run cancelled", Err: err}
	}
	return nil
}
