package core

import (
	"net/mail"
	"strings"
	"time"
)

// IncomingMessage represents an email message fetched from the mailbox.
// It is immutable once fetched; the pipeline never writes back into it.
type IncomingMessage struct {
	ID       string
	ThreadID string
	From     string
	To       []string
	Subject  string
	Date     string
	Body     string
	LabelIDs []string
	Order    int
	Headers  map[string][]string
}

// SenderAddress extracts the bare address from a From header value
func SenderAddress(from string) string {
	if addr, err := mail.ParseAddress(from); err == nil {
		return strings.ToLower(addr.Address)
	}
	return strings.ToLower(strings.TrimSpace(from))
}

// EmailSummary is the validated output of the summarize stage
type EmailSummary struct {
	From                string   `json:"from"`
	Subject             string   `json:"subject"`
	Date                string   `json:"date"`
	KeyPoints           []string `json:"key_points"`
	RequestsActionItems []string `json:"requests_action_items"`
	Context             string   `json:"context"`
	Sentiment           string   `json:"sentiment"`
}

// ResponseDecision is the validated output of the decide stage
type ResponseDecision string

const (
	// ResponseRespond means a reply should be generated
	ResponseRespond ResponseDecision = "respond"
	// ResponseNotNeeded means the message needs no reply
	ResponseNotNeeded ResponseDecision = "no response needed"
)

// CategoryDecision is the validated output of the categorize stage
type CategoryDecision string

const (
	// CategoryMoveForward means the conversation should continue
	CategoryMoveForward CategoryDecision = "move forward"
	// CategoryDecline means the request should be turned down
	CategoryDecline CategoryDecision = "decline"
)

// MeetingDecision selects which reply template the draft stage uses
type MeetingDecision string

const (
	// MeetingYes means the message is solely a scheduling request
	MeetingYes MeetingDecision = "yes"
	// MeetingNo means the message needs a substantive reply
	MeetingNo MeetingDecision = "no"
)

// DraftReply is the reply produced by the draft stage
type DraftReply struct {
	To       string
	Subject  string
	Body     string
	ThreadID string
}

// SpecificChange describes one edit a human made to a drafted reply
type SpecificChange struct {
	Type         string `json:"type"`
	Original     string `json:"original"`
	Edited       string `json:"edited"`
	LikelyReason string `json:"likely_reason"`
}

// EditorAnalysis is the validated output of the editor stage
type EditorAnalysis struct {
	ChangesSummary      string           `json:"changes_summary"`
	SpecificChanges     []SpecificChange `json:"specific_changes"`
	InferredPreferences []string         `json:"inferred_preferences"`
	Recommendations     []string         `json:"recommendations"`
}

// PipelineOutcome is the terminal classification of a pipeline run
type PipelineOutcome string

const (
	// OutcomeNoActionNeeded means the message required no reply
	OutcomeNoActionNeeded PipelineOutcome = "no_action_needed"
	// OutcomeDeclined means the request was turned down without a draft
	OutcomeDeclined PipelineOutcome = "declined"
	// OutcomeDrafted means a reply draft was produced
	OutcomeDrafted PipelineOutcome = "drafted"
	// OutcomeMalformedModelOutput means a stage returned output violating its schema
	OutcomeMalformedModelOutput PipelineOutcome = "malformed_model_output"
	// OutcomeUpstreamServiceError means an external service call failed
	OutcomeUpstreamServiceError PipelineOutcome = "upstream_service_error"
)

// IsError reports whether the outcome is a failure rather than a business result
func (o PipelineOutcome) IsError() bool {
	return o == OutcomeMalformedModelOutput || o == OutcomeUpstreamServiceError
}

// PipelineResult is the record of one completed pipeline run
type PipelineResult struct {
	RunID       string
	MessageID   string
	ThreadID    string
	Outcome     PipelineOutcome
	Summary     *EmailSummary
	Decision    ResponseDecision
	Category    CategoryDecision
	Meeting     MeetingDecision
	Draft       *DraftReply
	DraftID     string
	Err         error
	ModelUsed   string
	StartedAt   time.Time
	CompletedAt time.Time
}

// RunRecord is the audit entry persisted for every completed run
type RunRecord struct {
	RunID       string
	MessageID   string
	Outcome     PipelineOutcome
	ModelUsed   string
	StartedAt   time.Time
	CompletedAt time.Time
}

// LabelSet holds the mailbox label names applied by the commit step
type LabelSet struct {
	Archive         string
	NoResponse      string
	Decline         string
	ScheduleMeeting string
	ResponseNeeded  string
	Draft           string
}

// Names returns all managed label names
func (l LabelSet) Names() []string {
	return []string{l.Archive, l.NoResponse, l.Decline, l.ScheduleMeeting, l.ResponseNeeded, l.Draft}
}
