// Package prompts holds the versioned prompt templates the pipeline
// stages render. Templates are compiled in so a deployment cannot drift
// from the output schemas the pipeline validates against.
package prompts

import (
	"fmt"
	"sort"
	"strings"
)

// Template is a single versioned prompt with its declared inputs
type Template struct {
	ID      string
	Version int
	Inputs  []string
	Text    string
}

// Registry resolves template ids to renderable templates
type Registry struct {
	templates map[string]Template
}

// NewRegistry creates a registry with all built-in templates
func NewRegistry() *Registry {
	r := &Registry{templates: make(map[string]Template)}
	for _, t := range builtins {
		r.templates[t.ID] = t
	}
	return r
}

// Get returns the template registered under id
func (r *Registry) Get(id string) (Template, bool) {
	t, ok := r.templates[id]
	return t, ok
}

// All returns every registered template sorted by id
func (r *Registry) All() []Template {
	out := make([]Template, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Render substitutes the provided inputs into the template. The input
// set must match the template's declared inputs exactly.
func (r *Registry) Render(templateID string, inputs map[string]string) (string, error) {
	tmpl, ok := r.templates[templateID]
	if !ok {
		return "", fmt.Errorf("unknown template id %q", templateID)
	}

	for _, name := range tmpl.Inputs {
		if _, ok := inputs[name]; !ok {
			return "", fmt.Errorf("template %q: missing input %q", templateID, name)
		}
	}
	for name := range inputs {
		if !declared(tmpl.Inputs, name) {
			return "", fmt.Errorf("template %q: unexpected input %q", templateID, name)
		}
	}

	rendered := tmpl.Text
	for _, name := range tmpl.Inputs {
		rendered = strings.ReplaceAll(rendered, "{"+name+"}", inputs[name])
	}
	return rendered, nil
}

func declared(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

var builtins = []Template{
	{
		ID:      "email_summarizer",
		Version: 1,
		Inputs:  []string{"email_content"},
		Text:    summarizerPrompt,
	},
	{
		ID:      "email_needs_response",
		Version: 1,
		Inputs:  []string{"summary"},
		Text:    needsResponsePrompt,
	},
	{
		ID:      "email_categorizer",
		Version: 1,
		Inputs:  []string{"email_content"},
		Text:    categorizerPrompt,
	},
	{
		ID:      "meeting_request_decider",
		Version: 1,
		Inputs:  []string{"email_content"},
		Text:    meetingDeciderPrompt,
	},
	{
		ID:      "schedule_email_writer",
		Version: 1,
		Inputs:  []string{"email_content", "summary", "history", "signature"},
		Text:    scheduleWriterPrompt,
	},
	{
		ID:      "email_writer",
		Version: 1,
		Inputs:  []string{"email_content", "summary", "history", "signature"},
		Text:    emailWriterPrompt,
	},
	{
		ID:      "email_editor",
		Version: 1,
		Inputs:  []string{"draft_email", "edited_email"},
		Text:    editorPrompt,
	},
}

const summarizerPrompt = `You are an executive email assistant. Summarize the email below for a busy reader.

Email:
{email_content}

Respond with a single JSON object and nothing else. Use exactly these keys:
- "from": sender name and address as given
- "subject": the subject line
- "date": when the email was sent
- "key_points": array of the main points, each a short string
- "requests_action_items": array of explicit requests or action items directed at the recipient
- "context": one or two sentences of background a reader needs
- "sentiment": overall tone of the sender, such as "positive", "neutral" or "negative"

Do not add keys beyond the seven listed. Do not wrap the JSON in markdown fences.`

const needsResponsePrompt = `You triage email for a busy executive. Given the JSON summary of an email, decide whether it needs a reply from him.

Summary:
{summary}

Emails that need a response include direct questions, meeting requests, investor and partner outreach, and anything with explicit action items for him. Newsletters, automated notifications, receipts and FYI-only threads do not.

Respond with a single JSON object and nothing else:
{"needs_response": "respond"}
or
{"needs_response": "no response needed"}`

const categorizerPrompt = `You screen inbound opportunities for EVQLV, an AI antibody discovery company. Decide whether the email below is worth moving forward with or should be politely set aside.

Email:
{email_content}

Move forward with emails relevant to antibody discovery, drug development partnerships, investors, customers, hiring, or existing commitments. Decline cold vendor pitches, irrelevant services and generic mass outreach.

Respond with a single JSON object and nothing else:
{"category": "move forward"}
or
{"category": "decline"}`

const meetingDeciderPrompt = `Decide whether the email below is asking to set up a meeting or call with the recipient.

Email:
{email_content}

Count explicit requests to meet, calls, demos, intro chats and attempts to find a time. Do not count mentions of past meetings or invites that are already confirmed.

Respond with a single JSON object and nothing else:
{"is_meeting_request": "yes"}
or
{"is_meeting_request": "no"}`

const scheduleWriterPrompt = `You draft email replies for Andrew Satz, CEO of EVQLV, an AI antibody discovery company. The sender is asking to set up a meeting. Write a short, warm reply that agrees to meet and asks them to pick a time on his calendar:

https://meetings.hubspot.com/andrew-satz/evqlv-aiemail

Original email:
{email_content}

Summary:
{summary}

Prior correspondence and style notes:
{history}

Guidelines:
- Keep it under 120 words.
- Match the sender's tone without copying it.
- Include the scheduling link exactly as written above.
- Do not invent commitments, dates or facts that are not in the email.
- End the reply with this signature exactly:
{signature}

Respond with the reply body as plain text. Do not return JSON and do not include a subject line.`

const emailWriterPrompt = `You draft email replies for Andrew Satz, CEO of EVQLV, an AI antibody discovery company. Write a reply to the email below on his behalf.

Original email:
{email_content}

Summary:
{summary}

Prior correspondence and style notes:
{history}

Guidelines:
- Answer the sender's questions and acknowledge their action items.
- Keep it under 150 words, direct and courteous.
- Do not invent commitments, dates or facts that are not in the email.
- End the reply with this signature exactly:
{signature}

Respond with the reply body as plain text. Do not return JSON and do not include a subject line.`

const editorPrompt = `Compare the assistant-written draft with the version the user actually sent. Work out what the user changed and why.

Draft:
{draft_email}

Edited:
{edited_email}

Respond with a single JSON object and nothing else, with exactly these keys:
- "changes_summary": one paragraph describing the overall edit
- "specific_changes": array of objects, each with exactly the keys "type", "original", "edited" and "likely_reason"
- "inferred_preferences": array of short writing-style preferences the edits imply
- "recommendations": array of concrete suggestions for future drafts

Do not add keys beyond the four listed. Do not wrap the JSON in markdown fences.`
