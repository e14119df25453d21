package prompts

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

func TestRegistryContainsAllStageTemplates(t *testing.T) {
	r := NewRegistry()

	for _, id := range []string{
		"email_summarizer",
		"email_needs_response",
		"email_categorizer",
		"meeting_request_decider",
		"schedule_email_writer",
		"email_writer",
		"email_editor",
	} {
		tmpl, ok := r.Get(id)
		require.True(t, ok, "template %q is missing", id)
		assert.Equal(t, id, tmpl.ID)
		assert.GreaterOrEqual(t, tmpl.Version, 1)
		assert.NotEmpty(t, tmpl.Text)
	}

	assert.Len(t, r.All(), 7)
}

// Every placeholder in a template body must be declared as an input and
// every declared input must appear in the body, otherwise rendering
// silently drops content.
func TestTemplatePlaceholdersMatchDeclaredInputs(t *testing.T) {
	r := NewRegistry()

	for _, tmpl := range r.All() {
		t.Run(tmpl.ID, func(t *testing.T) {
			found := map[string]bool{}
			for _, m := range placeholderPattern.FindAllStringSubmatch(tmpl.Text, -1) {
				found[m[1]] = true
			}

			for _, input := range tmpl.Inputs {
				assert.True(t, found[input], "declared input %q never appears in the template body", input)
			}
			for name := range found {
				assert.Contains(t, tmpl.Inputs, name, "placeholder %q is not a declared input", name)
			}
		})
	}
}

func TestRenderSubstitutesInputs(t *testing.T) {
	r := NewRegistry()

	rendered, err := r.Render("email_summarizer", map[string]string{
		"email_content": "CONTENT-MARKER",
	})
	require.NoError(t, err)
	assert.Contains(t, rendered, "CONTENT-MARKER")
	assert.NotContains(t, rendered, "{email_content}")
}

func TestRenderWriterTemplates(t *testing.T) {
	r := NewRegistry()
	inputs := map[string]string{
		"email_content": "CONTENT",
		"summary":       "SUMMARY",
		"history":       "HISTORY",
		"signature":     "Best,\nAndrew",
	}

	for _, id := range []string{"email_writer", "schedule_email_writer"} {
		t.Run(id, func(t *testing.T) {
			rendered, err := r.Render(id, inputs)
			require.NoError(t, err)
			for _, v := range []string{"CONTENT", "SUMMARY", "HISTORY", "Best,\nAndrew"} {
				assert.Contains(t, rendered, v)
			}
			assert.False(t, strings.Contains(rendered, "{email_content}"))
		})
	}
}

func TestScheduleWriterCarriesBookingLink(t *testing.T) {
	r := NewRegistry()
	tmpl, ok := r.Get("schedule_email_writer")
	require.True(t, ok)
	assert.Contains(t, tmpl.Text, "https://meetings.hubspot.com/andrew-satz/evqlv-aiemail")
}

func TestRenderRejectsBadInputSets(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name    string
		id      string
		inputs  map[string]string
		errPart string
	}{
		{
			name:    "unknown template id",
			id:      "email_classifier",
			inputs:  map[string]string{},
			errPart: "unknown template id",
		},
		{
			name:    "missing input",
			id:      "email_writer",
			inputs:  map[string]string{"email_content": "x"},
			errPart: "missing input",
		},
		{
			name: "unexpected input",
			id:   "email_summarizer",
			inputs: map[string]string{
				"email_content": "x",
				"tone":          "formal",
			},
			errPart: "unexpected input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Render(tt.id, tt.inputs)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

// The enum prompts must show the exact JSON shape the decoders accept;
// drift here surfaces as malformed-output failures in production.
func TestEnumPromptsNameTheirExactValues(t *testing.T) {
	r := NewRegistry()

	needsResponse, _ := r.Get("email_needs_response")
	assert.Contains(t, needsResponse.Text, `"needs_response"`)
	assert.Contains(t, needsResponse.Text, "respond")
	assert.Contains(t, needsResponse.Text, "no response needed")

	categorizer, _ := r.Get("email_categorizer")
	assert.Contains(t, categorizer.Text, `"category"`)
	assert.Contains(t, categorizer.Text, "move forward")
	assert.Contains(t, categorizer.Text, "decline")

	meeting, _ := r.Get("meeting_request_decider")
	assert.Contains(t, meeting.Text, `"is_meeting_request"`)

	summarizer, _ := r.Get("email_summarizer")
	for _, key := range []string{"from", "subject", "date", "key_points", "requests_action_items", "context", "sentiment"} {
		assert.Contains(t, summarizer.Text, `"`+key+`"`)
	}
}
