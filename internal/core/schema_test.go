package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSummary(t *testing.T) {
	valid := `{
		"from": "alice@example.com",
		"subject": "Partnership proposal",
		"date": "2025-03-10 09:15:00",
		"key_points": ["wants to partner", "asks for a call"],
		"requests_action_items": ["schedule a call"],
		"context": "First contact from Acme",
		"sentiment": "positive"
	}`

	tests := []struct {
		name       string
		raw        string
		wantErr    bool
		wantReason string
	}{
		{
			name: "valid object",
			raw:  valid,
		},
		{
			name: "object wrapped in markdown fences",
			raw:  "```json\n" + valid + "\n```",
		},
		{
			name: "object with surrounding chatter",
			raw:  "Here is the summary you asked for:\n" + valid + "\nLet me know if you need anything else.",
		},
		{
			name: "trailing comma is tolerated",
			raw: `{
				"from": "alice@example.com",
				"subject": "Hi",
				"date": "2025-03-10",
				"key_points": ["one",],
				"requests_action_items": [],
				"context": "",
				"sentiment": "neutral",
			}`,
		},
		{
			name:       "missing key",
			raw:        `{"from": "a", "subject": "b", "date": "c", "key_points": [], "requests_action_items": [], "context": "d"}`,
			wantErr:    true,
			wantReason: `missing field "sentiment"`,
		},
		{
			name:       "extra key",
			raw:        `{"from": "a", "subject": "b", "date": "c", "key_points": [], "requests_action_items": [], "context": "d", "sentiment": "e", "mood": "f"}`,
			wantErr:    true,
			wantReason: `unexpected field "mood"`,
		},
		{
			name:       "key points not an array",
			raw:        `{"from": "a", "subject": "b", "date": "c", "key_points": "just one", "requests_action_items": [], "context": "d", "sentiment": "e"}`,
			wantErr:    true,
			wantReason: `field "key_points" is not an array of strings`,
		},
		{
			name:       "no JSON at all",
			raw:        "I could not produce a summary for this email.",
			wantErr:    true,
			wantReason: "no JSON object found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, err := DecodeSummary("summarize", tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				var malformed *MalformedOutputError
				require.True(t, errors.As(err, &malformed))
				assert.Equal(t, "summarize", malformed.Stage)
				assert.Contains(t, malformed.Reason, tt.wantReason)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alice@example.com", summary.From)
		})
	}
}

func TestDecodeResponseDecision(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    ResponseDecision
		wantErr bool
	}{
		{
			name: "respond",
			raw:  `{"needs_response": "respond"}`,
			want: ResponseRespond,
		},
		{
			name: "no response needed",
			raw:  `{"needs_response": "no response needed"}`,
			want: ResponseNotNeeded,
		},
		{
			name: "value is normalized before matching",
			raw:  `{"needs_response": "  Respond "}`,
			want: ResponseRespond,
		},
		{
			name:    "unknown value",
			raw:     `{"needs_response": "maybe"}`,
			wantErr: true,
		},
		{
			name:    "wrong key",
			raw:     `{"respond": "yes"}`,
			wantErr: true,
		},
		{
			name:    "extra key alongside the right one",
			raw:     `{"needs_response": "respond", "confidence": 0.9}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeResponseDecision("decide", tt.raw)
			if tt.wantErr {
				var malformed *MalformedOutputError
				require.True(t, errors.As(err, &malformed))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeCategoryDecision(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    CategoryDecision
		wantErr bool
	}{
		{
			name: "move forward",
			raw:  `{"category": "move forward"}`,
			want: CategoryMoveForward,
		},
		{
			name: "decline",
			raw:  `{"category": "Decline"}`,
			want: CategoryDecline,
		},
		{
			name:    "synonym is not coerced",
			raw:     `{"category": "reject"}`,
			wantErr: true,
		},
		{
			name:    "another synonym is not coerced",
			raw:     `{"category": "refuse"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCategoryDecision("categorize", tt.raw)
			if tt.wantErr {
				var malformed *MalformedOutputError
				require.True(t, errors.As(err, &malformed))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeMeetingDecision(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    MeetingDecision
		wantErr bool
	}{
		{name: "yes", raw: `{"is_meeting_request": "yes"}`, want: MeetingYes},
		{name: "no", raw: `{"is_meeting_request": "no"}`, want: MeetingNo},
		{name: "uppercase yes", raw: `{"is_meeting_request": "Yes"}`, want: MeetingYes},
		{name: "near miss", raw: `{"is_meeting_request": "yeah"}`, wantErr: true},
		{name: "boolean instead of string", raw: `{"is_meeting_request": true}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeMeetingDecision("meeting", tt.raw)
			if tt.wantErr {
				var malformed *MalformedOutputError
				require.True(t, errors.As(err, &malformed))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeEditorAnalysis(t *testing.T) {
	valid := `{
		"changes_summary": "Shortened the opener and softened the close",
		"specific_changes": [
			{"type": "tone", "original": "Per my last email", "edited": "As mentioned", "likely_reason": "less confrontational"}
		],
		"inferred_preferences": ["prefers short openers"],
		"recommendations": ["keep replies under five sentences"]
	}`

	t.Run("valid analysis", func(t *testing.T) {
		analysis, err := DecodeEditorAnalysis("editor", valid)
		require.NoError(t, err)
		assert.Equal(t, "Shortened the opener and softened the close", analysis.ChangesSummary)
		require.Len(t, analysis.SpecificChanges, 1)
		assert.Equal(t, "tone", analysis.SpecificChanges[0].Type)
		assert.Equal(t, []string{"prefers short openers"}, analysis.InferredPreferences)
	})

	t.Run("empty change list", func(t *testing.T) {
		analysis, err := DecodeEditorAnalysis("editor", `{
			"changes_summary": "No changes",
			"specific_changes": [],
			"inferred_preferences": [],
			"recommendations": []
		}`)
		require.NoError(t, err)
		assert.Empty(t, analysis.SpecificChanges)
	})

	t.Run("nested change with extra key", func(t *testing.T) {
		_, err := DecodeEditorAnalysis("editor", `{
			"changes_summary": "x",
			"specific_changes": [
				{"type": "tone", "original": "a", "edited": "b", "likely_reason": "c", "severity": "high"}
			],
			"inferred_preferences": [],
			"recommendations": []
		}`)
		var malformed *MalformedOutputError
		require.True(t, errors.As(err, &malformed))
		assert.Contains(t, malformed.Reason, "severity")
	})

	t.Run("changes not an array", func(t *testing.T) {
		_, err := DecodeEditorAnalysis("editor", `{
			"changes_summary": "x",
			"specific_changes": "none",
			"inferred_preferences": [],
			"recommendations": []
		}`)
		var malformed *MalformedOutputError
		require.True(t, errors.As(err, &malformed))
	})
}

func TestValidateDraftBody(t *testing.T) {
	signature := "Best,\nAndrew"

	tests := []struct {
		name      string
		raw       string
		signature string
		want      string
		wantErr   bool
	}{
		{
			name:      "valid draft",
			raw:       "Thanks for reaching out.\n\nBest,\nAndrew",
			signature: signature,
			want:      "Thanks for reaching out.\n\nBest,\nAndrew",
		},
		{
			name:      "surrounding whitespace is trimmed",
			raw:       "\n\n  Happy to connect.\n\nBest,\nAndrew\n\n",
			signature: signature,
			want:      "Happy to connect.\n\nBest,\nAndrew",
		},
		{
			name:      "empty body",
			raw:       "   \n ",
			signature: signature,
			wantErr:   true,
		},
		{
			name:      "missing signature",
			raw:       "Thanks for reaching out.\n\nCheers,\nBob",
			signature: signature,
			wantErr:   true,
		},
		{
			name:      "no signature configured accepts any body",
			raw:       "Thanks!",
			signature: "",
			want:      "Thanks!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateDraftBody("draft", tt.raw, tt.signature)
			if tt.wantErr {
				var malformed *MalformedOutputError
				require.True(t, errors.As(err, &malformed))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOutcomeForError(t *testing.T) {
	assert.Equal(t, OutcomeMalformedModelOutput,
		OutcomeForError(&MalformedOutputError{Stage: "decide", Reason: "x"}))
	assert.Equal(t, OutcomeUpstreamServiceError,
		OutcomeForError(&UpstreamError{Service: "textgen", Op: "summarize", Err: errors.New("boom")}))
	assert.Equal(t, OutcomeUpstreamServiceError,
		OutcomeForError(errors.New("anything else")))
}
