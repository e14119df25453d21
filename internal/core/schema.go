package core

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Stage output contracts are closed: the exact key set must be present and
// enumerated values must match exactly after lowercase/trim normalization.
// Anything else is a MalformedOutputError, never a coerced default.

var trailingCommaPattern = regexp.MustCompile(`,(\s*[}\]])`)

// extractJSONObject pulls the outermost JSON object out of surrounding
// model chatter
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// decodeObject parses raw model text into a JSON object and enforces the
// exact field set: no missing keys, no extra keys
func decodeObject(stage, raw string, required []string) (map[string]json.RawMessage, error) {
	jsonStr, ok := extractJSONObject(raw)
	if !ok {
		return nil, &MalformedOutputError{Stage: stage, Reason: "no JSON object found", Raw: raw}
	}

	// Models occasionally emit trailing commas; that is syntax noise, not
	// a schema violation
	jsonStr = trailingCommaPattern.ReplaceAllString(jsonStr, "$1")

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &fields); err != nil {
		return nil, &MalformedOutputError{Stage: stage, Reason: fmt.Sprintf("invalid JSON: %v", err), Raw: raw}
	}

	want := make(map[string]bool, len(required))
	for _, k := range required {
		want[k] = true
	}
	for k := range fields {
		if !want[k] {
			return nil, &MalformedOutputError{Stage: stage, Reason: fmt.Sprintf("unexpected field %q", k), Raw: raw}
		}
	}
	for _, k := range required {
		if _, ok := fields[k]; !ok {
			return nil, &MalformedOutputError{Stage: stage, Reason: fmt.Sprintf("missing field %q", k), Raw: raw}
		}
	}

	return fields, nil
}

func stringField(stage, raw string, fields map[string]json.RawMessage, key string) (string, error) {
	var s string
	if err := json.Unmarshal(fields[key], &s); err != nil {
		return "", &MalformedOutputError{Stage: stage, Reason: fmt.Sprintf("field %q is not a string", key), Raw: raw}
	}
	return s, nil
}

func stringSliceField(stage, raw string, fields map[string]json.RawMessage, key string) ([]string, error) {
	var s []string
	if err := json.Unmarshal(fields[key], &s); err != nil {
		return nil, &MalformedOutputError{Stage: stage, Reason: fmt.Sprintf("field %q is not an array of strings", key), Raw: raw}
	}
	return s, nil
}

func enumField(stage, raw string, fields map[string]json.RawMessage, key string, allowed ...string) (string, error) {
	v, err := stringField(stage, raw, fields, key)
	if err != nil {
		return "", err
	}
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	return "", &MalformedOutputError{
		Stage:  stage,
		Reason: fmt.Sprintf("field %q has value %q, expected one of: %s", key, v, strings.Join(allowed, ", ")),
		Raw:    raw,
	}
}

var summaryFields = []string{"from", "subject", "date", "key_points", "requests_action_items", "context", "sentiment"}

// DecodeSummary validates summarize-stage output
func DecodeSummary(stage, raw string) (*EmailSummary, error) {
	fields, err := decodeObject(stage, raw, summaryFields)
	if err != nil {
		return nil, err
	}

	s := &EmailSummary{}
	if s.From, err = stringField(stage, raw, fields, "from"); err != nil {
		return nil, err
	}
	if s.Subject, err = stringField(stage, raw, fields, "subject"); err != nil {
		return nil, err
	}
	if s.Date, err = stringField(stage, raw, fields, "date"); err != nil {
		return nil, err
	}
	if s.KeyPoints, err = stringSliceField(stage, raw, fields, "key_points"); err != nil {
		return nil, err
	}
	if s.RequestsActionItems, err = stringSliceField(stage, raw, fields, "requests_action_items"); err != nil {
		return nil, err
	}
	if s.Context, err = stringField(stage, raw, fields, "context"); err != nil {
		return nil, err
	}
	if s.Sentiment, err = stringField(stage, raw, fields, "sentiment"); err != nil {
		return nil, err
	}
	return s, nil
}

// DecodeResponseDecision validates decide-stage output
func DecodeResponseDecision(stage, raw string) (ResponseDecision, error) {
	fields, err := decodeObject(stage, raw, []string{"needs_response"})
	if err != nil {
		return "", err
	}
	v, err := enumField(stage, raw, fields, "needs_response",
		string(ResponseRespond), string(ResponseNotNeeded))
	if err != nil {
		return "", err
	}
	return ResponseDecision(v), nil
}

// DecodeCategoryDecision validates categorize-stage output
func DecodeCategoryDecision(stage, raw string) (CategoryDecision, error) {
	fields, err := decodeObject(stage, raw, []string{"category"})
	if err != nil {
		return "", err
	}
	v, err := enumField(stage, raw, fields, "category",
		string(CategoryMoveForward), string(CategoryDecline))
	if err != nil {
		return "", err
	}
	return CategoryDecision(v), nil
}

// DecodeMeetingDecision validates meeting-decider output
func DecodeMeetingDecision(stage, raw string) (MeetingDecision, error) {
	fields, err := decodeObject(stage, raw, []string{"is_meeting_request"})
	if err != nil {
		return "", err
	}
	v, err := enumField(stage, raw, fields, "is_meeting_request",
		string(MeetingYes), string(MeetingNo))
	if err != nil {
		return "", err
	}
	return MeetingDecision(v), nil
}

// DecodeEditorAnalysis validates editor-stage output
func DecodeEditorAnalysis(stage, raw string) (*EditorAnalysis, error) {
	fields, err := decodeObject(stage, raw, []string{"changes_summary", "specific_changes", "inferred_preferences", "recommendations"})
	if err != nil {
		return nil, err
	}

	a := &EditorAnalysis{}
	if a.ChangesSummary, err = stringField(stage, raw, fields, "changes_summary"); err != nil {
		return nil, err
	}
	if a.InferredPreferences, err = stringSliceField(stage, raw, fields, "inferred_preferences"); err != nil {
		return nil, err
	}
	if a.Recommendations, err = stringSliceField(stage, raw, fields, "recommendations"); err != nil {
		return nil, err
	}

	var changes []json.RawMessage
	if err := json.Unmarshal(fields["specific_changes"], &changes); err != nil {
		return nil, &MalformedOutputError{Stage: stage, Reason: "field \"specific_changes\" is not an array", Raw: raw}
	}
	changeFields := []string{"type", "original", "edited", "likely_reason"}
	for _, c := range changes {
		inner, err := decodeObject(stage, string(c), changeFields)
		if err != nil {
			return nil, err
		}
		sc := SpecificChange{}
		if sc.Type, err = stringField(stage, raw, inner, "type"); err != nil {
			return nil, err
		}
		if sc.Original, err = stringField(stage, raw, inner, "original"); err != nil {
			return nil, err
		}
		if sc.Edited, err = stringField(stage, raw, inner, "edited"); err != nil {
			return nil, err
		}
		if sc.LikelyReason, err = stringField(stage, raw, inner, "likely_reason"); err != nil {
			return nil, err
		}
		a.SpecificChanges = append(a.SpecificChanges, sc)
	}
	return a, nil
}

// ValidateDraftBody validates draft-stage output. Writers return plain
// text, not JSON; shape means a non-empty body carrying the fixed closing
// signature.
func ValidateDraftBody(stage, raw, signature string) (string, error) {
	body := strings.TrimSpace(raw)
	if body == "" {
		return "", &MalformedOutputError{Stage: stage, Reason: "empty draft body", Raw: raw}
	}
	if signature != "" && !strings.Contains(body, signature) {
		return "", &MalformedOutputError{Stage: stage, Reason: "draft body is missing the closing signature", Raw: raw}
	}
	return body, nil
}
