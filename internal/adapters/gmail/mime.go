package gmail

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"
)

// displayLocation is the timezone message dates are rendered in before
// they reach the model
var displayLocation = loadDisplayLocation()

func loadDisplayLocation() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}

// extractBody extracts the message body from the payload, preferring
// plain text over HTML
func extractBody(payload *gmail.MessagePart) string {
	text := extractPartByMime(payload, "text/plain")
	if text != "" {
		return text
	}

	html := extractPartByMime(payload, "text/html")
	if html != "" {
		return stripHTMLTags(html)
	}

	return ""
}

// extractPartByMime recursively finds the first part with the given MIME type
func extractPartByMime(part *gmail.MessagePart, mimeType string) string {
	if part == nil {
		return ""
	}

	if strings.HasPrefix(part.MimeType, mimeType) {
		if part.Body != nil && part.Body.Data != "" {
			decoded, err := base64.URLEncoding.DecodeString(part.Body.Data)
			if err == nil {
				return string(decoded)
			}
		}
	}

	for _, subpart := range part.Parts {
		if result := extractPartByMime(subpart, mimeType); result != "" {
			return result
		}
	}

	return ""
}

// stripHTMLTags removes HTML tags (basic implementation)
func stripHTMLTags(html string) string {
	var result strings.Builder
	inTag := false

	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			result.WriteRune(r)
		}
	}

	// Clean up whitespace
	text := result.String()
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\t", " ")

	for strings.Contains(text, "  ") {
		text = strings.ReplaceAll(text, "  ", " ")
	}
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(text)
}

// parseDate attempts to parse the common Date header formats
func parseDate(s string) (time.Time, error) {
	formats := []string{
		time.RFC1123Z,
		time.RFC1123,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		"2 Jan 2006 15:04:05 -0700",
		"Mon, 02 Jan 2006 15:04:05 -0700 (MST)",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}

// normalizeDate renders a Date header value in the display timezone. An
// unparseable value passes through unchanged.
func normalizeDate(s string) string {
	t, err := parseDate(s)
	if err != nil {
		return s
	}
	return t.In(displayLocation).Format("2006-01-02 15:04:05")
}

// formatInternalDate renders a Gmail internal timestamp (epoch millis)
// in the display timezone
func formatInternalDate(millis int64) string {
	return time.Unix(millis/1000, 0).In(displayLocation).Format("2006-01-02 15:04:05")
}

// containsLabel checks if a label id is present
func containsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

// isUsefulHeader returns true for headers preserved on the message for
// reply threading
func isUsefulHeader(name string) bool {
	useful := map[string]bool{
		"message-id":  true,
		"in-reply-to": true,
		"references":  true,
		"reply-to":    true,
	}
	return useful[strings.ToLower(name)]
}
