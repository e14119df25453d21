package utils

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TextProcessor provides utilities for processing text
type TextProcessor struct {
	logger     *zap.Logger
	urlPattern *regexp.Regexp
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger:     logger,
		urlPattern: regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`),
	}
}

// TruncateText safely truncates text to the specified maximum size
// and ensures the result is valid UTF-8
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	// If no limit or text is already within limits, return as is
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	// First truncate to the byte limit
	truncated := text[:maxSize]

	// Ensure the truncated text ends with a valid UTF-8 sequence
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		// Remove bytes until we have valid UTF-8
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + "\n[... Content truncated due to size limits ...]"
}

// SanitizeUTF8 ensures the string contains only valid UTF-8 characters
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	// Replace invalid UTF-8 sequences with the Unicode replacement character
	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				// Skip invalid UTF-8 sequences
				continue
			}
		}
		result = append(result, r)
	}

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(string(result))))

	return string(result)
}

// CleanText normalizes email text before it is handed to a model: HTML
// entities are unescaped, Unicode is NFC-normalized, URLs and invisible
// formatting characters are stripped, and whitespace is collapsed
func (tp *TextProcessor) CleanText(text string) string {
	if text == "" {
		return text
	}

	unescaped := html.UnescapeString(text)

	// Strip tracking links and raw URLs; they carry no signal and eat tokens
	unescaped = tp.urlPattern.ReplaceAllString(unescaped, "")

	// NFC-normalize, drop zero-width/format/private-use runes and
	// non-whitespace control characters
	t := transform.Chain(norm.NFC, runes.Remove(runes.Predicate(func(r rune) bool {
		if r == '\n' || r == '\r' || r == '\t' {
			return false
		}
		return unicode.Is(unicode.Cf, r) || unicode.Is(unicode.Co, r) || unicode.Is(unicode.Cc, r)
	})))
	cleaned, _, err := transform.String(t, unescaped)
	if err != nil {
		tp.logger.Debug("Text normalization failed, keeping unescaped form", zap.Error(err))
		cleaned = unescaped
	}

	return strings.Join(strings.Fields(cleaned), " ")
}

// ProcessText cleans, truncates and sanitizes text in one operation
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	cleaned := tp.CleanText(text)

	// Then truncate
	truncated := tp.TruncateText(cleaned, maxSize)

	// Then sanitize
	sanitized := tp.SanitizeUTF8(truncated)

	return sanitized
}
