package utils

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// TextProcessor provides utilities for processing text
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextProcessor{
		logger: logger,
	}
}

// TruncateRunes cuts text to at most maxRunes characters and appends suffix
// when something was cut. A maxRunes <= 0 disables the limit.
func (tp *TextProcessor) TruncateRunes(text string, maxRunes int, suffix string) string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}

	count := 0
	for i := range text {
		if count == maxRunes {
			tp.logger.Debug("Text truncated",
				zap.Int("original_size", len(text)),
				zap.Int("truncated_size", i),
				zap.Int("max_runes", maxRunes))
			return text[:i] + suffix
		}
		count++
	}
	return text
}

// SanitizeUTF8 ensures the string contains only valid UTF-8 characters
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	// Drop invalid bytes, keep everything else
	var b strings.Builder
	b.Grow(len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(text[i:]); size == 1 {
				continue
			}
		}
		b.WriteRune(r)
	}

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", b.Len()))

	return b.String()
}

// ProcessText sanitizes and then truncates text to maxRunes characters
func (tp *TextProcessor) ProcessText(text string, maxRunes int) string {
	return tp.TruncateRunes(tp.SanitizeUTF8(text), maxRunes, "")
}

// CleanWhitespace collapses runs of spaces and tabs, caps consecutive blank
// lines at one and trims the result
func CleanWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// AppendUnique appends items not already present in list, preserving first-seen
// order, and stops once the list holds max items (max <= 0 means no limit)
func AppendUnique(list []string, max int, items ...string) []string {
	seen := make(map[string]struct{}, len(list)+len(items))
	for _, s := range list {
		seen[s] = struct{}{}
	}
	for _, s := range items {
		if max > 0 && len(list) >= max {
			break
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		list = append(list, s)
	}
	return list
}

// Fold lowercases text and strips diacritics ("Itaú" -> "itau")
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	return strings.ToLower(folded)
}
