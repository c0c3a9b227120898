// Package guard sanitizes free-text user input and rejects suspected
// prompt-injection payloads before they reach any AI provider.
//
// The checks are heuristic, not semantic. False positives are accepted as
// the cost of fronting an LLM-backed service that has no downstream
// firewall.
package guard

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// ValidationError reports user-correctable input problems. It maps to an
// HTTP 400 at the transport layer.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Known jailbreak phrasings. Matched case-insensitively against the
// sanitized text.
var suspiciousPatterns = []string{
	`ignore (previous|all|above|prior) (instructions|prompts|commands)`,
	`disregard (previous|all|above|prior) (instructions|prompts|commands)`,
	`forget (previous|all|above|prior) (instructions|prompts|commands)`,
	`you are now`,
	`new (instructions|rules|role|personality)`,
	`system (prompt|message|role)`,
	`<\|.*?\|>`,
	`###\s*instruction`,
	`---\s*instruction`,
	`act as (if|though)`,
	`pretend (you are|to be)`,
	`roleplay as`,
	`simulate (being|a)`,
	`(execute|run) (code|command|script)`,
	`admin (mode|access|override)`,
	`developer (mode|access|override)`,
	`sudo`,
	`\[SYSTEM\]`,
	`\[ADMIN\]`,
}

var (
	suspiciousRe = regexp.MustCompile(`(?i)` + strings.Join(suspiciousPatterns, "|"))
	newlineRunRe = regexp.MustCompile(`\n{4,}`)
	spaceRunRe   = regexp.MustCompile(` {4,}`)
)

// Characters that tend to break prompt structure when they dominate the
// input.
const promptSpecialChars = "<>[]{}|#*`"

const maxSpecialCharRatio = 0.15

// Words whose repetition is a strong injection signal.
var watchWords = []string{"instruction", "command", "prompt", "system", "ignore", "disregard"}

const maxWatchWordCount = 3

// Sanitize normalizes raw user text. The steps run in a fixed order, each
// on the previous step's output: truncate to maxLength runes, drop
// non-printable characters other than newline and tab, collapse runs of 4+
// newlines or spaces to exactly 3, strip zero-width characters, and trim
// surrounding whitespace.
func Sanitize(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) > maxLength {
		runes = runes[:maxLength]
	}

	var b strings.Builder
	b.Grow(len(runes))
	for _, r := range runes {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			b.WriteRune(r)
		}
	}
	text = b.String()

	text = newlineRunRe.ReplaceAllString(text, "\n\n\n")
	text = spaceRunRe.ReplaceAllString(text, "   ")

	// Zero-width characters can hide injection payloads from review.
	text = strings.NewReplacer("​", "", "‌", "", "‍", "").Replace(text)

	return strings.TrimSpace(text)
}

// DetectInjection evaluates the injection heuristics against already
// sanitized text. It returns whether the text is suspicious and a short
// reason suitable for logging.
func DetectInjection(text string) (bool, string) {
	if text == "" {
		return false, ""
	}

	if suspiciousRe.MatchString(text) {
		return true, "suspicious instruction patterns detected"
	}

	runes := []rune(text)
	special := 0
	for _, r := range runes {
		if strings.ContainsRune(promptSpecialChars, r) {
			special++
		}
	}
	if float64(special)/float64(len(runes)) > maxSpecialCharRatio {
		return true, "excessive special characters"
	}

	lower := strings.ToLower(text)
	for _, word := range watchWords {
		if strings.Count(lower, word) > maxWatchWordCount {
			return true, "repeated suspicious keywords"
		}
	}

	return false, ""
}

// SanitizeAndValidate runs the full guard pipeline on one input field. It
// returns the sanitized text, or a *ValidationError when the input is
// empty, sanitizes to nothing, or trips an injection heuristic.
func SanitizeAndValidate(text, field string, maxLength int) (string, error) {
	if text == "" {
		return "", &ValidationError{Field: field, Reason: "must be a non-empty string"}
	}

	cleaned := Sanitize(text, maxLength)
	if cleaned == "" {
		return "", &ValidationError{Field: field, Reason: "empty after sanitization"}
	}

	if suspicious, reason := DetectInjection(cleaned); suspicious {
		return "", &ValidationError{Field: field, Reason: reason}
	}

	return cleaned, nil
}
