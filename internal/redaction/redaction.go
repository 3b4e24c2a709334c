// Package redaction masks credentials before they reach logs or the terminal.
package redaction

import (
	"regexp"
)

// sensitivePatterns are compiled once at package init and applied in order.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+(?:\.[a-zA-Z0-9_-]*)?`), // JWTs
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._~+/=-]+`),                          // Authorization headers
	regexp.MustCompile(`pi_[a-zA-Z0-9]+_secret_[a-zA-Z0-9]+`),                       // payment intent client secrets
	regexp.MustCompile(`(?i)sk_(?:live|test)_[a-zA-Z0-9]+`),                         // payment provider keys
}

// sensitiveFields matches JSON string members whose values must never be shown.
var sensitiveFields = regexp.MustCompile(`("(?:access_token|refresh_token|password|client_secret)"\s*:\s*)"[^"]*"`)

const replacement = "[REDACTED]"

// Redact masks tokens, secrets and password fields in text.
func Redact(text string) string {
	text = sensitiveFields.ReplaceAllString(text, `${1}"`+replacement+`"`)
	for _, re := range sensitivePatterns {
		text = re.ReplaceAllString(text, replacement)
	}
	return text
}

// MaskToken keeps the first few characters of a token for identification and
// hides the rest. Short tokens are hidden entirely.
func MaskToken(token string) string {
	const keep = 6
	if token == "" {
		return ""
	}
	if len(token) <= keep*2 {
		return replacement
	}
	return token[:keep] + "…" + replacement
}
