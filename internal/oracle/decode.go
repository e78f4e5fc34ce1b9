package oracle

import (
	"encoding/json"
	"sort"
	"strings"
)

// FailureKind classifies why a raw oracle reply could not be decoded.
type FailureKind string

const (
	// RawCodeInsteadOfStructure means the oracle emitted bare source
	// code (a known failure mode where the reply opens with a language
	// name) instead of structured data.
	RawCodeInsteadOfStructure FailureKind = "raw_code_instead_of_structure"

	// MalformedPayload means the extracted text was not valid JSON.
	MalformedPayload FailureKind = "malformed_payload"
)

// previewLimit bounds the offending-fragment preview carried in a
// decode failure.
const previewLimit = 200

// Payload is a successfully decoded oracle reply.
type Payload struct {
	Data map[string]any // parsed top-level object
	Keys []string       // sorted top-level keys, for stage mapping
}

// Failure describes a decode failure. All diagnostic information is
// carried here so failures are testable without log-scraping.
type Failure struct {
	Kind    FailureKind
	Preview string // offending fragment, truncated
	Raw     string // the original oracle text, untouched
}

// Result is the tagged outcome of decoding one oracle reply. Exactly
// one of Payload and Failure is non-nil.
type Result struct {
	Payload *Payload
	Failure *Failure
}

// OK reports whether decoding succeeded.
func (r Result) OK() bool { return r.Payload != nil }

// languageTokens are bare first-line words that mark a reply as raw
// source code rather than structured data.
var languageTokens = map[string]bool{
	"typescript": true,
	"javascript": true,
	"python":     true,
	"java":       true,
	"go":         true,
	"rust":       true,
	"c":          true,
	"cpp":        true,
}

// Decode extracts and parses a structured payload from raw oracle text.
// It never panics and holds no state: decoding the same text twice
// yields identical results.
//
// Extraction order: the interior of a ```json fence if present, else
// the interior of the first fence of any kind, else the text verbatim.
func Decode(raw string) Result {
	content := extractFenced(raw)
	trimmed := strings.TrimSpace(content)

	// Bare language token without an opening brace means the oracle
	// returned source code; don't bother parsing.
	if !strings.HasPrefix(trimmed, "{") && startsWithLanguageToken(trimmed) {
		return Result{Failure: &Failure{
			Kind:    RawCodeInsteadOfStructure,
			Preview: truncate(trimmed, previewLimit),
			Raw:     raw,
		}}
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(trimmed), &data); err != nil {
		return Result{Failure: &Failure{
			Kind:    MalformedPayload,
			Preview: truncate(trimmed, previewLimit),
			Raw:     raw,
		}}
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return Result{Payload: &Payload{Data: data, Keys: keys}}
}

// extractFenced returns the interior of the preferred fenced block, or
// the input unchanged when no fence is present.
func extractFenced(raw string) string {
	if idx := strings.Index(raw, "```json"); idx >= 0 {
		rest := raw[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return rest[:end]
		}
		return rest
	}
	if idx := strings.Index(raw, "```"); idx >= 0 {
		rest := raw[idx+3:]
		// Drop a language tag on the fence line itself.
		if nl := strings.Index(rest, "\n"); nl >= 0 && !strings.Contains(rest[:nl], "{") {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			return rest[:end]
		}
		return rest
	}
	return raw
}

// startsWithLanguageToken reports whether the first line is exactly a
// known language name.
func startsWithLanguageToken(s string) bool {
	if s == "" {
		return false
	}
	first := s
	if nl := strings.Index(s, "\n"); nl >= 0 {
		first = s[:nl]
	}
	return languageTokens[strings.TrimSpace(first)]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// StripFence removes a wrapping markdown fence from prose output (the
// report stage's replies are text, not JSON, but often arrive fenced).
func StripFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if idx := strings.Index(trimmed, "```markdown"); idx >= 0 {
		rest := trimmed[idx+len("```markdown"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	if strings.HasPrefix(trimmed, "```") {
		rest := trimmed[3:]
		if nl := strings.Index(rest, "\n"); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	return trimmed
}
