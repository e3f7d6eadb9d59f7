// Package format holds the prompt templates and the validator for the
// structured-response mode: when a user asks for JSON, the remote model is
// instructed to answer with a fixed envelope shape, and whatever comes back
// is checked against that shape before rendering.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ResponseFormat is the per-user output mode toggle.
type ResponseFormat string

const (
	FormatText ResponseFormat = "text"
	FormatJSON ResponseFormat = "json"
)

// ParseResponseFormat accepts the two supported mode names, case-insensitive.
func ParseResponseFormat(s string) (ResponseFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(FormatText):
		return FormatText, true
	case string(FormatJSON):
		return FormatJSON, true
	default:
		return "", false
	}
}

// Envelope is the JSON object shape requested of the model in JSON mode.
// Exactly one of Data/Error is non-null, consistent with Status.
type Envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *string         `json:"error"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

const jsonSystemPrompt = `You must answer ONLY with a JSON object. Do not add any other text, explanation or formatting around it. The reply must be valid JSON that parses as-is.

Example of a correct reply:
{"status": "success", "data": {"content": "Your answer here"}, "error": null}

Example of an error reply:
{"status": "error", "data": null, "error": "Error description"}

The "data" field may carry arbitrary structured content, for example:
{"status": "success", "data": {"name": "John Doe", "age": 30, "courses": ["History", "Math"]}, "error": null}

Make sure the JSON is syntactically correct and contains the "status", "data" and "error" fields.`

// JSONSystemPrompt returns the fixed instruction directing the model to
// answer strictly as an envelope-shaped JSON object.
func JSONSystemPrompt() string {
	return jsonSystemPrompt
}

// WrapForJSON combines the JSON instruction with the raw user text. Text-mode
// requests bypass this entirely; the caller decides which path to take.
func WrapForJSON(userText string) string {
	return jsonSystemPrompt + "\n\nUser request:\n" + strings.TrimSpace(userText) + "\n\nReply in JSON:"
}

// ValidationResult is the outcome of checking a model reply against the
// envelope shape. Valid carries the parsed envelope; Invalid carries the
// reason for observability.
type ValidationResult struct {
	Valid    bool
	Envelope Envelope
	Reason   string
}

// Validate checks raw against the envelope contract. It is total: any input,
// including empty or truncated text, yields a result and never a panic.
// Remote models are not guaranteed to honor formatting instructions, so the
// caller always has a fallback branch.
func Validate(raw string) ValidationResult {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return invalid("empty response")
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))

	// Decode into a field map first: RawMessage alone cannot tell an absent
	// key from an explicit null, and all three keys are required.
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return invalid(fmt.Sprintf("not an envelope object: %v", err))
	}
	// Trailing content after the object means the model wrapped the JSON in
	// prose, which violates the contract.
	if dec.More() {
		return invalid("trailing content after JSON object")
	}
	for _, key := range []string{"status", "data", "error"} {
		if _, ok := fields[key]; !ok {
			return invalid(fmt.Sprintf("missing required field %q", key))
		}
	}

	var env Envelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return invalid(fmt.Sprintf("malformed envelope fields: %v", err))
	}

	switch env.Status {
	case StatusSuccess, StatusError:
	default:
		return invalid(fmt.Sprintf("invalid status %q", env.Status))
	}

	hasData := !isJSONNull(env.Data)
	hasError := env.Error != nil
	if hasData == hasError {
		return invalid("exactly one of data/error must be set")
	}
	if env.Status == StatusSuccess && !hasData {
		return invalid("status success requires non-null data")
	}
	if env.Status == StatusError && !hasError {
		return invalid("status error requires non-null error")
	}

	return ValidationResult{Valid: true, Envelope: env}
}

func invalid(reason string) ValidationResult {
	return ValidationResult{Reason: reason}
}

func isJSONNull(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return true
	}
	return string(bytes.TrimSpace(raw)) == "null"
}
