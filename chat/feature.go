// Package chat orchestrates one request/response cycle: resolve the user's
// state, build the prompt, call the selected backend, validate the reply
// when JSON mode is active and assemble the outgoing payload with inline
// controls for switching model and format.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ildar2244/advent4/format"
	"github.com/ildar2244/advent4/llm"
	"github.com/ildar2244/advent4/state"
)

// ValidationStatus records the outcome of the JSON check for a reply.
type ValidationStatus string

const (
	ValidationNotApplicable   ValidationStatus = "not_applicable"
	ValidationValid           ValidationStatus = "valid"
	ValidationInvalidFallback ValidationStatus = "invalid_fallback"
)

// ModelReply is built once per request/response cycle and rendered into the
// outgoing payload. FormatUsed echoes what was requested of the model, not
// necessarily what it produced.
type ModelReply struct {
	Content          string
	ModelDisplayName string
	FormatUsed       format.ResponseFormat
	ValidationStatus ValidationStatus
}

// Control is one inline button descriptor. The transport decides how to
// render it (Telegram uses callback data).
type Control struct {
	Label      string
	CallbackID string
}

// Payload is what goes back to the chat transport.
type Payload struct {
	Text     string
	Controls []Control
}

const (
	// Callback id prefixes understood by the transport dispatcher.
	ModelCallbackPrefix  = "llm_"
	FormatCallbackPrefix = "format_"
)

type Feature struct {
	registry *llm.Registry
	store    *state.Store
	logger   *slog.Logger
}

func New(registry *llm.Registry, store *state.Store, logger *slog.Logger) *Feature {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feature{
		registry: registry,
		store:    store,
		logger:   logger,
	}
}

// HandleMessage runs the full pipeline for one user message. Provider
// failures become a user-visible error payload; they are reported, not
// retried, and never fatal.
func (f *Feature) HandleMessage(ctx context.Context, userID int64, text string) Payload {
	requestID := uuid.NewString()
	st := f.store.GetState(userID)

	opt, ok := f.registry.Get(st.SelectedModel)
	if !ok {
		// Can only happen if the catalog changed under a live process.
		f.logger.Error("chat_model_missing", "request_id", requestID, "user_id", userID, "model", st.SelectedModel)
		return Payload{
			Text:     "The selected model is not available. Use /start to pick another one.",
			Controls: f.modelControls(),
		}
	}

	jsonMode := st.ResponseFormat == format.FormatJSON
	prompt := strings.TrimSpace(text)
	if jsonMode {
		prompt = format.WrapForJSON(prompt)
	}

	f.logger.Info("chat_request",
		"request_id", requestID,
		"user_id", userID,
		"model", opt.ID,
		"format", string(st.ResponseFormat),
		"text_len", len(text),
	)

	result, err := opt.Client.Chat(ctx, llm.Request{
		Model:     opt.Model,
		Messages:  []llm.Message{{Role: "user", Content: prompt}},
		ForceJSON: jsonMode,
	})
	if err != nil {
		return f.renderError(requestID, userID, opt, err)
	}

	reply := ModelReply{
		Content:          result.Text,
		ModelDisplayName: opt.DisplayName,
		FormatUsed:       st.ResponseFormat,
		ValidationStatus: ValidationNotApplicable,
	}
	if jsonMode {
		if res := format.Validate(result.Text); res.Valid {
			reply.ValidationStatus = ValidationValid
		} else {
			// The raw content is still delivered; the failure is recorded
			// for observability and flagged in the footer.
			reply.ValidationStatus = ValidationInvalidFallback
			f.logger.Warn("chat_json_validation_failed",
				"request_id", requestID,
				"user_id", userID,
				"model", opt.ID,
				"reason", res.Reason,
			)
		}
	}

	f.logger.Info("chat_response",
		"request_id", requestID,
		"user_id", userID,
		"model", opt.ID,
		"validation", string(reply.ValidationStatus),
		"duration", result.Duration.String(),
		"total_tokens", result.Usage.TotalTokens,
	)

	return Payload{
		Text:     renderReply(reply),
		Controls: f.modelControls(),
	}
}

// HandleStart produces the welcome payload with one control per registered
// model.
func (f *Feature) HandleStart(userID int64) Payload {
	st := f.store.GetState(userID)
	name := st.SelectedModel
	if opt, ok := f.registry.Get(st.SelectedModel); ok {
		name = opt.DisplayName
	}
	text := "Hi! I am an AI assistant with several models behind me.\n\n" +
		"Current model: " + name + "\n\n" +
		"How to use:\n" +
		"1. Pick a model with the buttons below\n" +
		"2. Send your question as a plain message\n" +
		"3. Switch the reply format with /format, /text or /json"
	return Payload{Text: text, Controls: f.modelControls()}
}

// HandleMenu restores the model selection keyboard.
func (f *Feature) HandleMenu(userID int64) Payload {
	return Payload{
		Text:     "Menu restored.\n\nPick a model to chat with:",
		Controls: f.modelControls(),
	}
}

// HandleModelSwitch applies a model switch and acknowledges it. No model
// call is involved.
func (f *Feature) HandleModelSwitch(userID int64, modelID string) Payload {
	if err := f.store.SetModel(userID, modelID); err != nil {
		f.logger.Warn("chat_model_switch_rejected", "user_id", userID, "model", modelID)
		return Payload{
			Text:     fmt.Sprintf("Unknown model %q. Pick one of the buttons below.", modelID),
			Controls: f.modelControls(),
		}
	}
	opt, _ := f.registry.Get(modelID)
	f.logger.Info("chat_model_switched", "user_id", userID, "model", modelID)
	return Payload{Text: "Model set: " + opt.DisplayName + "\n\nSend your question!"}
}

// HandleFormatSwitch applies a response-format switch and acknowledges it.
func (f *Feature) HandleFormatSwitch(userID int64, fm format.ResponseFormat) Payload {
	if err := f.store.SetFormat(userID, fm); err != nil {
		f.logger.Warn("chat_format_switch_rejected", "user_id", userID, "format", string(fm))
		return Payload{
			Text:     "Unsupported format. Use the buttons below.",
			Controls: f.formatControls(),
		}
	}
	f.logger.Info("chat_format_switched", "user_id", userID, "format", string(fm))
	if fm == format.FormatJSON {
		return Payload{Text: "JSON format enabled. Replies will look like:\n\n" +
			"{\"status\": \"success\", \"data\": {\"content\": \"answer text\"}, \"error\": null}"}
	}
	return Payload{Text: "Text format enabled. Replies will be plain text."}
}

// FormatStatus reports the current format with toggle controls.
func (f *Feature) FormatStatus(userID int64) Payload {
	st := f.store.GetState(userID)
	name := "text"
	if st.ResponseFormat == format.FormatJSON {
		name = "JSON"
	}
	return Payload{
		Text:     "Current reply format: " + name,
		Controls: f.formatControls(),
	}
}

func (f *Feature) renderError(requestID string, userID int64, opt llm.ModelOption, err error) Payload {
	var provErr *llm.ProviderError
	switch {
	case errors.Is(err, llm.ErrUnavailable):
		f.logger.Warn("chat_provider_unavailable", "request_id", requestID, "user_id", userID, "model", opt.ID, "error", err.Error())
		return Payload{Text: "Could not reach " + opt.DisplayName + ". Please try again in a moment.", Controls: f.modelControls()}
	case errors.Is(err, llm.ErrMalformedResponse):
		// Logged apart from provider errors for diagnosis, same user text.
		f.logger.Error("chat_provider_malformed_response", "request_id", requestID, "user_id", userID, "model", opt.ID, "error", err.Error())
		return Payload{Text: opt.DisplayName + " returned an unexpected reply. Please try again or pick another model.", Controls: f.modelControls()}
	case errors.As(err, &provErr):
		f.logger.Error("chat_provider_error", "request_id", requestID, "user_id", userID, "model", opt.ID, "status", provErr.StatusCode, "error", provErr.Message)
		return Payload{Text: opt.DisplayName + " reported an error. Please try again or pick another model.", Controls: f.modelControls()}
	default:
		f.logger.Error("chat_error", "request_id", requestID, "user_id", userID, "model", opt.ID, "error", err.Error())
		return Payload{Text: "Something went wrong while generating the reply. Please try again.", Controls: f.modelControls()}
	}
}

func (f *Feature) modelControls() []Control {
	opts := f.registry.List()
	out := make([]Control, 0, len(opts))
	for _, opt := range opts {
		out = append(out, Control{Label: opt.DisplayName, CallbackID: ModelCallbackPrefix + opt.ID})
	}
	return out
}

func (f *Feature) formatControls() []Control {
	return []Control{
		{Label: "Text format", CallbackID: FormatCallbackPrefix + string(format.FormatText)},
		{Label: "JSON format", CallbackID: FormatCallbackPrefix + string(format.FormatJSON)},
	}
}

func renderReply(reply ModelReply) string {
	footer := "\n\n---\nModel: " + reply.ModelDisplayName
	if reply.ValidationStatus == ValidationInvalidFallback {
		footer += "\nNote: JSON format was requested but the reply did not match it; showing it as-is."
	}
	return reply.Content + footer
}
