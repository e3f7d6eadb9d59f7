package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ildar2244/advent4/format"
	"github.com/ildar2244/advent4/internal/llmutil"
	"github.com/ildar2244/advent4/internal/logutil"
	"github.com/ildar2244/advent4/llm"
)

// newAskCmd sends a single question to one of the configured models from
// the command line. Useful for checking proxy credentials and model wiring
// without a bot token.
func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a configured model a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			registry, err := llmutil.RegistryFromViper()
			if err != nil {
				return err
			}

			modelID, _ := cmd.Flags().GetString("model")
			opt, ok := registry.Default()
			if strings.TrimSpace(modelID) != "" {
				opt, ok = registry.Get(modelID)
			}
			if !ok {
				return fmt.Errorf("unknown model %q", modelID)
			}

			asJSON, _ := cmd.Flags().GetBool("json")
			question := strings.TrimSpace(strings.Join(args, " "))
			if asJSON {
				question = format.WrapForJSON(question)
			}

			timeout, _ := cmd.Flags().GetDuration("timeout")
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			start := time.Now()
			result, err := opt.Client.Chat(ctx, llm.Request{
				Model:     opt.Model,
				Messages:  []llm.Message{{Role: "user", Content: question}},
				ForceJSON: asJSON,
			})
			if err != nil {
				return err
			}

			if asJSON {
				if res := format.Validate(result.Text); !res.Valid {
					logger.Warn("ask_json_validation_failed", "model", opt.ID, "reason", res.Reason)
				}
			}

			logger.Info("ask_done",
				"model", opt.ID,
				"duration", time.Since(start).String(),
				"total_tokens", result.Usage.TotalTokens,
			)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.Text)
			return nil
		},
	}

	cmd.Flags().String("model", "", "Model id to use (defaults to the first configured model).")
	cmd.Flags().Bool("json", false, "Request a structured JSON reply.")
	cmd.Flags().Duration("timeout", 2*time.Minute, "Overall request timeout.")

	return cmd
}
