package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ildar2244/advent4/chat"
	"github.com/ildar2244/advent4/format"
	"github.com/ildar2244/advent4/internal/llmutil"
	"github.com/ildar2244/advent4/internal/logutil"
	"github.com/ildar2244/advent4/state"
)

type telegramJob struct {
	ChatID     int64
	FromUserID int64
	Text       string
}

type telegramChatWorker struct {
	Jobs chan telegramJob
}

func newTelegramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "telegram",
		Short: "Run the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(flagOrViperString(cmd, "telegram-bot-token", "telegram.bot_token"))
			if token == "" {
				return fmt.Errorf("missing telegram.bot_token (set via --telegram-bot-token or %s_TELEGRAM_BOT_TOKEN)", envPrefix)
			}

			baseURL := "https://api.telegram.org"

			allowed := make(map[int64]bool)
			for _, s := range flagOrViperStringArray(cmd, "telegram-allowed-chat-id", "telegram.allowed_chat_ids") {
				s = strings.TrimSpace(s)
				if s == "" {
					continue
				}
				id, err := strconv.ParseInt(s, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid telegram.allowed_chat_ids entry %q: %w", s, err)
				}
				allowed[id] = true
			}

			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			registry, err := llmutil.RegistryFromViper()
			if err != nil {
				return err
			}
			store := state.NewStore(registry)
			feature := chat.New(registry, store, logger)

			pollTimeout := flagOrViperDuration(cmd, "telegram-poll-timeout", "telegram.poll_timeout")
			if pollTimeout <= 0 {
				pollTimeout = 30 * time.Second
			}
			taskTimeout := flagOrViperDuration(cmd, "telegram-task-timeout", "telegram.task_timeout")
			if taskTimeout <= 0 {
				taskTimeout = 2 * time.Minute
			}
			maxConc := flagOrViperInt(cmd, "telegram-max-concurrency", "telegram.max_concurrency")
			if maxConc <= 0 {
				maxConc = 3
			}
			sem := make(chan struct{}, maxConc)

			httpClient := &http.Client{Timeout: 60 * time.Second}
			api := newTelegramAPI(httpClient, baseURL, token)

			me, err := api.getMe(context.Background())
			if err != nil {
				return err
			}

			logger.Info("telegram_start",
				"bot_username", me.Username,
				"bot_id", me.ID,
				"models", registry.Len(),
				"poll_timeout", pollTimeout.String(),
				"task_timeout", taskTimeout.String(),
				"max_concurrency", maxConc,
			)

			var (
				mu      sync.Mutex
				workers = make(map[int64]*telegramChatWorker)
				offset  int64
			)

			getOrStartWorkerLocked := func(chatID int64) *telegramChatWorker {
				if w, ok := workers[chatID]; ok && w != nil {
					return w
				}
				w := &telegramChatWorker{Jobs: make(chan telegramJob, 16)}
				workers[chatID] = w

				go func(chatID int64, w *telegramChatWorker) {
					for job := range w.Jobs {
						// Global concurrency limit.
						sem <- struct{}{}
						func() {
							defer func() { <-sem }()

							typingStop := startTypingTicker(context.Background(), api, chatID, 4*time.Second)
							defer typingStop()

							ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
							payload := feature.HandleMessage(ctx, job.FromUserID, job.Text)
							cancel()

							if err := api.sendMessageChunked(context.Background(), chatID, payload.Text, inlineKeyboard(payload)); err != nil {
								logger.Warn("telegram_send_error", "chat_id", chatID, "error", err.Error())
							}
						}()
					}
				}(chatID, w)

				return w
			}

			for {
				updates, nextOffset, err := api.getUpdates(context.Background(), offset, pollTimeout)
				if err != nil {
					logger.Warn("telegram_get_updates_error", "error", err.Error())
					time.Sleep(1 * time.Second)
					continue
				}
				offset = nextOffset

				for _, u := range updates {
					if u.CallbackQuery != nil {
						handleCallback(logger, api, feature, allowed, u.CallbackQuery)
						continue
					}

					msg := u.Message
					if msg == nil {
						msg = u.EditedMessage
					}
					if msg == nil || msg.Chat == nil {
						continue
					}
					chatID := msg.Chat.ID
					text := strings.TrimSpace(msg.Text)

					fromUserID := chatID
					if msg.From != nil && !msg.From.IsBot {
						fromUserID = msg.From.ID
					}

					if len(allowed) > 0 && !allowed[chatID] {
						logger.Warn("telegram_unauthorized_chat", "chat_id", chatID)
						_ = api.sendMessage(context.Background(), chatID, "unauthorized", nil)
						continue
					}

					cmdWord, cmdArgs := splitCommand(text)
					switch normalizeSlashCommand(cmdWord) {
					case "/start", "/help":
						sendPayload(logger, api, chatID, feature.HandleStart(fromUserID))
						continue
					case "/menu":
						sendPayload(logger, api, chatID, feature.HandleMenu(fromUserID))
						continue
					case "/format":
						sendPayload(logger, api, chatID, feature.FormatStatus(fromUserID))
						continue
					case "/text":
						sendPayload(logger, api, chatID, feature.HandleFormatSwitch(fromUserID, format.FormatText))
						continue
					case "/json":
						sendPayload(logger, api, chatID, feature.HandleFormatSwitch(fromUserID, format.FormatJSON))
						continue
					case "/id":
						_ = api.sendMessage(context.Background(), chatID, fmt.Sprintf("chat_id=%d user_id=%d", chatID, fromUserID), nil)
						continue
					case "/ask":
						if strings.TrimSpace(cmdArgs) == "" {
							_ = api.sendMessage(context.Background(), chatID, "usage: /ask <question>", nil)
							continue
						}
						text = strings.TrimSpace(cmdArgs)
					default:
						if text == "" {
							continue
						}
					}

					// Enqueue to per-chat worker (per chat serial; across chats parallel).
					mu.Lock()
					w := getOrStartWorkerLocked(chatID)
					mu.Unlock()
					logger.Info("telegram_message_enqueued", "chat_id", chatID, "user_id", fromUserID, "text_len", len(text))
					w.Jobs <- telegramJob{
						ChatID:     chatID,
						FromUserID: fromUserID,
						Text:       text,
					}
				}
			}
		},
	}

	cmd.Flags().String("telegram-bot-token", "", "Telegram bot token.")
	cmd.Flags().StringArray("telegram-allowed-chat-id", nil, "Allowed chat id(s). If empty, allows all.")
	cmd.Flags().Duration("telegram-poll-timeout", 30*time.Second, "Long polling timeout for getUpdates.")
	cmd.Flags().Duration("telegram-task-timeout", 2*time.Minute, "Per-message timeout.")
	cmd.Flags().Int("telegram-max-concurrency", 3, "Max number of chats processed concurrently.")

	return cmd
}

// handleCallback routes a button press: model switches and format switches
// are state-only operations, so they run inline rather than in a worker.
func handleCallback(logger *slog.Logger, api *telegramAPI, feature *chat.Feature, allowed map[int64]bool, cb *telegramCallbackQuery) {
	_ = api.answerCallbackQuery(context.Background(), cb.ID)

	if cb.Message == nil || cb.Message.Chat == nil || cb.From == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	userID := cb.From.ID

	if len(allowed) > 0 && !allowed[chatID] {
		logger.Warn("telegram_unauthorized_chat", "chat_id", chatID)
		return
	}

	data := strings.TrimSpace(cb.Data)
	var payload chat.Payload
	switch {
	case strings.HasPrefix(data, chat.ModelCallbackPrefix):
		modelID := strings.TrimPrefix(data, chat.ModelCallbackPrefix)
		payload = feature.HandleModelSwitch(userID, modelID)
	case strings.HasPrefix(data, chat.FormatCallbackPrefix):
		fm := format.ResponseFormat(strings.TrimPrefix(data, chat.FormatCallbackPrefix))
		payload = feature.HandleFormatSwitch(userID, fm)
	default:
		logger.Warn("telegram_unknown_callback", "chat_id", chatID, "data", data)
		return
	}

	// Replace the keyboard message with the confirmation in place; fall back
	// to a fresh message if the edit is rejected (e.g. message too old).
	if err := api.editMessageText(context.Background(), chatID, cb.Message.MessageID, payload.Text, inlineKeyboard(payload)); err != nil {
		sendPayload(logger, api, chatID, payload)
	}
}

func sendPayload(logger *slog.Logger, api *telegramAPI, chatID int64, payload chat.Payload) {
	if err := api.sendMessageChunked(context.Background(), chatID, payload.Text, inlineKeyboard(payload)); err != nil {
		logger.Warn("telegram_send_error", "chat_id", chatID, "error", err.Error())
	}
}

// inlineKeyboard renders payload controls one button per row.
func inlineKeyboard(payload chat.Payload) *telegramInlineKeyboardMarkup {
	if len(payload.Controls) == 0 {
		return nil
	}
	rows := make([][]telegramInlineKeyboardButton, 0, len(payload.Controls))
	for _, c := range payload.Controls {
		rows = append(rows, []telegramInlineKeyboardButton{{
			Text:         c.Label,
			CallbackData: c.CallbackID,
		}})
	}
	return &telegramInlineKeyboardMarkup{InlineKeyboard: rows}
}
