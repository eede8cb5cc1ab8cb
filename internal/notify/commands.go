package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hanbat-quant/sentinel/pkg/httputil"
	"github.com/hanbat-quant/sentinel/pkg/logger"
)

// CommandHandler answers one slash command with the text to send back.
// Every registered handler here is read-only per spec.md §4.14 — none of
// them are wired to mutate positions, the watchlist, or the cache.
type CommandHandler func(ctx context.Context, args string) (string, error)

// CommandRouter long-polls Telegram's getUpdates endpoint and dispatches
// recognized slash commands to registered handlers, mirroring
// original_source/notifiers/telegram_interactive.py's CommandHandler
// registration surface (/status /holdings /principles /report /evaluate)
// without its python-telegram-bot Application/ConversationHandler
// machinery — long-polling plus a flat command map covers every handler
// here since none of them are multi-step conversations.
type CommandRouter struct {
	http     *httputil.Client
	token    string
	chatID   string
	logger   *logger.Logger
	handlers map[string]CommandHandler
	offset   int64
}

func NewCommandRouter(token, chatID string, http *httputil.Client, log *logger.Logger) *CommandRouter {
	return &CommandRouter{
		http:     http,
		token:    token,
		chatID:   chatID,
		logger:   log,
		handlers: make(map[string]CommandHandler),
	}
}

// Register binds a slash command (without the leading "/") to a handler.
func (r *CommandRouter) Register(command string, handler CommandHandler) {
	r.handlers[command] = handler
}

type tgUpdate struct {
	UpdateID int64      `json:"update_id"`
	Message  *tgMessage `json:"message"`
}

type tgMessage struct {
	Text string  `json:"text"`
	Chat tgChat  `json:"chat"`
}

type tgChat struct {
	ID int64 `json:"id"`
}

type tgGetUpdatesResponse struct {
	OK     bool       `json:"ok"`
	Result []tgUpdate `json:"result"`
}

// Run polls getUpdates in a loop until ctx is canceled, dispatching any
// recognized command text to its handler and replying with the result.
func (r *CommandRouter) Run(ctx context.Context) error {
	if r.token == "" {
		return fmt.Errorf("notify: telegram token not configured")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := r.pollOnce(ctx); err != nil {
			r.logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("telegram command poll failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
			}
		}
	}
}

func (r *CommandRouter) pollOnce(ctx context.Context) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/getUpdates?timeout=30&offset=%d", r.token, r.offset)

	pollCtx, cancel := context.WithTimeout(ctx, 35*time.Second)
	defer cancel()

	resp, err := r.http.Get(pollCtx, url)
	if err != nil {
		return fmt.Errorf("getUpdates: %w", err)
	}
	defer resp.Body.Close()

	var parsed tgGetUpdatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode getUpdates: %w", err)
	}

	for _, update := range parsed.Result {
		r.offset = update.UpdateID + 1
		if update.Message == nil || update.Message.Text == "" {
			continue
		}
		command, args := parseCommand(update.Message.Text)
		handler, ok := r.handlers[command]
		if !ok {
			continue
		}
		reply, err := handler(ctx, args)
		if err != nil {
			r.logger.WithFields(map[string]interface{}{"command": command, "error": err.Error()}).Warn("command handler failed")
			reply = "요청 처리 중 오류가 발생했습니다."
		}
		sink := &TelegramSink{http: r.http, token: r.token, chatID: fmt.Sprintf("%d", update.Message.Chat.ID), logger: r.logger}
		if err := sink.SendText(ctx, reply); err != nil {
			r.logger.WithFields(map[string]interface{}{"command": command, "error": err.Error()}).Warn("command reply send failed")
		}
	}
	return nil
}

// parseCommand splits "/status extra args" into ("status", "extra args").
func parseCommand(text string) (command, args string) {
	if len(text) == 0 || text[0] != '/' {
		return "", ""
	}
	rest := text[1:]
	for i, r := range rest {
		if r == ' ' {
			return rest[:i], rest[i+1:]
		}
		if r == '@' {
			// Group-chat mentions ("/status@MyBot") — stop at the mention,
			// no args follow on the same token.
			return rest[:i], ""
		}
	}
	return rest, ""
}
