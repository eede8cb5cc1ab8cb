// Package notify implements C14: a message-sink interface and a Telegram
// Bot API backing, grounded on the teacher's httputil client conventions
// and on original_source/notifiers/telegram_bot.py's send/format split
// (format stays with each caller; this package only transports).
package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"time"

	"github.com/hanbat-quant/sentinel/pkg/config"
	"github.com/hanbat-quant/sentinel/pkg/httputil"
	"github.com/hanbat-quant/sentinel/pkg/logger"
)

// messageLimit mirrors telegram_bot.py's _split_message(limit=4096) — the
// Bot API's hard per-message character cap.
const messageLimit = 4096

// chunkDelay mirrors telegram_bot.py's asyncio.sleep(0.5) between chunks,
// staying under Telegram's per-chat flood limit.
const chunkDelay = 500 * time.Millisecond

// Sink is C14's message-sink interface. internal/collectors.Notifier is a
// narrower read of the same capability (SendText only); Sink is the full
// surface other modules depend on directly.
type Sink interface {
	SendText(ctx context.Context, message string) error
	SendPhoto(ctx context.Context, photoPNG []byte, caption string) error
}

// TelegramSink sends messages through the raw Bot API over HTTP — no
// third-party Telegram SDK is used since the teacher's own stack and the
// rest of the retrieval pack don't carry one; the Bot API is a handful of
// plain POST endpoints, well within pkg/httputil's existing surface.
type TelegramSink struct {
	http    *httputil.Client
	token   string
	chatID  string
	logger  *logger.Logger
}

func NewTelegramSink(cfg config.TelegramConfig, http *httputil.Client, log *logger.Logger) *TelegramSink {
	return &TelegramSink{http: http, token: cfg.Token, chatID: cfg.ChatID, logger: log}
}

func (s *TelegramSink) apiURL(method string) string {
	return fmt.Sprintf("https://api.telegram.org/bot%s/%s", s.token, method)
}

// SendText chunks message at messageLimit runes and sends each chunk as
// its own sendMessage call, spaced by chunkDelay.
func (s *TelegramSink) SendText(ctx context.Context, message string) error {
	if s.token == "" || s.chatID == "" {
		return fmt.Errorf("telegram: not configured")
	}
	chunks := splitMessage(message, messageLimit)
	for i, chunk := range chunks {
		form := url.Values{
			"chat_id":    {s.chatID},
			"text":       {chunk},
			"parse_mode": {"HTML"},
		}
		resp, err := s.http.PostForm(ctx, s.apiURL("sendMessage"), form)
		if err != nil {
			return fmt.Errorf("telegram sendMessage chunk %d/%d: %w", i+1, len(chunks), err)
		}
		resp.Body.Close()

		if i < len(chunks)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(chunkDelay):
			}
		}
	}
	return nil
}

// SendPhoto posts a PNG buffer through sendPhoto as multipart/form-data —
// the chart-image path (SPEC_FULL.md supplemented feature 1).
func (s *TelegramSink) SendPhoto(ctx context.Context, photoPNG []byte, caption string) error {
	if s.token == "" || s.chatID == "" {
		return fmt.Errorf("telegram: not configured")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("chat_id", s.chatID); err != nil {
		return fmt.Errorf("write chat_id field: %w", err)
	}
	if caption != "" {
		if err := writer.WriteField("caption", truncateCaption(caption)); err != nil {
			return fmt.Errorf("write caption field: %w", err)
		}
	}
	part, err := writer.CreateFormFile("photo", "chart.png")
	if err != nil {
		return fmt.Errorf("create photo part: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(photoPNG)); err != nil {
		return fmt.Errorf("write photo bytes: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	resp, err := s.http.Post(ctx, s.apiURL("sendPhoto"), writer.FormDataContentType(), &body)
	if err != nil {
		return fmt.Errorf("telegram sendPhoto: %w", err)
	}
	resp.Body.Close()
	return nil
}

// truncateCaption matches Telegram's 1024-char caption ceiling.
func truncateCaption(caption string) string {
	runes := []rune(caption)
	if len(runes) <= 1024 {
		return caption
	}
	return string(runes[:1024])
}

// splitMessage breaks text into chunks at a rune boundary no larger than
// limit, preferring to break on a newline near the limit so formatting
// isn't cut mid-line.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(runes) > 0 {
		if len(runes) <= limit {
			chunks = append(chunks, string(runes))
			break
		}
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	return chunks
}
