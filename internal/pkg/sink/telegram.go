package sink

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Kargones/logtree/internal/pkg/record"
)

// DefaultTelegramAPIURL — базовый URL Telegram Bot API.
const DefaultTelegramAPIURL = "https://api.telegram.org/bot"

// telegramParseMode — Markdown v1: экранирование проще, чем у MarkdownV2.
const telegramParseMode = "Markdown"

// maxTelegramFields ограничивает число полей записи в сообщении.
const maxTelegramFields = 10

// TelegramConfig содержит параметры telegram sink'а.
type TelegramConfig struct {
	// BotToken — токен бота. Обязателен.
	BotToken string

	// ChatIDs — чаты получателей. Обязателен хотя бы один.
	ChatIDs []string

	// APIURL — базовый URL Bot API. По умолчанию DefaultTelegramAPIURL.
	APIURL string

	// Timeout — таймаут одного запроса. По умолчанию DefaultNotifyTimeout.
	Timeout time.Duration

	// Rules — отбор и подавление повторов.
	Rules NotifyRules
}

// TelegramSink отправляет записи сообщением бота в чаты Telegram.
// По умолчанию принимает записи от ERROR и выше.
type TelegramSink struct {
	notifier
	config TelegramConfig
}

// Compile-time проверка реализации интерфейса
var _ Sink = (*TelegramSink)(nil)

// NewTelegramSink создаёт TelegramSink. Из опций учитывается только WithLevel.
func NewTelegramSink(config TelegramConfig, opts ...Option) (*TelegramSink, error) {
	if config.BotToken == "" {
		return nil, ErrTelegramTokenRequired
	}
	if len(config.ChatIDs) == 0 {
		return nil, ErrTelegramChatRequired
	}
	if config.APIURL == "" {
		config.APIURL = DefaultTelegramAPIURL
	}
	return &TelegramSink{
		notifier: newNotifier(config.Rules, config.Timeout, opts),
		config:   config,
	}, nil
}

// Write отправляет запись во все чаты. Ошибки чатов объединяются.
func (t *TelegramSink) Write(rec *record.Record) error {
	ok, suppressed := t.admit(rec)
	if !ok {
		return nil
	}
	text := t.formatMessage(rec, suppressed)

	var errs []error
	for _, chatID := range t.config.ChatIDs {
		if err := t.sendToChat(chatID, text); err != nil {
			errs = append(errs, fmt.Errorf("telegram chat %s: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// formatMessage форматирует запись в Markdown v1.
func (t *TelegramSink) formatMessage(rec *record.Record, suppressed int) string {
	var sb strings.Builder

	sb.WriteString("*")
	sb.WriteString(escapeMarkdown(rec.Level.String()))
	sb.WriteString("* `")
	sb.WriteString(escapeMarkdown(displayName(rec.Name)))
	sb.WriteString("`\n\n")
	sb.WriteString(escapeMarkdown(rec.Text()))
	sb.WriteString("\n")

	if len(rec.Fields) > 0 {
		keys := make([]string, 0, len(rec.Fields))
		for k := range rec.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("\n")
		for i, k := range keys {
			if i == maxTelegramFields {
				fmt.Fprintf(&sb, "_и ещё %d_\n", len(keys)-maxTelegramFields)
				break
			}
			fmt.Fprintf(&sb, "%s: %s\n", escapeMarkdown(k), escapeMarkdown(fmt.Sprint(rec.Fields[k])))
		}
	}

	if suppressed > 0 {
		fmt.Fprintf(&sb, "\n_Подавлено повторов: %d_\n", suppressed)
	}
	sb.WriteString("\n_")
	sb.WriteString(escapeMarkdown(t.hostname))
	sb.WriteString(" ")
	sb.WriteString(escapeMarkdown(rec.Timestamp.Format(time.RFC3339)))
	sb.WriteString("_")
	return sb.String()
}

// displayName показывает корневой логгер как "root".
func displayName(name string) string {
	if name == "" {
		return "root"
	}
	return name
}

// markdownReplacer экранирует символы Markdown v1. Backslash — первым.
var markdownReplacer = strings.NewReplacer(
	`\`, `\\`,
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	">", "\\>",
)

func escapeMarkdown(s string) string {
	return markdownReplacer.Replace(s)
}

type telegramRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

func (t *TelegramSink) sendToChat(chatID, text string) error {
	body, err := json.Marshal(telegramRequest{ChatID: chatID, Text: text, ParseMode: telegramParseMode})
	if err != nil {
		return fmt.Errorf("сериализация запроса: %w", err)
	}

	ctx, cancel := t.requestContext()
	defer cancel()

	url := t.config.APIURL + t.config.BotToken + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("создание запроса: %s", t.redact(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// Текст ошибки net/http содержит URL вместе с токеном.
		return fmt.Errorf("HTTP запрос: %s", t.redact(err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("чтение ответа: %w", err)
	}
	var tr telegramResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return &httpError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if !tr.OK {
		return fmt.Errorf("Telegram API %d: %s", tr.ErrorCode, tr.Description)
	}
	return nil
}

func (t *TelegramSink) redact(err error) string {
	return strings.ReplaceAll(err.Error(), t.config.BotToken, "[REDACTED]")
}
