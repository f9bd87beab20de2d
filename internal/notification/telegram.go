package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier sends alerts via the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

// NewTelegramNotifier creates a Telegram notifier.
// botToken: Bot API token from @BotFather
// chatID: Target chat/group/channel ID
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  telegramAPI,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// telegramResponse is the Bot API reply envelope.
type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send delivers alert as a MarkdownV2 message. A non-ok Bot API reply is
// returned as an error carrying the API description.
func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(map[string]any{
		"chat_id":                  t.chatID,
		"text":                     renderTelegram(alert),
		"parse_mode":               "MarkdownV2",
		"disable_web_page_preview": true,
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	var reply telegramResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &reply)
	if resp.StatusCode != http.StatusOK || !reply.OK {
		if reply.Description != "" {
			return fmt.Errorf("telegram: status %d: %s", resp.StatusCode, reply.Description)
		}
		return fmt.Errorf("telegram: unexpected status %d", resp.StatusCode)
	}

	slog.Debug("telegram alert sent", "pair", alert.Pair, "title", alert.Title)
	return nil
}

// renderTelegram lays an alert out as MarkdownV2: a bold title, the message,
// then one "*Key:* value" line per field.
func renderTelegram(alert Alert) string {
	emoji := "ℹ️"
	switch alert.Level {
	case AlertWarning:
		emoji = "⚠️"
	case AlertCritical:
		emoji = "🚨"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n\n%s", emoji, escapeMarkdown(alert.Title), escapeMarkdown(alert.Message))
	for i, f := range alert.Fields {
		if i == 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "\n*%s:* %s", escapeMarkdown(f.Key), escapeMarkdown(f.Value))
	}
	return b.String()
}

// escapeMarkdown escapes special characters for Telegram MarkdownV2.
func escapeMarkdown(s string) string {
	const specials = "_*[]()~`>#+-=|{}.!"
	var buf bytes.Buffer
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(specials, s[i]) >= 0 {
			buf.WriteByte('\\')
		}
		buf.WriteByte(s[i])
	}
	return buf.String()
}
