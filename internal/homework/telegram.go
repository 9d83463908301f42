package homework

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Telegram sends messages to one chat through the Bot API.
type Telegram struct {
	http   *resty.Client
	chatID string
}

type sendMessageResult struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewTelegram returns a Telegram sender for chatID.
func NewTelegram(apiURL, token, chatID string, timeout time.Duration) *Telegram {
	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(apiURL, "/") + "/bot" + token).
		SetTimeout(timeout)
	return &Telegram{http: httpClient, chatID: chatID}
}

// Send posts text to the chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	var out sendMessageResult
	resp, err := t.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"chat_id": t.chatID, "text": text}).
		SetResult(&out).
		SetError(&out).
		ForceContentType("application/json").
		Post("/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	if resp.StatusCode() != http.StatusOK || !out.OK {
		return fmt.Errorf("telegram sendMessage: status %d: %s", resp.StatusCode(), out.Description)
	}
	return nil
}
