package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// TelegramDestination posts to the Bot API's sendMessage endpoint. No
// Telegram client library appears anywhere in the retrieval corpus
// (DESIGN.md); sendMessage is one POST with a token in the URL path and a
// JSON body, implemented directly with net/http.
type TelegramDestination struct {
	token  string
	chatID string
	client *http.Client
}

// NewTelegramDestination returns nil if token or chatID is empty; see
// NewSlackDestination for why.
func NewTelegramDestination(token, chatID string) *TelegramDestination {
	if token == "" || chatID == "" {
		return nil
	}
	return &TelegramDestination{token: token, chatID: chatID, client: http.DefaultClient}
}

func (t *TelegramDestination) Name() string { return "telegram" }

func (t *TelegramDestination) Send(ctx context.Context, content string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id": t.chatID,
		"text":    content,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telegram sendMessage: unexpected status %d", resp.StatusCode)
	}
	return nil
}
