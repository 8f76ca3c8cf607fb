package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Telegram pushes messages through the Telegram Bot API, treating the session
// key as the chat identifier (the original conversational front end).
type Telegram struct {
	token  string
	apiURL string
	http   *http.Client
	log    zerolog.Logger
}

// NewTelegram returns a Telegram notifier. apiURL is the API root
// (https://api.telegram.org unless pointed at a test double).
func NewTelegram(token, apiURL string, log zerolog.Logger) *Telegram {
	return &Telegram{
		token:  token,
		apiURL: strings.TrimRight(apiURL, "/"),
		http:   &http.Client{Timeout: 10 * time.Second},
		log:    log.With().Str("component", "notify").Logger(),
	}
}

// Push sends text to the chat identified by sessionKey via sendMessage.
func (t *Telegram) Push(ctx context.Context, sessionKey, text string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id": sessionKey,
		"text":    text,
	})
	if err != nil {
		return err
	}

	u := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		t.log.Warn().
			Int("status", resp.StatusCode).
			Str("session_key", sessionKey).
			Msg("push rejected")
		return fmt.Errorf("send message: status %d: %s", resp.StatusCode, body)
	}
	return nil
}
