package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/victornm/quizbot/internal/errors"
)

const (
	defaultAPIURL         = "https://api.telegram.org"
	defaultRequestTimeout = 10 * time.Second
)

type ClientConfig struct {
	Token string
	// APIURL defaults to the public Bot API.
	APIURL     string
	HTTPClient *http.Client
}

// Client calls the Telegram Bot API.
type Client struct {
	token  string
	apiURL string
	http   *http.Client
}

func NewClient(c ClientConfig) *Client {
	cl := &Client{
		token:  c.Token,
		apiURL: strings.TrimRight(c.APIURL, "/"),
		http:   c.HTTPClient,
	}

	if cl.apiURL == "" {
		cl.apiURL = defaultAPIURL
	}
	if cl.http == nil {
		cl.http = &http.Client{Timeout: defaultRequestTimeout}
	}

	return cl
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// SendMessage sends an HTML formatted message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return errors.Internal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return errors.Internal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.New(errors.CodeUnavailable, errors.WithCause(err), errors.WithMessagef("telegram: sendMessage"))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.New(errors.CodeUnavailable, errors.WithCause(err), errors.WithMessagef("telegram: read response"))
	}

	var r apiResponse
	if err := json.Unmarshal(raw, &r); err != nil || !r.OK {
		return errors.New(errors.CodeUnavailable,
			errors.WithMessagef("telegram: sendMessage: status=%d code=%d description=%q", resp.StatusCode, r.ErrorCode, r.Description))
	}

	return nil
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.apiURL, c.token, method)
}
