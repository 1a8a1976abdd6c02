package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/telepanel/telepanel/internal/console_service/domain"
)

const pollTimeoutSeconds = 30

// Client is a minimal Telegram Bot API client covering what the console
// needs: send, edit, callback acknowledgment and long-poll updates. It
// implements domain.ChatTransport.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	token      string
	offset     int64
}

func NewClient(logger *slog.Logger, baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		// Long polling holds the connection open for pollTimeoutSeconds.
		httpClient = &http.Client{Timeout: (pollTimeoutSeconds + 10) * time.Second}
	}
	return &Client{
		logger:     logger.With("component", "telegram_client"),
		httpClient: httpClient,
		baseURL:    baseURL,
		token:      token,
	}
}

// Bot API wire types, only the fields the console reads.

type inlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type inlineKeyboardMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

type apiUser struct {
	ID int64 `json:"id"`
}

type apiChat struct {
	ID int64 `json:"id"`
}

type apiMessage struct {
	MessageID int      `json:"message_id"`
	From      *apiUser `json:"from,omitempty"`
	Chat      apiChat  `json:"chat"`
	Text      string   `json:"text,omitempty"`
}

type apiCallbackQuery struct {
	ID      string      `json:"id"`
	From    apiUser     `json:"from"`
	Message *apiMessage `json:"message,omitempty"`
	Data    string      `json:"data,omitempty"`
}

type apiUpdate struct {
	UpdateID      int64             `json:"update_id"`
	Message       *apiMessage       `json:"message,omitempty"`
	CallbackQuery *apiCallbackQuery `json:"callback_query,omitempty"`
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, keyboard [][]domain.Button) error {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if markup := toMarkup(keyboard); markup != nil {
		payload["reply_markup"] = markup
	}
	_, err := c.call(ctx, "sendMessage", payload)
	return err
}

func (c *Client) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, keyboard [][]domain.Button) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	if markup := toMarkup(keyboard); markup != nil {
		payload["reply_markup"] = markup
	}
	_, err := c.call(ctx, "editMessageText", payload)
	return err
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID string, text string) error {
	payload := map[string]any{
		"callback_query_id": callbackID,
	}
	if text != "" {
		payload["text"] = text
	}
	_, err := c.call(ctx, "answerCallbackQuery", payload)
	return err
}

// Poll long-polls getUpdates and pushes normalized ChatUpdates to out until
// the context is cancelled. Transient API errors are logged and retried after
// a short pause.
func (c *Client) Poll(ctx context.Context, out chan<- domain.ChatUpdate) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := c.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.ErrorContext(ctx, "getUpdates failed, retrying", "error", err)
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= c.offset {
				c.offset = upd.UpdateID + 1
			}
			chatUpd, ok := toChatUpdate(upd)
			if !ok {
				continue
			}
			select {
			case out <- chatUpd:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (c *Client) getUpdates(ctx context.Context) ([]apiUpdate, error) {
	payload := map[string]any{
		"timeout":         pollTimeoutSeconds,
		"offset":          c.offset,
		"allowed_updates": []string{"message", "callback_query"},
	}
	result, err := c.call(ctx, "getUpdates", payload)
	if err != nil {
		return nil, err
	}
	var updates []apiUpdate
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, fmt.Errorf("decoding getUpdates result: %w", err)
	}
	return updates, nil
}

// call posts one Bot API method and returns the raw result payload.
func (c *Client) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	reqBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshalling %s request: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending %s request: %w", method, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response (status %d): %w", method, httpResp.StatusCode, err)
	}

	var resp apiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decoding %s response (status %d): %w", method, httpResp.StatusCode, err)
	}
	if !resp.OK {
		return nil, fmt.Errorf("telegram api %s failed (status %d): %s", method, httpResp.StatusCode, resp.Description)
	}
	return resp.Result, nil
}

func toMarkup(keyboard [][]domain.Button) *inlineKeyboardMarkup {
	if len(keyboard) == 0 {
		return nil
	}
	markup := &inlineKeyboardMarkup{InlineKeyboard: make([][]inlineKeyboardButton, 0, len(keyboard))}
	for _, row := range keyboard {
		buttons := make([]inlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, inlineKeyboardButton{Text: b.Label, CallbackData: b.Token})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, buttons)
	}
	return markup
}

// toChatUpdate normalizes a Bot API update: "/start" messages and button
// callbacks are interesting, everything else is dropped.
func toChatUpdate(upd apiUpdate) (domain.ChatUpdate, bool) {
	if upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil {
		cq := upd.CallbackQuery
		return domain.ChatUpdate{
			OperatorID: cq.From.ID,
			ChatID:     cq.Message.Chat.ID,
			MessageID:  cq.Message.MessageID,
			CallbackID: cq.ID,
			Token:      cq.Data,
		}, true
	}
	if upd.Message != nil && upd.Message.From != nil && upd.Message.Text == "/start" {
		return domain.ChatUpdate{
			OperatorID: upd.Message.From.ID,
			ChatID:     upd.Message.Chat.ID,
			MessageID:  upd.Message.MessageID,
			IsStart:    true,
		}, true
	}
	return domain.ChatUpdate{}, false
}
