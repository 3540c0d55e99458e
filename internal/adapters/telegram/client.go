// Package telegram is a minimal Telegram Bot API client covering the
// methods this bot actually uses: long-poll updates, text and file
// sending, chat actions, callback answers, and file downloads.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const defaultAPIHost = "https://api.telegram.org"

type Client struct {
	apiBase    string
	fileBase   string
	httpClient *http.Client
}

// NewClient creates a client for the given bot token. The HTTP timeout
// must exceed the long-poll timeout passed to GetUpdates.
func NewClient(token string, requestTimeout time.Duration) *Client {
	return newClientWithHost(defaultAPIHost, token, requestTimeout)
}

func newClientWithHost(host, token string, requestTimeout time.Duration) *Client {
	return &Client{
		apiBase:  fmt.Sprintf("%s/bot%s", host, token),
		fileBase: fmt.Sprintf("%s/file/bot%s", host, token),
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

func (c *Client) call(ctx context.Context, method string, payload any, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp.Body, method, result)
}

func decodeResponse(r io.Reader, method string, result any) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", method, err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return fmt.Errorf("parsing %s response: %w", method, err)
	}
	if !apiResp.OK {
		return fmt.Errorf("telegram %s: %s", method, apiResp.Description)
	}
	if result != nil {
		if err := json.Unmarshal(apiResp.Result, result); err != nil {
			return fmt.Errorf("parsing %s result: %w", method, err)
		}
	}
	return nil
}

// GetUpdates long-polls for new updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	payload := map[string]any{
		"offset":          offset,
		"timeout":         timeoutSec,
		"allowed_updates": []string{"message", "callback_query"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendOptions carries the optional sendMessage parameters.
type SendOptions struct {
	// ReplyMarkup is a *ReplyKeyboard or *InlineKeyboard.
	ReplyMarkup any
	ReplyTo     int64
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts *SendOptions) (*Message, error) {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if opts != nil {
		if opts.ReplyMarkup != nil {
			payload["reply_markup"] = opts.ReplyMarkup
		}
		if opts.ReplyTo != 0 {
			payload["reply_to_message_id"] = opts.ReplyTo
		}
	}
	var msg Message
	if err := c.call(ctx, "sendMessage", payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *InlineKeyboard) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	return c.call(ctx, "editMessageText", payload, nil)
}

func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	}
	return c.call(ctx, "deleteMessage", payload, nil)
}

// SendChatAction shows the "typing..." or "sending photo..." hint.
func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	payload := map[string]any{
		"chat_id": chatID,
		"action":  action,
	}
	return c.call(ctx, "sendChatAction", payload, nil)
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	payload := map[string]any{
		"callback_query_id": callbackID,
	}
	if text != "" {
		payload["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", payload, nil)
}

// SendPhoto uploads photo bytes with an optional caption.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, data []byte, caption string) error {
	fields := map[string]string{
		"chat_id": fmt.Sprintf("%d", chatID),
	}
	if caption != "" {
		fields["caption"] = caption
	}
	return c.upload(ctx, "sendPhoto", "photo", "image.png", data, fields)
}

// SendDocument uploads a file with the given name and optional caption.
func (c *Client) SendDocument(ctx context.Context, chatID int64, fileName string, data []byte, caption string) error {
	fields := map[string]string{
		"chat_id": fmt.Sprintf("%d", chatID),
	}
	if caption != "" {
		fields["caption"] = caption
	}
	return c.upload(ctx, "sendDocument", "document", fileName, data, fields)
}

func (c *Client) upload(ctx context.Context, method, fileField, fileName string, data []byte, fields map[string]string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("building %s form: %w", method, err)
		}
	}
	part, err := w.CreateFormFile(fileField, fileName)
	if err != nil {
		return fmt.Errorf("building %s form: %w", method, err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("building %s form: %w", method, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("building %s form: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/"+method, &buf)
	if err != nil {
		return fmt.Errorf("building %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp.Body, method, nil)
}

// DownloadAttachment resolves a file_id to a path and fetches the bytes.
// It implements domain.AttachmentDownloader.
func (c *Client) DownloadAttachment(ctx context.Context, fileID string) ([]byte, error) {
	var f file
	if err := c.call(ctx, "getFile", map[string]any{"file_id": fileID}, &f); err != nil {
		return nil, err
	}
	if f.FilePath == "" {
		return nil, fmt.Errorf("telegram getFile: empty file_path for %s", fileID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fileBase+"/"+f.FilePath, nil)
	if err != nil {
		return nil, fmt.Errorf("building download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram file download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram file download: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
