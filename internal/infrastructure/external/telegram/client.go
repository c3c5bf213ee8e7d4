// Package telegram implements a small Telegram Bot API client.
// It covers what the Pepegotchi bot needs: text messages with inline
// keyboards, message edits, callback answers, photo uploads, long polling
// and webhook registration.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pepegotchi/pepegotchi-bot/pkg/circuitbreaker"
	"github.com/pepegotchi/pepegotchi-bot/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ParseModeHTML is the parse mode used for every formatted message.
const ParseModeHTML = "HTML"

// Recorder receives one observation per Bot API call.
type Recorder interface {
	RecordTelegramRequest(method string, ok bool)
}

// ClientConfig contains configuration for the Telegram client.
type ClientConfig struct {
	// Token is the Telegram Bot API token
	Token string

	// BaseURL is the Telegram Bot API base URL (default: https://api.telegram.org)
	BaseURL string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// Retrier repeats failed calls. Defaults to retry.TelegramRetrier.
	Retrier *retry.Retrier

	// Breaker fails calls fast while the API is down. Optional.
	Breaker *circuitbreaker.CircuitBreaker

	// Metrics is optional.
	Metrics Recorder

	// Logger for structured logging
	Logger *slog.Logger

	// Debug enables debug logging
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(token string) ClientConfig {
	return ClientConfig{
		Token:   token,
		BaseURL: "https://api.telegram.org",
		Timeout: 60 * time.Second, // must exceed the long polling timeout
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the Telegram Bot API client. It is safe for concurrent use.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	retrier    *retry.Retrier
	breaker    *circuitbreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient creates a new Telegram client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.telegram.org"
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultClientConfig("").Timeout
	}
	if config.Retrier == nil {
		config.Retrier = retry.TelegramRetrier(retry.WithRetryIf(IsRetryable))
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		retrier:    config.Retrier,
		breaker:    config.Breaker,
		logger:     config.Logger.With("component", "telegram_client"),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SENDING MESSAGES
// ══════════════════════════════════════════════════════════════════════════════

// SendMessageParams contains parameters for sending a message.
type SendMessageParams struct {
	ChatID              int64
	Text                string
	ParseMode           string
	DisableNotification bool
	DisableWebPreview   bool
	ReplyMarkup         *InlineKeyboardMarkup
}

// SendMessage sends a text message.
func (c *Client) SendMessage(ctx context.Context, params SendMessageParams) (*Message, error) {
	body := map[string]interface{}{
		"chat_id": params.ChatID,
		"text":    params.Text,
	}
	if params.ParseMode != "" {
		body["parse_mode"] = params.ParseMode
	}
	if params.DisableNotification {
		body["disable_notification"] = true
	}
	if params.DisableWebPreview {
		body["disable_web_page_preview"] = true
	}
	if params.ReplyMarkup != nil {
		body["reply_markup"] = params.ReplyMarkup
	}

	var message Message
	if err := c.callAPI(ctx, "sendMessage", body, &message); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &message, nil
}

// SendText is a convenience method for sending plain text.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) (*Message, error) {
	return c.SendMessage(ctx, SendMessageParams{ChatID: chatID, Text: text})
}

// SendPhotoParams contains parameters for uploading a photo from disk.
type SendPhotoParams struct {
	ChatID      int64
	Path        string
	Caption     string
	ParseMode   string
	ReplyMarkup *InlineKeyboardMarkup
}

// SendPhoto uploads a local image file with an optional caption.
func (c *Client) SendPhoto(ctx context.Context, params SendPhotoParams) (*Message, error) {
	// Read once so retries resend the same bytes.
	data, err := os.ReadFile(params.Path)
	if err != nil {
		return nil, fmt.Errorf("send photo: %w", retry.Permanent(err))
	}

	fields := map[string]string{
		"chat_id": strconv.FormatInt(params.ChatID, 10),
	}
	if params.Caption != "" {
		fields["caption"] = params.Caption
	}
	if params.ParseMode != "" {
		fields["parse_mode"] = params.ParseMode
	}
	if params.ReplyMarkup != nil {
		markup, err := json.Marshal(params.ReplyMarkup)
		if err != nil {
			return nil, fmt.Errorf("send photo: marshal keyboard: %w", err)
		}
		fields["reply_markup"] = string(markup)
	}

	var message Message
	err = c.call(ctx, "sendPhoto", func(ctx context.Context) error {
		return c.doMultipartCall(ctx, "sendPhoto", fields, "photo", filepath.Base(params.Path), data, &message)
	})
	if err != nil {
		return nil, fmt.Errorf("send photo: %w", err)
	}
	return &message, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EDITING MESSAGES
// ══════════════════════════════════════════════════════════════════════════════

// EditMessageText edits the text of a message.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text, parseMode string, keyboard *InlineKeyboardMarkup) (*Message, error) {
	body := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	if parseMode != "" {
		body["parse_mode"] = parseMode
	}
	if keyboard != nil {
		body["reply_markup"] = keyboard
	}

	var message Message
	if err := c.callAPI(ctx, "editMessageText", body, &message); err != nil {
		return nil, fmt.Errorf("edit message text: %w", err)
	}
	return &message, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CALLBACK QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// AnswerCallbackQuery answers a callback query.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string, showAlert bool) error {
	body := map[string]interface{}{
		"callback_query_id": callbackQueryID,
	}
	if text != "" {
		body["text"] = text
		body["show_alert"] = showAlert
	}

	var result bool
	if err := c.callAPI(ctx, "answerCallbackQuery", body, &result); err != nil {
		return fmt.Errorf("answer callback query: %w", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GETTING UPDATES
// ══════════════════════════════════════════════════════════════════════════════

// GetUpdates fetches updates using long polling. timeout is in seconds.
func (c *Client) GetUpdates(ctx context.Context, offset int64, limit, timeout int, allowedUpdates []string) ([]Update, error) {
	body := map[string]interface{}{
		"timeout": timeout,
	}
	if offset > 0 {
		body["offset"] = offset
	}
	if limit > 0 {
		body["limit"] = limit
	}
	if len(allowedUpdates) > 0 {
		body["allowed_updates"] = allowedUpdates
	}

	var updates []Update
	if err := c.callAPI(ctx, "getUpdates", body, &updates); err != nil {
		return nil, fmt.Errorf("get updates: %w", err)
	}
	return updates, nil
}

// SetWebhookParams contains parameters for registering a webhook.
type SetWebhookParams struct {
	URL            string
	SecretToken    string
	MaxConnections int
	AllowedUpdates []string
	DropPending    bool
}

// SetWebhook sets a webhook for receiving updates.
func (c *Client) SetWebhook(ctx context.Context, params SetWebhookParams) error {
	body := map[string]interface{}{
		"url": params.URL,
	}
	if params.SecretToken != "" {
		body["secret_token"] = params.SecretToken
	}
	if params.MaxConnections > 0 {
		body["max_connections"] = params.MaxConnections
	}
	if len(params.AllowedUpdates) > 0 {
		body["allowed_updates"] = params.AllowedUpdates
	}
	if params.DropPending {
		body["drop_pending_updates"] = true
	}

	var result bool
	if err := c.callAPI(ctx, "setWebhook", body, &result); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

// DeleteWebhook removes the webhook so that long polling works.
func (c *Client) DeleteWebhook(ctx context.Context, dropPendingUpdates bool) error {
	body := map[string]interface{}{
		"drop_pending_updates": dropPendingUpdates,
	}

	var result bool
	if err := c.callAPI(ctx, "deleteWebhook", body, &result); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

// GetMe returns information about the bot.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var user User
	if err := c.callAPI(ctx, "getMe", nil, &user); err != nil {
		return nil, fmt.Errorf("get me: %w", err)
	}
	return &user, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// API CALL HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// callAPI makes a JSON call to the Bot API with retries.
func (c *Client) callAPI(ctx context.Context, method string, body map[string]interface{}, result interface{}) error {
	return c.call(ctx, method, func(ctx context.Context) error {
		return c.doAPICall(ctx, method, body, result)
	})
}

// call runs one logical API call: every attempt goes through the breaker,
// the retrier decides whether to repeat it.
func (c *Client) call(ctx context.Context, method string, attempt func(context.Context) error) error {
	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		if c.breaker == nil {
			return attempt(ctx)
		}
		return c.breaker.Execute(ctx, attempt)
	})

	if c.config.Metrics != nil {
		c.config.Metrics.RecordTelegramRequest(method, err == nil)
	}
	if err != nil && c.config.Debug {
		c.logger.Debug("telegram api call failed", "method", method, "error", err)
	}
	return err
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.config.BaseURL, c.config.Token, method)
}

// doAPICall performs a single JSON API call.
func (c *Client) doAPICall(ctx context.Context, method string, body map[string]interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return retry.Permanent(fmt.Errorf("marshal body: %w", err))
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), bodyReader)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	if c.config.Debug {
		c.logger.Debug("telegram api call", "method", method)
	}
	return c.do(req, method, result)
}

// doMultipartCall performs a single multipart upload.
func (c *Client) doMultipartCall(ctx context.Context, method string, fields map[string]string, fileField, fileName string, data []byte, result interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return retry.Permanent(fmt.Errorf("write field %s: %w", k, err))
		}
	}
	part, err := w.CreateFormFile(fileField, fileName)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create form file: %w", err))
	}
	if _, err := part.Write(data); err != nil {
		return retry.Permanent(fmt.Errorf("write file: %w", err))
	}
	if err := w.Close(); err != nil {
		return retry.Permanent(fmt.Errorf("close multipart: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), &buf)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, method, result)
}

func (c *Client) do(req *http.Request, method string, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 500 {
			return &APIError{Method: method, Code: resp.StatusCode, Description: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("unmarshal response (status %d): %w", resp.StatusCode, err)
	}

	if !apiResp.OK {
		apiErr := &APIError{
			Method:      method,
			Code:        apiResp.ErrorCode,
			Description: apiResp.Description,
		}
		if apiResp.Parameters != nil {
			apiErr.RetryAfterS = apiResp.Parameters.RetryAfter
		}
		return apiErr
	}

	if result != nil && len(apiResp.Result) > 0 {
		if err := json.Unmarshal(apiResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR CLASSIFICATION
// ══════════════════════════════════════════════════════════════════════════════

// IsRetryable reports whether a failed call may succeed when repeated:
// flood control, server errors and network failures. An open breaker is
// not retried.
func IsRetryable(err error) bool {
	if err == nil || retry.IsPermanent(err) {
		return false
	}
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") || strings.Contains(msg, "EOF")
}

// IsServiceFailure reports whether err says something about the health of
// the Bot API. Client errors such as a blocked user do not.
func IsServiceFailure(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return !retry.IsPermanent(err)
}

// IsUserBlocked checks if the error indicates the user blocked the bot.
func IsUserBlocked(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 403 || strings.Contains(apiErr.Description, "bot was blocked")
	}
	return false
}

// IsMessageNotModified reports the harmless error Telegram returns when an
// edit does not change the message.
func IsMessageNotModified(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == 400 && strings.Contains(apiErr.Description, "message is not modified")
}

// ══════════════════════════════════════════════════════════════════════════════
// UTILITY METHODS
// ══════════════════════════════════════════════════════════════════════════════

// ExtractCommand extracts the command from a message, without the slash and
// any @botname suffix, lower-cased.
func ExtractCommand(msg *Message) string {
	if msg == nil || msg.Text == "" {
		return ""
	}

	for _, entity := range msg.Entities {
		if entity.Type == "bot_command" && entity.Offset == 0 {
			cmd := utf16Prefix(msg.Text, entity.Length)
			cmd = strings.TrimPrefix(cmd, "/")
			if i := strings.IndexByte(cmd, '@'); i >= 0 {
				cmd = cmd[:i]
			}
			return strings.ToLower(cmd)
		}
	}

	// Updates forwarded to the webhook by hand may lack entities.
	if strings.HasPrefix(msg.Text, "/") {
		cmd := strings.Fields(msg.Text)[0][1:]
		if i := strings.IndexByte(cmd, '@'); i >= 0 {
			cmd = cmd[:i]
		}
		return strings.ToLower(cmd)
	}
	return ""
}

// ExtractCommandArgs extracts the arguments after the command.
func ExtractCommandArgs(msg *Message) string {
	if msg == nil || !strings.HasPrefix(msg.Text, "/") {
		return ""
	}
	_, args, _ := strings.Cut(msg.Text, " ")
	return strings.TrimSpace(args)
}

// utf16Prefix returns the prefix of s that is n UTF-16 code units long.
// Entity offsets and lengths are counted in UTF-16.
func utf16Prefix(s string, n int) string {
	units := 0
	for i, r := range s {
		if units >= n {
			return s[:i]
		}
		if r >= 0x10000 {
			units += 2
		} else {
			units++
		}
	}
	return s
}
