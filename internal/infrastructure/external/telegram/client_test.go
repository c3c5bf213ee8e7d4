package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepegotchi/pepegotchi-bot/pkg/circuitbreaker"
	"github.com/pepegotchi/pepegotchi-bot/pkg/retry"
)

type callRecorder struct {
	calls map[string][]bool
}

func (r *callRecorder) RecordTelegramRequest(method string, ok bool) {
	if r.calls == nil {
		r.calls = map[string][]bool{}
	}
	r.calls[method] = append(r.calls[method], ok)
}

func fastRetrier() *retry.Retrier {
	return retry.New(
		retry.WithMaxAttempts(3),
		retry.WithInitialDelay(time.Millisecond),
		retry.WithMaxDelay(5*time.Millisecond),
		retry.WithRetryIf(IsRetryable),
	)
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...func(*ClientConfig)) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig("TEST")
	cfg.BaseURL = srv.URL
	cfg.Retrier = fastRetrier()
	for _, o := range opts {
		o(&cfg)
	}
	return NewClient(cfg)
}

func writeOK(w http.ResponseWriter, result interface{}) {
	raw, _ := json.Marshal(result)
	_ = json.NewEncoder(w).Encode(APIResponse{OK: true, Result: raw})
}

func TestClient_SendMessageWithKeyboard(t *testing.T) {
	var got map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTEST/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeOK(w, Message{MessageID: 7, Chat: &Chat{ID: 42}})
	})

	msg, err := c.SendMessage(context.Background(), SendMessageParams{
		ChatID:    42,
		Text:      "🛒 <b>Tienda</b>",
		ParseMode: ParseModeHTML,
		ReplyMarkup: &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
			{{Text: "🪰 Mosca (50)", CallbackData: "buy_mosca"}},
		}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 7, msg.MessageID)

	assert.EqualValues(t, 42, got["chat_id"])
	assert.Equal(t, "HTML", got["parse_mode"])
	markup := got["reply_markup"].(map[string]interface{})
	rows := markup["inline_keyboard"].([]interface{})
	require.Len(t, rows, 1)
	btn := rows[0].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "buy_mosca", btn["callback_data"])
}

func TestClient_RetriesFloodControl(t *testing.T) {
	var attempts atomic.Int32
	rec := &callRecorder{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			_ = json.NewEncoder(w).Encode(APIResponse{
				OK: false, ErrorCode: 429, Description: "Too Many Requests: retry after 1",
				Parameters: &ResponseParameters{RetryAfter: 1},
			})
			return
		}
		writeOK(w, true)
	}, func(cfg *ClientConfig) { cfg.Metrics = rec })

	require.NoError(t, c.AnswerCallbackQuery(context.Background(), "q1", "", false))
	assert.EqualValues(t, 2, attempts.Load())
	assert.Equal(t, []bool{true}, rec.calls["answerCallbackQuery"])
}

func TestClient_ClientErrorIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		_ = json.NewEncoder(w).Encode(APIResponse{OK: false, ErrorCode: 403, Description: "Forbidden: bot was blocked by the user"})
	})

	_, err := c.SendText(context.Background(), 1, "hola")
	require.Error(t, err)
	assert.True(t, IsUserBlocked(err))
	assert.False(t, IsRetryable(err))
	assert.EqualValues(t, 1, attempts.Load())
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var attempts atomic.Int32
	breaker := circuitbreaker.New("telegram-api",
		circuitbreaker.WithFailureThreshold(3),
		circuitbreaker.WithTimeout(time.Hour),
		circuitbreaker.WithIsFailure(IsServiceFailure),
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "bad gateway")
	}, func(cfg *ClientConfig) { cfg.Breaker = breaker })

	_, err := c.SendText(context.Background(), 1, "hola")
	require.Error(t, err)
	assert.EqualValues(t, 3, attempts.Load())
	assert.True(t, breaker.IsOpen())

	_, err = c.SendText(context.Background(), 1, "hola")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.EqualValues(t, 3, attempts.Load())
}

func TestClient_SendPhotoUploadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bebe.png")
	require.NoError(t, os.WriteFile(path, []byte("PNGDATA"), 0o600))

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTEST/sendPhoto", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "42", r.FormValue("chat_id"))
		assert.Equal(t, "hola", r.FormValue("caption"))

		f, hdr, err := r.FormFile("photo")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "bebe.png", hdr.Filename)
		assert.Equal(t, "PNGDATA", string(data))
		writeOK(w, Message{MessageID: 1})
	})

	_, err := c.SendPhoto(context.Background(), SendPhotoParams{ChatID: 42, Path: path, Caption: "hola"})
	require.NoError(t, err)

	_, err = c.SendPhoto(context.Background(), SendPhotoParams{ChatID: 42, Path: filepath.Join(dir, "missing.png")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestClient_GetUpdatesAndWebhook(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			assert.EqualValues(t, 11, body["offset"])
			writeOK(w, []Update{{UpdateID: 11, Message: &Message{Text: "/start", Chat: &Chat{ID: 1}}}})
		case strings.HasSuffix(r.URL.Path, "/setWebhook"):
			assert.Equal(t, "https://example.org/telegram/webhook", body["url"])
			assert.Equal(t, "s3cret", body["secret_token"])
			writeOK(w, true)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	updates, err := c.GetUpdates(context.Background(), 11, 100, 0, nil)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.EqualValues(t, 11, updates[0].UpdateID)

	require.NoError(t, c.SetWebhook(context.Background(), SetWebhookParams{
		URL: "https://example.org/telegram/webhook", SecretToken: "s3cret",
	}))
}

func TestExtractCommand(t *testing.T) {
	tests := []struct {
		name string
		msg  *Message
		cmd  string
		args string
	}{
		{"plain", &Message{Text: "/estado", Entities: []MessageEntity{{Type: "bot_command", Length: 7}}}, "estado", ""},
		{"with bot name", &Message{Text: "/Comprar@PepeBot mosca", Entities: []MessageEntity{{Type: "bot_command", Length: 16}}}, "comprar", "mosca"},
		{"no entities", &Message{Text: "/usar araña"}, "usar", "araña"},
		{"not a command", &Message{Text: "hola"}, "", ""},
		{"nil", nil, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.cmd, ExtractCommand(tt.msg))
			assert.Equal(t, tt.args, ExtractCommandArgs(tt.msg))
		})
	}
}
