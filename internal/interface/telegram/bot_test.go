package telegram

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepegotchi/pepegotchi-bot/internal/application/engine"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/external/telegram"
	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/lock"
	"github.com/pepegotchi/pepegotchi-bot/internal/interface/telegram/handler"
	"github.com/pepegotchi/pepegotchi-bot/internal/interface/telegram/middleware"
	"github.com/pepegotchi/pepegotchi-bot/internal/interface/telegram/presenter"
	"github.com/pepegotchi/pepegotchi-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

type apiCall struct {
	Method   string
	ChatID   int64
	Text     string
	Keyboard *telegram.InlineKeyboardMarkup
	Alert    bool
}

type fakeAPI struct {
	mu       sync.Mutex
	calls    []apiCall
	photoErr error
	webhook  *telegram.SetWebhookParams
	offsets  []int64
	batches  [][]telegram.Update
}

func (f *fakeAPI) record(c apiCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeAPI) Calls() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]apiCall(nil), f.calls...)
}

func (f *fakeAPI) GetMe(context.Context) (*telegram.User, error) {
	return &telegram.User{ID: 1, IsBot: true, Username: "pepegotchi_bot"}, nil
}

func (f *fakeAPI) GetUpdates(ctx context.Context, offset int64, _, _ int, _ []string) ([]telegram.Update, error) {
	f.mu.Lock()
	f.offsets = append(f.offsets, offset)
	if len(f.batches) > 0 {
		batch := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return batch, nil
	}
	f.mu.Unlock()

	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeAPI) SendMessage(_ context.Context, p telegram.SendMessageParams) (*telegram.Message, error) {
	f.record(apiCall{Method: "sendMessage", ChatID: p.ChatID, Text: p.Text, Keyboard: p.ReplyMarkup})
	return &telegram.Message{MessageID: 1}, nil
}

func (f *fakeAPI) SendPhoto(_ context.Context, p telegram.SendPhotoParams) (*telegram.Message, error) {
	f.record(apiCall{Method: "sendPhoto", ChatID: p.ChatID, Text: p.Caption, Keyboard: p.ReplyMarkup})
	if f.photoErr != nil {
		return nil, f.photoErr
	}
	return &telegram.Message{MessageID: 2}, nil
}

func (f *fakeAPI) EditMessageText(_ context.Context, chatID, _ int64, text, _ string, kb *telegram.InlineKeyboardMarkup) (*telegram.Message, error) {
	f.record(apiCall{Method: "editMessageText", ChatID: chatID, Text: text, Keyboard: kb})
	return &telegram.Message{MessageID: 3}, nil
}

func (f *fakeAPI) AnswerCallbackQuery(_ context.Context, _, text string, alert bool) error {
	f.record(apiCall{Method: "answerCallbackQuery", Text: text, Alert: alert})
	return nil
}

func (f *fakeAPI) SetWebhook(_ context.Context, p telegram.SetWebhookParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.webhook = &p
	return nil
}

func (f *fakeAPI) DeleteWebhook(context.Context, bool) error {
	return nil
}

type memRepo struct {
	mu      sync.Mutex
	records map[string]*pet.Record
}

func (r *memRepo) Get(_ context.Context, userID string) (*pet.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[userID]
	if !ok {
		return nil, shared.ErrUserNotInitialized
	}
	return rec.Clone(), nil
}

func (r *memRepo) Save(_ context.Context, rec *pet.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.UserID] = rec.Clone()
	return nil
}

func (r *memRepo) IDs(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type botFixture struct {
	bot  *Bot
	api  *fakeAPI
	repo *memRepo
}

func newBotFixture(t *testing.T, cfg BotConfig, rl *middleware.RateLimitConfig) *botFixture {
	t.Helper()

	repo := &memRepo{records: map[string]*pet.Record{}}
	e, err := engine.New(engine.Config{
		Repo:   repo,
		Locker: lock.NewKeyedMutex(),
		Clock:  timeutil.NewManualClock(timeutil.DateTime(2024, 5, 1, 10, 0, 0)),
	})
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bebe.png"), []byte("png"), 0o644))

	api := &fakeAPI{}
	b, err := NewBot(cfg, api, BotDependencies{
		Engine:    e,
		Images:    presenter.NewImages(dir),
		RateLimit: rl,
	})
	require.NoError(t, err)
	return &botFixture{bot: b, api: api, repo: repo}
}

func command(id int64, text string) *telegram.Update {
	return &telegram.Update{
		UpdateID: id,
		Message: &telegram.Message{
			MessageID: id,
			From:      &telegram.User{ID: 42, FirstName: "Ana"},
			Chat:      &telegram.Chat{ID: 42, Type: "private"},
			Text:      text,
		},
	}
}

func callback(id int64, data string) *telegram.Update {
	return &telegram.Update{
		UpdateID: id,
		CallbackQuery: &telegram.CallbackQuery{
			ID:   "cb",
			From: &telegram.User{ID: 42, FirstName: "Ana"},
			Message: &telegram.Message{
				MessageID: 10,
				Chat:      &telegram.Chat{ID: 42, Type: "private"},
			},
			Data: data,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestBot_StartSendsRankPhoto(t *testing.T) {
	f := newBotFixture(t, DefaultBotConfig(), nil)

	require.NoError(t, f.bot.HandleUpdate(context.Background(), command(1, "/start")))

	calls := f.api.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "sendPhoto", calls[0].Method)
	assert.Equal(t, int64(42), calls[0].ChatID)
	require.NotNil(t, calls[0].Keyboard)
	assert.Equal(t, "cmd:alimentar", calls[0].Keyboard.InlineKeyboard[0][0].CallbackData)
}

func TestBot_PhotoFailureFallsBackToText(t *testing.T) {
	f := newBotFixture(t, DefaultBotConfig(), nil)
	f.api.photoErr = errors.New("upload failed")

	require.NoError(t, f.bot.HandleUpdate(context.Background(), command(1, "/start")))

	calls := f.api.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "sendPhoto", calls[0].Method)
	assert.Equal(t, "sendMessage", calls[1].Method)
	assert.Equal(t, calls[0].Text, calls[1].Text)
}

func TestBot_AliasesAndUnknownCommands(t *testing.T) {
	f := newBotFixture(t, DefaultBotConfig(), nil)
	ctx := context.Background()

	require.NoError(t, f.bot.HandleUpdate(ctx, command(1, "/help")))
	require.NoError(t, f.bot.HandleUpdate(ctx, command(2, "/bailar")))
	require.NoError(t, f.bot.HandleUpdate(ctx, command(3, "hola")))

	calls := f.api.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, presenter.Help(), calls[0].Text)
	assert.Equal(t, presenter.UnknownCommandText, calls[1].Text)

	stats := f.bot.GetStats()["commands_count"].(map[string]int64)
	assert.EqualValues(t, 1, stats["ayuda"])
	assert.EqualValues(t, 1, stats["unknown"])
}

func TestBot_BuyButtonEditsShopMessage(t *testing.T) {
	f := newBotFixture(t, DefaultBotConfig(), nil)
	ctx := context.Background()

	require.NoError(t, f.bot.HandleUpdate(ctx, command(1, "/start")))
	require.NoError(t, f.bot.HandleUpdate(ctx, callback(2, "buy_mosca")))

	calls := f.api.Calls()[1:]
	require.Len(t, calls, 2)
	assert.Equal(t, "answerCallbackQuery", calls[0].Method)
	assert.Contains(t, calls[0].Text, "Mosca")
	assert.Equal(t, "editMessageText", calls[1].Method)
	require.NotNil(t, calls[1].Keyboard)

	rec, err := f.repo.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Currency)
	assert.Equal(t, 1, rec.Inventory["mosca"])
}

func TestBot_CommandButtonRunsCommand(t *testing.T) {
	f := newBotFixture(t, DefaultBotConfig(), nil)
	ctx := context.Background()

	require.NoError(t, f.bot.HandleUpdate(ctx, callback(1, "cmd:tienda")))

	calls := f.api.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "answerCallbackQuery", calls[0].Method)
	assert.Equal(t, "sendMessage", calls[1].Method)
	assert.Contains(t, calls[1].Keyboard.InlineKeyboard[0][0].CallbackData, presenter.CallbackBuy)
}

func TestBot_RankUpAnnouncedAfterReply(t *testing.T) {
	f := newBotFixture(t, DefaultBotConfig(), nil)
	ctx := context.Background()

	require.NoError(t, f.bot.HandleUpdate(ctx, command(1, "/start")))
	rec, err := f.repo.Get(ctx, "42")
	require.NoError(t, err)
	rec.Experience = 995
	require.NoError(t, f.repo.Save(ctx, rec))

	require.NoError(t, f.bot.HandleUpdate(ctx, command(2, "/alimentar")))

	calls := f.api.Calls()[1:]
	require.Len(t, calls, 3)
	assert.Contains(t, calls[0].Text, "XP")
	assert.Equal(t, presenter.EvolvingText, calls[1].Text)
	// No joven.png in the images directory, so the caption goes out as text.
	assert.Equal(t, "sendMessage", calls[2].Method)
	assert.Contains(t, calls[2].Text, "Joven")
}

func TestBot_RateLimited(t *testing.T) {
	f := newBotFixture(t, DefaultBotConfig(), &middleware.RateLimitConfig{
		RequestsPerMinute: 1,
		BurstSize:         1,
	})
	ctx := context.Background()

	require.NoError(t, f.bot.HandleUpdate(ctx, command(1, "/ayuda")))
	require.NoError(t, f.bot.HandleUpdate(ctx, command(2, "/ayuda")))
	require.NoError(t, f.bot.HandleUpdate(ctx, callback(3, "cmd:ayuda")))

	calls := f.api.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, presenter.RateLimitedText, calls[1].Text)
	assert.Equal(t, "answerCallbackQuery", calls[2].Method)
	assert.True(t, calls[2].Alert)
}

func TestBot_PanicAndErrorsBecomeApologies(t *testing.T) {
	f := newBotFixture(t, DefaultBotConfig(), nil)
	ctx := context.Background()

	f.bot.Router().RegisterCommand(handler.HandlerFunc(func(context.Context, handler.Request) (*handler.Response, error) {
		panic("boom")
	}), "boom")
	f.bot.Router().RegisterCommand(handler.HandlerFunc(func(context.Context, handler.Request) (*handler.Response, error) {
		return nil, errors.New("disk on fire")
	}), "fail")

	require.NoError(t, f.bot.HandleUpdate(ctx, command(1, "/boom")))
	require.NoError(t, f.bot.HandleUpdate(ctx, command(2, "/fail")))

	calls := f.api.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, presenter.GenericErrorText, calls[0].Text)
	assert.Equal(t, presenter.GenericErrorText, calls[1].Text)
}

func TestBot_PollingAdvancesOffset(t *testing.T) {
	f := newBotFixture(t, DefaultBotConfig(), nil)
	f.api.batches = [][]telegram.Update{
		{*command(5, "/ayuda"), *command(6, "/evento")},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.bot.Start(ctx) }()

	require.Eventually(t, func() bool {
		return len(f.api.Calls()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, f.bot.Stop(context.Background()))

	f.api.mu.Lock()
	defer f.api.mu.Unlock()
	require.GreaterOrEqual(t, len(f.api.offsets), 2)
	assert.Equal(t, int64(0), f.api.offsets[0])
	assert.Equal(t, int64(7), f.api.offsets[1])
}

func TestBot_WebhookModeRegisters(t *testing.T) {
	cfg := DefaultBotConfig()
	cfg.Mode = ModeWebhook
	cfg.WebhookURL = "https://pepe.example/telegram/webhook"
	cfg.WebhookSecret = "s3cret"
	f := newBotFixture(t, cfg, nil)

	require.NoError(t, f.bot.Start(context.Background()))
	assert.True(t, f.bot.IsRunning())
	require.NotNil(t, f.api.webhook)
	assert.Equal(t, cfg.WebhookURL, f.api.webhook.URL)
	assert.Equal(t, "s3cret", f.api.webhook.SecretToken)
	assert.Equal(t, "s3cret", f.bot.WebhookSecret())
}

func TestNotifier_WakeNotice(t *testing.T) {
	api := &fakeAPI{}
	n := NewNotifier(api, presenter.NewImages(""), nil)

	require.NoError(t, n.NotifyWake(context.Background(), "42"))
	assert.Error(t, n.NotifyWake(context.Background(), "not-a-number"))

	calls := api.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, presenter.WakeNoticeText, calls[0].Text)
	assert.Equal(t, int64(42), calls[0].ChatID)
}

func TestConvertKeyboard(t *testing.T) {
	assert.Nil(t, convertKeyboard(nil))
	assert.Nil(t, convertKeyboard(presenter.NewInlineKeyboard()))

	kb := presenter.NewKeyboardBuilder().BackToShopKeyboard()
	markup := convertKeyboard(kb)
	require.NotNil(t, markup)
	require.Len(t, markup.InlineKeyboard, 1)
	assert.Equal(t, "cmd:tienda", markup.InlineKeyboard[0][0].CallbackData)
}

func TestBot_CommandTable(t *testing.T) {
	f := newBotFixture(t, DefaultBotConfig(), nil)

	commands := f.bot.Router().GetRegisteredCommands()
	for _, name := range []string{
		"start", "ayuda", "help", "tienda", "shop", "comprar", "buy", "usar", "use",
		"inventario", "inventory", "checkin", "evento", "event", "alimentar", "feed",
		"jugar", "play", "dormir", "sleep", "estado", "status",
	} {
		assert.Contains(t, commands, name)
	}
	assert.True(t, sort.StringsAreSorted(commands))
	assert.Equal(t, []string{presenter.CallbackBuy}, f.bot.Router().GetRegisteredCallbackPrefixes())
}

func TestBot_IgnoresInvalidSender(t *testing.T) {
	f := newBotFixture(t, DefaultBotConfig(), nil)

	update := command(1, "/start")
	update.Message.From.ID = 0
	require.NoError(t, f.bot.HandleUpdate(context.Background(), update))
	assert.Empty(t, f.api.Calls())
}
