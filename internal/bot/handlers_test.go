package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntroshkin/gembot/internal/adapters/llm"
	"github.com/ntroshkin/gembot/internal/adapters/storage/memory"
	"github.com/ntroshkin/gembot/internal/adapters/telegram"
	"github.com/ntroshkin/gembot/internal/app/chat"
	"github.com/ntroshkin/gembot/internal/app/quicktools"
	"github.com/ntroshkin/gembot/internal/config"
	"github.com/ntroshkin/gembot/internal/domain"
)

type sentMessage struct {
	ChatID int64
	Text   string
	Opts   *telegram.SendOptions
}

type sentDocument struct {
	ChatID   int64
	FileName string
	Data     []byte
	Caption  string
}

type editedMessage struct {
	ChatID    int64
	MessageID int64
	Text      string
}

// fakeSender records everything the handlers try to send.
type fakeSender struct {
	mu        sync.Mutex
	messages  []sentMessage
	edits     []editedMessage
	deleted   []int64
	documents []sentDocument
	photos    [][]byte
	answers   []string
	actions   []string
}

func (f *fakeSender) SendMessage(ctx context.Context, chatID int64, text string, opts *telegram.SendOptions) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sentMessage{ChatID: chatID, Text: text, Opts: opts})
	return &telegram.Message{MessageID: int64(len(f.messages)), Chat: telegram.Chat{ID: chatID}}, nil
}

func (f *fakeSender) EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *telegram.InlineKeyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, editedMessage{ChatID: chatID, MessageID: messageID, Text: text})
	return nil
}

func (f *fakeSender) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeSender) SendPhoto(ctx context.Context, chatID int64, data []byte, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, data)
	return nil
}

func (f *fakeSender) SendDocument(ctx context.Context, chatID int64, fileName string, data []byte, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents = append(f.documents, sentDocument{ChatID: chatID, FileName: fileName, Data: data, Caption: caption})
	return nil
}

func (f *fakeSender) SendChatAction(ctx context.Context, chatID int64, action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeSender) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeSender) lastMessage(t *testing.T) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.messages)
	return f.messages[len(f.messages)-1]
}

// messageID finds the id the fake assigned to the message with the given
// text, failing the test if it was never sent.
func (f *fakeSender) messageID(t *testing.T, text string) int64 {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.messages {
		if m.Text == text {
			return int64(i + 1)
		}
	}
	t.Fatalf("message %q was never sent", text)
	return 0
}

type botFixture struct {
	bot    *Bot
	sender *fakeSender
	mock   *llm.MockLLM
	files  map[string][]byte
}

type mapDownloader struct{ files map[string][]byte }

func (d *mapDownloader) DownloadAttachment(ctx context.Context, ref string) ([]byte, error) {
	data, ok := d.files[ref]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", ref)
	}
	return data, nil
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()
	cfg := &config.Config{
		ProCode:          "SECRET",
		MaxMessageLength: 4000,
		MaxFileSizeMB:    20,
		RequestTimeout:   time.Second,
	}
	files := map[string][]byte{}
	mock := llm.NewMockLLM()
	svc := chat.NewService(cfg, mock,
		memory.NewSettingsStore(), memory.NewHistoryStore(),
		memory.NewFileContextStore(), memory.NewBufferStore(),
		&mapDownloader{files: files})
	sender := &fakeSender{}
	return &botFixture{
		bot:    New(cfg, sender, svc, quicktools.NewRunner(cfg, mock)),
		sender: sender,
		mock:   mock,
		files:  files,
	}
}

func textUpdate(userID, chatID int64, text string) telegram.Update {
	return telegram.Update{
		UpdateID: 1,
		Message: &telegram.Message{
			MessageID: 10,
			From:      &telegram.User{ID: userID},
			Chat:      telegram.Chat{ID: chatID},
			Text:      text,
		},
	}
}

func callbackUpdate(userID, chatID int64, data string) telegram.Update {
	return telegram.Update{
		UpdateID: 2,
		CallbackQuery: &telegram.CallbackQuery{
			ID:      "cb-1",
			From:    &telegram.User{ID: userID},
			Message: &telegram.Message{MessageID: 11, Chat: telegram.Chat{ID: chatID}},
			Data:    data,
		},
	}
}

func TestStartCommand(t *testing.T) {
	f := newBotFixture(t)

	require.NoError(t, f.bot.HandleUpdate(context.Background(), textUpdate(7, 7, "/start")))

	msg := f.sender.lastMessage(t)
	assert.Contains(t, msg.Text, "Привет")
	assert.Contains(t, msg.Text, modelAlias(config.DefaultModel))
	require.NotNil(t, msg.Opts)
	kb, ok := msg.Opts.ReplyMarkup.(*telegram.ReplyKeyboard)
	require.True(t, ok)
	assert.Equal(t, btnNewChat, kb.Keyboard[0][0].Text)
}

func TestHelpListsQuickTools(t *testing.T) {
	f := newBotFixture(t)

	require.NoError(t, f.bot.HandleUpdate(context.Background(), textUpdate(7, 7, "/help")))

	msg := f.sender.lastMessage(t)
	assert.Contains(t, msg.Text, "/translate")
	assert.Contains(t, msg.Text, "/dayplanner")
}

func TestPlainTextGetsReply(t *testing.T) {
	f := newBotFixture(t)
	f.mock.Reply = "Ответ модели"

	require.NoError(t, f.bot.HandleUpdate(context.Background(), textUpdate(7, 7, "вопрос")))

	msg := f.sender.lastMessage(t)
	assert.Equal(t, "Ответ модели", msg.Text)
	require.NotNil(t, msg.Opts)
	assert.Equal(t, int64(10), msg.Opts.ReplyTo)
	assert.Contains(t, f.sender.actions, "typing")
}

func TestLongReplySplitsAndOffersDownload(t *testing.T) {
	f := newBotFixture(t)
	f.bot.cfg.MaxMessageLength = 20
	f.mock.Reply = "Первый абзац.\n\nВторой абзац подлиннее."

	require.NoError(t, f.bot.HandleUpdate(context.Background(), textUpdate(7, 7, "вопрос")))

	last := f.sender.lastMessage(t)
	assert.Equal(t, "Ответ был длинным и разбит на части.", last.Text)
	_, ok := last.Opts.ReplyMarkup.(*telegram.InlineKeyboard)
	assert.True(t, ok)
	assert.Greater(t, len(f.sender.messages), 2)
}

func TestModeToggleThenBufferThenFlush(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	require.NoError(t, f.bot.HandleUpdate(ctx, textUpdate(7, 7, "Режим: Мгновенный ⚡")))
	msg := f.sender.lastMessage(t)
	assert.Contains(t, msg.Text, modeManualLabel)
	kb := msg.Opts.ReplyMarkup.(*telegram.ReplyKeyboard)
	lastRow := kb.Keyboard[len(kb.Keyboard)-1]
	assert.Equal(t, btnSendAll, lastRow[0].Text)

	require.NoError(t, f.bot.HandleUpdate(ctx, textUpdate(7, 7, "черновик")))
	assert.Contains(t, f.sender.lastMessage(t).Text, "Добавлено в буфер")
	assert.Empty(t, f.mock.Requests)

	f.mock.Reply = "Готово"
	require.NoError(t, f.bot.HandleUpdate(ctx, textUpdate(7, 7, btnSendAll)))
	assert.Equal(t, "Готово", f.sender.lastMessage(t).Text)
	require.Len(t, f.mock.Requests, 1)

	// the flush status message was shown and removed
	id := f.sender.messageID(t, waitFlushing)
	assert.Contains(t, f.sender.deleted, id)
}

func TestFlushEmptyBufferMessage(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	require.NoError(t, f.bot.HandleUpdate(ctx, textUpdate(7, 7, "Режим: Мгновенный ⚡")))
	require.NoError(t, f.bot.HandleUpdate(ctx, textUpdate(7, 7, btnSendAll)))
	assert.Equal(t, "📭 Буфер пуст.", f.sender.lastMessage(t).Text)
}

func TestModelButtonShowsInlineKeyboard(t *testing.T) {
	f := newBotFixture(t)

	require.NoError(t, f.bot.HandleUpdate(context.Background(), textUpdate(7, 7, "Модель: 2.5 Flash 🚀")))

	msg := f.sender.lastMessage(t)
	kb, ok := msg.Opts.ReplyMarkup.(*telegram.InlineKeyboard)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, len(config.AvailableModels))
	assert.Equal(t, "model_gemini-2.5-flash", kb.InlineKeyboard[0][0].CallbackData)
}

func TestModelCallbackProGate(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	require.NoError(t, f.bot.HandleUpdate(ctx, callbackUpdate(7, 7, "model_gemini-2.5-pro")))
	require.NotEmpty(t, f.sender.answers)
	assert.Contains(t, f.sender.answers[0], "PRO")
	assert.Empty(t, f.sender.messages)

	require.NoError(t, f.bot.HandleUpdate(ctx, textUpdate(7, 7, "/unlock_pro SECRET")))
	assert.Contains(t, f.sender.lastMessage(t).Text, "разблокирован")

	require.NoError(t, f.bot.HandleUpdate(ctx, callbackUpdate(7, 7, "model_gemini-2.5-pro")))
	require.NotEmpty(t, f.sender.edits)
	edit := f.sender.edits[len(f.sender.edits)-1]
	assert.Equal(t, int64(11), edit.MessageID)
	assert.Contains(t, edit.Text, "Выбрана модель")
	assert.Contains(t, f.sender.lastMessage(t).Text, "Контекст очищен")
}

func TestUnlockProWrongCode(t *testing.T) {
	f := newBotFixture(t)

	require.NoError(t, f.bot.HandleUpdate(context.Background(), textUpdate(7, 7, "/unlock_pro nope")))
	assert.Equal(t, "❌ Неверный код.", f.sender.lastMessage(t).Text)
}

func TestDocumentStagedMessage(t *testing.T) {
	f := newBotFixture(t)
	upd := telegram.Update{
		Message: &telegram.Message{
			MessageID: 12,
			From:      &telegram.User{ID: 7},
			Chat:      telegram.Chat{ID: 7},
			Document:  &telegram.Document{FileID: "d1", FileName: "report.pdf", MIMEType: "application/pdf", FileSize: 100},
		},
	}

	require.NoError(t, f.bot.HandleUpdate(context.Background(), upd))
	assert.Contains(t, f.sender.lastMessage(t).Text, "report.pdf")
	assert.Contains(t, f.sender.lastMessage(t).Text, "добавлен в контекст")
}

func TestUnsupportedDocumentMessage(t *testing.T) {
	f := newBotFixture(t)
	upd := telegram.Update{
		Message: &telegram.Message{
			From:     &telegram.User{ID: 7},
			Chat:     telegram.Chat{ID: 7},
			Document: &telegram.Document{FileID: "d1", FileName: "app.exe", MIMEType: "application/x-msdownload", FileSize: 100},
		},
	}

	require.NoError(t, f.bot.HandleUpdate(context.Background(), upd))
	msg := f.sender.lastMessage(t)
	assert.Contains(t, msg.Text, "не поддерживается")
	assert.Contains(t, msg.Text, "PDF")
}

func TestPhotoAnalyzed(t *testing.T) {
	f := newBotFixture(t)
	f.files["big"] = []byte{1, 2, 3}
	f.mock.Reply = "На фото кот."
	upd := telegram.Update{
		Message: &telegram.Message{
			MessageID: 13,
			From:      &telegram.User{ID: 7},
			Chat:      telegram.Chat{ID: 7},
			Photo: []telegram.PhotoSize{
				{FileID: "small", Width: 90},
				{FileID: "big", Width: 800},
			},
		},
	}

	require.NoError(t, f.bot.HandleUpdate(context.Background(), upd))
	assert.Equal(t, "На фото кот.", f.sender.lastMessage(t).Text)
	// the largest variant is analyzed
	require.Len(t, f.mock.Requests, 1)
	assert.Equal(t, []byte{1, 2, 3}, f.mock.Requests[0].Parts[0].Data)
}

func TestQuickToolSendsMarkdownFile(t *testing.T) {
	f := newBotFixture(t)
	f.mock.Reply = "- [ ] Дело"

	require.NoError(t, f.bot.HandleUpdate(context.Background(), textUpdate(7, 7, "/todo купить хлеб")))

	require.Len(t, f.mock.OneShotRequests, 1)
	assert.Equal(t, "купить хлеб", f.mock.OneShotRequests[0].UserText)
	require.Len(t, f.sender.documents, 1)
	assert.Equal(t, "todo.md", f.sender.documents[0].FileName)
	assert.Equal(t, "- [ ] Дело", string(f.sender.documents[0].Data))
}

func TestQuickToolRequiresText(t *testing.T) {
	f := newBotFixture(t)

	require.NoError(t, f.bot.HandleUpdate(context.Background(), textUpdate(7, 7, "/translate")))
	assert.Contains(t, f.sender.lastMessage(t).Text, "Введите текст")
	assert.Empty(t, f.mock.OneShotRequests)
}

func TestDownloadCallbackFormats(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()
	f.mock.Reply = "# Заголовок\n\n**жирный** текст"

	require.NoError(t, f.bot.HandleUpdate(ctx, textUpdate(7, 7, "вопрос")))

	require.NoError(t, f.bot.HandleUpdate(ctx, callbackUpdate(7, 7, "get_md_7")))
	require.Len(t, f.sender.documents, 1)
	assert.Equal(t, "response.md", f.sender.documents[0].FileName)
	assert.Contains(t, string(f.sender.documents[0].Data), "**жирный**")

	require.NoError(t, f.bot.HandleUpdate(ctx, callbackUpdate(7, 7, "get_file_7")))
	require.Len(t, f.sender.documents, 2)
	assert.Equal(t, "response.txt", f.sender.documents[1].FileName)
	assert.NotContains(t, string(f.sender.documents[1].Data), "**")
}

func TestDownloadCallbackNoHistory(t *testing.T) {
	f := newBotFixture(t)

	require.NoError(t, f.bot.HandleUpdate(context.Background(), callbackUpdate(7, 7, "get_md_7")))
	require.NotEmpty(t, f.sender.answers)
	assert.Equal(t, "Нет истории.", f.sender.answers[0])
	assert.Empty(t, f.sender.documents)
}

func TestGeneratedImagesSentAsPhotos(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	require.NoError(t, f.bot.HandleUpdate(ctx, textUpdate(7, 7, "/unlock_pro SECRET")))
	require.NoError(t, f.bot.HandleUpdate(ctx, callbackUpdate(7, 7, "model_"+config.ImageGenModel)))

	f.mock.Images = []domain.Image{{Data: []byte("png"), MIMEType: "image/png"}}
	f.mock.Reply = ""
	require.NoError(t, f.bot.HandleUpdate(ctx, textUpdate(7, 7, "нарисуй кота")))

	require.Len(t, f.sender.photos, 1)
	assert.Equal(t, []byte("png"), f.sender.photos[0])
}

func TestBackendFailureHidesInternalError(t *testing.T) {
	f := newBotFixture(t)
	f.mock.Err = fmt.Errorf("rpc error: code = ResourceExhausted desc = quota exceeded for project 12345")

	require.NoError(t, f.bot.HandleUpdate(context.Background(), textUpdate(7, 7, "вопрос")))

	msg := f.sender.lastMessage(t)
	assert.Equal(t, "❌ Сервис временно недоступен. Попробуйте ещё раз.", msg.Text)
	assert.NotContains(t, msg.Text, "ResourceExhausted")
}

func TestWaitMessageShownAndDeleted(t *testing.T) {
	f := newBotFixture(t)
	f.mock.Reply = "Ответ"

	require.NoError(t, f.bot.HandleUpdate(context.Background(), textUpdate(7, 7, "вопрос")))

	id := f.sender.messageID(t, waitThinking)
	assert.Contains(t, f.sender.deleted, id)
}

func TestWaitMessageDeletedOnFailure(t *testing.T) {
	f := newBotFixture(t)
	f.mock.Err = fmt.Errorf("backend down")

	require.NoError(t, f.bot.HandleUpdate(context.Background(), textUpdate(7, 7, "вопрос")))

	id := f.sender.messageID(t, waitThinking)
	assert.Contains(t, f.sender.deleted, id)
}

func TestNoWaitMessageWhenBuffering(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	require.NoError(t, f.bot.HandleUpdate(ctx, textUpdate(7, 7, "Режим: Мгновенный ⚡")))
	require.NoError(t, f.bot.HandleUpdate(ctx, textUpdate(7, 7, "черновик")))

	for _, m := range f.sender.messages {
		assert.NotEqual(t, waitThinking, m.Text)
	}
	assert.Empty(t, f.sender.deleted)
}

func TestSplitCommand(t *testing.T) {
	name, args := splitCommand("/translate hello world")
	assert.Equal(t, "translate", name)
	assert.Equal(t, "hello world", args)

	name, args = splitCommand("/start@gembot")
	assert.Equal(t, "start", name)
	assert.Empty(t, args)
}

func TestNewChatButton(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	_, err := f.bot.chat.HandleText(ctx, 7, "привет")
	require.NoError(t, err)

	require.NoError(t, f.bot.HandleUpdate(ctx, textUpdate(7, 7, btnNewChat)))
	assert.Contains(t, f.sender.lastMessage(t).Text, "очищен")

	// next request starts a fresh conversation
	_, err = f.bot.chat.HandleText(ctx, 7, "снова")
	require.NoError(t, err)
	last := f.mock.Requests[len(f.mock.Requests)-1]
	assert.Empty(t, last.History)
}

func TestSearchToggleButton(t *testing.T) {
	f := newBotFixture(t)

	require.NoError(t, f.bot.HandleUpdate(context.Background(), textUpdate(7, 7, "Поиск: Выкл ❌")))
	msg := f.sender.lastMessage(t)
	assert.True(t, strings.HasPrefix(msg.Text, "🔎 Поиск Google: Вкл"))
}
