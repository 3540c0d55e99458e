package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ntroshkin/gembot/internal/adapters/telegram"
	"github.com/ntroshkin/gembot/internal/app/chat"
	"github.com/ntroshkin/gembot/internal/app/quicktools"
	"github.com/ntroshkin/gembot/internal/config"
	"github.com/ntroshkin/gembot/internal/domain"
	"github.com/ntroshkin/gembot/internal/observability"
	"github.com/ntroshkin/gembot/internal/render"
)

// Sender is the slice of the Telegram client the handlers use.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts *telegram.SendOptions) (*telegram.Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *telegram.InlineKeyboard) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	SendPhoto(ctx context.Context, chatID int64, data []byte, caption string) error
	SendDocument(ctx context.Context, chatID int64, fileName string, data []byte, caption string) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
}

// Transient status messages shown while a generative call is in flight.
const (
	waitThinking = "⏳ Думаю..."
	waitLooking  = "👀 Смотрю..."
	waitFlushing = "📤 Отправляю накопленное..."
)

// Bot routes incoming updates to the conversation service and the quick
// tools, and renders the replies back to Telegram.
type Bot struct {
	cfg   *config.Config
	api   Sender
	chat  *chat.Service
	tools *quicktools.Runner
}

func New(cfg *config.Config, api Sender, chatSvc *chat.Service, tools *quicktools.Runner) *Bot {
	return &Bot{cfg: cfg, api: api, chat: chatSvc, tools: tools}
}

// HandleUpdate processes one update. Errors are reported to the user;
// the returned error is for logging only.
func (b *Bot) HandleUpdate(ctx context.Context, upd telegram.Update) error {
	switch {
	case upd.CallbackQuery != nil:
		return b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		return b.handleMessage(ctx, upd.Message)
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) error {
	if msg.From == nil {
		return nil
	}
	userID := domain.UserID(msg.From.ID)
	chatID := msg.Chat.ID

	switch {
	case msg.Document != nil:
		return b.handleDocument(ctx, userID, chatID, msg)
	case len(msg.Photo) > 0:
		return b.handlePhoto(ctx, userID, chatID, msg)
	case msg.Text != "":
		return b.handleText(ctx, userID, chatID, msg)
	}
	return nil
}

func (b *Bot) handleText(ctx context.Context, userID domain.UserID, chatID int64, msg *telegram.Message) error {
	text := msg.Text

	if strings.HasPrefix(text, "/") {
		return b.handleCommand(ctx, userID, chatID, msg)
	}

	switch {
	case text == btnNewChat:
		return b.handleNewChat(ctx, userID, chatID)
	case text == btnGetMarkdown:
		return b.handleGetMarkdown(ctx, userID, chatID)
	case text == btnSendAll:
		return b.handleFlush(ctx, userID, chatID)
	case strings.HasPrefix(text, btnModelPrefix):
		_, err := b.api.SendMessage(ctx, chatID, "Выберите модель:", &telegram.SendOptions{ReplyMarkup: modelKeyboard()})
		return err
	case strings.HasPrefix(text, btnModePrefix):
		return b.handleToggleMode(ctx, userID, chatID)
	case strings.HasPrefix(text, btnSearchPrefix):
		return b.handleToggleSearch(ctx, userID, chatID)
	}

	sess, err := b.chat.Session(ctx, userID)
	if err != nil {
		return b.reportError(ctx, chatID, msg.MessageID, err)
	}

	clearWait := func() {}
	if sess.DeliveryMode == domain.DeliveryImmediate {
		clearWait = b.sendWait(ctx, chatID, waitThinking)
	}
	b.api.SendChatAction(ctx, chatID, "typing")

	out, err := b.chat.HandleText(ctx, userID, text)
	clearWait()
	if err != nil {
		return b.reportError(ctx, chatID, msg.MessageID, err)
	}
	if out.Buffered {
		return b.sendPlain(ctx, chatID, fmt.Sprintf("📝 Добавлено в буфер (%d). Нажмите '%s' для отправки.", out.BufferSize, btnSendAll))
	}
	return b.sendReply(ctx, userID, chatID, msg.MessageID, out.Reply)
}

func (b *Bot) handleCommand(ctx context.Context, userID domain.UserID, chatID int64, msg *telegram.Message) error {
	name, args := splitCommand(msg.Text)

	switch name {
	case "start":
		return b.handleStart(ctx, userID, chatID)
	case "help":
		return b.sendPlain(ctx, chatID, helpText())
	case "unlock_pro":
		return b.handleUnlockPro(ctx, userID, chatID, msg.MessageID, args)
	}

	if tool, ok := quicktools.Lookup(name); ok {
		return b.handleQuickTool(ctx, chatID, msg.MessageID, tool, args)
	}

	return b.sendPlain(ctx, chatID, "Неизвестная команда. /help для справки.")
}

func (b *Bot) handleStart(ctx context.Context, userID domain.UserID, chatID int64) error {
	sess, err := b.chat.Session(ctx, userID)
	if err != nil {
		return b.reportError(ctx, chatID, 0, err)
	}

	search := "Выкл"
	if sess.SearchEnabled {
		search = "Вкл"
	}
	greeting := fmt.Sprintf(
		"👋 Привет! Я ваш персональный помощник на базе Google Gemini.\n\n"+
			"Текущие настройки:\n"+
			"🧠 Модель: %s\n"+
			"✍️ Режим отправки: %s\n"+
			"🔎 Поиск Google: %s\n\n"+
			"Используйте /help для справки.",
		modelAlias(sess.ActiveModel), modeLabel(sess.DeliveryMode), search)

	_, err = b.api.SendMessage(ctx, chatID, greeting, &telegram.SendOptions{ReplyMarkup: mainKeyboard(sess)})
	return err
}

func helpText() string {
	var sb strings.Builder
	sb.WriteString("ℹ️ Справка по боту\n\n")
	sb.WriteString("/start - Начать заново\n")
	sb.WriteString("/unlock_pro <код> - Разблокировать PRO модели\n\n")
	sb.WriteString("Быстрые команды:\n")
	for _, name := range quicktools.Names() {
		tool := quicktools.Registry[name]
		fmt.Fprintf(&sb, "/%s - %s\n", name, tool.Description)
	}
	sb.WriteString("\nОтправьте фото или файлы для анализа.")
	return sb.String()
}

func (b *Bot) handleUnlockPro(ctx context.Context, userID domain.UserID, chatID, replyTo int64, code string) error {
	_, err := b.chat.UnlockPro(ctx, userID, strings.TrimSpace(code))
	if errors.Is(err, domain.ErrPermissionDenied) {
		_, err = b.api.SendMessage(ctx, chatID, "❌ Неверный код.", &telegram.SendOptions{ReplyTo: replyTo})
		return err
	}
	if err != nil {
		return b.reportError(ctx, chatID, replyTo, err)
	}
	_, err = b.api.SendMessage(ctx, chatID, "✅ Доступ к PRO моделям разблокирован!", &telegram.SendOptions{ReplyTo: replyTo})
	return err
}

func (b *Bot) handleQuickTool(ctx context.Context, chatID, replyTo int64, tool quicktools.Tool, args string) error {
	if strings.TrimSpace(args) == "" {
		return b.sendPlain(ctx, chatID, fmt.Sprintf("❗ Введите текст для команды /%s", tool.Name))
	}

	clearWait := b.sendWait(ctx, chatID, fmt.Sprintf("🛠 Выполняю %s...", tool.Name))
	b.api.SendChatAction(ctx, chatID, "typing")

	out, err := b.tools.Run(ctx, tool, args)
	clearWait()
	if err != nil {
		return b.reportError(ctx, chatID, replyTo, err)
	}

	for _, part := range render.Render(out, b.cfg.MaxMessageLength) {
		if _, err := b.api.SendMessage(ctx, chatID, part, nil); err != nil {
			return err
		}
	}

	if tool.SendsMarkdownFile {
		return b.api.SendDocument(ctx, chatID, tool.Name+".md", []byte(out), "📄 Исходный Markdown")
	}
	return nil
}

func (b *Bot) handlePhoto(ctx context.Context, userID domain.UserID, chatID int64, msg *telegram.Message) error {
	// Telegram sends resolution variants smallest first; take the largest.
	fileID := msg.Photo[len(msg.Photo)-1].FileID

	sess, err := b.chat.Session(ctx, userID)
	if err != nil {
		return b.reportError(ctx, chatID, msg.MessageID, err)
	}

	clearWait := func() {}
	if sess.DeliveryMode == domain.DeliveryImmediate {
		clearWait = b.sendWait(ctx, chatID, waitLooking)
	}
	b.api.SendChatAction(ctx, chatID, "upload_photo")

	out, err := b.chat.HandlePhoto(ctx, userID, fileID, msg.Caption)
	clearWait()
	if err != nil {
		return b.reportError(ctx, chatID, msg.MessageID, err)
	}
	if out.Buffered {
		return b.sendPlain(ctx, chatID, "📎 Файл добавлен в буфер.")
	}
	return b.sendReply(ctx, userID, chatID, msg.MessageID, out.Reply)
}

func (b *Bot) handleDocument(ctx context.Context, userID domain.UserID, chatID int64, msg *telegram.Message) error {
	doc := msg.Document

	out, err := b.chat.HandleDocument(ctx, userID, doc.FileID, doc.FileName, doc.MIMEType, msg.Caption, doc.FileSize)
	if err != nil {
		return b.reportError(ctx, chatID, msg.MessageID, err)
	}
	switch {
	case out.Buffered:
		return b.sendPlain(ctx, chatID, "📎 Файл добавлен в буфер.")
	case out.Staged:
		return b.sendPlain(ctx, chatID, fmt.Sprintf("📄 Файл '%s' добавлен в контекст. Он будет использован в следующем запросе.", out.StagedName))
	}
	return nil
}

func (b *Bot) handleFlush(ctx context.Context, userID domain.UserID, chatID int64) error {
	clearWait := b.sendWait(ctx, chatID, waitFlushing)
	b.api.SendChatAction(ctx, chatID, "typing")

	out, err := b.chat.Flush(ctx, userID)
	clearWait()
	if err != nil {
		return b.reportError(ctx, chatID, 0, err)
	}
	return b.sendReply(ctx, userID, chatID, 0, out.Reply)
}

func (b *Bot) handleNewChat(ctx context.Context, userID domain.UserID, chatID int64) error {
	if err := b.chat.NewChat(ctx, userID); err != nil {
		return b.reportError(ctx, chatID, 0, err)
	}
	sess, err := b.chat.Session(ctx, userID)
	if err != nil {
		return b.reportError(ctx, chatID, 0, err)
	}
	_, err = b.api.SendMessage(ctx, chatID, "🗑 Контекст диалога очищен.", &telegram.SendOptions{ReplyMarkup: mainKeyboard(sess)})
	return err
}

func (b *Bot) handleToggleMode(ctx context.Context, userID domain.UserID, chatID int64) error {
	sess, err := b.chat.ToggleDeliveryMode(ctx, userID)
	if err != nil {
		return b.reportError(ctx, chatID, 0, err)
	}

	text := "Режим изменен на: " + modeLabel(sess.DeliveryMode) + "\nБуфер очищен."
	if sess.DeliveryMode == domain.DeliveryManual {
		text += "\nСообщения будут накапливаться в буфере."
	}
	_, err = b.api.SendMessage(ctx, chatID, text, &telegram.SendOptions{ReplyMarkup: mainKeyboard(sess)})
	return err
}

func (b *Bot) handleToggleSearch(ctx context.Context, userID domain.UserID, chatID int64) error {
	sess, err := b.chat.ToggleSearch(ctx, userID)
	if err != nil {
		return b.reportError(ctx, chatID, 0, err)
	}
	status := "Выкл"
	if sess.SearchEnabled {
		status = "Вкл"
	}
	_, err = b.api.SendMessage(ctx, chatID, "🔎 Поиск Google: "+status, &telegram.SendOptions{ReplyMarkup: mainKeyboard(sess)})
	return err
}

func (b *Bot) handleGetMarkdown(ctx context.Context, userID domain.UserID, chatID int64) error {
	_, err := b.api.SendMessage(ctx, chatID, "В каком формате скачать последний ответ?",
		&telegram.SendOptions{ReplyMarkup: downloadKeyboard(userID)})
	return err
}

func (b *Bot) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) error {
	if cb.From == nil || cb.Message == nil {
		return b.api.AnswerCallbackQuery(ctx, cb.ID, "")
	}
	userID := domain.UserID(cb.From.ID)
	chatID := cb.Message.Chat.ID
	data := cb.Data

	switch {
	case strings.HasPrefix(data, "model_"):
		return b.handleModelCallback(ctx, userID, chatID, cb.Message.MessageID, cb.ID, strings.TrimPrefix(data, "model_"))
	case strings.HasPrefix(data, "get_file_"):
		return b.handleDownloadCallback(ctx, userID, chatID, cb.ID, "txt")
	case strings.HasPrefix(data, "get_md_"):
		return b.handleDownloadCallback(ctx, userID, chatID, cb.ID, "md")
	}
	return b.api.AnswerCallbackQuery(ctx, cb.ID, "")
}

func (b *Bot) handleModelCallback(ctx context.Context, userID domain.UserID, chatID, msgID int64, cbID, model string) error {
	sess, err := b.chat.SelectModel(ctx, userID, model)
	if errors.Is(err, domain.ErrPermissionDenied) {
		return b.api.AnswerCallbackQuery(ctx, cbID, "🔒 Нужен PRO доступ (/unlock_pro)")
	}
	if err != nil {
		return b.api.AnswerCallbackQuery(ctx, cbID, "❌ Неизвестная модель.")
	}

	if err := b.api.AnswerCallbackQuery(ctx, cbID, ""); err != nil {
		observability.LoggerFromContext(ctx).Warn("answering callback failed", "error", err)
	}
	if err := b.api.EditMessageText(ctx, chatID, msgID, "✅ Выбрана модель: "+modelAlias(sess.ActiveModel), nil); err != nil {
		observability.LoggerFromContext(ctx).Warn("editing model prompt failed", "error", err)
	}
	_, err = b.api.SendMessage(ctx, chatID, "Контекст очищен. Можете начинать диалог.",
		&telegram.SendOptions{ReplyMarkup: mainKeyboard(sess)})
	return err
}

func (b *Bot) handleDownloadCallback(ctx context.Context, userID domain.UserID, chatID int64, cbID, format string) error {
	text, err := b.chat.LastResponse(ctx, userID)
	if errors.Is(err, domain.ErrNoLastResponse) {
		return b.api.AnswerCallbackQuery(ctx, cbID, "Нет истории.")
	}
	if err != nil {
		return b.api.AnswerCallbackQuery(ctx, cbID, "❌ Ошибка.")
	}

	if format == "txt" {
		text = render.Flatten(text)
	}
	if err := b.api.AnswerCallbackQuery(ctx, cbID, ""); err != nil {
		observability.LoggerFromContext(ctx).Warn("answering callback failed", "error", err)
	}
	return b.api.SendDocument(ctx, chatID, "response."+format, []byte(text), "")
}

// sendReply delivers one backend reply: generated images first, then
// the text flattened to plain Telegram messages.
func (b *Bot) sendReply(ctx context.Context, userID domain.UserID, chatID, replyTo int64, reply *chat.Reply) error {
	if reply == nil {
		return nil
	}

	for _, img := range reply.Images {
		if err := b.api.SendPhoto(ctx, chatID, img.Data, ""); err != nil {
			observability.LoggerFromContext(ctx).Error("sending generated image failed", "error", err)
		}
	}

	if reply.Text == "" {
		return nil
	}

	parts := render.Render(reply.Text, b.cfg.MaxMessageLength)
	for i, part := range parts {
		opts := &telegram.SendOptions{}
		if i == 0 && replyTo != 0 {
			opts.ReplyTo = replyTo
		}
		if _, err := b.api.SendMessage(ctx, chatID, part, opts); err != nil {
			return err
		}
	}

	if len(parts) > 1 {
		_, err := b.api.SendMessage(ctx, chatID, "Ответ был длинным и разбит на части.",
			&telegram.SendOptions{ReplyMarkup: downloadKeyboard(userID)})
		return err
	}
	return nil
}

// reportError maps domain errors to user-facing text and logs the rest.
func (b *Bot) reportError(ctx context.Context, chatID, replyTo int64, err error) error {
	var text string
	switch {
	case errors.Is(err, domain.ErrEmptyBuffer):
		text = "📭 Буфер пуст."
	case errors.Is(err, domain.ErrNotManualMode):
		text = "⚠️ Вы не в ручном режиме."
	case errors.Is(err, domain.ErrUnsupportedFileType):
		text = "⚠️ Этот тип файла не поддерживается.\nПоддерживаются: PDF, TXT, MD, CSV, HTML, CSS, XML, RTF, JS, PY."
	case errors.Is(err, domain.ErrFileTooLarge):
		text = fmt.Sprintf("⚠️ Файл слишком большой (максимум %d МБ).", b.cfg.MaxFileSizeMB)
	case errors.Is(err, domain.ErrPermissionDenied):
		text = "🔒 Нужен PRO доступ (/unlock_pro)"
	default:
		observability.LoggerFromContext(ctx).Error("request failed", "error", err)
		var backendErr *domain.BackendError
		if errors.As(err, &backendErr) {
			text = "❌ Сервис временно недоступен. Попробуйте ещё раз."
		} else {
			text = "❌ Что-то пошло не так. Попробуйте ещё раз."
		}
	}

	opts := &telegram.SendOptions{}
	if replyTo != 0 {
		opts.ReplyTo = replyTo
	}
	_, sendErr := b.api.SendMessage(ctx, chatID, text, opts)
	return sendErr
}

// sendWait posts a transient status message and returns a func that
// removes it once the slow call finishes. Failures degrade to a no-op.
func (b *Bot) sendWait(ctx context.Context, chatID int64, text string) func() {
	msg, err := b.api.SendMessage(ctx, chatID, text, nil)
	if err != nil || msg == nil {
		return func() {}
	}
	return func() {
		if err := b.api.DeleteMessage(ctx, chatID, msg.MessageID); err != nil {
			observability.LoggerFromContext(ctx).Warn("deleting wait message failed", "error", err)
		}
	}
}

func (b *Bot) sendPlain(ctx context.Context, chatID int64, text string) error {
	_, err := b.api.SendMessage(ctx, chatID, text, nil)
	return err
}

// splitCommand parses "/name arg text" into its name and argument tail.
func splitCommand(text string) (name, args string) {
	text = strings.TrimPrefix(text, "/")
	name, args, _ = strings.Cut(text, " ")
	// strip the @botname suffix used in group chats
	name, _, _ = strings.Cut(name, "@")
	return name, strings.TrimSpace(args)
}
