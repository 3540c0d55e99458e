package bot

import (
	"fmt"

	"github.com/ntroshkin/gembot/internal/adapters/telegram"
	"github.com/ntroshkin/gembot/internal/config"
	"github.com/ntroshkin/gembot/internal/domain"
)

// Keyboard button labels. The dynamic ones are matched by prefix.
const (
	btnNewChat      = "Новый чат"
	btnGetMarkdown  = "Получить .MD 📄"
	btnSendAll      = "Отправить всё"
	btnModelPrefix  = "Модель:"
	btnModePrefix   = "Режим:"
	btnSearchPrefix = "Поиск:"
)

const (
	modeImmediateLabel = "Мгновенный ⚡"
	modeManualLabel    = "Ручной ✍️"
)

func modeLabel(m domain.DeliveryMode) string {
	if m == domain.DeliveryManual {
		return modeManualLabel
	}
	return modeImmediateLabel
}

func modelAlias(model string) string {
	if alias, ok := config.ModelAliases[model]; ok {
		return alias
	}
	return model
}

func searchLabel(enabled bool) string {
	if enabled {
		return "Вкл ✅"
	}
	return "Выкл ❌"
}

// mainKeyboard builds the persistent reply keyboard reflecting the
// session's current settings. The flush button appears only in manual
// mode.
func mainKeyboard(sess *domain.UserSession) *telegram.ReplyKeyboard {
	rows := [][]telegram.KeyboardButton{
		{{Text: btnNewChat}},
		{
			{Text: fmt.Sprintf("%s %s", btnModelPrefix, modelAlias(sess.ActiveModel))},
			{Text: fmt.Sprintf("%s %s", btnModePrefix, modeLabel(sess.DeliveryMode))},
		},
		{
			{Text: btnGetMarkdown},
			{Text: fmt.Sprintf("%s %s", btnSearchPrefix, searchLabel(sess.SearchEnabled))},
		},
	}
	if sess.DeliveryMode == domain.DeliveryManual {
		rows = append(rows, []telegram.KeyboardButton{{Text: btnSendAll}})
	}
	return &telegram.ReplyKeyboard{Keyboard: rows, ResizeKeyboard: true}
}

func modelKeyboard() *telegram.InlineKeyboard {
	var rows [][]telegram.InlineButton
	for _, model := range config.AvailableModels {
		rows = append(rows, []telegram.InlineButton{{
			Text:         modelAlias(model),
			CallbackData: "model_" + model,
		}})
	}
	return &telegram.InlineKeyboard{InlineKeyboard: rows}
}

func downloadKeyboard(id domain.UserID) *telegram.InlineKeyboard {
	return &telegram.InlineKeyboard{InlineKeyboard: [][]telegram.InlineButton{
		{{Text: "Скачать в формате .txt", CallbackData: fmt.Sprintf("get_file_%d", id)}},
		{{Text: "Скачать в формате .md", CallbackData: fmt.Sprintf("get_md_%d", id)}},
	}}
}
