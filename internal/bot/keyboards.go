package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"obligation-tracker/internal/model"
)

const (
	btnSkip          = "⏭️ Пропустить"
	btnYes           = "Да"
	btnNo            = "Нет"
	btnConfirm       = "✅ Подтвердить"
	btnCancel        = "↩️ Отмена"
	btnCancelDialog  = "⏪ Отменить ввод"
	menuLabelNewBill = "➕ Новый платёж"
	menuLabelBills   = "🧾 Платежи"
	menuLabelBudgets = "💼 Бюджеты"
	menuLabelGoals   = "🎯 Цели"
	menuLabelReport  = "📊 Сводка"
	menuLabelHelp    = "ℹ️ Помощь"
)

func frequencyButton(f model.Frequency) string {
	switch f {
	case model.FrequencyDaily:
		return "Каждый день"
	case model.FrequencyWeekly:
		return "Каждую неделю"
	case model.FrequencyBiweekly:
		return "Раз в 2 недели"
	case model.FrequencyQuarterly:
		return "Раз в квартал"
	case model.FrequencyYearly:
		return "Раз в год"
	default:
		return "Каждый месяц"
	}
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirm),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewBill),
			tgbotapi.NewKeyboardButton(menuLabelBills),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelBudgets),
			tgbotapi.NewKeyboardButton(menuLabelGoals),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelReport),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnSkip)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func yesNoKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnYes),
			tgbotapi.NewKeyboardButton(btnNo),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func frequencyKeyboard() tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for i := 0; i < len(model.Frequencies); i += 2 {
		row := tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(frequencyButton(model.Frequencies[i])))
		if i+1 < len(model.Frequencies) {
			row = append(row, tgbotapi.NewKeyboardButton(frequencyButton(model.Frequencies[i+1])))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)))
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "пропустить" || value == "skip"
}

func isYesInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "да" || value == "yes" || value == "y"
}

func isNoInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "нет" || value == "no" || value == "n" || value == "-"
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "подтвердить" || value == "да"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "отмена"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "отменить ввод"
}
