package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"obligation-tracker/internal/logger"
	"obligation-tracker/internal/model"
	"obligation-tracker/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageName
	stageAmount
	stageFrequency
	stageFirstDue
	stageReminderDays
	stageAutoProcess
)

type conversationState struct {
	stage conversationStage
	input service.BillInput
}

func (b *Bot) startNewBillConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	logger.Get().Info("start new bill conversation", zap.Int64("from", msg.From.ID))
	b.clearConfirmation(msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageName})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Добавляем регулярный платёж.\n<b>Шаг 1:</b> как он называется? Например, <i>Аренда</i>.", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageName:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Название не может быть пустым.", cancelKeyboard())
		}
		state.input.Name = text
		state.stage = stageAmount
		return b.sendWithReplyMarkup(msg.Chat.ID, "💰 <b>Шаг 2:</b> сумма платежа, например <code>1250.50</code>.", cancelKeyboard())
	case stageAmount:
		amount, err := parseAmount(text)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Сумма должна быть положительным числом, например <code>1250.50</code>.", cancelKeyboard())
		}
		state.input.Amount = amount
		state.stage = stageFrequency
		return b.sendWithReplyMarkup(msg.Chat.ID, "🔁 <b>Шаг 3:</b> как часто платить?", frequencyKeyboard())
	case stageFrequency:
		frequency, ok := frequencyFromInput(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Выбери периодичность кнопкой.", frequencyKeyboard())
		}
		state.input.Frequency = frequency
		state.stage = stageFirstDue
		return b.sendWithReplyMarkup(msg.Chat.ID, "📆 <b>Шаг 4:</b> дата ближайшего платежа в формате <code>2025-11-30</code>. «Пропустить» — посчитаю от сегодняшнего дня.", skipKeyboard())
	case stageFirstDue:
		if !isSkipInput(text) {
			parsed, err := time.ParseInLocation(dateLayout, text, b.loc)
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Не могу распознать дату. Используй формат <code>2025-11-30</code> или «Пропустить».", skipKeyboard())
			}
			state.input.FirstDue = &parsed
		}
		state.stage = stageReminderDays
		return b.sendWithReplyMarkup(msg.Chat.ID, fmt.Sprintf("⏳ <b>Шаг 5:</b> за сколько дней напомнить? По умолчанию — %d.", model.DefaultReminderDays), skipKeyboard())
	case stageReminderDays:
		if !isSkipInput(text) {
			days, err := strconv.Atoi(text)
			if err != nil || days < 0 || days > 60 {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Нужно число от 0 до 60 или «Пропустить».", skipKeyboard())
			}
			state.input.ReminderDays = &days
		}
		state.stage = stageAutoProcess
		return b.sendWithReplyMarkup(msg.Chat.ID, "🤖 <b>Шаг 6:</b> записывать расход автоматически в день платежа?", yesNoKeyboard())
	case stageAutoProcess:
		switch {
		case isYesInput(text):
			state.input.AutoProcess = true
		case isNoInput(text):
			state.input.AutoProcess = false
		default:
			return b.sendWithReplyMarkup(msg.Chat.ID, "Нажми «Да» или «Нет».", yesNoKeyboard())
		}
		err := b.finishBillCreation(ctx, msg.From, state.input, msg.Chat.ID)
		b.clearConversation(msg.From.ID)
		return err
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Диалог сброшен. Попробуй ещё раз через /newbill.")
	}
}

func (b *Bot) finishBillCreation(ctx context.Context, from *tgbotapi.User, input service.BillInput, chatID int64) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	now := b.now()
	bill, err := b.svc.Bills.Create(ctx, user, input, now)
	if err != nil {
		return b.sendTextWithRemove(chatID, fmt.Sprintf("Не удалось сохранить платёж: %s", escape(err.Error())))
	}

	logger.Get().Info("bill created",
		zap.Uint("user_id", user.ID),
		zap.Uint("bill_id", bill.ID),
		zap.String("frequency", string(bill.Frequency)))

	var summary strings.Builder
	summary.WriteString("✅ <b>Платёж сохранён</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> %d\n", bill.ID))
	summary.WriteString(fmt.Sprintf("• <b>Название:</b> %s\n", escape(normalizeTitle(bill.Name))))
	summary.WriteString(fmt.Sprintf("• <b>Сумма:</b> %s\n", service.FormatMoney(bill.Amount)))
	summary.WriteString(fmt.Sprintf("• <b>Повтор:</b> %s\n", service.FrequencyLabel(bill.Frequency)))
	summary.WriteString(fmt.Sprintf("• <b>Ближайший:</b> %s\n", bill.NextDueDate.In(b.loc).Format("02.01.2006")))
	summary.WriteString(fmt.Sprintf("• <b>Напоминание:</b> за %d дн.\n", bill.ReminderDays))
	if bill.AutoProcess {
		summary.WriteString("• <b>Автоплатёж:</b> да\n")
	}

	if err := b.sendTextWithRemove(chatID, strings.TrimSpace(summary.String())); err != nil {
		return err
	}
	return b.sendBillList(ctx, chatID, user)
}

func (b *Bot) handleListBills(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.sendBillList(ctx, msg.Chat.ID, user)
}

func (b *Bot) sendBillList(ctx context.Context, chatID int64, user *model.User) error {
	now := b.now()
	views, err := b.svc.Bills.Statuses(ctx, user, now)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось получить платежи: %s", escape(err.Error())))
	}
	if len(views) == 0 {
		return b.sendText(chatID, "Регулярных платежей пока нет. Добавь первый через /newbill.")
	}

	var builder strings.Builder
	builder.WriteString("🧾 <b>Регулярные платежи</b>\n")
	builder.WriteString("Кнопки ниже отмечают платёж оплаченным или удаляют его.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, view := range views {
		builder.WriteString(formatBill(view, b.loc))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ #%d · %s", view.Bill.ID, shortTitle(view.Bill.Name, 20)), fmt.Sprintf("%s%d", cbPaidPrefix, view.Bill.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", fmt.Sprintf("%s%d", cbDeletePrefix, view.Bill.ID)),
		))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handlePaid(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, "Укажи ID платежа: /paid 12")
	}
	billID, err := parseID(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, "ID платежа должен быть числом.")
	}
	return b.payBillAndRefresh(ctx, msg.Chat.ID, msg.From, billID)
}

func (b *Bot) handleDeleteBill(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, "Укажи ID платежа: /deletebill 12")
	}
	billID, err := parseID(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, "ID платежа должен быть числом.")
	}
	return b.askDeleteConfirmation(ctx, msg.Chat.ID, msg.From, billID)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		logger.Get().Warn("callback ack", zap.Error(err))
	}

	data := cb.Data
	logger.Get().Info("callback", zap.Int64("from", cb.From.ID), zap.String("data", data))

	switch {
	case strings.HasPrefix(data, cbPaidPrefix):
		billID, err := parseID(strings.TrimPrefix(data, cbPaidPrefix))
		if err != nil {
			return nil
		}
		return b.askPaidConfirmation(ctx, cb.Message.Chat.ID, cb.From, billID)
	case strings.HasPrefix(data, cbDeletePrefix):
		billID, err := parseID(strings.TrimPrefix(data, cbDeletePrefix))
		if err != nil {
			return nil
		}
		return b.askDeleteConfirmation(ctx, cb.Message.Chat.ID, cb.From, billID)
	default:
		return nil
	}
}

func (b *Bot) askPaidConfirmation(ctx context.Context, chatID int64, from *tgbotapi.User, billID uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	bill, err := b.svc.Bills.Get(ctx, user, billID)
	if err != nil {
		return b.replyBillError(chatID, err)
	}

	text := fmt.Sprintf("Отметить «%s» (#%d) на %s оплаченным? Запишу расход %s.",
		escape(normalizeTitle(bill.Name)), bill.ID, bill.NextDueDate.In(b.loc).Format("02.01.2006"), service.FormatMoney(bill.Amount))
	b.setConfirmation(from.ID, confirmationRequest{billID: bill.ID, action: actionPaid})
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, chatID int64, from *tgbotapi.User, billID uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	bill, err := b.svc.Bills.Get(ctx, user, billID)
	if err != nil {
		return b.replyBillError(chatID, err)
	}

	text := fmt.Sprintf("Удалить платёж «%s» (#%d)? Уже записанные расходы останутся.", escape(normalizeTitle(bill.Name)), bill.ID)
	b.setConfirmation(from.ID, confirmationRequest{billID: bill.ID, action: actionDelete})
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		if req.action == actionDelete {
			return b.deleteBillAndRefresh(ctx, msg.Chat.ID, msg.From, req.billID)
		}
		return b.payBillAndRefresh(ctx, msg.Chat.ID, msg.From, req.billID)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Хорошо, ничего не меняю.")
	default:
		prompt := "Подтверди или отмени оплату."
		if req.action == actionDelete {
			prompt = "Подтверди или отмени удаление платежа."
		}
		return b.sendWithReplyMarkup(msg.Chat.ID, prompt, confirmKeyboard())
	}
}

func (b *Bot) payBillAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, billID uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	now := b.now()
	bill, expense, err := b.svc.Bills.MarkPaid(ctx, user, billID, now)
	if err != nil {
		return b.replyBillError(chatID, err)
	}

	info := fmt.Sprintf("✅ «%s» оплачен, записан расход %s.\nСледующий платёж — %s.",
		escape(normalizeTitle(bill.Name)), service.FormatMoney(expense.Amount), bill.NextDueDate.In(b.loc).Format("02.01.2006"))
	if err := b.sendTextWithRemove(chatID, info); err != nil {
		return err
	}
	b.recheckBudgets(ctx, user, now)
	return b.sendBillList(ctx, chatID, user)
}

func (b *Bot) deleteBillAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, billID uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	bill, err := b.svc.Bills.Get(ctx, user, billID)
	if err != nil {
		return b.replyBillError(chatID, err)
	}
	if err := b.svc.Bills.Delete(ctx, user, billID); err != nil {
		return b.replyBillError(chatID, err)
	}

	logger.Get().Info("bill deleted", zap.Uint("user_id", user.ID), zap.Uint("bill_id", billID))
	if err := b.sendTextWithRemove(chatID, fmt.Sprintf("🗑 Платёж «%s» удалён.", escape(normalizeTitle(bill.Name)))); err != nil {
		return err
	}
	return b.sendBillList(ctx, chatID, user)
}

func (b *Bot) replyBillError(chatID int64, err error) error {
	if errors.Is(err, service.ErrBillNotFound) {
		return b.sendTextWithRemove(chatID, "Платёж не найден или уже удалён.")
	}
	return b.sendTextWithRemove(chatID, fmt.Sprintf("Ошибка: %s", escape(err.Error())))
}

func formatBill(view service.BillView, loc *time.Location) string {
	bill := view.Bill
	icon := "🟢"
	switch {
	case view.Status.IsDue:
		icon = "⚠️"
	case view.Status.DaysUntilDue <= bill.ReminderDays:
		icon = "⏳"
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%s <b>#%d</b> %s — %s\n", icon, bill.ID, escape(normalizeTitle(bill.Name)), service.FormatMoney(bill.Amount)))
	builder.WriteString(fmt.Sprintf("   🔁 %s · 📆 %s, %s", service.FrequencyLabel(bill.Frequency), bill.NextDueDate.In(loc).Format("02.01.2006"), service.DueLabel(view.Status.DaysUntilDue)))
	if bill.AutoProcess {
		builder.WriteString(" · 🤖")
	}
	builder.WriteString("\n")
	if bill.Category != "" && bill.Category != model.DefaultBillCategory {
		builder.WriteString(fmt.Sprintf("   🏷 %s\n", escape(bill.Category)))
	}
	return builder.String()
}
