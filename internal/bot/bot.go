package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"obligation-tracker/internal/logger"
	"obligation-tracker/internal/model"
	"obligation-tracker/internal/repository"
	"obligation-tracker/internal/service"
)

const (
	cbPaidPrefix   = "paid:"
	cbDeletePrefix = "delbill:"
)

type confirmationAction int

const (
	actionPaid confirmationAction = iota
	actionDelete
)

type confirmationRequest struct {
	billID uint
	action confirmationAction
}

// Services bundles what the bot needs from the service layer.
type Services struct {
	Users      *repository.UserRepository
	Categories *service.CategoryService
	Bills      *service.BillService
	Budgets    *service.BudgetService
	Goals      *service.GoalService
	Ledger     *service.LedgerService
	Reminders  *service.ReminderService
}

// Bot aggregates Telegram API with services and doubles as the user notifier.
type Bot struct {
	api           *tgbotapi.BotAPI
	svc           Services
	notifications *service.NotificationService
	loc           *time.Location
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	mu            sync.Mutex
}

func New(token string, svc Services, loc *time.Location) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}

	logger.Get().Info("bot authorized", zap.String("account", api.Self.UserName))

	return &Bot{
		api:           api,
		svc:           svc,
		loc:           loc,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}, nil
}

// AttachNotifications lets the bot re-check budgets right after the user records spending.
func (b *Bot) AttachNotifications(n *service.NotificationService) {
	b.notifications = n
}

// Notify implements service.Notifier. Informational messages are delivered silently.
func (b *Bot) Notify(_ context.Context, user model.User, n service.Notification) error {
	msg := tgbotapi.NewMessage(user.TelegramID, n.Text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableNotification = n.Severity == service.SeverityInfo
	_, err := b.api.Send(msg)
	return err
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	logger.Get().Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				logger.Get().Error("handle callback", zap.Error(err))
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				logger.Get().Error("handle message", zap.Int64("chat_id", update.Message.Chat.ID), zap.Error(err))
			}
		}
	}

	return ctx.Err()
}

// SendDailyReports sends a summary to every known user.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.svc.Users.ListAll(ctx)
	if err != nil {
		return err
	}
	now := b.now()
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		text, err := b.svc.Reminders.DailySummary(ctx, user, now)
		if err != nil {
			logger.Get().Error("build summary", zap.Int64("telegram_id", user.TelegramID), zap.Error(err))
			continue
		}
		if err := b.Notify(ctx, user, service.Notification{Severity: service.SeverityWarning, Text: text}); err != nil {
			logger.Get().Warn("send summary", zap.Int64("telegram_id", user.TelegramID), zap.Error(err))
		}
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Ввод отменён.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		logger.Get().Info("command",
			zap.Int64("from", msg.From.ID),
			zap.String("command", msg.Command()),
			zap.String("args", msg.CommandArguments()))
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "Я пока не понял сообщение. Набери /help, чтобы увидеть список команд.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "newbill":
		return b.startNewBillConversation(ctx, msg)
	case "bills":
		return b.handleListBills(ctx, msg)
	case "paid":
		return b.handlePaid(ctx, msg)
	case "deletebill":
		return b.handleDeleteBill(ctx, msg)
	case "expense":
		return b.handleExpense(ctx, msg)
	case "income":
		return b.handleIncome(ctx, msg)
	case "budget":
		return b.handleNewBudget(ctx, msg)
	case "budgets":
		return b.handleListBudgets(ctx, msg)
	case "topup":
		return b.handleTopUp(ctx, msg)
	case "deletebudget":
		return b.handleDeleteBudget(ctx, msg)
	case "goal":
		return b.handleNewGoal(ctx, msg)
	case "goals":
		return b.handleListGoals(ctx, msg)
	case "contribute":
		return b.handleContribute(ctx, msg)
	case "deletegoal":
		return b.handleDeleteGoal(ctx, msg)
	case "categories":
		return b.handleCategories(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Ввод отменён.")
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.")
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewBill):
		return true, b.startNewBillConversation(ctx, msg)
	case strings.ToLower(menuLabelBills):
		return true, b.handleListBills(ctx, msg)
	case strings.ToLower(menuLabelBudgets):
		return true, b.handleListBudgets(ctx, msg)
	case strings.ToLower(menuLabelGoals):
		return true, b.handleListGoals(ctx, msg)
	case strings.ToLower(menuLabelReport):
		return true, b.handleReport(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "друг"
	}

	text := fmt.Sprintf("👋 Привет, %s!\n<b>Я слежу за регулярными платежами, бюджетами и целями.</b>\n\n"+
		"Напомню о платеже заранее, предупрежу, когда бюджет подходит к концу, и посчитаю, "+
		"сколько откладывать на цель. Список команд — /help.", escape(name))
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Команды</b>\n" +
		"<b>Платежи</b>\n" +
		"• /newbill — добавить регулярный платёж пошагово\n" +
		"• /bills — список платежей с кнопками\n" +
		"• /paid &lt;id&gt; — отметить платёж оплаченным\n" +
		"• /deletebill &lt;id&gt; — удалить платёж\n" +
		"<b>Деньги</b>\n" +
		"• /expense &lt;сумма&gt; [категория] [описание] — расход\n" +
		"• /income &lt;сумма&gt; [описание] — доход\n" +
		"• /categories — категории расходов\n" +
		"<b>Бюджеты</b>\n" +
		"• /budget &lt;сумма&gt; [monthly|yearly] [категория] [noalerts] — новый бюджет\n" +
		"• /budgets — состояние бюджетов\n" +
		"• /topup &lt;id&gt; &lt;сумма&gt; — пополнить бюджет\n" +
		"• /deletebudget &lt;id&gt; — удалить бюджет\n" +
		"<b>Цели</b>\n" +
		"• /goal &lt;сумма&gt; [ГГГГ-ММ-ДД] &lt;название&gt; — новая цель\n" +
		"• /goals — прогресс по целям\n" +
		"• /contribute &lt;id&gt; &lt;сумма&gt; — пополнить цель\n" +
		"• /deletegoal &lt;id&gt; — удалить цель\n" +
		"<b>Прочее</b>\n" +
		"• /report — сводка прямо сейчас\n" +
		"• /cancel — отменить текущий ввод"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.svc.Reminders.DailySummary(ctx, *user, b.now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось сформировать сводку: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleCategories(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	categories, err := b.svc.Categories.List(ctx, user)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось получить категории: %s", escape(err.Error())))
	}
	if len(categories) == 0 {
		return b.sendText(msg.Chat.ID, "Категорий пока нет. Они появятся вместе с первыми расходами.")
	}
	var builder strings.Builder
	builder.WriteString("📂 <b>Категории</b>\n")
	for _, cat := range categories {
		builder.WriteString(fmt.Sprintf("• %s\n", escape(normalizeTitle(cat.Name))))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.svc.Users.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) now() time.Time {
	return time.Now().In(b.loc)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup any) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func escape(s string) string {
	return html.EscapeString(s)
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func shortTitle(title string, maxLen int) string {
	clean := normalizeTitle(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}
