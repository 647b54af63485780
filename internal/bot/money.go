package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"obligation-tracker/internal/logger"
	"obligation-tracker/internal/model"
	"obligation-tracker/internal/service"
)

func (b *Bot) handleExpense(ctx context.Context, msg *tgbotapi.Message) error {
	args, err := parseEntryArgs(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Формат: /expense 450 продукты обед с коллегами")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	now := b.now()
	expense, err := b.svc.Ledger.AddExpense(ctx, user, service.EntryInput{
		Amount:      args.Amount,
		Category:    args.Category,
		Description: args.Description,
		Date:        now,
	})
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось записать расход: %s", escape(err.Error())))
	}

	logger.Get().Info("expense recorded", zap.Uint("user_id", user.ID), zap.String("amount", expense.Amount.String()))

	text := fmt.Sprintf("💸 Расход %s записан", service.FormatMoney(expense.Amount))
	if expense.Category != "" {
		text += fmt.Sprintf(" в категорию «%s»", escape(normalizeTitle(expense.Category)))
	}
	if err := b.sendText(msg.Chat.ID, text+"."); err != nil {
		return err
	}
	b.recheckBudgets(ctx, user, now)
	return nil
}

func (b *Bot) handleIncome(ctx context.Context, msg *tgbotapi.Message) error {
	args, err := parseEntryArgs(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Формат: /income 50000 зарплата")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	description := strings.TrimSpace(args.Category + " " + args.Description)
	revenue, err := b.svc.Ledger.AddRevenue(ctx, user, service.EntryInput{
		Amount:      args.Amount,
		Description: description,
		Date:        b.now(),
	})
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось записать доход: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("💰 Доход %s записан.", service.FormatMoney(revenue.Amount)))
}

// recheckBudgets evaluates alerts right after spending changed instead of waiting for the next tick.
func (b *Bot) recheckBudgets(ctx context.Context, user *model.User, now time.Time) {
	if b.notifications == nil {
		return
	}
	if err := b.notifications.CheckBudgets(ctx, *user, now); err != nil {
		logger.Get().Warn("recheck budgets", zap.Uint("user_id", user.ID), zap.Error(err))
	}
}

func (b *Bot) handleNewBudget(ctx context.Context, msg *tgbotapi.Message) error {
	args, err := parseBudgetArgs(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Формат: /budget 30000 monthly продукты [noalerts]\nПериод: monthly или yearly, категория необязательна, noalerts отключает предупреждения.")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	budget, err := b.svc.Budgets.Create(ctx, user, service.BudgetInput{
		Amount:        args.Amount,
		Period:        args.Period,
		Category:      args.Category,
		DisableAlerts: args.DisableAlerts,
	}, b.now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось создать бюджет: %s", escape(err.Error())))
	}

	logger.Get().Info("budget created", zap.Uint("user_id", user.ID), zap.Uint("budget_id", budget.ID))

	text := fmt.Sprintf("✅ Бюджет <b>#%d</b> «%s» на %s: %s – %s.",
		budget.ID, escape(budget.Name), service.FormatMoney(budget.Amount),
		budget.StartDate.In(b.loc).Format("02.01.2006"), budget.EndDate.In(b.loc).Format("02.01.2006"))
	if budget.EnableAlerts {
		text += fmt.Sprintf("\nПредупрежу при %s.", service.FormatPercent(budget.AlertThreshold))
	} else {
		text += "\nПредупреждения выключены."
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleListBudgets(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	views, err := b.svc.Budgets.Progress(ctx, user, b.now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось получить бюджеты: %s", escape(err.Error())))
	}
	if len(views) == 0 {
		return b.sendText(msg.Chat.ID, "Бюджетов пока нет. Создай первый: /budget 30000 monthly")
	}

	var builder strings.Builder
	builder.WriteString("💼 <b>Бюджеты</b>\n\n")
	for _, view := range views {
		builder.WriteString(formatBudget(view))
	}
	builder.WriteString("\nПополнить: /topup &lt;id&gt; &lt;сумма&gt;")
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleTopUp(ctx context.Context, msg *tgbotapi.Message) error {
	budgetID, amount, err := parseIDAmount(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Формат: /topup 3 5000")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	budget, err := b.svc.Budgets.TopUp(ctx, user, budgetID, amount)
	if err != nil {
		if errors.Is(err, service.ErrBudgetNotFound) {
			return b.sendText(msg.Chat.ID, "Бюджет не найден.")
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Ошибка: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("➕ Бюджет «%s» пополнен, теперь %s.", escape(budget.Name), service.FormatMoney(budget.Amount)))
}

func (b *Bot) handleDeleteBudget(ctx context.Context, msg *tgbotapi.Message) error {
	budgetID, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID бюджета: /deletebudget 3")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if err := b.svc.Budgets.Delete(ctx, user, budgetID); err != nil {
		if errors.Is(err, service.ErrBudgetNotFound) {
			return b.sendText(msg.Chat.ID, "Бюджет не найден.")
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Ошибка: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, "🗑 Бюджет удалён.")
}

func (b *Bot) handleNewGoal(ctx context.Context, msg *tgbotapi.Message) error {
	args, err := parseGoalArgs(msg.CommandArguments(), b.loc)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Формат: /goal 150000 2026-06-01 Отпуск\nДата необязательна.")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	goal, err := b.svc.Goals.Create(ctx, user, service.GoalInput{
		Name:       args.Name,
		Amount:     args.Amount,
		TargetDate: args.TargetDate,
	})
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось создать цель: %s", escape(err.Error())))
	}

	logger.Get().Info("goal created", zap.Uint("user_id", user.ID), zap.Uint("goal_id", goal.ID))

	text := fmt.Sprintf("🎯 Цель <b>#%d</b> «%s» на %s создана.", goal.ID, escape(normalizeTitle(goal.Name)), service.FormatMoney(goal.GoalAmount))
	if goal.TargetDate != nil {
		text += fmt.Sprintf("\nСрок: %s.", goal.TargetDate.In(b.loc).Format("02.01.2006"))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleListGoals(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	views, err := b.svc.Goals.Progress(ctx, user, b.now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось получить цели: %s", escape(err.Error())))
	}
	if len(views) == 0 {
		return b.sendText(msg.Chat.ID, "Целей пока нет. Поставь первую: /goal 150000 Отпуск")
	}

	var builder strings.Builder
	builder.WriteString("🎯 <b>Цели</b>\n\n")
	for _, view := range views {
		builder.WriteString(formatGoal(view, b.loc))
	}
	builder.WriteString("\nПополнить: /contribute &lt;id&gt; &lt;сумма&gt;")
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleContribute(ctx context.Context, msg *tgbotapi.Message) error {
	goalID, amount, err := parseIDAmount(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Формат: /contribute 2 5000")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	result, err := b.svc.Goals.Contribute(ctx, user, goalID, amount)
	if err != nil {
		if errors.Is(err, service.ErrGoalNotFound) {
			return b.sendText(msg.Chat.ID, "Цель не найдена.")
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Ошибка: %s", escape(err.Error())))
	}

	goal := result.Goal
	if result.JustAchieved {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("🏆 Цель «%s» достигнута! Накоплено %s.", escape(normalizeTitle(goal.Name)), service.FormatMoney(goal.CurrentAmount)))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("💰 В цель «%s» добавлено %s. Накоплено %s из %s.",
		escape(normalizeTitle(goal.Name)), service.FormatMoney(amount), service.FormatMoney(goal.CurrentAmount), service.FormatMoney(goal.GoalAmount)))
}

func (b *Bot) handleDeleteGoal(ctx context.Context, msg *tgbotapi.Message) error {
	goalID, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID цели: /deletegoal 2")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if err := b.svc.Goals.Delete(ctx, user, goalID); err != nil {
		if errors.Is(err, service.ErrGoalNotFound) {
			return b.sendText(msg.Chat.ID, "Цель не найдена.")
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Ошибка: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, "🗑 Цель удалена.")
}

func formatBudget(view service.BudgetView) string {
	icon := "🟢"
	switch view.Level {
	case model.AlertWarning:
		icon = "⚠️"
	case model.AlertExceeded:
		icon = "🚨"
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%s <b>#%d</b> %s\n", icon, view.Budget.ID, escape(view.Budget.Name)))
	builder.WriteString(fmt.Sprintf("   %s %s\n", service.ProgressBar(view.Spending.Percentage), service.FormatPercent(view.Spending.Percentage)))
	builder.WriteString(fmt.Sprintf("   потрачено %s из %s, осталось %s\n",
		service.FormatMoney(view.Spending.Spent), service.FormatMoney(view.Budget.Amount), service.FormatMoney(view.Spending.Remaining)))
	return builder.String()
}

func formatGoal(view service.GoalView, loc *time.Location) string {
	goal := view.Goal
	p := view.Progress

	var builder strings.Builder
	icon := "🎯"
	if goal.Achieved {
		icon = "🏆"
	}
	builder.WriteString(fmt.Sprintf("%s <b>#%d</b> %s\n", icon, goal.ID, escape(normalizeTitle(goal.Name))))
	builder.WriteString(fmt.Sprintf("   %s %s · %s из %s\n",
		service.ProgressBar(p.Percentage), service.FormatPercent(p.Percentage), service.FormatMoney(p.Progress), service.FormatMoney(goal.GoalAmount)))
	if goal.Achieved {
		return builder.String()
	}
	if goal.TargetDate != nil {
		builder.WriteString(fmt.Sprintf("   до %s (%d дн.), откладывать %s в месяц\n",
			goal.TargetDate.In(loc).Format("02.01.2006"), p.DaysRemaining, service.FormatMoney(p.MonthlyContribution)))
	} else {
		builder.WriteString(fmt.Sprintf("   осталось %s\n", service.FormatMoney(p.RemainingAmount)))
	}
	return builder.String()
}
