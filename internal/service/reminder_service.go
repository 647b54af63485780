package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"obligation-tracker/internal/model"
)

// upcomingDays limits the bills section of the summary to the near future.
const upcomingDays = 14

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	bills   *BillService
	budgets *BudgetService
	goals   *GoalService
	ledger  *LedgerService
}

func NewReminderService(bills *BillService, budgets *BudgetService, goals *GoalService, ledger *LedgerService) *ReminderService {
	return &ReminderService{bills: bills, budgets: budgets, goals: goals, ledger: ledger}
}

func (s *ReminderService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	bills, err := s.bills.Statuses(ctx, &user, now)
	if err != nil {
		return "", err
	}
	budgets, err := s.budgets.Progress(ctx, &user, now)
	if err != nil {
		return "", err
	}
	goals, err := s.goals.Progress(ctx, &user, now)
	if err != nil {
		return "", err
	}
	totals, err := s.ledger.MonthTotals(ctx, &user, now)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Финансовая сводка</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("02.01.2006")))

	builder.WriteString("🧾 <b>Ближайшие платежи</b>\n")
	upcoming := 0
	for _, view := range bills {
		if view.Status.DaysUntilDue > upcomingDays {
			continue
		}
		upcoming++
		builder.WriteString(formatBillLine(view, now))
	}
	if upcoming == 0 {
		builder.WriteString("— в ближайшие две недели платежей нет\n")
	}

	builder.WriteString("\n💼 <b>Бюджеты</b>\n")
	if len(budgets) == 0 {
		builder.WriteString("— бюджеты не заданы\n")
	}
	for _, view := range budgets {
		builder.WriteString(formatBudgetLine(view))
	}

	builder.WriteString("\n🎯 <b>Цели</b>\n")
	if len(goals) == 0 {
		builder.WriteString("— целей пока нет\n")
	}
	for _, view := range goals {
		builder.WriteString(formatGoalLine(view))
	}

	builder.WriteString(fmt.Sprintf("\n📊 <b>%s</b>: доход %s · расход %s · баланс %s\n",
		now.Format("01.2006"), FormatMoney(totals.Income), FormatMoney(totals.Spent), FormatMoney(totals.Balance)))

	return strings.TrimSpace(builder.String()), nil
}

func formatBillLine(view BillView, now time.Time) string {
	icon := "🟢"
	switch {
	case view.Status.IsDue:
		icon = "⚠️"
	case view.Status.DaysUntilDue <= view.Bill.ReminderDays:
		icon = "⏳"
	}
	line := fmt.Sprintf("%s <b>#%d</b> %s — %s\n   📆 %s, %s",
		icon, view.Bill.ID, escape(view.Bill.Name), FormatMoney(view.Bill.Amount),
		view.Bill.NextDueDate.In(now.Location()).Format("02.01.2006"), DueLabel(view.Status.DaysUntilDue))
	if view.Bill.AutoProcess {
		line += " · автоплатёж"
	}
	return line + "\n"
}

func formatBudgetLine(view BudgetView) string {
	icon := "🟢"
	switch view.Level {
	case model.AlertWarning:
		icon = "⚠️"
	case model.AlertExceeded:
		icon = "🚨"
	}
	line := fmt.Sprintf("%s <b>#%d</b> %s\n   %s %s · %s из %s, осталось %s",
		icon, view.Budget.ID, escape(view.Budget.Name),
		ProgressBar(view.Spending.Percentage), FormatPercent(view.Spending.Percentage),
		FormatMoney(view.Spending.Spent), FormatMoney(view.Budget.Amount), FormatMoney(view.Spending.Remaining))
	return line + "\n"
}

func formatGoalLine(view GoalView) string {
	p := view.Progress
	if view.Goal.Achieved {
		return fmt.Sprintf("🏆 <b>#%d</b> %s — цель достигнута (%s)\n",
			view.Goal.ID, escape(view.Goal.Name), FormatMoney(p.Progress))
	}
	line := fmt.Sprintf("🎯 <b>#%d</b> %s\n   %s %s · %s из %s",
		view.Goal.ID, escape(view.Goal.Name), ProgressBar(p.Percentage), FormatPercent(p.Percentage),
		FormatMoney(p.Progress), FormatMoney(view.Goal.GoalAmount))
	if p.DaysRemaining > 0 {
		line += fmt.Sprintf("\n   📆 осталось %d дн., откладывать ≈%s в месяц", p.DaysRemaining, FormatMoney(p.MonthlyContribution))
	}
	return line + "\n"
}
