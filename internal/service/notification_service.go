package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"obligation-tracker/internal/logger"
	"obligation-tracker/internal/model"
	"obligation-tracker/internal/repository"
	"obligation-tracker/internal/tracker"
)

// Severity tells the notifier how loud a message is.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is a single message for a user. Text is HTML.
type Notification struct {
	Severity Severity
	Text     string
}

// Notifier delivers notifications to a user.
type Notifier interface {
	Notify(ctx context.Context, user model.User, n Notification) error
}

// NotificationService evaluates bills and budgets and tells users what needs attention.
// Reminder and alert flags are stored only after a notification was delivered.
// Checks for the same user never overlap.
type NotificationService struct {
	users    *repository.UserRepository
	bills    *BillService
	budgets  *BudgetService
	notifier Notifier

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewNotificationService(users *repository.UserRepository, bills *BillService, budgets *BudgetService, notifier Notifier) *NotificationService {
	return &NotificationService{
		users:    users,
		bills:    bills,
		budgets:  budgets,
		notifier: notifier,
		locks:    make(map[uint]*sync.Mutex),
	}
}

func (s *NotificationService) lockUser(userID uint) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// CheckAll runs CheckUser for every known user until ctx is cancelled.
func (s *NotificationService) CheckAll(ctx context.Context, now time.Time) error {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := s.CheckUser(ctx, user, now); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			logger.Get().Error("check user", zap.Uint("user_id", user.ID), zap.Error(err))
		}
	}
	return nil
}

// CheckUser auto-processes due bills, sends bill reminders and budget alerts.
func (s *NotificationService) CheckUser(ctx context.Context, user model.User, now time.Time) error {
	defer s.lockUser(user.ID)()

	recorded, err := s.bills.ProcessDue(ctx, &user, now)
	for _, expense := range recorded {
		s.notify(ctx, user, Notification{
			Severity: SeverityInfo,
			Text: fmt.Sprintf("🧾 Автоплатёж записан: <b>%s</b> — %s",
				escape(expense.Description), FormatMoney(expense.Amount)),
		})
	}
	if err != nil {
		return fmt.Errorf("process due bills: %w", err)
	}

	if err := s.remindBills(ctx, user, now); err != nil {
		return err
	}
	return s.checkBudgets(ctx, user, now)
}

func (s *NotificationService) remindBills(ctx context.Context, user model.User, now time.Time) error {
	views, err := s.bills.Statuses(ctx, &user, now)
	if err != nil {
		return fmt.Errorf("bill statuses: %w", err)
	}
	for _, view := range views {
		if !view.Status.ShouldRemind {
			continue
		}
		bill := view.Bill
		severity := SeverityInfo
		if view.Status.IsDue {
			severity = SeverityWarning
		}
		text := fmt.Sprintf("⏰ Платёж <b>%s</b> (%s) — %s, срок %s",
			escape(bill.Name), FormatMoney(bill.Amount), DueLabel(view.Status.DaysUntilDue),
			bill.NextDueDate.In(now.Location()).Format("02.01.2006"))
		if !s.notify(ctx, user, Notification{Severity: severity, Text: text}) {
			continue
		}
		if err := s.bills.MarkReminded(ctx, &bill); err != nil {
			return err
		}
	}
	return nil
}

// CheckBudgets sends an alert for every budget that reached a new level in its window.
func (s *NotificationService) CheckBudgets(ctx context.Context, user model.User, now time.Time) error {
	defer s.lockUser(user.ID)()
	return s.checkBudgets(ctx, user, now)
}

func (s *NotificationService) checkBudgets(ctx context.Context, user model.User, now time.Time) error {
	views, err := s.budgets.Refresh(ctx, &user, now)
	if err != nil {
		return fmt.Errorf("budget progress: %w", err)
	}
	for _, view := range views {
		budget := view.Budget
		if !tracker.ShouldSendAlert(budget, view.Level) {
			continue
		}

		n := Notification{Severity: SeverityWarning}
		switch view.Level {
		case model.AlertExceeded:
			n.Severity = SeverityError
			n.Text = fmt.Sprintf("🚨 Бюджет <b>%s</b> превышен: потрачено %s из %s (%s)",
				escape(budget.Name), FormatMoney(view.Spending.Spent), FormatMoney(budget.Amount),
				FormatPercent(view.Spending.Percentage))
		default:
			n.Text = fmt.Sprintf("⚠️ Бюджет <b>%s</b> израсходован на %s: осталось %s",
				escape(budget.Name), FormatPercent(view.Spending.Percentage), FormatMoney(view.Spending.Remaining))
		}

		if !s.notify(ctx, user, n) {
			continue
		}
		if err := s.budgets.MarkAlerted(ctx, &budget, view.Level); err != nil {
			return err
		}
	}
	return nil
}

func (s *NotificationService) notify(ctx context.Context, user model.User, n Notification) bool {
	if err := s.notifier.Notify(ctx, user, n); err != nil {
		logger.Get().Warn("notify user",
			zap.Uint("user_id", user.ID),
			zap.String("severity", string(n.Severity)),
			zap.Error(err))
		return false
	}
	return true
}
