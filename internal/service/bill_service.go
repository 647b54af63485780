package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"obligation-tracker/internal/logger"
	"obligation-tracker/internal/model"
	"obligation-tracker/internal/repository"
	"obligation-tracker/internal/tracker"
)

// maxCatchUp bounds how many missed occurrences of one bill are processed in a single run.
const maxCatchUp = 12

// BillInput represents data required to create a recurring bill.
type BillInput struct {
	Name         string
	Amount       decimal.Decimal
	Category     string
	Frequency    model.Frequency
	FirstDue     *time.Time
	ReminderDays *int
	AutoProcess  bool
}

// BillView pairs a bill with its evaluation at a moment.
type BillView struct {
	Bill   model.RecurringBill
	Status tracker.BillStatus
}

// BillService wraps recurring bill business logic.
type BillService struct {
	bills      *repository.BillRepository
	categories *CategoryService
}

func NewBillService(bills *repository.BillRepository, categories *CategoryService) *BillService {
	return &BillService{bills: bills, categories: categories}
}

func (s *BillService) Create(ctx context.Context, user *model.User, input BillInput, now time.Time) (*model.RecurringBill, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !input.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	nextDue := tracker.NextDueDate(nil, input.Frequency, now)
	if input.FirstDue != nil {
		nextDue = *input.FirstDue
	}

	bill := model.NewRecurringBill(user.ID, input.Name, input.Amount, input.Frequency, nextDue)
	bill.AutoProcess = input.AutoProcess
	if input.ReminderDays != nil && *input.ReminderDays >= 0 {
		bill.ReminderDays = *input.ReminderDays
	}
	if strings.TrimSpace(input.Category) != "" {
		name, err := s.categories.Canonical(ctx, user, input.Category)
		if err != nil {
			return nil, err
		}
		bill.Category = name
	}

	if err := s.bills.Create(ctx, &bill); err != nil {
		return nil, err
	}
	return &bill, nil
}

func (s *BillService) List(ctx context.Context, user *model.User) ([]model.RecurringBill, error) {
	return s.bills.ListByUser(ctx, user.ID)
}

func (s *BillService) Get(ctx context.Context, user *model.User, billID uint) (*model.RecurringBill, error) {
	bill, err := s.bills.FindByID(ctx, user.ID, billID)
	if err != nil {
		return nil, notFound(err, ErrBillNotFound)
	}
	return bill, nil
}

func (s *BillService) Delete(ctx context.Context, user *model.User, billID uint) error {
	return notFound(s.bills.Delete(ctx, user.ID, billID), ErrBillNotFound)
}

// Statuses evaluates every bill of the user at now.
func (s *BillService) Statuses(ctx context.Context, user *model.User, now time.Time) ([]BillView, error) {
	bills, err := s.bills.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	views := make([]BillView, 0, len(bills))
	for _, bill := range bills {
		views = append(views, BillView{Bill: bill, Status: tracker.EvaluateBill(bill, now)})
	}
	return views, nil
}

// MarkPaid records the current occurrence of a bill by hand, whether or not it is due yet.
func (s *BillService) MarkPaid(ctx context.Context, user *model.User, billID uint, now time.Time) (*model.RecurringBill, *model.Expense, error) {
	bill, err := s.Get(ctx, user, billID)
	if err != nil {
		return nil, nil, err
	}

	expense, updated := tracker.ProcessBill(*bill, now)
	if _, err := s.bills.RecordOccurrence(ctx, &expense, &updated); err != nil {
		return nil, nil, err
	}
	logger.Get().Info("bill paid",
		zap.Uint("user_id", user.ID),
		zap.Uint("bill_id", updated.ID),
		zap.Time("next_due", updated.NextDueDate))
	return &updated, &expense, nil
}

// ProcessDue turns every due occurrence of auto-processed bills into expenses.
// Missed occurrences are caught up, at most maxCatchUp per bill.
func (s *BillService) ProcessDue(ctx context.Context, user *model.User, now time.Time) ([]model.Expense, error) {
	bills, err := s.bills.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	var recorded []model.Expense
	for _, bill := range bills {
		for i := 0; i < maxCatchUp && tracker.EvaluateBill(bill, now).ShouldAutoProcess; i++ {
			if err := ctx.Err(); err != nil {
				return recorded, err
			}
			expense, updated := tracker.ProcessBill(bill, now)
			inserted, err := s.bills.RecordOccurrence(ctx, &expense, &updated)
			if err != nil {
				return recorded, fmt.Errorf("process bill %d: %w", bill.ID, err)
			}
			if inserted {
				recorded = append(recorded, expense)
			} else {
				logger.Get().Warn("bill occurrence already recorded",
					zap.Uint("bill_id", bill.ID),
					zap.Time("due", bill.NextDueDate))
			}
			bill = updated
		}
	}
	return recorded, nil
}

// MarkReminded remembers that the current occurrence of bill was announced.
func (s *BillService) MarkReminded(ctx context.Context, bill *model.RecurringBill) error {
	return s.bills.MarkReminded(ctx, bill, bill.NextDueDate)
}
