package tracker

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"obligation-tracker/internal/model"
)

const day = 24 * time.Hour

// billNamespace scopes idempotency keys of expenses generated from bills.
var billNamespace = uuid.MustParse("6f1c7a52-33a4-4d8e-9a43-0b7f4c1e2d90")

// BillStatus is the evaluation of a bill at a given moment.
type BillStatus struct {
	DaysUntilDue      int
	IsDue             bool
	ShouldRemind      bool
	ShouldAutoProcess bool
}

// NextDueDate returns the occurrence following last. A nil last means now.
// Unknown frequencies are treated as monthly.
func NextDueDate(last *time.Time, frequency model.Frequency, now time.Time) time.Time {
	from := now
	if last != nil {
		from = *last
	}

	switch frequency {
	case model.FrequencyDaily:
		return from.AddDate(0, 0, 1)
	case model.FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case model.FrequencyBiweekly:
		return from.AddDate(0, 0, 14)
	case model.FrequencyQuarterly:
		return addMonths(from, 3)
	case model.FrequencyYearly:
		return addMonths(from, 12)
	default:
		return addMonths(from, 1)
	}
}

// addMonths moves t by n calendar months, clamping the day to the end of the target month.
func addMonths(t time.Time, n int) time.Time {
	year, month, dayOfMonth := t.Date()
	hour, minute, sec := t.Clock()

	target := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysInMonth(target.Month(), target.Year()); dayOfMonth > last {
		dayOfMonth = last
	}
	return time.Date(target.Year(), target.Month(), dayOfMonth, hour, minute, sec, t.Nanosecond(), t.Location())
}

func daysInMonth(month time.Month, year int) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysUntil rounds the distance to target up to whole days.
func DaysUntil(target, now time.Time) int {
	days := math.Ceil(target.Sub(now).Hours() / 24)
	if days == 0 {
		return 0 // avoid -0
	}
	return int(days)
}

// EvaluateBill reports how close the current occurrence of bill is and what should happen to it.
func EvaluateBill(bill model.RecurringBill, now time.Time) BillStatus {
	days := DaysUntil(bill.NextDueDate, now)
	status := BillStatus{
		DaysUntilDue: days,
		IsDue:        days <= 0,
	}

	reminderDays := bill.ReminderDays
	if reminderDays < 0 {
		reminderDays = 0
	}
	status.ShouldRemind = days >= 0 && days <= reminderDays && !ReminderSent(bill)
	status.ShouldAutoProcess = bill.AutoProcess && status.IsDue && !OccurrenceProcessed(bill)
	return status
}

// ReminderSent reports whether a reminder already went out for the current occurrence.
func ReminderSent(bill model.RecurringBill) bool {
	return bill.ReminderSentFor != nil && bill.ReminderSentFor.Equal(bill.NextDueDate)
}

// OccurrenceProcessed reports whether the current occurrence was already turned into an expense.
func OccurrenceProcessed(bill model.RecurringBill) bool {
	return bill.ProcessedDueDate != nil && !bill.ProcessedDueDate.Before(bill.NextDueDate)
}

// OccurrenceKey identifies one occurrence of a bill. Writing an expense under the
// same key twice means the occurrence was already recorded.
func OccurrenceKey(bill model.RecurringBill) string {
	name := fmt.Sprintf("%d/%s", bill.ID, bill.NextDueDate.UTC().Format(time.RFC3339))
	return uuid.NewSHA1(billNamespace, []byte(name)).String()
}

// ProcessBill turns the current occurrence of bill into an expense and advances the schedule.
// Both results must be persisted by the caller.
func ProcessBill(bill model.RecurringBill, now time.Time) (model.Expense, model.RecurringBill) {
	key := OccurrenceKey(bill)
	billID := bill.ID

	category := bill.Category
	if category == "" {
		category = model.DefaultBillCategory
	}

	expense := model.Expense{
		UserID:         bill.UserID,
		Amount:         bill.Amount,
		Category:       category,
		Description:    bill.Name,
		Date:           now,
		BillID:         &billID,
		IdempotencyKey: &key,
	}

	due := bill.NextDueDate
	processedAt := now
	updated := bill
	updated.LastProcessed = &processedAt
	updated.ProcessedDueDate = &due
	updated.NextDueDate = NextDueDate(&due, bill.Frequency, now)
	updated.ReminderSentFor = nil
	return expense, updated
}
