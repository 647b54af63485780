package tracker

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"obligation-tracker/internal/model"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func TestNextDueDate_Frequencies(t *testing.T) {
	from := mustDate(t, "2024-01-15")
	cases := []struct {
		frequency model.Frequency
		want      string
	}{
		{model.FrequencyDaily, "2024-01-16"},
		{model.FrequencyWeekly, "2024-01-22"},
		{model.FrequencyBiweekly, "2024-01-29"},
		{model.FrequencyMonthly, "2024-02-15"},
		{model.FrequencyQuarterly, "2024-04-15"},
		{model.FrequencyYearly, "2025-01-15"},
		{model.Frequency("fortnightly-ish"), "2024-02-15"},
	}

	for _, tc := range cases {
		got := NextDueDate(&from, tc.frequency, time.Now())
		if want := mustDate(t, tc.want); !got.Equal(want) {
			t.Fatalf("NextDueDate(%s) = %s, want %s", tc.frequency, got.Format("2006-01-02"), tc.want)
		}
	}
}

func TestNextDueDate_NilUsesNow(t *testing.T) {
	now := mustDate(t, "2024-03-10")
	got := NextDueDate(nil, model.FrequencyWeekly, now)
	if want := mustDate(t, "2024-03-17"); !got.Equal(want) {
		t.Fatalf("NextDueDate(nil) = %s, want %s", got, want)
	}
}

func TestNextDueDate_ClampsToMonthEnd(t *testing.T) {
	from := mustDate(t, "2024-01-31")
	got := NextDueDate(&from, model.FrequencyMonthly, time.Now())
	if want := mustDate(t, "2024-02-29"); !got.Equal(want) {
		t.Fatalf("Jan 31 + 1 month = %s, want %s", got.Format("2006-01-02"), want.Format("2006-01-02"))
	}

	leap := mustDate(t, "2024-02-29")
	got = NextDueDate(&leap, model.FrequencyYearly, time.Now())
	if want := mustDate(t, "2025-02-28"); !got.Equal(want) {
		t.Fatalf("Feb 29 + 1 year = %s, want %s", got.Format("2006-01-02"), want.Format("2006-01-02"))
	}
}

func TestNextDueDate_StrictlyIncreasing(t *testing.T) {
	for _, f := range model.Frequencies {
		d := mustDate(t, "2023-12-31")
		for i := 0; i < 40; i++ {
			next := NextDueDate(&d, f, time.Now())
			if !next.After(d) {
				t.Fatalf("%s step %d: %s is not after %s", f, i, next, d)
			}
			d = next
		}
	}
}

func TestEvaluateBill_DueTodayReminds(t *testing.T) {
	now := time.Date(2024, 5, 10, 14, 0, 0, 0, time.UTC)
	bill := model.NewRecurringBill(1, "Rent", decimal.NewFromInt(900), model.FrequencyMonthly,
		time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC))

	status := EvaluateBill(bill, now)
	if status.DaysUntilDue != 0 {
		t.Fatalf("DaysUntilDue = %d, want 0", status.DaysUntilDue)
	}
	if !status.IsDue {
		t.Fatal("IsDue = false, want true")
	}
	if !status.ShouldRemind {
		t.Fatal("ShouldRemind = false, want true")
	}
	if status.ShouldAutoProcess {
		t.Fatal("ShouldAutoProcess = true for bill without auto-process")
	}
}

func TestEvaluateBill_ReminderWindow(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		due    time.Time
		days   int
		remind bool
	}{
		{"inside window", now.Add(3 * day), 3, true},
		{"partial day rounds up", now.Add(2*day + time.Hour), 3, true},
		{"outside window", now.Add(4 * day), 4, false},
		{"overdue", now.Add(-2 * day), -2, false},
	}

	for _, tc := range cases {
		bill := model.NewRecurringBill(1, "Internet", decimal.NewFromInt(30), model.FrequencyMonthly, tc.due)
		status := EvaluateBill(bill, now)
		if status.DaysUntilDue != tc.days {
			t.Fatalf("%s: DaysUntilDue = %d, want %d", tc.name, status.DaysUntilDue, tc.days)
		}
		if status.ShouldRemind != tc.remind {
			t.Fatalf("%s: ShouldRemind = %t, want %t", tc.name, status.ShouldRemind, tc.remind)
		}
	}
}

func TestEvaluateBill_ReminderSentOnce(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	bill := model.NewRecurringBill(1, "Gym", decimal.NewFromInt(25), model.FrequencyMonthly, now.Add(day))
	sent := bill.NextDueDate
	bill.ReminderSentFor = &sent

	if EvaluateBill(bill, now).ShouldRemind {
		t.Fatal("ShouldRemind = true after reminder was already sent for this occurrence")
	}
}

func TestEvaluateBill_AutoProcessOncePerOccurrence(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	bill := model.NewRecurringBill(7, "Streaming", decimal.RequireFromString("12.99"), model.FrequencyMonthly,
		time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC))
	bill.AutoProcess = true

	if !EvaluateBill(bill, now).ShouldAutoProcess {
		t.Fatal("ShouldAutoProcess = false for due auto bill")
	}

	processed := bill.NextDueDate
	bill.ProcessedDueDate = &processed
	if EvaluateBill(bill, now).ShouldAutoProcess {
		t.Fatal("ShouldAutoProcess = true for an occurrence that was already processed")
	}
}

func TestProcessBill(t *testing.T) {
	now := time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC)
	bill := model.NewRecurringBill(3, "Electricity", decimal.RequireFromString("74.20"), model.FrequencyMonthly,
		mustDate(t, "2024-01-15"))
	bill.ID = 11
	bill.Category = "Utilities"
	sent := bill.NextDueDate
	bill.ReminderSentFor = &sent

	expense, updated := ProcessBill(bill, now)

	if !expense.Amount.Equal(bill.Amount) {
		t.Fatalf("expense amount = %s, want %s", expense.Amount, bill.Amount)
	}
	if expense.Description != "Electricity" || expense.Category != "Utilities" {
		t.Fatalf("expense = %q/%q, want Electricity/Utilities", expense.Description, expense.Category)
	}
	if !expense.Date.Equal(now) {
		t.Fatalf("expense date = %s, want %s", expense.Date, now)
	}
	if expense.BillID == nil || *expense.BillID != 11 {
		t.Fatalf("expense BillID = %v, want 11", expense.BillID)
	}
	if expense.IdempotencyKey == nil || *expense.IdempotencyKey != OccurrenceKey(bill) {
		t.Fatal("expense idempotency key does not match the occurrence key")
	}

	if want := mustDate(t, "2024-02-15"); !updated.NextDueDate.Equal(want) {
		t.Fatalf("NextDueDate = %s, want %s", updated.NextDueDate, want)
	}
	if updated.LastProcessed == nil || !updated.LastProcessed.Equal(now) {
		t.Fatalf("LastProcessed = %v, want %s", updated.LastProcessed, now)
	}
	if updated.ProcessedDueDate == nil || !updated.ProcessedDueDate.Equal(mustDate(t, "2024-01-15")) {
		t.Fatalf("ProcessedDueDate = %v, want 2024-01-15", updated.ProcessedDueDate)
	}
	if updated.ReminderSentFor != nil {
		t.Fatal("ReminderSentFor should be cleared for the new occurrence")
	}
	if !bill.NextDueDate.Equal(mustDate(t, "2024-01-15")) {
		t.Fatal("ProcessBill mutated its input")
	}
}

func TestOccurrenceKey_StablePerOccurrence(t *testing.T) {
	bill := model.NewRecurringBill(1, "Rent", decimal.NewFromInt(900), model.FrequencyMonthly, mustDate(t, "2024-01-01"))
	bill.ID = 5

	first := OccurrenceKey(bill)
	if again := OccurrenceKey(bill); again != first {
		t.Fatalf("OccurrenceKey not stable: %s vs %s", first, again)
	}

	_, next := ProcessBill(bill, mustDate(t, "2024-01-01"))
	if OccurrenceKey(next) == first {
		t.Fatal("next occurrence reuses the previous key")
	}
}
