package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"obligation-tracker/internal/model"
	"obligation-tracker/internal/service"
	"obligation-tracker/internal/tracker"
)

func TestShortTitle(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"аренда", 20, "Аренда"},
		{"интернет и телевидение", 10, "Интернет …"},
		{"a\nb", 5, "A b"},
	}
	for _, tt := range tests {
		if got := shortTitle(tt.in, tt.max); got != tt.want {
			t.Fatalf("shortTitle(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestFormatBillMarksDueAndAuto(t *testing.T) {
	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	bill := model.NewRecurringBill(1, "Rent <flat>", decimal.NewFromInt(1200), model.FrequencyMonthly, due)
	bill.ID = 7
	bill.AutoProcess = true

	got := formatBill(service.BillView{Bill: bill, Status: tracker.BillStatus{DaysUntilDue: 0, IsDue: true}}, time.UTC)
	for _, want := range []string{"⚠️", "#7", "Rent &lt;flat&gt;", "1 200.00", "01.03.2025", "🤖"} {
		if !strings.Contains(got, want) {
			t.Fatalf("formatBill() = %q, missing %q", got, want)
		}
	}
}

func TestFormatGoalShowsMonthlyContribution(t *testing.T) {
	target := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	view := service.GoalView{
		Goal: model.Goal{ID: 2, Name: "отпуск", GoalAmount: decimal.NewFromInt(1000), TargetDate: &target},
		Progress: tracker.Progress{
			Progress:            decimal.NewFromInt(400),
			Percentage:          40,
			MonthlyContribution: decimal.NewFromInt(150),
			DaysRemaining:       120,
			RemainingAmount:     decimal.NewFromInt(600),
		},
	}

	got := formatGoal(view, time.UTC)
	for _, want := range []string{"Отпуск", "40%", "400.00 из 1 000.00", "120 дн.", "150.00 в месяц"} {
		if !strings.Contains(got, want) {
			t.Fatalf("formatGoal() = %q, missing %q", got, want)
		}
	}
}

func TestFormatGoalAchievedSkipsPlan(t *testing.T) {
	view := service.GoalView{
		Goal:     model.Goal{ID: 3, Name: "ноутбук", GoalAmount: decimal.NewFromInt(100), Achieved: true},
		Progress: tracker.Progress{Progress: decimal.NewFromInt(120), Percentage: 120},
	}
	got := formatGoal(view, time.UTC)
	if !strings.Contains(got, "🏆") || strings.Contains(got, "в месяц") {
		t.Fatalf("formatGoal() = %q, want achieved line without plan", got)
	}
}
