package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"obligation-tracker/internal/model"
	"obligation-tracker/internal/tracker"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newTestUser(t *testing.T, db *gorm.DB, telegramID int64) *model.User {
	t.Helper()
	user, err := NewUserRepository(db).UpsertFromTelegram(context.Background(), telegramID, "Ada", "", "ada")
	if err != nil {
		t.Fatalf("UpsertFromTelegram: %v", err)
	}
	return user
}

func TestUserRepository_Upsert(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first, err := repo.UpsertFromTelegram(ctx, 42, "Ada", "Lovelace", "ada")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := repo.UpsertFromTelegram(ctx, 42, "Augusta", "Lovelace", "ada")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("upsert created a second user: %d vs %d", first.ID, second.ID)
	}

	found, err := repo.FindByTelegramID(ctx, 42)
	if err != nil {
		t.Fatalf("FindByTelegramID: %v", err)
	}
	if found.FirstName != "Augusta" {
		t.Fatalf("FirstName = %q, want Augusta", found.FirstName)
	}
}

func TestBillRepository_RecordOccurrenceIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, db, 1)
	bills := NewBillRepository(db)
	ledger := NewLedgerRepository(db)

	due := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	bill := model.NewRecurringBill(user.ID, "Rent", decimal.NewFromInt(900), model.FrequencyMonthly, due)
	if err := bills.Create(ctx, &bill); err != nil {
		t.Fatalf("Create: %v", err)
	}

	now := due.Add(2 * time.Hour)
	expense, updated := tracker.ProcessBill(bill, now)
	inserted, err := bills.RecordOccurrence(ctx, &expense, &updated)
	if err != nil {
		t.Fatalf("RecordOccurrence: %v", err)
	}
	if !inserted {
		t.Fatal("first RecordOccurrence did not insert")
	}

	// Replaying the same occurrence from a stale snapshot must not duplicate the expense.
	replay, replayBill := tracker.ProcessBill(bill, now)
	inserted, err = bills.RecordOccurrence(ctx, &replay, &replayBill)
	if err != nil {
		t.Fatalf("replay RecordOccurrence: %v", err)
	}
	if inserted {
		t.Fatal("replayed occurrence inserted a second expense")
	}

	expenses, err := ledger.ListExpenses(ctx, user.ID, due.AddDate(0, -1, 0), due.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(expenses) != 1 {
		t.Fatalf("expenses = %d, want 1", len(expenses))
	}

	stored, err := bills.FindByID(ctx, user.ID, bill.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if want := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC); !stored.NextDueDate.Equal(want) {
		t.Fatalf("NextDueDate = %s, want %s", stored.NextDueDate, want)
	}
	if stored.ProcessedDueDate == nil || !stored.ProcessedDueDate.Equal(due) {
		t.Fatalf("ProcessedDueDate = %v, want %s", stored.ProcessedDueDate, due)
	}
}

func TestBillRepository_MarkRemindedAndDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, db, 2)
	bills := NewBillRepository(db)

	bill := model.NewRecurringBill(user.ID, "Phone", decimal.NewFromInt(20), model.FrequencyMonthly,
		time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC))
	if err := bills.Create(ctx, &bill); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := bills.MarkReminded(ctx, &bill, bill.NextDueDate); err != nil {
		t.Fatalf("MarkReminded: %v", err)
	}

	stored, err := bills.FindByID(ctx, user.ID, bill.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !tracker.ReminderSent(*stored) {
		t.Fatal("reminder flag was not persisted")
	}

	if err := bills.Delete(ctx, user.ID+1, bill.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("Delete by another user = %v, want ErrRecordNotFound", err)
	}
	if err := bills.Delete(ctx, user.ID, bill.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := bills.FindByID(ctx, user.ID, bill.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("FindByID after delete = %v, want ErrRecordNotFound", err)
	}
}

func TestLedgerRepository_Range(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, db, 3)
	ledger := NewLedgerRepository(db)

	dates := []time.Time{
		time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 23, 59, 0, 0, time.UTC),
		time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, d := range dates {
		if err := ledger.CreateExpense(ctx, &model.Expense{UserID: user.ID, Amount: decimal.NewFromInt(10), Date: d}); err != nil {
			t.Fatalf("CreateExpense: %v", err)
		}
	}
	if err := ledger.CreateRevenue(ctx, &model.Revenue{UserID: user.ID, Amount: decimal.NewFromInt(2500), Date: dates[1]}); err != nil {
		t.Fatalf("CreateRevenue: %v", err)
	}

	start, end := tracker.PeriodBounds(model.BudgetPeriodMonthly, dates[1])
	expenses, err := ledger.ListExpenses(ctx, user.ID, start, end)
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(expenses) != 2 {
		t.Fatalf("expenses in March = %d, want 2", len(expenses))
	}

	revenues, err := ledger.ListRevenues(ctx, user.ID, start, end)
	if err != nil {
		t.Fatalf("ListRevenues: %v", err)
	}
	if len(revenues) != 1 || !revenues[0].Amount.Equal(decimal.NewFromInt(2500)) {
		t.Fatalf("revenues = %+v, want one of 2500", revenues)
	}
}

func TestGoalRepository_SaveContribution(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, db, 4)
	goals := NewGoalRepository(db)

	goal := model.Goal{UserID: user.ID, Name: "Laptop", GoalAmount: decimal.NewFromInt(1500)}
	if err := goals.Create(ctx, &goal); err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated := tracker.AddContribution(goal, decimal.NewFromInt(1500))
	if err := goals.SaveContribution(ctx, &updated, &model.GoalContribution{Amount: decimal.NewFromInt(1500)}); err != nil {
		t.Fatalf("SaveContribution: %v", err)
	}

	stored, err := goals.FindByID(ctx, user.ID, goal.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !stored.Achieved || !stored.CurrentAmount.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("stored goal = %s achieved=%t, want 1500 achieved", stored.CurrentAmount, stored.Achieved)
	}

	history, err := goals.ListContributions(ctx, goal.ID)
	if err != nil {
		t.Fatalf("ListContributions: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("contributions = %d, want 1", len(history))
	}

	if err := goals.Delete(ctx, user.ID, goal.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	history, _ = goals.ListContributions(ctx, goal.ID)
	if len(history) != 0 {
		t.Fatalf("contributions after delete = %d, want 0", len(history))
	}
}

func TestCategoryRepository_GetOrCreateCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, db, 5)
	repo := NewCategoryRepository(db)

	first, err := repo.GetOrCreate(ctx, user.ID, "Food")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	second, err := repo.GetOrCreate(ctx, user.ID, " food ")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("GetOrCreate created duplicate category %d/%d", first.ID, second.ID)
	}

	none, err := repo.GetOrCreate(ctx, user.ID, "   ")
	if err != nil || none != nil {
		t.Fatalf("GetOrCreate(blank) = %v, %v; want nil, nil", none, err)
	}
}
