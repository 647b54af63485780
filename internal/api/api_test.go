package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"obligation-tracker/internal/model"
	"obligation-tracker/internal/repository"
	"obligation-tracker/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	server *Server
	user   *model.User
	goal   *model.Goal
	now    time.Time
}

func newFixture(t *testing.T, apiKey string) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(fmt.Sprintf("file:api_%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	users := repository.NewUserRepository(db)
	user, err := users.UpsertFromTelegram(ctx, 42, "Ada", "", "ada")
	if err != nil {
		t.Fatalf("UpsertFromTelegram: %v", err)
	}

	ledgerRepo := repository.NewLedgerRepository(db)
	categories := service.NewCategoryService(repository.NewCategoryRepository(db))
	bills := service.NewBillService(repository.NewBillRepository(db), categories)
	budgets := service.NewBudgetService(repository.NewBudgetRepository(db), ledgerRepo, categories)
	goals := service.NewGoalService(repository.NewGoalRepository(db))

	due := now.AddDate(0, 0, 2)
	if _, err := bills.Create(ctx, user, service.BillInput{
		Name:      "Rent",
		Amount:    decimal.NewFromInt(1200),
		Frequency: model.FrequencyMonthly,
		FirstDue:  &due,
	}, now); err != nil {
		t.Fatalf("create bill: %v", err)
	}
	if _, err := budgets.Create(ctx, user, service.BudgetInput{Amount: decimal.NewFromInt(500), Period: model.BudgetPeriodMonthly}, now); err != nil {
		t.Fatalf("create budget: %v", err)
	}
	goal, err := goals.Create(ctx, user, service.GoalInput{Name: "Laptop", Amount: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	server := NewServer(users, bills, budgets, goals, apiKey, time.UTC)
	server.now = func() time.Time { return now }
	return &fixture{server: server, user: user, goal: goal, now: now}
}

func (f *fixture) do(method, path, body, key string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	w := httptest.NewRecorder()
	f.server.Router().ServeHTTP(w, req)
	return w
}

func TestHealthzSkipsAuth(t *testing.T) {
	f := newFixture(t, "secret")
	w := f.do(http.MethodGet, "/healthz", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAPIKeyRequired(t *testing.T) {
	f := newFixture(t, "secret")
	if w := f.do(http.MethodGet, "/api/users/42/overview", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status without key = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	for _, key := range []string{"wrong", "secre", "secret2"} {
		if w := f.do(http.MethodGet, "/api/users/42/overview", "", key); w.Code != http.StatusUnauthorized {
			t.Fatalf("status with key %q = %d, want %d", key, w.Code, http.StatusUnauthorized)
		}
	}
	if w := f.do(http.MethodGet, "/api/users/42/overview", "", "secret"); w.Code != http.StatusOK {
		t.Fatalf("status with key = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestOverview(t *testing.T) {
	f := newFixture(t, "")
	w := f.do(http.MethodGet, "/api/users/42/overview", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var out overviewJSON
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Bills) != 1 || len(out.Budgets) != 1 || len(out.Goals) != 1 {
		t.Fatalf("overview sizes = %d/%d/%d, want 1/1/1", len(out.Bills), len(out.Budgets), len(out.Goals))
	}
	bill := out.Bills[0]
	if bill.DaysUntilDue != 2 || !bill.ShouldRemind || bill.IsDue {
		t.Fatalf("bill status = %+v, want 2 days, remind, not due", bill)
	}
	if !out.Budgets[0].Remaining.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("budget remaining = %s, want 500", out.Budgets[0].Remaining)
	}
}

func TestOverviewLeavesExpiredBudgetsStored(t *testing.T) {
	f := newFixture(t, "")
	before, err := f.server.budgets.List(context.Background(), f.user)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	next := f.now.AddDate(0, 1, 0)
	f.server.now = func() time.Time { return next }
	w := f.do(http.MethodGet, "/api/users/42/overview", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var out overviewJSON
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if want := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC); !out.Budgets[0].StartDate.Equal(want) {
		t.Fatalf("overview start = %s, want %s", out.Budgets[0].StartDate, want)
	}

	after, err := f.server.budgets.List(context.Background(), f.user)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !after[0].StartDate.Equal(before[0].StartDate) {
		t.Fatalf("stored start = %s, want unchanged %s", after[0].StartDate, before[0].StartDate)
	}
}

func TestOverviewUnknownUser(t *testing.T) {
	f := newFixture(t, "")
	if w := f.do(http.MethodGet, "/api/users/7/overview", "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if w := f.do(http.MethodGet, "/api/users/abc/overview", "", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestContribution(t *testing.T) {
	f := newFixture(t, "")
	path := fmt.Sprintf("/api/users/42/goals/%d/contributions", f.goal.ID)

	w := f.do(http.MethodPost, path, `{"amount":"60"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	w = f.do(http.MethodPost, path, `{"amount":"50"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var out struct {
		Goal         goalJSON `json:"goal"`
		JustAchieved bool     `json:"just_achieved"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.JustAchieved || !out.Goal.Achieved {
		t.Fatalf("achieved = %v/%v, want true/true", out.JustAchieved, out.Goal.Achieved)
	}
	if !out.Goal.CurrentAmount.Equal(decimal.NewFromInt(110)) {
		t.Fatalf("current = %s, want 110", out.Goal.CurrentAmount)
	}
}

func TestContributionErrors(t *testing.T) {
	f := newFixture(t, "")
	tests := []struct {
		path string
		body string
		want int
	}{
		{fmt.Sprintf("/api/users/42/goals/%d/contributions", f.goal.ID), `{"amount":"0"}`, http.StatusBadRequest},
		{fmt.Sprintf("/api/users/42/goals/%d/contributions", f.goal.ID), `{"amount":"-5"}`, http.StatusBadRequest},
		{fmt.Sprintf("/api/users/42/goals/%d/contributions", f.goal.ID), `not json`, http.StatusBadRequest},
		{"/api/users/42/goals/999/contributions", `{"amount":"5"}`, http.StatusNotFound},
		{"/api/users/42/goals/x/contributions", `{"amount":"5"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		if w := f.do(http.MethodPost, tt.path, tt.body, ""); w.Code != tt.want {
			t.Fatalf("POST %s %s = %d, want %d", tt.path, tt.body, w.Code, tt.want)
		}
	}
}
