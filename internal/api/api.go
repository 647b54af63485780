// Package api exposes a small read-mostly HTTP interface over the tracker state.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"obligation-tracker/internal/logger"
	"obligation-tracker/internal/model"
	"obligation-tracker/internal/repository"
	"obligation-tracker/internal/service"
	"obligation-tracker/internal/tracker"
)

// Server wires HTTP handlers to the service layer.
type Server struct {
	users   *repository.UserRepository
	bills   *service.BillService
	budgets *service.BudgetService
	goals   *service.GoalService
	apiKey  string
	loc     *time.Location
	now     func() time.Time
}

func NewServer(users *repository.UserRepository, bills *service.BillService, budgets *service.BudgetService, goals *service.GoalService, apiKey string, loc *time.Location) *Server {
	if loc == nil {
		loc = time.Local
	}
	return &Server{
		users:   users,
		bills:   bills,
		budgets: budgets,
		goals:   goals,
		apiKey:  apiKey,
		loc:     loc,
		now:     time.Now,
	}
}

// Router builds the gin engine. Routes under /api require X-API-Key when a key is configured.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	if s.apiKey != "" {
		api.Use(APIKeyAuth(s.apiKey))
	}
	{
		api.GET("/users/:telegram_id/overview", s.getOverview)
		api.POST("/users/:telegram_id/goals/:id/contributions", s.postContribution)
	}
	return router
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router()}
	errCh := make(chan error, 1)
	go func() {
		logger.Get().Info("http api listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type billJSON struct {
	ID                uint            `json:"id"`
	Name              string          `json:"name"`
	Amount            decimal.Decimal `json:"amount"`
	Category          string          `json:"category"`
	Frequency         model.Frequency `json:"frequency"`
	NextDueDate       time.Time       `json:"next_due_date"`
	DaysUntilDue      int             `json:"days_until_due"`
	IsDue             bool            `json:"is_due"`
	ShouldRemind      bool            `json:"should_remind"`
	ShouldAutoProcess bool            `json:"should_auto_process"`
}

type budgetJSON struct {
	ID         uint               `json:"id"`
	Name       string             `json:"name"`
	Amount     decimal.Decimal    `json:"amount"`
	Period     model.BudgetPeriod `json:"period"`
	Category   string             `json:"category,omitempty"`
	StartDate  time.Time          `json:"start_date"`
	EndDate    time.Time          `json:"end_date"`
	Spent      decimal.Decimal    `json:"spent"`
	Remaining  decimal.Decimal    `json:"remaining"`
	Percentage float64            `json:"percentage"`
	AlertLevel model.AlertLevel   `json:"alert_level,omitempty"`
}

type goalJSON struct {
	ID                  uint            `json:"id"`
	Name                string          `json:"name"`
	GoalAmount          decimal.Decimal `json:"goal_amount"`
	CurrentAmount       decimal.Decimal `json:"current_amount"`
	TargetDate          *time.Time      `json:"target_date,omitempty"`
	Achieved            bool            `json:"achieved"`
	Percentage          float64         `json:"percentage"`
	MonthlyContribution decimal.Decimal `json:"monthly_contribution"`
	DaysRemaining       int             `json:"days_remaining"`
	RemainingAmount     decimal.Decimal `json:"remaining_amount"`
}

type overviewJSON struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Bills       []billJSON   `json:"bills"`
	Budgets     []budgetJSON `json:"budgets"`
	Goals       []goalJSON   `json:"goals"`
}

type contributionRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) getOverview(c *gin.Context) {
	user, ok := s.lookupUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	now := s.now().In(s.loc)

	bills, err := s.bills.Statuses(ctx, user, now)
	if err != nil {
		internalError(c, err)
		return
	}
	budgets, err := s.budgets.Progress(ctx, user, now)
	if err != nil {
		internalError(c, err)
		return
	}
	goals, err := s.goals.Progress(ctx, user, now)
	if err != nil {
		internalError(c, err)
		return
	}

	out := overviewJSON{
		GeneratedAt: now,
		Bills:       make([]billJSON, 0, len(bills)),
		Budgets:     make([]budgetJSON, 0, len(budgets)),
		Goals:       make([]goalJSON, 0, len(goals)),
	}
	for _, v := range bills {
		out.Bills = append(out.Bills, billJSON{
			ID:                v.Bill.ID,
			Name:              v.Bill.Name,
			Amount:            v.Bill.Amount,
			Category:          v.Bill.Category,
			Frequency:         v.Bill.Frequency,
			NextDueDate:       v.Bill.NextDueDate,
			DaysUntilDue:      v.Status.DaysUntilDue,
			IsDue:             v.Status.IsDue,
			ShouldRemind:      v.Status.ShouldRemind,
			ShouldAutoProcess: v.Status.ShouldAutoProcess,
		})
	}
	for _, v := range budgets {
		out.Budgets = append(out.Budgets, budgetJSON{
			ID:         v.Budget.ID,
			Name:       v.Budget.Name,
			Amount:     v.Budget.Amount,
			Period:     v.Budget.Period,
			Category:   v.Budget.Category,
			StartDate:  v.Budget.StartDate,
			EndDate:    v.Budget.EndDate,
			Spent:      v.Spending.Spent,
			Remaining:  v.Spending.Remaining,
			Percentage: v.Spending.Percentage,
			AlertLevel: v.Level,
		})
	}
	for _, v := range goals {
		out.Goals = append(out.Goals, toGoalJSON(v))
	}

	c.JSON(http.StatusOK, out)
}

func toGoalJSON(v service.GoalView) goalJSON {
	return goalJSON{
		ID:                  v.Goal.ID,
		Name:                v.Goal.Name,
		GoalAmount:          v.Goal.GoalAmount,
		CurrentAmount:       v.Goal.CurrentAmount,
		TargetDate:          v.Goal.TargetDate,
		Achieved:            v.Goal.Achieved,
		Percentage:          v.Progress.Percentage,
		MonthlyContribution: v.Progress.MonthlyContribution,
		DaysRemaining:       v.Progress.DaysRemaining,
		RemainingAmount:     v.Progress.RemainingAmount,
	}
}

func (s *Server) postContribution(c *gin.Context) {
	user, ok := s.lookupUser(c)
	if !ok {
		return
	}
	goalID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "goal id must be a number"})
		return
	}
	var req contributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.goals.Contribute(c.Request.Context(), user, uint(goalID), req.Amount)
	switch {
	case errors.Is(err, service.ErrGoalNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, service.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		internalError(c, err)
		return
	}

	progress := tracker.GoalProgress(result.Goal, s.now().In(s.loc))
	c.JSON(http.StatusOK, gin.H{
		"goal":          toGoalJSON(service.GoalView{Goal: result.Goal, Progress: progress}),
		"just_achieved": result.JustAchieved,
	})
}

func (s *Server) lookupUser(c *gin.Context) (*model.User, bool) {
	telegramID, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "telegram_id must be a number"})
		return nil, false
	}
	user, err := s.users.FindByTelegramID(c.Request.Context(), telegramID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return nil, false
		}
		internalError(c, err)
		return nil, false
	}
	return user, true
}

func internalError(c *gin.Context, err error) {
	logger.Get().Error("http handler", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
