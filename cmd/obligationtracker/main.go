package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"obligation-tracker/internal/config"
	"obligation-tracker/internal/logger"
	"obligation-tracker/internal/repository"
	"obligation-tracker/internal/service"
)

var rootCmd = &cobra.Command{
	Use:           "obligationtracker",
	Short:         "Recurring bills, budgets and savings goals in Telegram",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every subcommand builds from configuration.
type app struct {
	cfg       config.Config
	users     *repository.UserRepository
	bills     *service.BillService
	budgets   *service.BudgetService
	goals     *service.GoalService
	ledger    *service.LedgerService
	reminders *service.ReminderService
	category  *service.CategoryService
	close     func()
}

func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := logger.Init(cfg.LogDev, logger.LogLevel(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	ledgerRepo := repository.NewLedgerRepository(db)
	categorySvc := service.NewCategoryService(repository.NewCategoryRepository(db))
	billSvc := service.NewBillService(repository.NewBillRepository(db), categorySvc)
	budgetSvc := service.NewBudgetService(repository.NewBudgetRepository(db), ledgerRepo, categorySvc)
	goalSvc := service.NewGoalService(repository.NewGoalRepository(db))
	ledgerSvc := service.NewLedgerService(ledgerRepo, categorySvc)

	a := &app{
		cfg:       cfg,
		users:     repository.NewUserRepository(db),
		bills:     billSvc,
		budgets:   budgetSvc,
		goals:     goalSvc,
		ledger:    ledgerSvc,
		reminders: service.NewReminderService(billSvc, budgetSvc, goalSvc, ledgerSvc),
		category:  categorySvc,
		close: func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
			_ = logger.Sync()
		},
	}
	return a, nil
}
