package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"obligation-tracker/internal/api"
	"obligation-tracker/internal/bot"
	"obligation-tracker/internal/logger"
	"obligation-tracker/internal/service"
)

const jobTimeout = 2 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot, the scheduler and the optional HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.cfg.RequireTelegram(); err != nil {
		return err
	}
	log := logger.Get()

	telegramBot, err := bot.New(a.cfg.TelegramToken, bot.Services{
		Users:      a.users,
		Categories: a.category,
		Bills:      a.bills,
		Budgets:    a.budgets,
		Goals:      a.goals,
		Ledger:     a.ledger,
		Reminders:  a.reminders,
	}, a.cfg.Location)
	if err != nil {
		return err
	}

	notifications := service.NewNotificationService(a.users, a.bills, a.budgets, telegramBot)
	telegramBot.AttachNotifications(notifications)

	loc := a.cfg.Location
	scheduler := service.NewSchedulerService(loc, jobTimeout)
	if _, err := scheduler.ScheduleInterval(a.cfg.CheckInterval, func(ctx context.Context) error {
		return notifications.CheckAll(ctx, time.Now().In(loc))
	}); err != nil {
		return err
	}
	if _, err := scheduler.ScheduleDaily(a.cfg.ReportTime, telegramBot.SendDailyReports); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	if a.cfg.APIAddr != "" {
		server := api.NewServer(a.users, a.bills, a.budgets, a.goals, a.cfg.APIKey, loc)
		go func() {
			if err := server.Run(ctx, a.cfg.APIAddr); err != nil {
				log.Error("http api stopped", zap.Error(err))
			}
		}()
	}

	// Catch up on anything that became due while the process was down.
	go func() {
		if err := notifications.CheckAll(ctx, time.Now().In(loc)); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("startup check", zap.Error(err))
		}
	}()

	log.Info("obligation tracker started",
		zap.Duration("check_interval", a.cfg.CheckInterval),
		zap.String("report_time", a.cfg.ReportTime),
		zap.String("timezone", loc.String()))
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
