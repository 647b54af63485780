package main

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"regexp"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"obligation-tracker/internal/service"
)

var (
	flagUser    int64
	flagProcess bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Print the current summary for one user without Telegram",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().Int64VarP(&flagUser, "user", "u", 0, "Telegram ID of the user")
	checkCmd.Flags().BoolVar(&flagProcess, "process", false, "Record due auto-processed bills before printing")
	_ = checkCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(checkCmd)
}

var tagPattern = regexp.MustCompile(`</?[a-z]+>`)

func runCheck(_ *cobra.Command, _ []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	user, err := a.users.FindByTelegramID(ctx, flagUser)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %d not found, send /start to the bot first", flagUser)
		}
		return err
	}

	now := time.Now().In(a.cfg.Location)
	if flagProcess {
		recorded, err := a.bills.ProcessDue(ctx, user, now)
		if err != nil {
			return err
		}
		for _, expense := range recorded {
			fmt.Fprintf(os.Stderr, "  recorded %s %s\n", expense.Description, service.FormatMoney(expense.Amount))
		}
	}

	summary, err := a.reminders.DailySummary(ctx, *user, now)
	if err != nil {
		return err
	}
	fmt.Println(html.UnescapeString(tagPattern.ReplaceAllString(summary, "")))
	return nil
}
