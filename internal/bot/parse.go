package bot

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"obligation-tracker/internal/model"
)

const dateLayout = "2006-01-02"

var (
	errNoAmount  = errors.New("amount is required")
	errBadAmount = errors.New("amount must be a positive number")
	errBadID     = errors.New("id must be a number")
)

type entryArgs struct {
	Amount      decimal.Decimal
	Category    string
	Description string
}

type budgetArgs struct {
	Amount        decimal.Decimal
	Period        model.BudgetPeriod
	Category      string
	DisableAlerts bool
}

type goalArgs struct {
	Amount     decimal.Decimal
	TargetDate *time.Time
	Name       string
}

// parseAmount accepts both "12.50" and "12,50".
func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if raw == "" {
		return decimal.Zero, errNoAmount
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, errBadAmount
	}
	return amount.Round(2), nil
}

func parseID(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil {
		return 0, errBadID
	}
	return uint(value), nil
}

// parseEntryArgs reads "<amount> [category] [description...]".
func parseEntryArgs(args string) (entryArgs, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return entryArgs{}, errNoAmount
	}
	amount, err := parseAmount(fields[0])
	if err != nil {
		return entryArgs{}, err
	}
	out := entryArgs{Amount: amount}
	if len(fields) > 1 {
		out.Category = fields[1]
	}
	if len(fields) > 2 {
		out.Description = strings.Join(fields[2:], " ")
	}
	return out, nil
}

// parseBudgetArgs reads "<amount> [monthly|yearly] [category] [noalerts]".
func parseBudgetArgs(args string) (budgetArgs, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return budgetArgs{}, errNoAmount
	}
	amount, err := parseAmount(fields[0])
	if err != nil {
		return budgetArgs{}, err
	}
	out := budgetArgs{Amount: amount, Period: model.BudgetPeriodMonthly}
	rest := fields[1:]
	if n := len(rest); n > 0 && isNoAlertsFlag(rest[n-1]) {
		out.DisableAlerts = true
		rest = rest[:n-1]
	}
	if len(rest) > 0 {
		if period, ok := periodAlias(rest[0]); ok {
			out.Period = period
			rest = rest[1:]
		}
	}
	out.Category = strings.Join(rest, " ")
	return out, nil
}

// parseGoalArgs reads "<amount> [YYYY-MM-DD] <name...>".
func parseGoalArgs(args string, loc *time.Location) (goalArgs, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return goalArgs{}, errNoAmount
	}
	amount, err := parseAmount(fields[0])
	if err != nil {
		return goalArgs{}, err
	}
	out := goalArgs{Amount: amount}
	rest := fields[1:]
	if len(rest) > 0 {
		if d, err := time.ParseInLocation(dateLayout, rest[0], loc); err == nil {
			out.TargetDate = &d
			rest = rest[1:]
		}
	}
	out.Name = strings.Join(rest, " ")
	if out.Name == "" {
		return goalArgs{}, errors.New("goal name is required")
	}
	return out, nil
}

// parseIDAmount reads "<id> <amount>".
func parseIDAmount(args string) (uint, decimal.Decimal, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return 0, decimal.Zero, errors.New("expected <id> <amount>")
	}
	id, err := parseID(fields[0])
	if err != nil {
		return 0, decimal.Zero, err
	}
	amount, err := parseAmount(fields[1])
	if err != nil {
		return 0, decimal.Zero, err
	}
	return id, amount, nil
}

func isNoAlertsFlag(raw string) bool {
	switch strings.ToLower(raw) {
	case "noalerts", "-alerts", "тихо", "без-уведомлений":
		return true
	default:
		return false
	}
}

func periodAlias(raw string) (model.BudgetPeriod, bool) {
	switch strings.ToLower(raw) {
	case "monthly", "month", "месяц", "мес":
		return model.BudgetPeriodMonthly, true
	case "yearly", "year", "год":
		return model.BudgetPeriodYearly, true
	default:
		return "", false
	}
}

// frequencyFromInput maps both English names and the keyboard labels to a frequency.
func frequencyFromInput(raw string) (model.Frequency, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	for _, f := range model.Frequencies {
		if value == string(f) || value == strings.ToLower(frequencyButton(f)) {
			return f, true
		}
	}
	return "", false
}
