package service

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"obligation-tracker/internal/model"
)

// FormatMoney renders an amount with two decimals and thin grouping, e.g. "12 500.00".
func FormatMoney(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "." + frac
}

// FormatPercent renders a percentage without noisy decimals.
func FormatPercent(p float64) string {
	if p == float64(int64(p)) {
		return fmt.Sprintf("%d%%", int64(p))
	}
	return fmt.Sprintf("%.1f%%", p)
}

// ProgressBar draws a ten-cell bar for a percentage; values above 100 fill the bar.
func ProgressBar(p float64) string {
	filled := int(p / 10)
	if filled > 10 {
		filled = 10
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("▰", filled) + strings.Repeat("▱", 10-filled)
}

// FrequencyLabel is the human name of a frequency.
func FrequencyLabel(f model.Frequency) string {
	switch f {
	case model.FrequencyDaily:
		return "ежедневно"
	case model.FrequencyWeekly:
		return "еженедельно"
	case model.FrequencyBiweekly:
		return "раз в две недели"
	case model.FrequencyQuarterly:
		return "раз в квартал"
	case model.FrequencyYearly:
		return "ежегодно"
	default:
		return "ежемесячно"
	}
}

// DueLabel describes how far away a due date is.
func DueLabel(days int) string {
	switch {
	case days < 0:
		return fmt.Sprintf("<b>просрочено на %d дн.</b>", -days)
	case days == 0:
		return "<b>сегодня</b>"
	case days == 1:
		return "завтра"
	default:
		return fmt.Sprintf("через %d дн.", days)
	}
}

func escape(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
