package service

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatMoney(t *testing.T) {
	cases := map[string]string{
		"0":         "0.00",
		"12.5":      "12.50",
		"1234":      "1 234.00",
		"12500.456": "12 500.46",
		"-987654.1": "-987 654.10",
	}
	for in, want := range cases {
		if got := FormatMoney(decimal.RequireFromString(in)); got != want {
			t.Fatalf("FormatMoney(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatPercentAndBar(t *testing.T) {
	if got := FormatPercent(85); got != "85%" {
		t.Fatalf("FormatPercent(85) = %q", got)
	}
	if got := FormatPercent(33.333); got != "33.3%" {
		t.Fatalf("FormatPercent(33.333) = %q", got)
	}
	if got := ProgressBar(130); got != "▰▰▰▰▰▰▰▰▰▰" {
		t.Fatalf("ProgressBar(130) = %q", got)
	}
	if got := ProgressBar(45); got != "▰▰▰▰▱▱▱▱▱▱" {
		t.Fatalf("ProgressBar(45) = %q", got)
	}
}

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec("09:30")
	if err != nil {
		t.Fatalf("buildDailySpec: %v", err)
	}
	if spec != "0 30 9 * * *" {
		t.Fatalf("spec = %q, want \"0 30 9 * * *\"", spec)
	}
	for _, bad := range []string{"", "9", "24:00", "12:60", "ab:cd"} {
		if _, err := buildDailySpec(bad); err == nil {
			t.Fatalf("buildDailySpec(%q) succeeded", bad)
		}
	}
}
