package logger

import "testing"

func TestInitLevels(t *testing.T) {
	for _, level := range []LogLevel{"", "debug", "INFO", "warn", "error"} {
		if err := Init(false, level); err != nil {
			t.Fatalf("Init(%q): %v", level, err)
		}
	}
	if err := Init(true, "verbose"); err == nil {
		t.Fatalf("Init(verbose) succeeded, want error")
	}
	if Get() == nil {
		t.Fatalf("Get() = nil")
	}
}
