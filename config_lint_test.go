package goSession

import "testing"

func TestLint_DefaultConfigNoWarnings(t *testing.T) {
	cfg := DefaultConfig()
	if ws := cfg.Lint(); len(ws) != 0 {
		t.Fatalf("default config should lint clean, got %v", ws.Codes())
	}
}

func TestLint_MetricsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = false
	cfg.Metrics.EnableLatencyHistograms = false
	if !containsCode(cfg.Lint().Codes(), "metrics_disabled") {
		t.Error("expected metrics_disabled warning")
	}
}

func TestLint_AuditBlockingAndSmallBuffer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	cfg.Audit.BufferSize = 4

	codes := cfg.Lint().Codes()
	for _, want := range []string{"audit_blocking", "audit_buffer_small"} {
		if !containsCode(codes, want) {
			t.Errorf("expected %s warning", want)
		}
	}
}

func TestLint_ProfileSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Profiles.ReloadOnUserChange = false
	cfg.Metrics.Enabled = false

	codes := cfg.Lint().Codes()
	if len(codes) != 2 {
		t.Fatalf("expected 2 warnings, got %v", codes)
	}
	if codes[0] != "metrics_disabled" || codes[1] != "stale_profiles_on_user_change" {
		t.Fatalf("warnings not sorted by code: %v", codes)
	}
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
