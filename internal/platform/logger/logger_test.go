package logger

import "testing"

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	t.Setenv("LOG_REDACTION_ENABLED", "true")

	out := sanitizeKVs([]interface{}{
		"api_key", "sk-123",
		"generation_id", 7,
		"input_tokens", 42,
		"Authorization", "Bearer abc",
		"dangling",
	})
	want := []interface{}{
		"api_key", "[REDACTED]",
		"generation_id", 7,
		"input_tokens", 42,
		"Authorization", "[REDACTED]",
		"dangling",
	}
	if len(out) != len(want) {
		t.Fatalf("len: got=%d want=%d (%v)", len(out), len(want), out)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("kv[%d]: got=%v want=%v", i, out[i], want[i])
		}
	}
}

func TestNewTestModeIsQuiet(t *testing.T) {
	log, err := New("test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("dropped", "k", "v")
	log.With("component", "x").Warn("dropped too")
}
