package envutil

import (
	"testing"
	"time"
)

func TestReaders(t *testing.T) {
	t.Setenv("EU_STR", "  groq ")
	t.Setenv("EU_INT", "12")
	t.Setenv("EU_BAD_INT", "twelve")
	t.Setenv("EU_FLOAT", "0.7")
	t.Setenv("EU_BOOL", "off")
	t.Setenv("EU_SECS", "30")
	t.Setenv("EU_LIST", "http://a, ,http://b")

	if got := String("EU_STR", "x"); got != "groq" {
		t.Fatalf("String: got=%q", got)
	}
	if got := String("EU_MISSING", "x"); got != "x" {
		t.Fatalf("String default: got=%q", got)
	}
	if got := Int("EU_INT", 1); got != 12 {
		t.Fatalf("Int: got=%d", got)
	}
	if got := Int("EU_BAD_INT", 1); got != 1 {
		t.Fatalf("Int fallback: got=%d", got)
	}
	if got := Float("EU_FLOAT", 0); got != 0.7 {
		t.Fatalf("Float: got=%v", got)
	}
	if got := Bool("EU_BOOL", true); got {
		t.Fatalf("Bool: expected false")
	}
	if got := Seconds("EU_SECS", time.Minute); got != 30*time.Second {
		t.Fatalf("Seconds: got=%v", got)
	}
	if got := Seconds("EU_MISSING", time.Minute); got != time.Minute {
		t.Fatalf("Seconds default: got=%v", got)
	}
	got := List("EU_LIST", nil)
	if len(got) != 2 || got[0] != "http://a" || got[1] != "http://b" {
		t.Fatalf("List: got=%v", got)
	}
}
