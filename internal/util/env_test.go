package util

import (
	"reflect"
	"testing"
	"time"
)

func TestGetEnvDefaults(t *testing.T) {
	t.Setenv("DISPATCH_TEST_INT", "x")
	t.Setenv("DISPATCH_TEST_BOOL", "1")
	t.Setenv("DISPATCH_TEST_DURATION", " 90s ")
	t.Setenv("DISPATCH_TEST_EMPTY", "")

	if got := GetEnvInt("DISPATCH_TEST_INT", 3); got != 3 {
		t.Fatalf("expected default 3, got %d", got)
	}
	if !GetEnvBool("DISPATCH_TEST_BOOL", false) {
		t.Fatal("expected 1 to read as true")
	}
	if got := GetEnvDuration("DISPATCH_TEST_DURATION", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
	if got := GetEnvString("DISPATCH_TEST_EMPTY", "fallback"); got != "" {
		t.Fatalf("expected set but empty value to win, got %q", got)
	}
	if got := GetEnvString("DISPATCH_TEST_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("DISPATCH_TEST_LIST", " example.org, ,police.example ")
	want := []string{"example.org", "police.example"}
	if got := GetEnvList("DISPATCH_TEST_LIST"); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if GetEnvList("DISPATCH_TEST_UNSET_LIST") != nil {
		t.Fatal("expected nil for unset variable")
	}
}
