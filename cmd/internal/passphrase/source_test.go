package passphrase

import "testing"

func TestSourceReadsEnvironment(t *testing.T) {
	t.Setenv("TREASURY_TEST_PASSPHRASE", "correct horse")
	src := NewSource("TREASURY_TEST_PASSPHRASE", "")
	got, err := src.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "correct horse" {
		t.Fatalf("unexpected passphrase %q", got)
	}

	t.Setenv("TREASURY_TEST_PASSPHRASE", "changed")
	again, err := src.Get()
	if err != nil || again != "correct horse" {
		t.Fatalf("expected cached value, got %q (%v)", again, err)
	}
}

func TestSourceRejectsEmptyEnvironment(t *testing.T) {
	t.Setenv("TREASURY_TEST_PASSPHRASE", "   ")
	if _, err := NewSource("TREASURY_TEST_PASSPHRASE", "").Get(); err == nil {
		t.Fatalf("expected error for blank passphrase")
	}
}
