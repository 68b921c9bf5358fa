package env

import "testing"

func TestGetTrimsAndFallsBack(t *testing.T) {
	t.Setenv("MEDORDERS_TEST_VALUE", "   ")
	if got := Get("MEDORDERS_TEST_VALUE", "fallback"); got != "fallback" {
		t.Fatalf("blank value should fall back, got %q", got)
	}
	t.Setenv("MEDORDERS_TEST_VALUE", " set ")
	if got := Get("MEDORDERS_TEST_VALUE", "fallback"); got != "set" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
}

func TestFirst(t *testing.T) {
	t.Setenv("MEDORDERS_TEST_A", "")
	t.Setenv("MEDORDERS_TEST_B", "b")
	if got := First("MEDORDERS_TEST_A", "MEDORDERS_TEST_B"); got != "b" {
		t.Fatalf("expected b, got %q", got)
	}
	if got := First("MEDORDERS_TEST_A"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
