package execctx

import "testing"

func TestSetenvOverwritesExistingEntry(t *testing.T) {
	c := New(nil)
	c.Setenv("PYTHONPATH", "/a")
	c.Setenv("PYTHONPATH", "/b")

	got := c.Env()
	if len(got) != 1 || got[0] != "PYTHONPATH=/b" {
		t.Fatalf("Env() = %v, want [PYTHONPATH=/b]", got)
	}
}

func TestGetenvUnset(t *testing.T) {
	c := New(nil)
	if _, ok := c.Getenv("MISSING"); ok {
		t.Fatal("Getenv on unset variable returned ok=true")
	}
}

func TestUnsetenvRemovesFromOrder(t *testing.T) {
	c := New(nil)
	c.Setenv("A", "1")
	c.Setenv("B", "2")
	c.Unsetenv("A")

	got := c.Env()
	if len(got) != 1 || got[0] != "B=2" {
		t.Fatalf("Env() after Unsetenv = %v, want [B=2]", got)
	}
}

func TestEnvOrderIsInsertionOrder(t *testing.T) {
	c := New(nil)
	c.Setenv("Z", "1")
	c.Setenv("A", "2")
	c.Setenv("Z", "3") // overwrite shouldn't move position

	got := c.Env()
	want := []string{"Z=3", "A=2"}
	if len(got) != len(want) {
		t.Fatalf("Env() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Env()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
