package zone

import "testing"

func TestCache_Load(t *testing.T) {
	c := NewCache(2)
	loc, err := c.Load("UTC")
	if err != nil {
		t.Fatalf("Load(UTC): %v", err)
	}
	again, _ := c.Load("UTC")
	if loc != again {
		t.Error("expected cached location to be reused")
	}
}

func TestCache_LoadInvalid(t *testing.T) {
	c := NewCache(0)
	if _, err := c.Load("Mars/Olympus_Mons"); err == nil {
		t.Fatal("expected error for unknown zone")
	}
	if c.locs.Len() != 0 {
		t.Error("failed lookups must not be cached")
	}
}
