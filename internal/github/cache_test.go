package github

import (
	"testing"
	"time"
)

func TestTTLCache_GetSet(t *testing.T) {
	c := newTTLCache(time.Minute)

	if got := c.get("k"); got != nil {
		t.Errorf("expected miss for empty cache, got %q", got)
	}

	c.set("k", []byte("v1"))
	if got := c.get("k"); string(got) != "v1" {
		t.Errorf("get after set: got %q", got)
	}

	c.set("k", []byte("v2"))
	if got := c.get("k"); string(got) != "v2" {
		t.Errorf("overwrite: got %q", got)
	}
}

func TestTTLCache_Expiry(t *testing.T) {
	c := newTTLCache(10 * time.Millisecond)
	c.set("k", []byte("v"))

	if got := c.get("k"); got == nil {
		t.Fatal("expected fresh entry to hit")
	}

	time.Sleep(20 * time.Millisecond)
	if got := c.get("k"); got != nil {
		t.Errorf("expected expired entry to miss, got %q", got)
	}
}

func TestTTLCache_Clear(t *testing.T) {
	c := newTTLCache(time.Minute)
	c.set("a", []byte("1"))
	c.set("b", []byte("2"))
	c.clear()

	if c.get("a") != nil || c.get("b") != nil {
		t.Error("expected all entries gone after clear")
	}
}
