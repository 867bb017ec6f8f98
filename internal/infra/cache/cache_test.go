package cache_test

import (
	"testing"
	"time"

	"github.com/boddenberg/supervisor-bfa-go/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("key1", "value1")
	val, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "value1" {
		t.Errorf("expected 'value1', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("key1", "value1")
	c.Delete("key1")

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_DeletePrefix(t *testing.T) {
	c := cache.New[int](5 * time.Minute)
	defer c.Stop()

	c.Set("dashboard:u1", 1)
	c.Set("dashboard:u2", 2)
	c.Set("draft:u1:d1", 3)
	c.DeletePrefix("dashboard:")

	if _, ok := c.Get("dashboard:u1"); ok {
		t.Error("expected dashboard:u1 to be deleted")
	}
	if _, ok := c.Get("draft:u1:d1"); !ok {
		t.Error("expected draft entry to survive")
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}
}

func TestCache_StopIsIdempotent(t *testing.T) {
	c := cache.New[string](time.Minute)
	c.Stop()
	c.Stop()
}
