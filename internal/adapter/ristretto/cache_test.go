package ristretto

import (
	"context"
	"testing"
	"time"
)

func TestSetGetDelete(t *testing.T) {
	c, err := New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "catalog", []byte(`[{"id":"a1"}]`), time.Minute); err != nil {
		t.Fatal(err)
	}
	val, found, err := c.Get(ctx, "catalog")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected hit after Set")
	}
	if string(val) != `[{"id":"a1"}]` {
		t.Fatalf("unexpected value: %s", val)
	}

	if err := c.Delete(ctx, "catalog"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := c.Get(ctx, "catalog"); found {
		t.Fatal("expected miss after Delete")
	}
}

func TestGetMiss(t *testing.T) {
	c, err := New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, found, _ := c.Get(context.Background(), "missing"); found {
		t.Fatal("expected miss for unknown key")
	}
}
