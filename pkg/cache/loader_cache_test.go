package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoaderCache_Get_miss_then_hit(t *testing.T) {
	loads := atomic.Int32{}

	c := NewLoaderCache[string, string](10, 0, func(s string) string { return s })

	ctx := context.Background()
	load := func(_ context.Context, key string) (string, error) {
		loads.Add(1)

		return "v-" + key, nil
	}

	v, hit, err := c.GetWithStats(ctx, "a", load)
	if err != nil {
		t.Fatal(err)
	}

	if hit {
		t.Error("expected miss")
	}

	if v != "v-a" {
		t.Errorf("got %q", v)
	}

	if loads.Load() != 1 {
		t.Errorf("loads = %d", loads.Load())
	}

	v, hit, err = c.GetWithStats(ctx, "a", load)
	if err != nil {
		t.Fatal(err)
	}

	if !hit {
		t.Error("expected hit")
	}

	if v != "v-a" {
		t.Errorf("got %q", v)
	}

	if loads.Load() != 1 {
		t.Errorf("loads = %d", loads.Load())
	}
}

func TestLoaderCache_Get_singleflight(t *testing.T) {
	loads := atomic.Int32{}

	c := NewLoaderCache[string, int](10, 0, func(s string) string { return s })

	ctx := context.Background()

	var gate sync.WaitGroup
	gate.Add(1)

	var arrived atomic.Int32
	//nolint:unparam // load always returns nil error for this test.
	load := func(_ context.Context, _ string) (int, error) {
		loads.Add(1)

		return 42, nil
	}

	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() {
			if arrived.Add(1) == 10 {
				gate.Done()
			}

			gate.Wait()

			val, _, err := c.GetWithStats(ctx, "x", load)
			if err != nil {
				t.Error(err)

				return
			}

			if val != 42 {
				t.Errorf("got %d", val)
			}
		})
	}

	wg.Wait()

	// Scheduling decides how many callers overlap inside Do; every caller must still see 42.
	if n := loads.Load(); n < 1 || n > 10 {
		t.Errorf("expected 1–10 loads (singleflight coalescing), got %d", n)
	}
}

func TestLoaderCache_Invalidate(t *testing.T) {
	c := NewLoaderCache[string, string](10, 0, func(s string) string { return s })

	ctx := context.Background()
	load := func(_ context.Context, key string) (string, error) { return "v-" + key, nil }

	_, _ = c.Get(ctx, "a", load)
	if c.Len() != 1 {
		t.Errorf("Len = %d", c.Len())
	}

	c.Invalidate("a")

	if c.Len() != 0 {
		t.Errorf("Len = %d", c.Len())
	}

	_, hit, _ := c.GetWithStats(ctx, "a", load)
	if hit {
		t.Error("expected miss after Invalidate")
	}
}

func TestLoaderCache_InvalidateAll(t *testing.T) {
	c := NewLoaderCache[string, string](10, 0, func(s string) string { return s })

	ctx := context.Background()
	load := func(_ context.Context, key string) (string, error) { return "v-" + key, nil }

	_, _ = c.Get(ctx, "a", load)

	_, _ = c.Get(ctx, "b", load)
	if c.Len() != 2 {
		t.Errorf("Len = %d", c.Len())
	}

	c.InvalidateAll()

	if c.Len() != 0 {
		t.Errorf("Len = %d", c.Len())
	}

	_, hit, _ := c.GetWithStats(ctx, "a", load)
	if hit {
		t.Error("expected miss after InvalidateAll")
	}
}

func TestLoaderCache_Get_load_error(t *testing.T) {
	c := NewLoaderCache[string, string](10, 0, func(s string) string { return s })

	ctx := context.Background()
	loadErr := context.DeadlineExceeded
	load := func(_ context.Context, _ string) (string, error) {
		return "", loadErr
	}

	_, err := c.Get(ctx, "a", load)
	if !errors.Is(err, loadErr) {
		t.Errorf("got err %v", err)
	}

	if c.Len() != 0 {
		t.Error("failed load should not be cached")
	}
}

func TestLoaderCache_Get_expired_entry_reloads(t *testing.T) {
	loads := atomic.Int32{}
	c := NewLoaderCache[string, string](10, 20*time.Millisecond, func(s string) string { return s })

	ctx := context.Background()
	load := func(_ context.Context, key string) (string, error) {
		loads.Add(1)

		return "v-" + key, nil
	}

	_, _ = c.Get(ctx, "a", load)

	time.Sleep(60 * time.Millisecond)

	_, hit, err := c.GetWithStats(ctx, "a", load)
	if err != nil {
		t.Fatal(err)
	}

	if hit {
		t.Error("expected miss after ttl")
	}

	if loads.Load() != 2 {
		t.Errorf("loads = %d", loads.Load())
	}
}

func TestLoaderCache_Set(t *testing.T) {
	c := NewLoaderCache[string, string](10, 0, func(s string) string { return s })
	c.Set("a", "seeded")

	v, hit, err := c.GetWithStats(context.Background(), "a", func(context.Context, string) (string, error) {
		t.Fatal("load must not run for a seeded key")

		return "", nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if !hit || v != "seeded" {
		t.Errorf("got %q hit=%v", v, hit)
	}
}
