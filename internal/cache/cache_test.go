package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache[T any](size int, ttl time.Duration) (*TTLCache[T], *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)}
	c := NewTTLCache[T](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestTTLCacheExpiry(t *testing.T) {
	c, clk := newTestCache[int](4, time.Minute)
	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get = %d, %v", v, ok)
	}
	clk.advance(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("entry should have expired")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be removed on read")
	}
}

func TestTTLCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("a should survive")
	}
}

func TestManagerSweep(t *testing.T) {
	c, clk := newTestCache[int](4, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	m := NewManager()
	m.Register("test", c)
	if n := m.Sweep(context.Background()); n != 0 {
		t.Fatalf("nothing should expire yet, got %d", n)
	}
	clk.advance(time.Hour)
	if n := m.Sweep(context.Background()); n != 2 {
		t.Fatalf("expected 2 evictions, got %d", n)
	}
	m.Start(context.Background(), time.Millisecond)
	m.Stop()
	m.Stop()
}

func TestLoaderCoalescesConcurrentLoads(t *testing.T) {
	var loads atomic.Int32
	release := make(chan struct{})
	l := NewLoader[string](NewTTLCache[string](4, time.Minute), func(_ context.Context, key string) (string, error) {
		loads.Add(1)
		<-release
		return "v-" + key, nil
	})

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := l.Get(context.Background(), "k")
			if err != nil {
				t.Errorf("Get: %v", err)
			}
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := loads.Load(); n < 1 || n > int32(len(results)) {
		t.Fatalf("unexpected load count %d", n)
	}
	for _, v := range results {
		if v != "v-k" {
			t.Fatalf("unexpected value %q", v)
		}
	}
	if _, hit, _ := l.Get(context.Background(), "k"); !hit {
		t.Fatalf("second Get should hit the cache")
	}
}

func TestLoaderRefreshKeepsOldValueOnError(t *testing.T) {
	fail := false
	n := 0
	l := NewLoader[int](NewTTLCache[int](4, time.Minute), func(context.Context, string) (int, error) {
		if fail {
			return 0, errors.New("boom")
		}
		n++
		return n, nil
	})
	ctx := context.Background()
	if v, _, _ := l.Get(ctx, "k"); v != 1 {
		t.Fatalf("first load = %d", v)
	}
	if v, _ := l.Refresh(ctx, "k"); v != 2 {
		t.Fatalf("refresh = %d", v)
	}
	fail = true
	if _, err := l.Refresh(ctx, "k"); err == nil {
		t.Fatalf("expected refresh error")
	}
	if v, hit, _ := l.Get(ctx, "k"); !hit || v != 2 {
		t.Fatalf("previous value should remain: %d hit=%v", v, hit)
	}
	l.Invalidate("k")
	if _, _, err := l.Get(ctx, "k"); err == nil {
		t.Fatalf("expected load error after invalidate")
	}
}
