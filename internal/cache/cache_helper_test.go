package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestHelper(t *testing.T, prefix string) (*CacheHelper, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCacheHelper(client, prefix), mr
}

func TestCacheHelperSetGet(t *testing.T) {
	helper, _ := newTestHelper(t, "user:")
	ctx := context.Background()

	type profile struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	in := profile{ID: "u1", Name: "Dana"}
	if err := helper.Set(ctx, "id:u1", in, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var out profile
	if err := helper.Get(ctx, "id:u1", &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if out != in {
		t.Errorf("Get() = %+v, want %+v", out, in)
	}
}

func TestCacheHelperGetMissing(t *testing.T) {
	helper, _ := newTestHelper(t, "user:")

	var out map[string]string
	err := helper.Get(context.Background(), "id:missing", &out)
	if !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("Get() on missing key error = %v, want ErrCacheNotFound", err)
	}
}

func TestCacheHelperNilClientDegradesGracefully(t *testing.T) {
	helper := NewCacheHelper(nil, "user:")
	ctx := context.Background()

	if err := helper.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Errorf("Set() with nil client error = %v, want nil", err)
	}
	if err := helper.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete() with nil client error = %v, want nil", err)
	}

	var out string
	if err := helper.Get(ctx, "k", &out); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("Get() with nil client error = %v, want ErrCacheNotAvailable", err)
	}
}

func TestCacheHelperInvalidatePattern(t *testing.T) {
	helper, mr := newTestHelper(t, "cycle:")
	ctx := context.Background()

	for _, key := range []string{"list:p1", "list:p2", "id:7"} {
		if err := helper.Set(ctx, key, "x", time.Minute); err != nil {
			t.Fatalf("Set(%q) error = %v", key, err)
		}
	}

	if err := helper.InvalidatePattern(ctx, "list:*"); err != nil {
		t.Fatalf("InvalidatePattern() error = %v", err)
	}

	if mr.Exists("cycle:list:p1") || mr.Exists("cycle:list:p2") {
		t.Error("InvalidatePattern() left list keys behind")
	}
	if !mr.Exists("cycle:id:7") {
		t.Error("InvalidatePattern() removed key outside the pattern")
	}
}

func TestCacheOrExecute(t *testing.T) {
	helper, _ := newTestHelper(t, "stats:")
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return map[string]int{"total": 42}, nil
	}

	var out map[string]int
	if err := helper.CacheOrExecute(ctx, "dashboard", &out, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute() error = %v", err)
	}
	if out["total"] != 42 {
		t.Errorf("CacheOrExecute() result = %v, want total 42", out)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}

	// The async cache write races the second call; wait for the key.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ok, _ := helper.Exists(ctx, "dashboard"); ok {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	var out2 map[string]int
	if err := helper.CacheOrExecute(ctx, "dashboard", &out2, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute() second call error = %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times after cache hit, want 1", calls)
	}
}

func TestCacheManagerHealthCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cm := NewCacheManager(client)
	if err := cm.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	nilCM := NewCacheManager(nil)
	if err := nilCM.HealthCheck(context.Background()); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("HealthCheck() with nil client error = %v, want ErrCacheNotAvailable", err)
	}
}
