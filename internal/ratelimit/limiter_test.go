package ratelimit

import (
	"context"
	"testing"
	"time"
)

func newTestLimiter() (*Limiter, *time.Time) {
	l := NewLimiter(nil, nil)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiter_NilRedis_UsesLocalBucket(t *testing.T) {
	l, _ := newTestLimiter()
	result := l.Check(context.Background(), "test:key", 60, time.Minute)
	if !result.Allowed {
		t.Error("expected first request to be allowed")
	}
	if result.Remaining != 59 {
		t.Errorf("expected remaining=59, got %d", result.Remaining)
	}
}

func TestLimiter_Local_DeniesOverLimit(t *testing.T) {
	l, _ := newTestLimiter()
	for i := 0; i < 10; i++ {
		result := l.Check(context.Background(), "test:key", 10, time.Minute)
		if !result.Allowed {
			t.Fatalf("expected allowed on check %d", i)
		}
	}

	result := l.Check(context.Background(), "test:key", 10, time.Minute)
	if result.Allowed {
		t.Fatal("expected 11th request to be denied")
	}
	if result.RetryAfter < time.Second || result.RetryAfter > 6*time.Second {
		t.Errorf("expected retry after about 6s, got %s", result.RetryAfter)
	}
}

func TestLimiter_Local_Refills(t *testing.T) {
	l, now := newTestLimiter()
	for i := 0; i < 2; i++ {
		l.Check(context.Background(), "k", 2, time.Minute)
	}
	if result := l.Check(context.Background(), "k", 2, time.Minute); result.Allowed {
		t.Fatal("expected denial once the bucket is empty")
	}

	*now = now.Add(31 * time.Second)

	if result := l.Check(context.Background(), "k", 2, time.Minute); !result.Allowed {
		t.Error("expected a token to be back after 31s")
	}
}

func TestLimiter_Local_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter()
	l.Check(context.Background(), "a", 1, time.Minute)

	if result := l.Check(context.Background(), "b", 1, time.Minute); !result.Allowed {
		t.Error("expected key b to have its own budget")
	}
	if result := l.Check(context.Background(), "a", 1, time.Minute); result.Allowed {
		t.Error("expected key a to be exhausted")
	}
}

func TestLimiter_ZeroLimitAllows(t *testing.T) {
	l, _ := newTestLimiter()
	if result := l.Check(context.Background(), "k", 0, time.Minute); !result.Allowed {
		t.Error("expected a zero limit to disable limiting")
	}
}

func TestLimiter_Local_ActiveBucketOutlivesIdleExpiry(t *testing.T) {
	l, _ := newTestLimiter()
	window := 200 * time.Millisecond

	if result := l.Check(context.Background(), "k", 1, window); !result.Allowed {
		t.Fatal("expected first request to be allowed")
	}
	// the mocked clock never refills, so a recreated bucket is the only way back in
	for i := 0; i < 5; i++ {
		time.Sleep(window / 2)
		if result := l.Check(context.Background(), "k", 1, window); result.Allowed {
			t.Fatalf("expected denial on check %d, bucket was dropped while in use", i)
		}
	}
}

func TestLimiter_Local_CheckExtendsExpiry(t *testing.T) {
	l, _ := newTestLimiter()
	l.Check(context.Background(), "k", 1, time.Hour)
	_, first, ok := l.local.GetWithExpiration("k:1:1h0m0s")
	if !ok {
		t.Fatal("expected a cached bucket")
	}

	time.Sleep(5 * time.Millisecond)
	l.Check(context.Background(), "k", 1, time.Hour)
	_, second, _ := l.local.GetWithExpiration("k:1:1h0m0s")
	if !second.After(first) {
		t.Errorf("expected expiry to move past %s, got %s", first, second)
	}
}
