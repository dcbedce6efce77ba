package rate

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alphabot-ai/microblog/internal/logging"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

func TestMemoryLimiterWindow(t *testing.T) {
	m := NewMemory()
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if ok, _ := m.Allow(ctx, "ip:1", 3, time.Minute); !ok {
			t.Fatalf("hit %d should pass", i)
		}
	}
	ok, retry := m.Allow(ctx, "ip:1", 3, time.Minute)
	if ok {
		t.Fatalf("fourth hit should be limited")
	}
	if retry != time.Minute {
		t.Fatalf("expected full window retry, got %v", retry)
	}
	if ok, _ := m.Allow(ctx, "ip:2", 3, time.Minute); !ok {
		t.Fatalf("other key should pass")
	}

	now = now.Add(time.Minute)
	if ok, _ := m.Allow(ctx, "ip:1", 3, time.Minute); !ok {
		t.Fatalf("new window should pass")
	}
}

func TestMemoryLimiterDisabled(t *testing.T) {
	m := NewMemory()
	for i := 0; i < 10; i++ {
		if ok, _ := m.Allow(context.Background(), "k", 0, time.Minute); !ok {
			t.Fatalf("zero limit disables limiting")
		}
	}
}

func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("MICROBLOG_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MICROBLOG_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	l := NewRedis(client, logging.Discard())
	ctx := context.Background()
	if err := l.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	key := "test:" + uuid.NewString()
	defer client.Del(ctx, l.prefix+key)
	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow(ctx, key, 2, time.Minute); !ok {
			t.Fatalf("hit %d should pass", i)
		}
	}
	ok, retry := l.Allow(ctx, key, 2, time.Minute)
	if ok {
		t.Fatalf("third hit should be limited")
	}
	if retry <= 0 || retry > time.Minute {
		t.Fatalf("unexpected retry %v", retry)
	}
}

func TestRedisLimiterFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()
	l := NewRedis(client, logging.Discard())
	if ok, _ := l.Allow(context.Background(), "k", 1, time.Minute); !ok {
		t.Fatalf("expected fail open")
	}
}
