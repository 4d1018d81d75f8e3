package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/chainreaction/game/engine"
)

// newRedisTestPersistence connects to REDIS_ADDR under a throwaway prefix
func newRedisTestPersistence(t *testing.T, ttl time.Duration) *RedisPersistence {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping redis persistence tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rp, err := NewRedisPersistence(ctx, RedisOptions{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		Prefix:   fmt.Sprintf("chainreaction-test-%d:", time.Now().UnixNano()),
		TTL:      ttl,
	}, nil)
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	t.Cleanup(func() {
		ids, _ := rp.ListAll()
		for _, id := range ids {
			rp.Delete(id)
		}
		rp.Close()
	})
	return rp
}

func TestRedisPersistence(t *testing.T) {
	rp := newRedisTestPersistence(t, 0)
	gameConfig := engine.CustomConfig(3, 4, []engine.Player{"A", "B"})

	session := newTestSession(t, "Redis1", gameConfig)
	session.Engine.Move(engine.Coord{Row: 0, Col: 0}, "A")

	t.Run("Save and Load", func(t *testing.T) {
		if err := rp.Save(session); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if !rp.Exists("redis1") {
			t.Error("Session should exist after save")
		}

		loaded, err := rp.Load("REDIS1")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if !loaded.Engine.GetState().Grid.Equal(session.Engine.GetState().Grid) {
			t.Error("Grid not restored")
		}
		if loaded.Engine.CurrentTurn() != "B" {
			t.Errorf("Expected B to move next, got %s", loaded.Engine.CurrentTurn())
		}
	})

	t.Run("ListAll", func(t *testing.T) {
		if err := rp.Save(newTestSession(t, "redis2", gameConfig)); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		ids, err := rp.ListAll()
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		sort.Strings(ids)
		if len(ids) != 2 || ids[0] != "redis1" || ids[1] != "redis2" {
			t.Errorf("Expected [redis1 redis2], got %v", ids)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := rp.Delete("redis2"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if rp.Exists("redis2") {
			t.Error("Session should not exist after delete")
		}
		if err := rp.Delete("redis2"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
		if _, err := rp.Load("redis2"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Manager Round Trip", func(t *testing.T) {
		manager := NewManagerWithPersistence(rp)
		if _, err := manager.Create("viaManager", gameConfig); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		restarted := NewManagerWithPersistence(rp)
		if err := restarted.LoadPersistedSessions(); err != nil {
			t.Fatalf("LoadPersistedSessions failed: %v", err)
		}
		if _, err := restarted.Get("viamanager"); err != nil {
			t.Errorf("Expected session to be restored, got %v", err)
		}
	})
}

func TestRedisPersistence_TTLExpiry(t *testing.T) {
	rp := newRedisTestPersistence(t, time.Second)
	gameConfig := engine.CustomConfig(2, 2, []engine.Player{"A", "B"})

	if err := rp.Save(newTestSession(t, "shortlived", gameConfig)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	if rp.Exists("shortlived") {
		t.Error("Session should have expired")
	}
	ids, err := rp.ListAll()
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("Expired sessions should drop out of the index, got %v", ids)
	}
}
