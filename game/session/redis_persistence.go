package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/chainreaction/game/service"
)

// RedisOptions configures the Redis session store
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key, e.g. "chainreaction:"
	Prefix string
	// TTL expires idle sessions; zero keeps them forever
	TTL time.Duration
	// Timeout bounds each Redis round trip
	Timeout time.Duration
}

// RedisPersistence implements SessionPersistence on top of Redis. Each
// session is one JSON string; a set indexes the known IDs.
type RedisPersistence struct {
	client        *redis.Client
	prefix        string
	ttl           time.Duration
	timeout       time.Duration
	configManager service.ConfigManager
}

// NewRedisPersistence connects to Redis and checks the connection
func NewRedisPersistence(ctx context.Context, opts RedisOptions, configManager service.ConfigManager) (*RedisPersistence, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	log.WithFields(log.Fields{"addr": opts.Addr, "db": opts.DB}).Info("connected to redis")
	return NewRedisPersistenceWithClient(client, opts, configManager), nil
}

// NewRedisPersistenceWithClient wraps an existing client
func NewRedisPersistenceWithClient(client *redis.Client, opts RedisOptions, configManager service.ConfigManager) *RedisPersistence {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisPersistence{
		client:        client,
		prefix:        opts.Prefix,
		ttl:           opts.TTL,
		timeout:       timeout,
		configManager: configManager,
	}
}

// Close releases the Redis connection pool
func (rp *RedisPersistence) Close() error {
	return rp.client.Close()
}

// Save stores the session and adds it to the index
func (rp *RedisPersistence) Save(session *service.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	jsonData, err := encodeSession(session, configIDFromName(rp.configManager, session.Config.Name))
	if err != nil {
		return err
	}

	ctx, cancel := rp.context()
	defer cancel()

	id := strings.ToLower(session.ID)
	pipe := rp.client.TxPipeline()
	pipe.Set(ctx, rp.sessionKey(id), jsonData, rp.ttl)
	pipe.SAdd(ctx, rp.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session %s: %w", session.ID, err)
	}
	return nil
}

// Load retrieves a session by ID
func (rp *RedisPersistence) Load(id string) (*service.Session, error) {
	ctx, cancel := rp.context()
	defer cancel()

	jsonData, err := rp.client.Get(ctx, rp.sessionKey(strings.ToLower(id))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}

	return decodeSession(jsonData, rp.configManager)
}

// Delete removes a session and its index entry
func (rp *RedisPersistence) Delete(id string) error {
	ctx, cancel := rp.context()
	defer cancel()

	id = strings.ToLower(id)
	removed, err := rp.client.Del(ctx, rp.sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if err := rp.client.SRem(ctx, rp.indexKey(), id).Err(); err != nil {
		return fmt.Errorf("failed to unindex session %s: %w", id, err)
	}
	if removed == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns the indexed session IDs whose records still exist. IDs
// whose record expired are dropped from the index.
func (rp *RedisPersistence) ListAll() ([]string, error) {
	ctx, cancel := rp.context()
	defer cancel()

	ids, err := rp.client.SMembers(ctx, rp.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	live := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := rp.client.Exists(ctx, rp.sessionKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check session %s: %w", id, err)
		}
		if n == 0 {
			rp.client.SRem(ctx, rp.indexKey(), id)
			continue
		}
		live = append(live, id)
	}
	return live, nil
}

// Exists checks if a session is stored
func (rp *RedisPersistence) Exists(id string) bool {
	ctx, cancel := rp.context()
	defer cancel()

	n, err := rp.client.Exists(ctx, rp.sessionKey(strings.ToLower(id))).Result()
	if err != nil {
		log.WithField("session", id).WithError(err).Warn("redis exists check failed")
		return false
	}
	return n > 0
}

func (rp *RedisPersistence) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), rp.timeout)
}

func (rp *RedisPersistence) sessionKey(id string) string {
	return rp.prefix + "session:" + id
}

func (rp *RedisPersistence) indexKey() string {
	return rp.prefix + "sessions"
}
