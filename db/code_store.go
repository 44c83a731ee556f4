package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	redis "github.com/redis/go-redis/v9"
	apiError "github.com/techagentng/sakany/errors"
)

// CodeStore keeps short-lived verification codes keyed by purpose and user.
type CodeStore interface {
	SaveCode(ctx context.Context, key, code string, ttl time.Duration) error
	// GetCode returns apiError.ErrNotFound when the code is missing or expired.
	GetCode(ctx context.Context, key string) (string, error)
	DeleteCode(ctx context.Context, key string) error
}

// TwoFactorCodeKey is the CodeStore key of a user's pending email 2FA code.
func TwoFactorCodeKey(userID uint) string {
	return fmt.Sprintf("2fa:code:%d", userID)
}

type redisCodeStore struct {
	client *redis.Client
}

// NewRedisCodeStore connects to url and pings it before returning.
func NewRedisCodeStore(url string) (CodeStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "redis: parse url")
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis: ping")
	}
	return &redisCodeStore{client: client}, nil
}

func (r *redisCodeStore) SaveCode(ctx context.Context, key, code string, ttl time.Duration) error {
	return r.client.Set(ctx, key, code, ttl).Err()
}

func (r *redisCodeStore) GetCode(ctx context.Context, key string) (string, error) {
	code, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", apiError.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "redis: get code")
	}
	return code, nil
}

func (r *redisCodeStore) DeleteCode(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

type memoryCode struct {
	code      string
	expiresAt time.Time
}

type memoryCodeStore struct {
	mu    sync.Mutex
	codes map[string]memoryCode
	now   func() time.Time
}

// NewMemoryCodeStore is used when no redis url is configured.
func NewMemoryCodeStore() CodeStore {
	return &memoryCodeStore{codes: make(map[string]memoryCode), now: time.Now}
}

func (m *memoryCodeStore) SaveCode(_ context.Context, key, code string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[key] = memoryCode{code: code, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *memoryCodeStore) GetCode(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.codes[key]
	if !ok {
		return "", apiError.ErrNotFound
	}
	if !m.now().Before(entry.expiresAt) {
		delete(m.codes, key)
		return "", apiError.ErrNotFound
	}
	return entry.code, nil
}

func (m *memoryCodeStore) DeleteCode(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, key)
	return nil
}
