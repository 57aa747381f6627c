package redisx

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr           string        `envconfig:"REDIS_ADDR"`
	Password       string        `envconfig:"REDIS_PASSWORD"`
	DB             int           `envconfig:"REDIS_DB" default:"0"`
	IdempotencyTTL time.Duration `envconfig:"REDIS_IDEMPOTENCY_TTL" default:"24h"`
	// PendingTTL covers one in-flight request: statement timeout plus request budget.
	PendingTTL time.Duration `envconfig:"REDIS_IDEMPOTENCY_PENDING_TTL" default:"30s"`
}

func (c Config) Enabled() bool {
	return c.Addr != ""
}

func New(ctx context.Context, cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return rdb, nil
}

// keyIdempotency: idem:{scope}:{client key} -> "{fingerprint}\n{pending marker or stored response body}"
const keyIdempotency = "idem:%s:%s"

var pending = []byte("\x00pending")

// ErrFingerprintMismatch is returned by Reserve when a key is reused for a different request.
var ErrFingerprintMismatch = errors.New("idempotency key reused with a different request")

type IdempotencyStore struct {
	rdb   *redis.Client
	scope string
	// pendingTTL bounds how long a crashed request keeps its key locked.
	pendingTTL time.Duration
	ttl        time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, scope string, pendingTTL, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, scope: scope, pendingTTL: pendingTTL, ttl: ttl}
}

func (s *IdempotencyStore) key(key string) string {
	return fmt.Sprintf(keyIdempotency, s.scope, key)
}

func encodeEntry(fingerprint string, payload []byte) []byte {
	b := make([]byte, 0, len(fingerprint)+1+len(payload))
	b = append(b, fingerprint...)
	b = append(b, '\n')
	return append(b, payload...)
}

func decodeEntry(val []byte) (fingerprint string, payload []byte) {
	i := bytes.IndexByte(val, '\n')
	if i < 0 {
		return "", val
	}
	return string(val[:i]), val[i+1:]
}

// Reserve claims key for the request identified by fingerprint. When the key is already
// known it returns the stored response, or nil while the first request is still in flight.
// A known key with another fingerprint gives ErrFingerprintMismatch.
func (s *IdempotencyStore) Reserve(ctx context.Context, key, fingerprint string) (stored []byte, reserved bool, err error) {
	k := s.key(key)
	ok, err := s.rdb.SetNX(ctx, k, encodeEntry(fingerprint, pending), s.pendingTTL).Result()
	if err != nil {
		return nil, false, errors.Wrap(err, "setnx")
	}
	if ok {
		return nil, true, nil
	}
	val, err := s.rdb.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "get")
	}
	fp, payload := decodeEntry(val)
	if fp != fingerprint {
		return nil, false, ErrFingerprintMismatch
	}
	if bytes.Equal(payload, pending) {
		return nil, false, nil
	}
	return payload, false, nil
}

// Complete stores the response for the full retention ttl.
func (s *IdempotencyStore) Complete(ctx context.Context, key, fingerprint string, response []byte) error {
	return s.rdb.Set(ctx, s.key(key), encodeEntry(fingerprint, response), s.ttl).Err()
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}
