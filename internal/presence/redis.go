// Package presence mirrors the relay's online roster into Redis so other
// services can answer "is this user online" without talking to the relay.
package presence

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/mmuslimabdulj/pairchat/internal/domain"
)

// Config is used to initialize the Redis client
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// presence key: pairchat:presence:<userId>
// Value: username, TTL bounds how long a crashed relay leaves users online
func presenceKey(userID string) string { return "pairchat:presence:" + userID }

// RedisMirror writes one key per online user
type RedisMirror struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisMirror connects and pings Redis
func NewRedisMirror(ctx context.Context, c Config) (*RedisMirror, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "redis ping")
	}

	ttl := c.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisMirror{rdb: rdb, ttl: ttl}, nil
}

// RefreshInterval is how often online keys must be re-set to survive their TTL
func (m *RedisMirror) RefreshInterval() time.Duration {
	return m.ttl / 2
}

// Online marks the identity online and renews the TTL
func (m *RedisMirror) Online(ctx context.Context, id domain.Identity) error {
	return m.rdb.Set(ctx, presenceKey(id.UserID), id.Username, m.ttl).Err()
}

// Offline removes the user's key
func (m *RedisMirror) Offline(ctx context.Context, userID string) error {
	return m.rdb.Del(ctx, presenceKey(userID)).Err()
}

// IsOnline reports whether any instance has the user marked online
func (m *RedisMirror) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := m.rdb.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, errors.Wrap(err, "presence lookup")
	}
	return n > 0, nil
}

// Close closes the client
func (m *RedisMirror) Close() error {
	return m.rdb.Close()
}
