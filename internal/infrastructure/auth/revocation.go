package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore withdraws tokens before they expire. A token is revoked when
// its own jti was revoked (logout) or when its user was cut off at or after the
// moment it was issued (deactivation).
type RevocationStore interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	RevokeUser(ctx context.Context, userID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, claims *Claims) (bool, error)
}

const revocationKeyPrefix = "petshop:revoked:"

// RedisRevocationStore shares revocations between API instances
type RedisRevocationStore struct {
	client *redis.Client
}

// NewRedisRevocationStore stores revocations on an existing client; the caller
// owns the client and closes it.
func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

// TokenKey is the Redis key marking a revoked jti
func TokenKey(jti string) string {
	return revocationKeyPrefix + "jti:" + jti
}

// UserKey is the Redis key holding a user's cut-off in unix milliseconds
func UserKey(userID string) string {
	return revocationKeyPrefix + "user:" + userID
}

func (s *RedisRevocationStore) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, TokenKey(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token %s: %w", jti, err)
	}
	return nil
}

func (s *RedisRevocationStore) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, UserKey(userID), time.Now().UnixMilli(), ttl).Err(); err != nil {
		return fmt.Errorf("revoke sessions of user %s: %w", userID, err)
	}
	return nil
}

// IsRevoked reads both keys in one round trip
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, claims *Claims) (bool, error) {
	values, err := s.client.MGet(ctx, TokenKey(claims.ID), UserKey(claims.UserID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	if len(values) != 2 {
		return false, nil
	}
	if claims.ID != "" && values[0] != nil {
		return true, nil
	}
	raw, ok := values[1].(string)
	if !ok {
		return false, nil
	}
	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse cut-off of user %s: %w", claims.UserID, err)
	}
	return issuedNotAfter(claims, time.UnixMilli(cutoff)), nil
}

var _ RevocationStore = (*RedisRevocationStore)(nil)

// issuedNotAfter compares at millisecond precision; tokens carry whole seconds
func issuedNotAfter(claims *Claims, cutoff time.Time) bool {
	return claims.issuedAt().UnixMilli() <= cutoff.UnixMilli()
}

type revocation struct {
	at      time.Time
	expires time.Time
}

// MemoryRevocationStore keeps revocations in the process. Used when Redis is
// not configured, so revocations do not reach other instances.
type MemoryRevocationStore struct {
	mu     sync.Mutex
	now    func() time.Time
	tokens map[string]time.Time
	users  map[string]revocation
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		now:    time.Now,
		tokens: make(map[string]time.Time),
		users:  make(map[string]revocation),
	}
}

func (s *MemoryRevocationStore) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[jti] = s.now().Add(ttl)
	return nil
}

func (s *MemoryRevocationStore) RevokeUser(_ context.Context, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.users[userID] = revocation{at: now, expires: now.Add(ttl)}
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, claims *Claims) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()

	if expires, ok := s.tokens[claims.ID]; ok {
		if now.Before(expires) {
			return true, nil
		}
		delete(s.tokens, claims.ID)
	}
	if r, ok := s.users[claims.UserID]; ok {
		if now.Before(r.expires) {
			return issuedNotAfter(claims, r.at), nil
		}
		delete(s.users, claims.UserID)
	}
	return false, nil
}

var _ RevocationStore = (*MemoryRevocationStore)(nil)
