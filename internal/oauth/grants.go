package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Grant kinds stored by the grant store.
const (
	GrantKindCode    = "code"
	GrantKindRefresh = "refresh"
)

// ErrGrantNotFound covers unknown, expired, and already-consumed grants.
var ErrGrantNotFound = errors.New("grant not found")

// Grant is what survives between the original authorization and the
// token exchange: the subject, the client, and the granted scope. The
// tenant is deliberately absent — claims are re-sourced from the user
// record at exchange time.
type Grant struct {
	Subject  string `json:"sub"`
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
}

// GrantStore persists single-use authorization codes and rotating
// refresh tokens with TTLs.
type GrantStore interface {
	Put(ctx context.Context, kind, token string, g Grant, ttl time.Duration) error
	// Consume atomically fetches and invalidates the grant: codes are
	// single-use and refresh tokens rotate on every exchange.
	Consume(ctx context.Context, kind, token string) (Grant, error)
}

// redisGrants stores grants in redis with native TTL expiry.
type redisGrants struct {
	rdb *redis.Client
}

func NewRedisGrantStore(rdb *redis.Client) GrantStore {
	return &redisGrants{rdb: rdb}
}

func grantKey(kind, token string) string { return "grant:" + kind + ":" + token }

func (s *redisGrants) Put(ctx context.Context, kind, token string, g Grant, ttl time.Duration) error {
	b, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, grantKey(kind, token), b, ttl).Err()
}

func (s *redisGrants) Consume(ctx context.Context, kind, token string) (Grant, error) {
	b, err := s.rdb.GetDel(ctx, grantKey(kind, token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Grant{}, ErrGrantNotFound
		}
		return Grant{}, err
	}
	var g Grant
	if err := json.Unmarshal(b, &g); err != nil {
		return Grant{}, err
	}
	return g, nil
}

// memGrants is the in-process fallback when redis is not configured.
type memGrants struct {
	mu sync.Mutex
	m  map[string]memGrant
}

type memGrant struct {
	grant   Grant
	expires time.Time
}

func NewMemoryGrantStore() GrantStore {
	return &memGrants{m: map[string]memGrant{}}
}

func (s *memGrants) Put(ctx context.Context, kind, token string, g Grant, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[grantKey(kind, token)] = memGrant{grant: g, expires: time.Now().Add(ttl)}
	return nil
}

func (s *memGrants) Consume(ctx context.Context, kind, token string) (Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := grantKey(kind, token)
	e, ok := s.m[k]
	if !ok {
		return Grant{}, ErrGrantNotFound
	}
	delete(s.m, k)
	if time.Now().After(e.expires) {
		return Grant{}, ErrGrantNotFound
	}
	return e.grant, nil
}
