// Package localstore persists the client-side state that outlives a single
// view: the auth session, the beta-signup flag, and the session-scoped
// signup-modal-dismissed flag. The key layout mirrors the browser client's
// localStorage so a reimplemented frontend can interoperate.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/marketmood/marketmood/internal/api"
)

const (
	keyToken          = "marketmood:auth:token"
	keyProfile        = "marketmood:auth:profile"
	keyBetaSignup     = "marketmood:beta_signup_done"
	keyModalDismissed = "marketmood:signup_modal_dismissed"

	// Session-scoped keys expire on their own instead of being torn down by
	// a browser session ending.
	sessionTTL = 12 * time.Hour
)

// Store persists client state across process restarts.
type Store interface {
	SaveSession(ctx context.Context, session *api.Session) error
	Session(ctx context.Context) (*api.Session, bool)
	ClearSession(ctx context.Context) error

	SetBetaSignupDone(ctx context.Context) error
	BetaSignupDone(ctx context.Context) bool

	SetModalDismissed(ctx context.Context) error
	ModalDismissed(ctx context.Context) bool
}

// RedisStore is the durable implementation.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) SaveSession(ctx context.Context, session *api.Session) error {
	profile, err := json.Marshal(session.Profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, keyToken, session.Token, 0)
	pipe.Set(ctx, keyProfile, profile, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

func (s *RedisStore) Session(ctx context.Context) (*api.Session, bool) {
	token, err := s.client.Get(ctx, keyToken).Result()
	if err != nil || token == "" {
		return nil, false
	}
	session := &api.Session{Token: token}
	if data, err := s.client.Get(ctx, keyProfile).Bytes(); err == nil {
		_ = json.Unmarshal(data, &session.Profile)
	}
	return session, true
}

func (s *RedisStore) ClearSession(ctx context.Context) error {
	return s.client.Del(ctx, keyToken, keyProfile).Err()
}

func (s *RedisStore) SetBetaSignupDone(ctx context.Context) error {
	return s.client.Set(ctx, keyBetaSignup, "1", 0).Err()
}

func (s *RedisStore) BetaSignupDone(ctx context.Context) bool {
	v, err := s.client.Get(ctx, keyBetaSignup).Result()
	return err == nil && v == "1"
}

func (s *RedisStore) SetModalDismissed(ctx context.Context) error {
	return s.client.Set(ctx, keyModalDismissed, "1", sessionTTL).Err()
}

func (s *RedisStore) ModalDismissed(ctx context.Context) bool {
	v, err := s.client.Get(ctx, keyModalDismissed).Result()
	return err == nil && v == "1"
}

// Token implements api.TokenSource over the persisted session.
func (s *RedisStore) Token(ctx context.Context) string {
	session, ok := s.Session(ctx)
	if !ok {
		return ""
	}
	return session.Token
}

// MemoryStore keeps client state in process memory. Used when Redis is not
// configured; nothing survives a restart, which matches a cleared browser.
type MemoryStore struct {
	mu             sync.RWMutex
	session        *api.Session
	betaDone       bool
	modalDismissed bool
	modalExpiry    time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveSession(ctx context.Context, session *api.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	return nil
}

func (s *MemoryStore) Session(ctx context.Context) (*api.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil, false
	}
	return s.session, true
}

func (s *MemoryStore) ClearSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}

func (s *MemoryStore) SetBetaSignupDone(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.betaDone = true
	return nil
}

func (s *MemoryStore) BetaSignupDone(ctx context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.betaDone
}

func (s *MemoryStore) SetModalDismissed(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modalDismissed = true
	s.modalExpiry = time.Now().Add(sessionTTL)
	return nil
}

func (s *MemoryStore) ModalDismissed(ctx context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modalDismissed && time.Now().Before(s.modalExpiry)
}

// Token implements api.TokenSource.
func (s *MemoryStore) Token(ctx context.Context) string {
	session, ok := s.Session(ctx)
	if !ok {
		return ""
	}
	return session.Token
}
