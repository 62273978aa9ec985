// Package redis implements the session store for the remote backend and
// a short-TTL cache of per-user progress overviews. Both are keyed under
// their own prefix; flushing one namespace never touches the other.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studypath-hub/studypath-hub/internal/domain/learner"
	"github.com/studypath-hub/studypath-hub/internal/domain/shared"
)

// Key prefixes for namespacing.
const (
	PrefixSession  = "session:"
	PrefixOverview = "overview:"
)

// Config holds Redis connection configuration.
type Config struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewClient creates and pings a Redis client.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

// SessionStore implements learner.SessionStore on Redis. Sessions expire
// after the configured TTL unless signed out first.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a session store with the given TTL.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

type sessionDoc struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Put stores a session under its token.
func (s *SessionStore) Put(ctx context.Context, sess learner.Session) error {
	data, err := json.Marshal(sessionDoc{
		UserID:      sess.UserID,
		Email:       sess.Email.String(),
		DisplayName: sess.DisplayName,
	})
	if err != nil {
		return shared.WrapError("learner", "PutSession", shared.ErrWriteFailed, "encode session", err)
	}
	if err := s.client.Set(ctx, PrefixSession+sess.Token, data, s.ttl).Err(); err != nil {
		return shared.WrapError("learner", "PutSession", shared.ErrWriteFailed, "store session", err)
	}
	return nil
}

// Get resolves a token; unknown and expired tokens are both ErrNotFound.
func (s *SessionStore) Get(ctx context.Context, token string) (learner.Session, error) {
	data, err := s.client.Get(ctx, PrefixSession+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return learner.Session{}, shared.NewDomainError("learner", "GetSession", shared.ErrNotFound,
			"session not found")
	}
	if err != nil {
		return learner.Session{}, shared.WrapError("learner", "GetSession", shared.ErrStoreUnavailable,
			"session lookup failed", err)
	}

	var doc sessionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return learner.Session{}, shared.WrapError("learner", "GetSession", shared.ErrStoreUnavailable,
			"decode session", err)
	}
	return learner.Session{
		Token:       token,
		UserID:      doc.UserID,
		Email:       shared.Email(doc.Email),
		DisplayName: doc.DisplayName,
	}, nil
}

// Delete invalidates a token; unknown tokens are not an error.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, PrefixSession+token).Err(); err != nil {
		return shared.WrapError("learner", "DeleteSession", shared.ErrWriteFailed, "delete session", err)
	}
	return nil
}
