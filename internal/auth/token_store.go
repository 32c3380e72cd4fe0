package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"kanban/internal/cache"
)

const (
	refreshTokenKeyPrefix = "refresh_token:"
	accessTokenKeyPrefix  = "blacklist:access_token:"
)

// ErrTokenNotFound is returned when a refresh token is unknown or expired.
var ErrTokenNotFound = errors.New("refresh token not found")

// TokenStoreInterface defines the interface for token storage operations.
type TokenStoreInterface interface {
	StoreRefreshToken(ctx context.Context, tokenID string, userID uint, email string, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, tokenID string) (userID uint, email string, err error)
	DeleteRefreshToken(ctx context.Context, tokenID string) error
	BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error)
}

type refreshSession struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
}

// TokenStore handles storage and retrieval of tokens in Redis.
type TokenStore struct {
	cache *cache.Client
}

var _ TokenStoreInterface = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(cache *cache.Client) *TokenStore {
	return &TokenStore{cache: cache}
}

// StoreRefreshToken stores a refresh token in Redis with TTL.
func (s *TokenStore) StoreRefreshToken(ctx context.Context, tokenID string, userID uint, email string, ttl time.Duration) error {
	payload, err := json.Marshal(refreshSession{UserID: userID, Email: email})
	if err != nil {
		return fmt.Errorf("failed to marshal refresh session: %w", err)
	}
	if err := s.cache.Store(ctx, refreshTokenKeyPrefix+tokenID, payload, ttl); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken retrieves refresh token data from Redis.
func (s *TokenStore) GetRefreshToken(ctx context.Context, tokenID string) (uint, string, error) {
	data, err := s.cache.Fetch(ctx, refreshTokenKeyPrefix+tokenID)
	if errors.Is(err, cache.ErrMiss) {
		return 0, "", ErrTokenNotFound
	}
	if err != nil {
		return 0, "", fmt.Errorf("failed to get refresh token: %w", err)
	}

	var session refreshSession
	if err := json.Unmarshal(data, &session); err != nil || session.UserID == 0 {
		return 0, "", ErrTokenNotFound
	}
	return session.UserID, session.Email, nil
}

// DeleteRefreshToken removes a refresh token from Redis.
func (s *TokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	if err := s.cache.Remove(ctx, refreshTokenKeyPrefix+tokenID); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}

// BlacklistAccessToken adds an access token to the blacklist until it expires.
func (s *TokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.cache.Store(ctx, accessTokenKeyPrefix+tokenID, []byte("1"), ttl); err != nil {
		return fmt.Errorf("failed to blacklist access token: %w", err)
	}
	return nil
}

// IsAccessTokenBlacklisted checks if an access token is blacklisted.
func (s *TokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	_, err := s.cache.Fetch(ctx, accessTokenKeyPrefix+tokenID)
	if errors.Is(err, cache.ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return true, nil
}

// MemoryTokenStore keeps tokens in process memory. It backs single-instance
// deployments without redis and the test suites.
type MemoryTokenStore struct {
	mu        sync.Mutex
	refresh   map[string]memoryEntry
	blacklist map[string]time.Time
	now       func() time.Time
}

type memoryEntry struct {
	session   refreshSession
	expiresAt time.Time
}

var _ TokenStoreInterface = (*MemoryTokenStore)(nil)

// NewMemoryTokenStore creates an empty in-memory store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		refresh:   make(map[string]memoryEntry),
		blacklist: make(map[string]time.Time),
		now:       time.Now,
	}
}

func (s *MemoryTokenStore) StoreRefreshToken(_ context.Context, tokenID string, userID uint, email string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[tokenID] = memoryEntry{
		session:   refreshSession{UserID: userID, Email: email},
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryTokenStore) GetRefreshToken(_ context.Context, tokenID string) (uint, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.refresh[tokenID]
	if !ok || !s.now().Before(e.expiresAt) {
		delete(s.refresh, tokenID)
		return 0, "", ErrTokenNotFound
	}
	return e.session.UserID, e.session.Email, nil
}

func (s *MemoryTokenStore) DeleteRefreshToken(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refresh, tokenID)
	return nil
}

func (s *MemoryTokenStore) BlacklistAccessToken(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklist[tokenID] = s.now().Add(ttl)
	return nil
}

func (s *MemoryTokenStore) IsAccessTokenBlacklisted(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.blacklist[tokenID]
	if !ok {
		return false, nil
	}
	if !s.now().Before(until) {
		delete(s.blacklist, tokenID)
		return false, nil
	}
	return true, nil
}
