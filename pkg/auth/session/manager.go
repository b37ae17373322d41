// Package session keeps refresh sessions in Redis, one per access token id.
// A session is redeemed at most once: refreshing takes it and issues a new one.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
	redisclient "github.com/angelmondragon/marketplace-backend/pkg/redis"
)

const tokenEntropy = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errNoAccessID          = errors.New("access id is required")
)

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Take(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error
	SessionKey(accessID string) string
}

// AccessSessionChecker is what the auth middleware needs to reject access
// tokens whose session was revoked.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// record is the stored session. Only a digest of the refresh token is kept.
type record struct {
	IdentityID uuid.UUID `json:"sub"`
	Digest     []byte    `json:"rt"`
	IssuedAt   int64     `json:"iat"`
}

type Rotation struct {
	IdentityID   uuid.UUID
	AccessID     string
	RefreshToken string
}

type Manager struct {
	store store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager requires a refresh lifetime longer than the access token's.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	access := time.Duration(cfg.ExpirationMinutes) * time.Minute
	switch {
	case ttl <= 0:
		return nil, errors.New("refresh token ttl must be positive")
	case ttl <= access:
		return nil, fmt.Errorf("refresh token ttl %s must exceed access token ttl %s", ttl, access)
	}
	return &Manager{store: client, ttl: ttl, now: time.Now}, nil
}

func NewAccessID() string { return uuid.NewString() }

// Generate opens a session for accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string, identityID uuid.UUID) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", errNoAccessID
	}
	if identityID == uuid.Nil {
		return "", errors.New("identity id is required")
	}
	return m.open(ctx, accessID, identityID)
}

// Rotate redeems the session of oldAccessID. Any failure after the session
// is taken leaves it gone, so a wrong guess costs the holder the session.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (Rotation, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return Rotation{}, ErrInvalidRefreshToken
	}
	raw, err := m.store.Take(ctx, m.store.SessionKey(oldAccessID))
	if errors.Is(err, redisclient.ErrMiss) {
		return Rotation{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return Rotation{}, err
	}
	var rec record
	if json.Unmarshal([]byte(raw), &rec) != nil || rec.IdentityID == uuid.Nil {
		return Rotation{}, ErrInvalidRefreshToken
	}
	if subtle.ConstantTimeCompare(rec.Digest, digest(provided)) != 1 {
		return Rotation{}, ErrInvalidRefreshToken
	}

	accessID := NewAccessID()
	token, err := m.open(ctx, accessID, rec.IdentityID)
	if err != nil {
		return Rotation{}, err
	}
	return Rotation{IdentityID: rec.IdentityID, AccessID: accessID, RefreshToken: token}, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errNoAccessID
	}
	return m.store.Del(ctx, m.store.SessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errNoAccessID
	}
	return m.store.Exists(ctx, m.store.SessionKey(accessID))
}

func (m *Manager) open(ctx context.Context, accessID string, identityID uuid.UUID) (string, error) {
	buf := make([]byte, tokenEntropy)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	value, err := json.Marshal(record{IdentityID: identityID, Digest: digest(token), IssuedAt: m.now().Unix()})
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.store.SessionKey(accessID), string(value), m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

func digest(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}
