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
	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/catalog-admin/pkg/config"
	redisclient "github.com/angelmondragon/catalog-admin/pkg/redis"
)

const refreshTokenBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// Identity is the signed-in admin persisted alongside the session.
type Identity struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// record is what Redis holds per session. Only a digest of the refresh
// token is stored.
type record struct {
	Identity    Identity `json:"identity"`
	RefreshHash string   `json:"refresh_hash"`
}

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
}

// Manager persists the admin session in Redis keyed by the access token id.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// Loader exposes the read-only surface needed by middleware.
type Loader interface {
	Load(ctx context.Context, accessID string) (*Identity, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("refresh token ttl must be positive")
	}
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}

	return &Manager{
		store: client,
		keyer: client,
		ttl:   ttl,
	}, nil
}

// Save persists the identity under the access id and returns a fresh refresh token.
func (m *Manager) Save(ctx context.Context, accessID string, identity Identity) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", fmt.Errorf("access id is required")
	}
	token, err := generateRefreshToken()
	if err != nil {
		return "", err
	}
	if err := m.write(ctx, accessID, record{Identity: identity, RefreshHash: digest(token)}); err != nil {
		return "", err
	}
	return token, nil
}

// Load returns the stored identity. A missing or unreadable record yields (nil, nil).
func (m *Manager) Load(ctx context.Context, accessID string) (*Identity, error) {
	rec, err := m.read(ctx, accessID)
	if err != nil || rec == nil {
		return nil, err
	}
	identity := rec.Identity
	return &identity, nil
}

// Clear deletes the session tied to the access id.
func (m *Manager) Clear(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return m.store.Del(ctx, m.keyer.AccessSessionKey(accessID))
}

// Rotate exchanges a refresh token for a new session. The old session is
// claimed atomically, so of two concurrent refreshes with the same token only
// one succeeds.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, *Identity, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return "", "", nil, ErrInvalidRefreshToken
	}
	key := m.keyer.AccessSessionKey(oldAccessID)
	raw, rec, err := m.readRaw(ctx, key)
	if err != nil {
		return "", "", nil, err
	}
	if rec == nil || subtle.ConstantTimeCompare([]byte(rec.RefreshHash), []byte(digest(provided))) != 1 {
		return "", "", nil, ErrInvalidRefreshToken
	}
	claimed, err := m.store.CompareAndDelete(ctx, key, raw)
	if err != nil {
		return "", "", nil, err
	}
	if !claimed {
		return "", "", nil, ErrInvalidRefreshToken
	}

	newAccessID := NewAccessID()
	newToken, err := m.Save(ctx, newAccessID, rec.Identity)
	if err != nil {
		return "", "", nil, err
	}
	identity := rec.Identity
	return newAccessID, newToken, &identity, nil
}

// HasSession reports whether the access id still has an active session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	identity, err := m.Load(ctx, accessID)
	if err != nil {
		return false, err
	}
	return identity != nil, nil
}

// NewAccessID produces the identifier used as the JWT jti and Redis key.
func NewAccessID() string {
	return uuid.NewString()
}

func (m *Manager) write(ctx context.Context, accessID string, rec record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), string(payload), m.ttl)
}

func (m *Manager) read(ctx context.Context, accessID string) (*record, error) {
	if strings.TrimSpace(accessID) == "" {
		return nil, nil
	}
	_, rec, err := m.readRaw(ctx, m.keyer.AccessSessionKey(accessID))
	return rec, err
}

// readRaw returns the stored value with its decoded record. Missing or
// malformed sessions decode to a nil record.
func (m *Manager) readRaw(ctx context.Context, key string) (string, *record, error) {
	raw, err := m.store.Get(ctx, key)
	if errors.Is(err, redislib.Nil) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.Identity.ID <= 0 || rec.RefreshHash == "" {
		return raw, nil, nil
	}
	return raw, &rec, nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func generateRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
