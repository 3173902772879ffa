package onetime

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/olegbarsky/tradeport-backend/pkg/config"
	redisclient "github.com/olegbarsky/tradeport-backend/pkg/redis"
)

const tokenBytes = 32

// Token purposes. Each purpose keeps its own Redis namespace and TTL.
const (
	PurposeConfirm = "confirm"
	PurposeReset   = "reset"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type tokenStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type tokenKeyer interface {
	OneTimeTokenKey(purpose, email string) string
}

// Manager issues and consumes single-use tokens for email confirmation
// and password reset. Tokens live in Redis with a per-purpose TTL and
// are deleted on first successful consume.
type Manager struct {
	store      tokenStore
	keyer      tokenKeyer
	confirmTTL time.Duration
	resetTTL   time.Duration
}

// NewManager constructs a token manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.TokensConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.ConfirmTTL <= 0 || cfg.ResetTTL <= 0 {
		return nil, fmt.Errorf("token ttls must be positive")
	}
	return &Manager{
		store:      client,
		keyer:      client,
		confirmTTL: cfg.ConfirmTTL,
		resetTTL:   cfg.ResetTTL,
	}, nil
}

// Issue creates a fresh token for the email under the given purpose,
// replacing any previously issued one.
func (m *Manager) Issue(ctx context.Context, purpose, email string) (string, error) {
	ttl, err := m.ttlFor(purpose)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(email) == "" {
		return "", fmt.Errorf("email is required")
	}
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.keyer.OneTimeTokenKey(purpose, email), token, ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Consume validates the provided token and deletes it so it cannot be
// replayed. Returns ErrInvalidToken on mismatch or expiry.
func (m *Manager) Consume(ctx context.Context, purpose, email, provided string) error {
	if _, err := m.ttlFor(purpose); err != nil {
		return err
	}
	if strings.TrimSpace(email) == "" || strings.TrimSpace(provided) == "" {
		return ErrInvalidToken
	}

	key := m.keyer.OneTimeTokenKey(purpose, email)
	stored, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return ErrInvalidToken
		}
		return err
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) != 1 {
		return ErrInvalidToken
	}

	return m.store.Del(ctx, key)
}

func (m *Manager) ttlFor(purpose string) (time.Duration, error) {
	switch purpose {
	case PurposeConfirm:
		return m.confirmTTL, nil
	case PurposeReset:
		return m.resetTTL, nil
	default:
		return 0, fmt.Errorf("unknown token purpose %q", purpose)
	}
}

func generateToken() (string, error) {
	bytes := make([]byte, tokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
