package auth

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/olegbarsky/tradeport-backend/internal/catalog"
	"github.com/olegbarsky/tradeport-backend/internal/users"
	pkgauth "github.com/olegbarsky/tradeport-backend/pkg/auth"
	"github.com/olegbarsky/tradeport-backend/pkg/auth/onetime"
	"github.com/olegbarsky/tradeport-backend/pkg/config"
	"github.com/olegbarsky/tradeport-backend/pkg/db/models"
	"github.com/olegbarsky/tradeport-backend/pkg/enums"
	pkgerrors "github.com/olegbarsky/tradeport-backend/pkg/errors"
	"github.com/olegbarsky/tradeport-backend/pkg/logger"
	"github.com/olegbarsky/tradeport-backend/pkg/outbox"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// fakeTokens stores one-time tokens in memory keyed by purpose+email.
type fakeTokens struct {
	issued map[string]string
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{issued: map[string]string{}}
}

func (f *fakeTokens) key(purpose, email string) string {
	return purpose + ":" + email
}

func (f *fakeTokens) Issue(_ context.Context, purpose, email string) (string, error) {
	token := fmt.Sprintf("token-%s-%d", purpose, len(f.issued))
	f.issued[f.key(purpose, email)] = token
	return token, nil
}

func (f *fakeTokens) Consume(_ context.Context, purpose, email, provided string) error {
	key := f.key(purpose, email)
	stored, ok := f.issued[key]
	if !ok || stored != provided {
		return onetime.ErrInvalidToken
	}
	delete(f.issued, key)
	return nil
}

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT,
  last_name TEXT,
  company TEXT,
  position TEXT,
  type TEXT NOT NULL DEFAULT 'buyer',
  is_active INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS shops (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER UNIQUE,
  name TEXT NOT NULL,
  url TEXT,
  accepting_orders INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id INTEGER NOT NULL,
  payload TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  published_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}

	return db
}

type authFixture struct {
	db     *gorm.DB
	svc    Service
	tokens *fakeTokens
	jwtCfg config.JWTConfig
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	db := setupAuthTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "auth-test", Output: io.Discard})
	tokens := newFakeTokens()
	jwtCfg := config.JWTConfig{Secret: "test-secret", Issuer: "tradeport", ExpirationMinutes: 60}

	svc, err := NewService(ServiceParams{
		TX:     gormTxRunner{db: db},
		Users:  users.NewRepository(db),
		Shops:  catalog.NewRepository(db),
		Tokens: tokens,
		Events: outbox.NewService(outbox.NewRepository(db), logg),
		JWT:    jwtCfg,
		Password: config.PasswordConfig{
			ArgonMemoryKB:    32768,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
			MinLength:        8,
		},
		Logger: logg,
	})
	require.NoError(t, err)
	return &authFixture{db: db, svc: svc, tokens: tokens, jwtCfg: jwtCfg}
}

func sampleRegister(email string) RegisterRequest {
	return RegisterRequest{
		FirstName: "Oleg",
		LastName:  "Barsky",
		Email:     email,
		Password:  "long-enough-password",
	}
}

func TestRegisterConfirmLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Register(ctx, sampleRegister("Buyer@Example.RU")))

	var user models.User
	require.NoError(t, f.db.Where("email = ?", "buyer@example.ru").First(&user).Error)
	assert.False(t, user.IsActive)
	assert.Equal(t, enums.UserTypeBuyer, user.Type)

	var events []models.OutboxEvent
	require.NoError(t, f.db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventUserRegistered, events[0].EventType)

	// Login before confirmation is refused.
	_, err := f.svc.Login(ctx, "buyer@example.ru", "long-enough-password")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("unexpected error: %v", err)
	}

	token := f.tokens.issued["confirm:buyer@example.ru"]
	require.NotEmpty(t, token)
	require.NoError(t, f.svc.ConfirmAccount(ctx, "buyer@example.ru", token))

	jwt, err := f.svc.Login(ctx, "buyer@example.ru", "long-enough-password")
	require.NoError(t, err)

	claims, err := pkgauth.ParseAccessToken(f.jwtCfg, jwt)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, enums.UserTypeBuyer, claims.UserType)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Register(ctx, sampleRegister("buyer@example.ru")))

	err := f.svc.Register(ctx, sampleRegister("buyer@example.ru"))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegisterWeakPassword(t *testing.T) {
	f := newAuthFixture(t)

	req := sampleRegister("buyer@example.ru")
	req.Password = "1234567890"
	err := f.svc.Register(context.Background(), req)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConfirmAccountInvalidToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Register(ctx, sampleRegister("buyer@example.ru")))

	err := f.svc.ConfirmAccount(ctx, "buyer@example.ru", "wrong-token")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}

	var user models.User
	require.NoError(t, f.db.Where("email = ?", "buyer@example.ru").First(&user).Error)
	assert.False(t, user.IsActive)
}

func TestLoginBadCredentials(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Register(ctx, sampleRegister("buyer@example.ru")))
	token := f.tokens.issued["confirm:buyer@example.ru"]
	require.NoError(t, f.svc.ConfirmAccount(ctx, "buyer@example.ru", token))

	_, err := f.svc.Login(ctx, "buyer@example.ru", "not-the-password")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.svc.Login(ctx, "nobody@example.ru", "whatever-password")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPasswordResetRoundTrip(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Register(ctx, sampleRegister("buyer@example.ru")))
	confirm := f.tokens.issued["confirm:buyer@example.ru"]
	require.NoError(t, f.svc.ConfirmAccount(ctx, "buyer@example.ru", confirm))

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "buyer@example.ru"))
	reset := f.tokens.issued["reset:buyer@example.ru"]
	require.NotEmpty(t, reset)

	var events int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventPasswordResetRequested).
		Count(&events).Error)
	assert.Equal(t, int64(1), events)

	require.NoError(t, f.svc.ConfirmPasswordReset(ctx, PasswordResetConfirm{
		Email:    "buyer@example.ru",
		Token:    reset,
		Password: "brand-new-password",
	}))

	_, err := f.svc.Login(ctx, "buyer@example.ru", "long-enough-password")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = f.svc.Login(ctx, "buyer@example.ru", "brand-new-password")
	require.NoError(t, err)

	// Unknown emails are answered identically and queue nothing.
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "ghost@example.ru"))
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventPasswordResetRequested).
		Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestUpdateAccountPartial(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Register(ctx, sampleRegister("buyer@example.ru")))
	var user models.User
	require.NoError(t, f.db.Where("email = ?", "buyer@example.ru").First(&user).Error)

	company := "Tradeport LLC"
	updated, err := f.svc.UpdateAccount(ctx, user.ID, UpdateAccountRequest{Company: &company})
	require.NoError(t, err)
	assert.Equal(t, "Tradeport LLC", updated.Company)
	assert.Equal(t, "Oleg", updated.FirstName)

	account, err := f.svc.Account(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tradeport LLC", account.Company)
}
