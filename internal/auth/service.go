package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/olegbarsky/tradeport-backend/internal/users"
	pkgauth "github.com/olegbarsky/tradeport-backend/pkg/auth"
	"github.com/olegbarsky/tradeport-backend/pkg/auth/onetime"
	"github.com/olegbarsky/tradeport-backend/pkg/config"
	"github.com/olegbarsky/tradeport-backend/pkg/db/models"
	"github.com/olegbarsky/tradeport-backend/pkg/enums"
	pkgerrors "github.com/olegbarsky/tradeport-backend/pkg/errors"
	"github.com/olegbarsky/tradeport-backend/pkg/logger"
	"github.com/olegbarsky/tradeport-backend/pkg/outbox"
	"github.com/olegbarsky/tradeport-backend/pkg/outbox/payloads"
	"github.com/olegbarsky/tradeport-backend/pkg/security"
)

// Service covers the account lifecycle: registration, confirmation,
// login, password reset and profile details.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) error
	ConfirmAccount(ctx context.Context, email, token string) error
	Login(ctx context.Context, email, password string) (string, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, req PasswordResetConfirm) error
	Account(ctx context.Context, userID uint) (*users.UserDTO, error)
	UpdateAccount(ctx context.Context, userID uint, req UpdateAccountRequest) (*users.UserDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type tokenManager interface {
	Issue(ctx context.Context, purpose, email string) (string, error)
	Consume(ctx context.Context, purpose, email, provided string) error
}

type shopFinder interface {
	FindShopByUserID(ctx context.Context, userID uint) (*models.Shop, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams packages the dependencies for the account flows.
type ServiceParams struct {
	TX       txRunner
	Users    *users.Repository
	Shops    shopFinder
	Tokens   tokenManager
	Events   eventEmitter
	JWT      config.JWTConfig
	Password config.PasswordConfig
	Logger   *logger.Logger
}

type service struct {
	tx     txRunner
	users  *users.Repository
	shops  shopFinder
	tokens tokenManager
	events eventEmitter
	jwtCfg config.JWTConfig
	pwCfg  config.PasswordConfig
	logg   *logger.Logger
}

// NewService constructs the account service.
func NewService(params ServiceParams) (Service, error) {
	if params.TX == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Shops == nil {
		return nil, fmt.Errorf("shop finder required")
	}
	if params.Tokens == nil {
		return nil, fmt.Errorf("token manager required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:     params.TX,
		users:  params.Users,
		shops:  params.Shops,
		tokens: params.Tokens,
		events: params.Events,
		jwtCfg: params.JWT,
		pwCfg:  params.Password,
		logg:   params.Logger,
	}, nil
}

// Register creates an inactive account and queues the confirmation
// email through the outbox.
func (s *service) Register(ctx context.Context, req RegisterRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	userType := req.Type
	if userType == "" {
		userType = enums.UserTypeBuyer
	}
	if !userType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid user type")
	}
	if err := security.ValidateStrength(req.Password, s.pwCfg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "weak password")
	}

	passwordHash, err := security.HashPassword(req.Password, s.pwCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	confirmToken, err := s.tokens.Issue(ctx, onetime.PurposeConfirm, email)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue confirm token")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			FirstName:    strings.TrimSpace(req.FirstName),
			LastName:     strings.TrimSpace(req.LastName),
			Company:      strings.TrimSpace(req.Company),
			Position:     strings.TrimSpace(req.Position),
			Type:         userType,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUserRegistered,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Actor:         &outbox.ActorRef{UserID: user.ID, Email: user.Email},
			Data: payloads.UserRegisteredEvent{
				UserID:       user.ID,
				Email:        user.Email,
				FirstName:    user.FirstName,
				ConfirmToken: confirmToken,
			},
		})
	})
}

// ConfirmAccount consumes the emailed token and activates the account.
func (s *service) ConfirmAccount(ctx context.Context, email, token string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	if err := s.tokens.Consume(ctx, onetime.PurposeConfirm, email, token); err != nil {
		if errors.Is(err, onetime.ErrInvalidToken) {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired confirmation token")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume confirm token")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if err := s.users.Activate(ctx, user.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "activate user")
	}
	return nil
}

// Login verifies credentials for an active account and mints a JWT.
func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	if !user.IsActive {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "account is not confirmed")
	}

	payload := pkgauth.AccessTokenPayload{
		UserID:   user.ID,
		UserType: user.Type,
	}
	if user.Type == enums.UserTypeShop {
		shop, err := s.shops.FindShopByUserID(ctx, user.ID)
		if err == nil {
			payload.ShopID = &shop.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load shop")
		}
	}

	token, err := pkgauth.MintAccessToken(s.jwtCfg, time.Now(), payload)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token")
	}
	return token, nil
}

// RequestPasswordReset queues a reset email when the account exists.
// Unknown emails are answered identically so accounts cannot be probed.
func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Debug(s.logg.WithField(ctx, "email", email), "password reset for unknown email")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	resetToken, err := s.tokens.Issue(ctx, onetime.PurposeReset, email)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue reset token")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPasswordResetRequested,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Actor:         &outbox.ActorRef{UserID: user.ID, Email: user.Email},
			Data: payloads.PasswordResetRequestedEvent{
				UserID:     user.ID,
				Email:      user.Email,
				ResetToken: resetToken,
			},
		})
	})
}

// ConfirmPasswordReset consumes the reset token and stores the new hash.
func (s *service) ConfirmPasswordReset(ctx context.Context, req PasswordResetConfirm) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if err := security.ValidateStrength(req.Password, s.pwCfg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "weak password")
	}
	if err := s.tokens.Consume(ctx, onetime.PurposeReset, email, req.Token); err != nil {
		if errors.Is(err, onetime.ErrInvalidToken) {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired reset token")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume reset token")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	hash, err := security.HashPassword(req.Password, s.pwCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	return nil
}

// Account returns the profile for the authenticated user.
func (s *service) Account(ctx context.Context, userID uint) (*users.UserDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return users.FromModel(user), nil
}

// UpdateAccount applies a partial profile update, re-hashing the
// password when one is provided.
func (s *service) UpdateAccount(ctx context.Context, userID uint, req UpdateAccountRequest) (*users.UserDTO, error) {
	fields := map[string]any{}
	if req.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.Company != nil {
		fields["company"] = strings.TrimSpace(*req.Company)
	}
	if req.Position != nil {
		fields["position"] = strings.TrimSpace(*req.Position)
	}
	if req.Password != nil {
		if err := security.ValidateStrength(*req.Password, s.pwCfg); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "weak password")
		}
		hash, err := security.HashPassword(*req.Password, s.pwCfg)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		fields["password_hash"] = hash
	}

	if len(fields) > 0 {
		if err := s.users.UpdateProfile(ctx, userID, fields); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
		}
	}
	return s.Account(ctx, userID)
}
