package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"authkit/internal/auth"
	apperrors "authkit/internal/errors"
	"authkit/internal/model"
	"authkit/internal/repository"
)

// RegisterInput is the payload for account registration.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginInput is the payload for password login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is a freshly issued session token together with the account it identifies.
type Session struct {
	Account   model.PublicAccount
	Token     string
	ExpiresAt time.Time
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*Session, error)
	Login(ctx context.Context, in LoginInput) (*Session, error)
	// StartSession attaches the session cookie to the response.
	StartSession(w http.ResponseWriter, session *Session)
	// Logout clears the session cookie. It never fails.
	Logout(w http.ResponseWriter)
	// VerifySession resolves a session token to an account id.
	VerifySession(token string) (uuid.UUID, error)
	// CurrentSession reads and verifies the session cookie. A missing, expired or
	// invalid cookie yields false, not an error.
	CurrentSession(r *http.Request) (uuid.UUID, bool)
}

type authService struct {
	accountRepo repository.AccountRepository
	hasher      auth.PasswordHasher
	tokens      *auth.TokenService
	cookie      auth.SessionCookie
	validate    *validator.Validate
	log         zerolog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(accountRepo repository.AccountRepository, hasher auth.PasswordHasher, tokens *auth.TokenService, cookie auth.SessionCookie, log zerolog.Logger) AuthService {
	return &authService{
		accountRepo: accountRepo,
		hasher:      hasher,
		tokens:      tokens,
		cookie:      cookie,
		validate:    NewValidator(),
		log:         log,
	}
}

// Register creates a new unverified account and opens a session for it.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if err := ValidateInput(s.validate, in); err != nil {
		return nil, err
	}
	if err := checkPasswordLength("password", in.Password); err != nil {
		return nil, err
	}
	name, err := trimmedName(in.Name)
	if err != nil {
		return nil, err
	}
	email := model.NormalizeEmail(in.Email)

	_, err = s.accountRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, apperrors.ErrConflict
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check account existence: %w", err)
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	account := &model.Account{
		Name:         name,
		Email:        email,
		PasswordHash: digest,
		Role:         model.RoleUser,
		Photo:        model.DefaultPhoto,
		Bio:          model.DefaultBio,
		IsVerified:   false,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		// Lost a race with a concurrent registration for the same email.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrConflict
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.log.Info().Str("account_id", account.ID.String()).Msg("account registered")
	return s.issue(account)
}

// Login authenticates an account by email and password.
func (s *authService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := ValidateInput(s.validate, in); err != nil {
		return nil, err
	}

	account, err := s.accountRepo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	ok, err := s.hasher.Verify(in.Password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password for %s: %w", account.ID, err)
	}
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}

	return s.issue(account)
}

func (s *authService) issue(account *model.Account) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	return &Session{
		Account:   account.Public(),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// StartSession sets the session cookie.
func (s *authService) StartSession(w http.ResponseWriter, session *Session) {
	s.cookie.Attach(w, session.Token)
}

// Logout clears the session cookie with the attributes it was set with.
func (s *authService) Logout(w http.ResponseWriter) {
	s.cookie.Clear(w)
}

// VerifySession verifies a session token. Failures wrap ErrUnauthenticated.
func (s *authService) VerifySession(token string) (uuid.UUID, error) {
	accountID, err := s.tokens.Verify(token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthenticated, err)
	}
	return accountID, nil
}

// CurrentSession returns the account id of a valid session cookie, if any.
func (s *authService) CurrentSession(r *http.Request) (uuid.UUID, bool) {
	token, ok := s.cookie.Extract(r)
	if !ok {
		return uuid.Nil, false
	}
	accountID, err := s.VerifySession(token)
	if err != nil {
		return uuid.Nil, false
	}
	return accountID, true
}
