package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"authkit/internal/auth"
	"authkit/internal/cache"
	apperrors "authkit/internal/errors"
	"authkit/internal/model"
	"authkit/internal/repository"
)

// ForgotPasswordInput is the payload for a password reset request.
type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordInput is the payload for redeeming a reset token.
type ResetPasswordInput struct {
	Password string `json:"password" validate:"required,min=6"`
}

// ChangePasswordInput is the payload for changing a password while signed in.
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// TokenLifetimes holds the validity window of each action token purpose.
type TokenLifetimes struct {
	Verify time.Duration
	Reset  time.Duration
}

func (l TokenLifetimes) of(purpose model.TokenPurpose) time.Duration {
	if purpose == model.PurposeResetPassword {
		return l.Reset
	}
	return l.Verify
}

// VerificationService drives the email verification and password recovery flows.
type VerificationService interface {
	RequestEmailVerification(ctx context.Context, accountID uuid.UUID) error
	ConfirmEmailVerification(ctx context.Context, token string) (*model.PublicAccount, error)
	RequestPasswordReset(ctx context.Context, in ForgotPasswordInput) error
	ConfirmPasswordReset(ctx context.Context, token string, in ResetPasswordInput) error
	ChangePassword(ctx context.Context, accountID uuid.UUID, in ChangePasswordInput) error
}

type verificationService struct {
	repo      repository.AccountRepository
	hasher    auth.PasswordHasher
	tokens    *auth.ActionTokens
	throttle  auth.ThrottleInterface
	notifier  Notifier
	cache     *cache.Client
	lifetimes TokenLifetimes
	validate  *validator.Validate
	log       zerolog.Logger
	now       func() time.Time
}

// NewVerificationService creates a new verification and recovery service.
func NewVerificationService(
	repo repository.AccountRepository,
	hasher auth.PasswordHasher,
	tokens *auth.ActionTokens,
	throttle auth.ThrottleInterface,
	notifier Notifier,
	cache *cache.Client,
	lifetimes TokenLifetimes,
	log zerolog.Logger,
) VerificationService {
	return &verificationService{
		repo:      repo,
		hasher:    hasher,
		tokens:    tokens,
		throttle:  throttle,
		notifier:  notifier,
		cache:     cache,
		lifetimes: lifetimes,
		validate:  NewValidator(),
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// storeActionToken generates a token for purpose and stores its digest,
// replacing any previous token of the same purpose.
func (s *verificationService) storeActionToken(ctx context.Context, account *model.Account, purpose model.TokenPurpose) (string, error) {
	token, digest, err := s.tokens.Generate()
	if err != nil {
		return "", err
	}
	hashCol, expiresCol := model.TokenColumns(purpose)
	if err := s.repo.Update(ctx, account.ID, map[string]interface{}{
		hashCol:    digest,
		expiresCol: s.now().Add(s.lifetimes.of(purpose)),
	}); err != nil {
		return "", fmt.Errorf("store %s token: %w", purpose, err)
	}
	return token, nil
}

func (s *verificationService) release(ctx context.Context, accountID uuid.UUID, purpose model.TokenPurpose) {
	if err := s.throttle.Release(ctx, accountID, purpose); err != nil {
		s.log.Warn().Err(err).Str("account_id", accountID.String()).Msg("release action token throttle")
	}
}

// RequestEmailVerification issues a verification token and hands it to the notifier.
// A verified account gets ErrAlreadyVerified.
func (s *verificationService) RequestEmailVerification(ctx context.Context, accountID uuid.UUID) error {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("find account: %w", err)
	}
	if account.IsVerified {
		return apperrors.ErrAlreadyVerified
	}

	allowed, err := s.throttle.Allow(ctx, account.ID, model.PurposeVerifyEmail)
	if err != nil {
		s.log.Warn().Err(err).Msg("action token throttle unavailable")
	} else if !allowed {
		return apperrors.ErrTooManyRequests
	}

	token, err := s.storeActionToken(ctx, account, model.PurposeVerifyEmail)
	if err != nil {
		s.release(ctx, account.ID, model.PurposeVerifyEmail)
		return err
	}

	// The stored token stays valid; releasing the throttle lets the owner resend at once.
	if err := s.notifier.Send(ctx, account.Email, model.PurposeVerifyEmail, token); err != nil {
		s.release(ctx, account.ID, model.PurposeVerifyEmail)
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

// ConfirmEmailVerification redeems a verification token and marks the account verified.
func (s *verificationService) ConfirmEmailVerification(ctx context.Context, token string) (*model.PublicAccount, error) {
	if token == "" {
		return nil, apperrors.ErrInvalidOrExpiredToken
	}
	digest := s.tokens.Hash(token)
	now := s.now()

	var verified *model.Account
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.AccountRepository) error {
		account, err := tx.FindByActionToken(ctx, model.PurposeVerifyEmail, digest, now)
		if err != nil {
			return err
		}
		if err := tx.ConsumeActionToken(ctx, account.ID, model.PurposeVerifyEmail, digest, now,
			map[string]interface{}{"is_verified": true}); err != nil {
			return err
		}
		verified, err = tx.FindByID(ctx, account.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("confirm email verification: %w", err)
	}

	invalidateAccount(ctx, s.cache, verified.ID)
	public := verified.Public()
	return &public, nil
}

// RequestPasswordReset issues a reset token if the email belongs to an account.
// The result never reveals whether it does.
func (s *verificationService) RequestPasswordReset(ctx context.Context, in ForgotPasswordInput) error {
	if err := ValidateInput(s.validate, in); err != nil {
		return err
	}

	account, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Debug().Msg("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("find account: %w", err)
	}

	allowed, err := s.throttle.Allow(ctx, account.ID, model.PurposeResetPassword)
	if err != nil {
		s.log.Warn().Err(err).Msg("action token throttle unavailable")
	} else if !allowed {
		s.log.Debug().Str("account_id", account.ID.String()).Msg("password reset throttled")
		return nil
	}

	token, err := s.storeActionToken(ctx, account, model.PurposeResetPassword)
	if err != nil {
		s.release(ctx, account.ID, model.PurposeResetPassword)
		return err
	}

	if err := s.notifier.Send(ctx, account.Email, model.PurposeResetPassword, token); err != nil {
		s.release(ctx, account.ID, model.PurposeResetPassword)
		s.log.Warn().Err(err).Str("account_id", account.ID.String()).Msg("send password reset email failed")
	}
	return nil
}

// ConfirmPasswordReset redeems a reset token and stores the new password.
// Sessions issued before the reset stay valid until they expire.
func (s *verificationService) ConfirmPasswordReset(ctx context.Context, token string, in ResetPasswordInput) error {
	if token == "" {
		return apperrors.ErrInvalidOrExpiredToken
	}
	digest := s.tokens.Hash(token)
	now := s.now()

	account, err := s.repo.FindByActionToken(ctx, model.PurposeResetPassword, digest, now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("find reset token: %w", err)
	}

	if err := ValidateInput(s.validate, in); err != nil {
		return err
	}
	if err := checkPasswordLength("password", in.Password); err != nil {
		return err
	}
	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return err
	}

	if err := s.repo.ConsumeActionToken(ctx, account.ID, model.PurposeResetPassword, digest, now,
		map[string]interface{}{"password_hash": passwordHash}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("reset password: %w", err)
	}

	invalidateAccount(ctx, s.cache, account.ID)
	s.log.Info().Str("account_id", account.ID.String()).Msg("password reset")
	return nil
}

// ChangePassword replaces the password after checking the current one.
func (s *verificationService) ChangePassword(ctx context.Context, accountID uuid.UUID, in ChangePasswordInput) error {
	if err := ValidateInput(s.validate, in); err != nil {
		return err
	}
	if err := checkPasswordLength("newPassword", in.NewPassword); err != nil {
		return err
	}

	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("find account: %w", err)
	}

	ok, err := s.hasher.Verify(in.CurrentPassword, account.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password for %s: %w", account.ID, err)
	}
	if !ok {
		return apperrors.ErrUnauthorized
	}

	passwordHash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return err
	}
	// The swap fails if a reset or another change landed after the read above;
	// the current password the caller proved is then no longer current.
	if err := s.repo.ReplacePasswordHash(ctx, account.ID, account.PasswordHash, passwordHash); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUnauthorized
		}
		return fmt.Errorf("change password: %w", err)
	}

	invalidateAccount(ctx, s.cache, account.ID)
	return nil
}
