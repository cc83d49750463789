package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"authkit/internal/auth"
	"authkit/internal/cache"
	apperrors "authkit/internal/errors"
	"authkit/internal/model"
	"authkit/internal/repository"
)

const accountCacheTTL = 5 * time.Minute

// UpdateProfileInput carries the optional profile fields a user may change.
type UpdateProfileInput struct {
	Name  *string `json:"name" validate:"omitempty,max=255"`
	Bio   *string `json:"bio" validate:"omitempty,max=1024"`
	Photo *string `json:"photo" validate:"omitempty,url,max=512"`
}

// SeedAccount describes a privileged account provisioned out of band.
type SeedAccount struct {
	Name     string     `json:"name" validate:"required,max=255"`
	Email    string     `json:"email" validate:"required,email,max=255"`
	Password string     `json:"password" validate:"required,min=6"`
	Role     model.Role `json:"role" validate:"required,oneof=user admin creator"`
}

// AccountService handles profile and administrative account operations.
type AccountService interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*model.PublicAccount, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, in UpdateProfileInput) (*model.PublicAccount, error)
	ListAccounts(ctx context.Context) ([]model.PublicAccount, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error
	SeedAccounts(ctx context.Context, accounts []SeedAccount) (int, error)
}

type accountService struct {
	repo     repository.AccountRepository
	hasher   auth.PasswordHasher
	cache    *cache.Client
	validate *validator.Validate
}

// NewAccountService creates a new account service.
func NewAccountService(repo repository.AccountRepository, hasher auth.PasswordHasher, cache *cache.Client) AccountService {
	return &accountService{
		repo:     repo,
		hasher:   hasher,
		cache:    cache,
		validate: NewValidator(),
	}
}

func accountCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("account:%s", id.String())
}

// invalidateAccount drops the cached profile after any write to the account.
func invalidateAccount(ctx context.Context, c *cache.Client, id uuid.UUID) {
	_ = c.Delete(ctx, accountCacheKey(id))
}

// GetProfile retrieves an account projection by ID with caching.
func (s *accountService) GetProfile(ctx context.Context, id uuid.UUID) (*model.PublicAccount, error) {
	// Try cache first
	if data, _ := s.cache.Get(ctx, accountCacheKey(id)); data != nil {
		var cached model.PublicAccount
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	public := account.Public()
	if payload, err := json.Marshal(public); err == nil {
		_ = s.cache.Set(ctx, accountCacheKey(id), payload, accountCacheTTL)
	}
	return &public, nil
}

// UpdateProfile applies the non-nil fields of in.
func (s *accountService) UpdateProfile(ctx context.Context, id uuid.UUID, in UpdateProfileInput) (*model.PublicAccount, error) {
	if err := ValidateInput(s.validate, in); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{}, 3)
	if in.Name != nil {
		name, err := trimmedName(*in.Name)
		if err != nil {
			return nil, err
		}
		fields["name"] = name
	}
	if in.Bio != nil {
		fields["bio"] = *in.Bio
	}
	if in.Photo != nil {
		fields["photo"] = *in.Photo
	}
	if len(fields) == 0 {
		return nil, apperrors.Validation("no profile fields to update")
	}

	if err := s.repo.Update(ctx, id, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	invalidateAccount(ctx, s.cache, id)

	return s.GetProfile(ctx, id)
}

// ListAccounts returns projections of all accounts.
func (s *accountService) ListAccounts(ctx context.Context) ([]model.PublicAccount, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]model.PublicAccount, 0, len(accounts))
	for i := range accounts {
		out = append(out, accounts[i].Public())
	}
	return out, nil
}

// DeleteAccount permanently removes an account.
func (s *accountService) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("delete account %s: %w", id, err)
	}
	invalidateAccount(ctx, s.cache, id)
	return nil
}

// SeedAccounts creates missing accounts and updates name and role of existing ones.
// Seeded accounts are created verified; passwords of existing accounts are kept.
func (s *accountService) SeedAccounts(ctx context.Context, accounts []SeedAccount) (int, error) {
	count := 0
	for _, seed := range accounts {
		if err := ValidateInput(s.validate, seed); err != nil {
			return count, fmt.Errorf("seed account %s: %w", seed.Email, err)
		}
		name, err := trimmedName(seed.Name)
		if err != nil {
			return count, fmt.Errorf("seed account %s: %w", seed.Email, err)
		}
		email := model.NormalizeEmail(seed.Email)

		// Check if account exists
		existing, err := s.repo.FindByEmail(ctx, email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return count, fmt.Errorf("seed account %s: %w", email, err)
		}

		if existing != nil {
			if err := s.repo.Update(ctx, existing.ID, map[string]interface{}{
				"name": name,
				"role": seed.Role,
			}); err != nil {
				return count, fmt.Errorf("update account %s: %w", email, err)
			}
			invalidateAccount(ctx, s.cache, existing.ID)
		} else {
			if err := checkPasswordLength("password", seed.Password); err != nil {
				return count, fmt.Errorf("seed account %s: %w", email, err)
			}
			digest, err := s.hasher.Hash(seed.Password)
			if err != nil {
				return count, err
			}
			account := &model.Account{
				Name:         name,
				Email:        email,
				PasswordHash: digest,
				Role:         seed.Role,
				Photo:        model.DefaultPhoto,
				Bio:          model.DefaultBio,
				IsVerified:   true,
			}
			if err := s.repo.Create(ctx, account); err != nil {
				return count, fmt.Errorf("create account %s: %w", email, err)
			}
		}
		count++
	}
	return count, nil
}
