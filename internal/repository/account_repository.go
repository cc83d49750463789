package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"authkit/internal/model"
)

// AccountRepository defines account persistence operations.
// Lookups that match no row return gorm.ErrRecordNotFound; Create returns
// gorm.ErrDuplicatedKey when the email is already taken.
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	List(ctx context.Context) ([]model.Account, error)
	// Update applies a partial update keyed by column name.
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ReplacePasswordHash swaps the stored digest only if it still equals
	// currentDigest, so a change never overwrites a concurrent reset or change.
	ReplacePasswordHash(ctx context.Context, id uuid.UUID, currentDigest, newDigest string) error
	// FindByActionToken returns the account holding an unexpired action token
	// with the given digest. Within a transaction the row is locked.
	FindByActionToken(ctx context.Context, purpose model.TokenPurpose, digest string, now time.Time) (*model.Account, error)
	// ConsumeActionToken clears the token and applies fields in one conditional
	// update. It succeeds only if the token is still stored and unexpired.
	ConsumeActionToken(ctx context.Context, id uuid.UUID, purpose model.TokenPurpose, digest string, now time.Time, fields map[string]interface{}) error
	// Transaction methods
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo AccountRepository) error) error
}

type accountRepository struct {
	db   *gorm.DB
	inTx bool
}

// NewAccountRepository creates a new account repository.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// Create creates a new account.
func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// FindByID finds an account by ID.
func (r *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByEmail finds an account by its normalized email.
func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).Where("email = ?", model.NormalizeEmail(email)).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// List lists all accounts, oldest first.
func (r *accountRepository) List(ctx context.Context) ([]model.Account, error) {
	var accounts []model.Account
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// Update applies fields to the account with the given ID.
func (r *accountRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Account{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete permanently removes an account.
func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Account{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ReplacePasswordHash performs a compare-and-swap on password_hash.
func (r *accountRepository) ReplacePasswordHash(ctx context.Context, id uuid.UUID, currentDigest, newDigest string) error {
	res := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("id = ? AND password_hash = ?", id, currentDigest).
		Update("password_hash", newDigest)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByActionToken finds the holder of an unexpired action token.
func (r *accountRepository) FindByActionToken(ctx context.Context, purpose model.TokenPurpose, digest string, now time.Time) (*model.Account, error) {
	hashCol, expiresCol := model.TokenColumns(purpose)
	q := r.db.WithContext(ctx)
	if r.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var account model.Account
	err := q.Where(hashCol+" = ? AND "+expiresCol+" > ?", digest, now).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// ConsumeActionToken clears an action token, applying fields in the same statement.
func (r *accountRepository) ConsumeActionToken(ctx context.Context, id uuid.UUID, purpose model.TokenPurpose, digest string, now time.Time, fields map[string]interface{}) error {
	hashCol, expiresCol := model.TokenColumns(purpose)
	updates := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		updates[k] = v
	}
	updates[hashCol] = nil
	updates[expiresCol] = nil

	res := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("id = ? AND "+hashCol+" = ? AND "+expiresCol+" > ?", id, digest, now).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// WithTransaction executes a function within a database transaction.
func (r *accountRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo AccountRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &accountRepository{db: tx, inTx: true}
		return fn(ctx, txRepo)
	})
}
