package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"authkit/internal/model"
	"authkit/internal/repository"
)

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, account *model.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountRepository) List(ctx context.Context) ([]model.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Account), args.Error(1)
}

func (m *MockAccountRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccountRepository) ReplacePasswordHash(ctx context.Context, id uuid.UUID, currentDigest, newDigest string) error {
	args := m.Called(ctx, id, currentDigest, newDigest)
	return args.Error(0)
}

func (m *MockAccountRepository) FindByActionToken(ctx context.Context, purpose model.TokenPurpose, digest string, now time.Time) (*model.Account, error) {
	args := m.Called(ctx, purpose, digest, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountRepository) ConsumeActionToken(ctx context.Context, id uuid.UUID, purpose model.TokenPurpose, digest string, now time.Time, fields map[string]interface{}) error {
	args := m.Called(ctx, id, purpose, digest, now, fields)
	return args.Error(0)
}

func (m *MockAccountRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.AccountRepository) error) error {
	return fn(ctx, m)
}

// memRepo is an in-memory AccountRepository used for multi-step flows.
type memRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*model.Account
}

var _ repository.AccountRepository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{accounts: make(map[uuid.UUID]*model.Account)}
}

func clone(a *model.Account) *model.Account {
	c := *a
	return &c
}

func (r *memRepo) Create(_ context.Context, account *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == account.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	now := time.Now().UTC()
	account.CreatedAt, account.UpdatedAt = now, now
	r.accounts[account.ID] = clone(account)
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return clone(a), nil
}

func (r *memRepo) FindByEmail(_ context.Context, email string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = model.NormalizeEmail(email)
	for _, a := range r.accounts {
		if a.Email == email {
			return clone(a), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRepo) List(_ context.Context) ([]model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, *a)
	}
	return out, nil
}

func (r *memRepo) Update(_ context.Context, id uuid.UUID, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	return applyFields(a, fields)
}

func (r *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.accounts, id)
	return nil
}

func (r *memRepo) ReplacePasswordHash(_ context.Context, id uuid.UUID, currentDigest, newDigest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || a.PasswordHash != currentDigest {
		return gorm.ErrRecordNotFound
	}
	return applyFields(a, map[string]interface{}{"password_hash": newDigest})
}

func tokenFields(a *model.Account, purpose model.TokenPurpose) (*string, *time.Time) {
	if purpose == model.PurposeResetPassword {
		return a.ResetTokenHash, a.ResetTokenExpiresAt
	}
	return a.VerifyTokenHash, a.VerifyTokenExpiresAt
}

func tokenLive(a *model.Account, purpose model.TokenPurpose, digest string, now time.Time) bool {
	hash, expires := tokenFields(a, purpose)
	return hash != nil && *hash == digest && expires != nil && expires.After(now)
}

func (r *memRepo) FindByActionToken(_ context.Context, purpose model.TokenPurpose, digest string, now time.Time) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if tokenLive(a, purpose, digest, now) {
			return clone(a), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRepo) ConsumeActionToken(_ context.Context, id uuid.UUID, purpose model.TokenPurpose, digest string, now time.Time, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || !tokenLive(a, purpose, digest, now) {
		return gorm.ErrRecordNotFound
	}
	hashCol, expiresCol := model.TokenColumns(purpose)
	updates := map[string]interface{}{hashCol: nil, expiresCol: nil}
	for k, v := range fields {
		updates[k] = v
	}
	return applyFields(a, updates)
}

func (r *memRepo) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.AccountRepository) error) error {
	return fn(ctx, r)
}

func optString(v interface{}) *string {
	switch s := v.(type) {
	case nil:
		return nil
	case string:
		return &s
	case *string:
		return s
	}
	panic(fmt.Sprintf("unexpected string value %T", v))
}

func optTime(v interface{}) *time.Time {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		return &t
	case *time.Time:
		return t
	}
	panic(fmt.Sprintf("unexpected time value %T", v))
}

func applyFields(a *model.Account, fields map[string]interface{}) error {
	for col, v := range fields {
		switch col {
		case "name":
			a.Name = v.(string)
		case "bio":
			a.Bio = v.(string)
		case "photo":
			a.Photo = v.(string)
		case "role":
			a.Role = v.(model.Role)
		case "password_hash":
			a.PasswordHash = v.(string)
		case "is_verified":
			a.IsVerified = v.(bool)
		case "verify_token_hash":
			a.VerifyTokenHash = optString(v)
		case "verify_token_expires_at":
			a.VerifyTokenExpiresAt = optTime(v)
		case "reset_token_hash":
			a.ResetTokenHash = optString(v)
		case "reset_token_expires_at":
			a.ResetTokenExpiresAt = optTime(v)
		default:
			return fmt.Errorf("unknown column %q", col)
		}
	}
	a.UpdatedAt = time.Now().UTC()
	return nil
}

type sentNotification struct {
	Email string
	Kind  model.TokenPurpose
	Token string
}

// recordingNotifier captures plaintext tokens instead of delivering them.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, email string, kind model.TokenPurpose, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotification{Email: email, Kind: kind, Token: token})
	return nil
}

func (n *recordingNotifier) last() sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return sentNotification{}
	}
	return n.sent[len(n.sent)-1]
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// memThrottle allows one issuance per key until released.
type memThrottle struct {
	mu    sync.Mutex
	held  map[string]bool
	calls int
}

func newMemThrottle() *memThrottle {
	return &memThrottle{held: make(map[string]bool)}
}

func (t *memThrottle) key(id uuid.UUID, purpose model.TokenPurpose) string {
	return string(purpose) + ":" + id.String()
}

func (t *memThrottle) Allow(_ context.Context, id uuid.UUID, purpose model.TokenPurpose) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	k := t.key(id, purpose)
	if t.held[k] {
		return false, nil
	}
	t.held[k] = true
	return true, nil
}

func (t *memThrottle) Release(_ context.Context, id uuid.UUID, purpose model.TokenPurpose) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.held, t.key(id, purpose))
	return nil
}

var errBoom = errors.New("boom")
