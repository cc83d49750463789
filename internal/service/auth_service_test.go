package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"authkit/internal/auth"
	apperrors "authkit/internal/errors"
	"authkit/internal/model"
)

func testCookie() auth.SessionCookie {
	return auth.NewSessionCookie(time.Hour, true, http.SameSiteNoneMode, "")
}

func newTestAuthService(repo *memRepo) (AuthService, *auth.TokenService) {
	tokens := auth.NewTokenService("test-secret", time.Hour)
	svc := NewAuthService(repo, auth.NewBcryptHasher(bcrypt.MinCost), tokens, testCookie(), zerolog.Nop())
	return svc, tokens
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name        string
		input       RegisterInput
		setup       func(repo *memRepo)
		expectedErr error
	}{
		{
			name:  "successful registration",
			input: RegisterInput{Name: "Amy", Email: "amy@x.com", Password: "secret1"},
		},
		{
			name:        "missing name",
			input:       RegisterInput{Email: "amy@x.com", Password: "secret1"},
			expectedErr: apperrors.ErrValidation,
		},
		{
			name:        "missing email",
			input:       RegisterInput{Name: "Amy", Password: "secret1"},
			expectedErr: apperrors.ErrValidation,
		},
		{
			name:        "password too short",
			input:       RegisterInput{Name: "Amy", Email: "amy@x.com", Password: "12345"},
			expectedErr: apperrors.ErrValidation,
		},
		{
			name:        "whitespace-only name",
			input:       RegisterInput{Name: "   ", Email: "amy@x.com", Password: "secret1"},
			expectedErr: apperrors.ErrValidation,
		},
		{
			name:        "password too long for bcrypt",
			input:       RegisterInput{Name: "Amy", Email: "amy@x.com", Password: strings.Repeat("a", 73)},
			expectedErr: apperrors.ErrValidation,
		},
		{
			name:        "invalid email",
			input:       RegisterInput{Name: "Amy", Email: "not-an-email", Password: "secret1"},
			expectedErr: apperrors.ErrValidation,
		},
		{
			name:  "email already registered with different case",
			input: RegisterInput{Name: "Amy", Email: "AMY@x.com", Password: "secret1"},
			setup: func(repo *memRepo) {
				_ = repo.Create(context.Background(), &model.Account{Name: "Amy", Email: "amy@x.com", PasswordHash: "x"})
			},
			expectedErr: apperrors.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			if tt.setup != nil {
				tt.setup(repo)
			}
			svc, tokens := newTestAuthService(repo)

			session, err := svc.Register(context.Background(), tt.input)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, session)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "amy@x.com", session.Account.Email)
			assert.Equal(t, model.RoleUser, session.Account.Role)
			assert.False(t, session.Account.IsVerified)
			assert.Equal(t, model.DefaultBio, session.Account.Bio)
			assert.Equal(t, model.DefaultPhoto, session.Account.Photo)

			id, err := tokens.Verify(session.Token)
			require.NoError(t, err)
			assert.Equal(t, session.Account.ID, id)

			stored, err := repo.FindByID(context.Background(), id)
			require.NoError(t, err)
			assert.NotEqual(t, tt.input.Password, stored.PasswordHash)
			assert.NotEmpty(t, stored.PasswordHash)
		})
	}
}

func TestAuthService_RegisterTrimsName(t *testing.T) {
	svc, _ := newTestAuthService(newMemRepo())

	session, err := svc.Register(context.Background(), RegisterInput{Name: "  Amy Pond ", Email: "amy@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Amy Pond", session.Account.Name)
}

func TestAuthService_LoginRejectsSuffixPastBcryptLimit(t *testing.T) {
	svc, _ := newTestAuthService(newMemRepo())
	password := strings.Repeat("p", auth.MaxPasswordBytes)

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Amy", Email: "amy@x.com", Password: password})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginInput{Email: "amy@x.com", Password: password + "DIFFERENT"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = svc.Login(context.Background(), LoginInput{Email: "amy@x.com", Password: password})
	assert.NoError(t, err)
}

func TestAuthService_RegisterProjectionHasNoDigest(t *testing.T) {
	svc, _ := newTestAuthService(newMemRepo())

	session, err := svc.Register(context.Background(), RegisterInput{Name: "Amy", Email: "amy@x.com", Password: "secret1"})
	require.NoError(t, err)

	body, err := json.Marshal(session.Account)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "$2a$")
	assert.NotContains(t, strings.ToLower(string(body)), "password")
	assert.NotContains(t, strings.ToLower(string(body)), "token")
}

func TestAuthService_RegisterTwice(t *testing.T) {
	svc, _ := newTestAuthService(newMemRepo())
	in := RegisterInput{Name: "Amy", Email: "amy@x.com", Password: "secret1"}

	_, err := svc.Register(context.Background(), in)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestAuthService_RegisterDuplicateKeyRace(t *testing.T) {
	repo := new(MockAccountRepository)
	repo.On("FindByEmail", mock.Anything, "amy@x.com").Return(nil, gorm.ErrRecordNotFound)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*model.Account")).Return(gorm.ErrDuplicatedKey)

	svc := NewAuthService(repo, auth.NewBcryptHasher(bcrypt.MinCost), auth.NewTokenService("s", time.Hour), testCookie(), zerolog.Nop())
	_, err := svc.Register(context.Background(), RegisterInput{Name: "Amy", Email: "amy@x.com", Password: "secret1"})

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	repo.AssertExpectations(t)
}

func TestAuthService_RegisterRepositoryFailure(t *testing.T) {
	repo := new(MockAccountRepository)
	repo.On("FindByEmail", mock.Anything, "amy@x.com").Return(nil, errBoom)

	svc := NewAuthService(repo, auth.NewBcryptHasher(bcrypt.MinCost), auth.NewTokenService("s", time.Hour), testCookie(), zerolog.Nop())
	_, err := svc.Register(context.Background(), RegisterInput{Name: "Amy", Email: "amy@x.com", Password: "secret1"})

	assert.ErrorIs(t, err, errBoom)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Login(t *testing.T) {
	repo := newMemRepo()
	svc, tokens := newTestAuthService(repo)
	registered, err := svc.Register(context.Background(), RegisterInput{Name: "Amy", Email: "amy@x.com", Password: "secret1"})
	require.NoError(t, err)

	tests := []struct {
		name        string
		input       LoginInput
		expectedErr error
	}{
		{
			name:  "successful login",
			input: LoginInput{Email: "amy@x.com", Password: "secret1"},
		},
		{
			name:  "email is case-insensitive",
			input: LoginInput{Email: "Amy@X.com", Password: "secret1"},
		},
		{
			name:        "unknown email",
			input:       LoginInput{Email: "bob@x.com", Password: "secret1"},
			expectedErr: apperrors.ErrNotFound,
		},
		{
			name:        "wrong password",
			input:       LoginInput{Email: "amy@x.com", Password: "secret2"},
			expectedErr: apperrors.ErrUnauthorized,
		},
		{
			name:        "missing password",
			input:       LoginInput{Email: "amy@x.com"},
			expectedErr: apperrors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := svc.Login(context.Background(), tt.input)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, session)
				return
			}
			require.NoError(t, err)
			id, err := tokens.Verify(session.Token)
			require.NoError(t, err)
			assert.Equal(t, registered.Account.ID, id)
		})
	}
}

func TestAuthService_LoginMalformedDigest(t *testing.T) {
	repo := new(MockAccountRepository)
	repo.On("FindByEmail", mock.Anything, "amy@x.com").
		Return(&model.Account{ID: uuid.New(), Email: "amy@x.com", PasswordHash: "garbage"}, nil)

	svc := NewAuthService(repo, auth.NewBcryptHasher(bcrypt.MinCost), auth.NewTokenService("s", time.Hour), testCookie(), zerolog.Nop())
	_, err := svc.Login(context.Background(), LoginInput{Email: "amy@x.com", Password: "secret1"})

	assert.ErrorIs(t, err, auth.ErrMalformedDigest)
	assert.NotErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestAuthService_SessionCookieRoundTrip(t *testing.T) {
	svc, _ := newTestAuthService(newMemRepo())
	session, err := svc.Register(context.Background(), RegisterInput{Name: "Amy", Email: "amy@x.com", Password: "secret1"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	svc.StartSession(rec, session)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range (&http.Response{Header: rec.Header()}).Cookies() {
		req.AddCookie(c)
	}
	id, ok := svc.CurrentSession(req)
	assert.True(t, ok)
	assert.Equal(t, session.Account.ID, id)
}

func TestAuthService_CurrentSessionAbsent(t *testing.T) {
	svc, _ := newTestAuthService(newMemRepo())

	t.Run("no cookie", func(t *testing.T) {
		_, ok := svc.CurrentSession(httptest.NewRequest(http.MethodGet, "/", nil))
		assert.False(t, ok)
	})

	t.Run("garbage cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "garbage"})
		_, ok := svc.CurrentSession(req)
		assert.False(t, ok)
	})

	t.Run("token signed with another key", func(t *testing.T) {
		other := auth.NewTokenService("other-secret", time.Hour)
		token, _, err := other.Issue(uuid.New())
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
		_, ok := svc.CurrentSession(req)
		assert.False(t, ok)
	})
}

func TestAuthService_VerifySessionWrapsUnauthenticated(t *testing.T) {
	svc, _ := newTestAuthService(newMemRepo())

	_, err := svc.VerifySession("garbage")
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestAuthService_LogoutIsIdempotent(t *testing.T) {
	svc, _ := newTestAuthService(newMemRepo())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		svc.Logout(rec)
		cookies := (&http.Response{Header: rec.Header()}).Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, auth.SessionCookieName, cookies[0].Name)
		assert.Equal(t, -1, cookies[0].MaxAge)
	}
}
