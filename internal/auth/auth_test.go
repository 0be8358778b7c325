package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"squadmarket/internal/store"
)

type fakeUserStore struct {
	users  map[string]*store.User
	nextID int64

	// beforeCreate, when set, runs before CreateUser looks at the
	// map. Tests use it to slip a concurrent registration in.
	beforeCreate func()
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*store.User)}
}

func (f *fakeUserStore) UserByEmail(_ context.Context, email string) (*store.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserStore) CreateUser(_ context.Context, email, passwordHash string) (*store.User, error) {
	if f.beforeCreate != nil {
		f.beforeCreate()
	}
	if _, ok := f.users[email]; ok {
		return nil, store.ErrEmailTaken
	}
	f.nextID++
	u := &store.User{ID: f.nextID, Email: email, PasswordHash: passwordHash}
	f.users[email] = u
	return u, nil
}

func testService(f *fakeUserStore) *Service {
	return NewService(f, "test-secret", time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email registers", func(t *testing.T) {
		f := newFakeUserStore()
		user, isNew, err := testService(f).Authenticate(ctx, "ada@example.com", "hunter22")
		require.NoError(t, err)
		assert.True(t, isNew)
		assert.Equal(t, "ada@example.com", user.Email)
		assert.NotEqual(t, "hunter22", user.PasswordHash, "password must be stored hashed")
	})

	t.Run("second login matches the stored hash", func(t *testing.T) {
		f := newFakeUserStore()
		svc := testService(f)
		_, _, err := svc.Authenticate(ctx, "ada@example.com", "hunter22")
		require.NoError(t, err)

		user, isNew, err := svc.Authenticate(ctx, "ada@example.com", "hunter22")
		require.NoError(t, err)
		assert.False(t, isNew)
		assert.Equal(t, int64(1), user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newFakeUserStore()
		svc := testService(f)
		_, _, err := svc.Authenticate(ctx, "ada@example.com", "hunter22")
		require.NoError(t, err)

		_, _, err = svc.Authenticate(ctx, "ada@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("registration race falls back to the winner's row", func(t *testing.T) {
		f := newFakeUserStore()
		hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
		require.NoError(t, err)
		f.beforeCreate = func() {
			f.users["ada@example.com"] = &store.User{ID: 7, Email: "ada@example.com", PasswordHash: string(hash)}
		}

		user, _, err := testService(f).Authenticate(ctx, "ada@example.com", "hunter22")
		require.NoError(t, err)
		assert.Equal(t, int64(7), user.ID)
	})

	t.Run("registration race with a different password", func(t *testing.T) {
		f := newFakeUserStore()
		hash, err := bcrypt.GenerateFromPassword([]byte("other-password"), bcrypt.MinCost)
		require.NoError(t, err)
		f.beforeCreate = func() {
			f.users["ada@example.com"] = &store.User{ID: 7, Email: "ada@example.com", PasswordHash: string(hash)}
		}

		_, _, err = testService(f).Authenticate(ctx, "ada@example.com", "hunter22")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestTokenRoundtrip(t *testing.T) {
	svc := testService(newFakeUserStore())
	user := &store.User{ID: 42, Email: "ada@example.com"}

	token, err := svc.MintToken(user)
	require.NoError(t, err)

	userID, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestVerifyTokenRejects(t *testing.T) {
	svc := testService(newFakeUserStore())
	user := &store.User{ID: 42, Email: "ada@example.com"}

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.VerifyToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewService(newFakeUserStore(), "different-secret", time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
		token, err := other.MintToken(user)
		require.NoError(t, err)

		_, err = svc.VerifyToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("tampered payload", func(t *testing.T) {
		token, err := svc.MintToken(user)
		require.NoError(t, err)

		_, err = svc.VerifyToken(token + "x")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		short := NewService(newFakeUserStore(), "test-secret", -time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
		token, err := short.MintToken(user)
		require.NoError(t, err)

		_, err = svc.VerifyToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
