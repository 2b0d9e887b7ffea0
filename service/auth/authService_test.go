// service/auth/auth_service_test.go
package authsvc

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"booklending/model"
	sessionrepo "booklending/repository/session"
	userrepo "booklending/repository/user"
	"booklending/util/hash"
	jwtutil "booklending/util/jwt"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type mockUsers struct {
	byEmailFn   func(ctx context.Context, email string) (*model.User, error)
	createFn    func(ctx context.Context, u *model.User) error
	setActiveFn func(ctx context.Context, id int64, active bool) error
}

func (m *mockUsers) ByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.byEmailFn == nil {
		return nil, sql.ErrNoRows
	}
	return m.byEmailFn(ctx, email)
}

func (m *mockUsers) Create(ctx context.Context, u *model.User) error {
	if m.createFn == nil {
		return nil
	}
	return m.createFn(ctx, u)
}

func (m *mockUsers) ByID(ctx context.Context, id int64) (*model.User, error) {
	return nil, sql.ErrNoRows
}

func (m *mockUsers) List(ctx context.Context) ([]model.User, error) { return nil, nil }

func (m *mockUsers) Update(ctx context.Context, id int64, upd userrepo.UserUpdate) (*model.User, error) {
	return nil, sql.ErrNoRows
}

func (m *mockUsers) Delete(ctx context.Context, id int64) (int64, error) { return 0, nil }

func (m *mockUsers) SetActive(ctx context.Context, id int64, active bool) error {
	if m.setActiveFn == nil {
		return nil
	}
	return m.setActiveFn(ctx, id, active)
}

func newTestService(t *testing.T, users *mockUsers) (Service, sessionrepo.Repo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := sessionrepo.New(client, time.Hour)
	return New(users, sessions, "test-secret", time.Hour), sessions
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	h, err := hash.HashPassword(plain)
	require.NoError(t, err)
	return h
}

func TestRegister_Success(t *testing.T) {
	ctx := context.Background()
	m := &mockUsers{
		createFn: func(ctx context.Context, u *model.User) error {
			u.ID = 42
			u.Active = true
			return nil
		},
	}
	svc, _ := newTestService(t, m)

	u, err := svc.Register(ctx, model.RegisterReq{
		Name:     "Ada",
		Email:    "USER@Example.COM",
		Password: "supersecret",
	})
	require.NoError(t, err)
	require.Equal(t, int64(42), u.ID)
	require.Equal(t, "user@example.com", u.Email)
	require.Equal(t, model.RoleUser, u.Role)
	require.NotEmpty(t, u.PasswordHash)
	require.NotEqual(t, "supersecret", u.PasswordHash)
}

func TestRegister_BadInput(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &mockUsers{})

	_, err := svc.Register(ctx, model.RegisterReq{Email: " ", Password: "123"})
	require.ErrorIs(t, err, ErrBadInput)
}

func TestLogin_Success(t *testing.T) {
	ctx := context.Background()
	pw := "supersecret"
	hashed := mustHash(t, pw)

	m := &mockUsers{
		byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{
				ID: 7, Email: "user@example.com", Role: model.RoleUser,
				Active: true, PasswordHash: hashed,
			}, nil
		},
	}
	svc, sessions := newTestService(t, m)

	u, tok, err := svc.Login(ctx, model.LoginReq{Email: "user@example.com", Password: pw})
	require.NoError(t, err)
	require.Equal(t, int64(7), u.ID)
	require.NotEmpty(t, tok)

	// the token is bound to a live session
	claims, err := jwtutil.ParseAuth("Bearer "+tok, "test-secret")
	require.NoError(t, err)
	sid, _ := claims["sid"].(string)
	require.NotEmpty(t, sid)
	live, err := sessions.Validate(ctx, sid)
	require.NoError(t, err)
	require.True(t, live)
}

func TestLogin_WrongPassword(t *testing.T) {
	ctx := context.Background()
	hashed := mustHash(t, "correct-password")
	m := &mockUsers{
		byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: 7, Active: true, PasswordHash: hashed, Role: model.RoleUser}, nil
		},
	}
	svc, _ := newTestService(t, m)

	_, _, err := svc.Login(ctx, model.LoginReq{Email: "user@example.com", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCreds)
}

func TestLogin_UserNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &mockUsers{})

	_, _, err := svc.Login(ctx, model.LoginReq{Email: "missing@example.com", Password: "whatever"})
	require.ErrorIs(t, err, ErrInvalidCreds)
}

func TestLogin_Deactivated(t *testing.T) {
	ctx := context.Background()
	hashed := mustHash(t, "pw123456")
	m := &mockUsers{
		byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: 7, Active: false, PasswordHash: hashed, Role: model.RoleUser}, nil
		},
	}
	svc, _ := newTestService(t, m)

	_, _, err := svc.Login(ctx, model.LoginReq{Email: "user@example.com", Password: "pw123456"})
	require.ErrorIs(t, err, ErrDeactivated)
}

func TestLogout_RevokesSession(t *testing.T) {
	ctx := context.Background()
	hashed := mustHash(t, "pw123456")
	m := &mockUsers{
		byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: 7, Active: true, PasswordHash: hashed, Role: model.RoleUser}, nil
		},
	}
	svc, sessions := newTestService(t, m)

	_, tok, err := svc.Login(ctx, model.LoginReq{Email: "user@example.com", Password: "pw123456"})
	require.NoError(t, err)
	claims, err := jwtutil.ParseAuth("Bearer "+tok, "test-secret")
	require.NoError(t, err)
	sid := claims["sid"].(string)

	require.NoError(t, svc.Logout(ctx, sid))
	live, err := sessions.Validate(ctx, sid)
	require.NoError(t, err)
	require.False(t, live)
}

func TestLogoutAll(t *testing.T) {
	ctx := context.Background()
	hashed := mustHash(t, "pw123456")
	m := &mockUsers{
		byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: 7, Active: true, PasswordHash: hashed, Role: model.RoleUser}, nil
		},
	}
	svc, _ := newTestService(t, m)

	for i := 0; i < 3; i++ {
		_, _, err := svc.Login(ctx, model.LoginReq{Email: "user@example.com", Password: "pw123456"})
		require.NoError(t, err)
	}

	n, err := svc.LogoutAll(ctx, 7)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
}

func TestSetActive_DeactivateRevokesSessions(t *testing.T) {
	ctx := context.Background()
	hashed := mustHash(t, "pw123456")
	m := &mockUsers{
		byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: 7, Active: true, PasswordHash: hashed, Role: model.RoleUser}, nil
		},
	}
	svc, sessions := newTestService(t, m)

	_, tok, err := svc.Login(ctx, model.LoginReq{Email: "user@example.com", Password: "pw123456"})
	require.NoError(t, err)
	claims, err := jwtutil.ParseAuth("Bearer "+tok, "test-secret")
	require.NoError(t, err)
	sid := claims["sid"].(string)

	require.NoError(t, svc.SetActive(ctx, 7, false))
	live, err := sessions.Validate(ctx, sid)
	require.NoError(t, err)
	require.False(t, live)
}

func TestSetActive_UnknownUser(t *testing.T) {
	ctx := context.Background()
	m := &mockUsers{
		setActiveFn: func(ctx context.Context, id int64, active bool) error { return sql.ErrNoRows },
	}
	svc, _ := newTestService(t, m)

	require.ErrorIs(t, svc.SetActive(ctx, 99, false), ErrUserNotFound)
}
