package usersvc_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"booklending/model"
	userrepo "booklending/repository/user"
	usersvc "booklending/service/user"
	"booklending/util/hash"
)

type repoMock struct {
	byIDFn   func(ctx context.Context, id int64) (*model.User, error)
	listFn   func(ctx context.Context) ([]model.User, error)
	updateFn func(ctx context.Context, id int64, upd userrepo.UserUpdate) (*model.User, error)
	deleteFn func(ctx context.Context, id int64) (int64, error)
}

func (m *repoMock) Create(ctx context.Context, u *model.User) error { return nil }
func (m *repoMock) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, sql.ErrNoRows
}
func (m *repoMock) ByID(ctx context.Context, id int64) (*model.User, error) {
	return m.byIDFn(ctx, id)
}
func (m *repoMock) List(ctx context.Context) ([]model.User, error) { return m.listFn(ctx) }
func (m *repoMock) Update(ctx context.Context, id int64, upd userrepo.UserUpdate) (*model.User, error) {
	return m.updateFn(ctx, id, upd)
}
func (m *repoMock) Delete(ctx context.Context, id int64) (int64, error) { return m.deleteFn(ctx, id) }
func (m *repoMock) SetActive(ctx context.Context, id int64, active bool) error {
	return nil
}

func strp(s string) *string { return &s }

func TestProfile(t *testing.T) {
	m := &repoMock{
		byIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id, Name: "Ada", Role: model.RoleUser}, nil
		},
	}
	u, err := usersvc.New(m).Profile(context.Background(), 7)
	if err != nil || u.ID != 7 {
		t.Fatalf("got %+v err=%v; want id=7", u, err)
	}
}

func TestGet_NotFound(t *testing.T) {
	m := &repoMock{
		byIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return nil, sql.ErrNoRows
		},
	}
	_, err := usersvc.New(m).Get(context.Background(), 99)
	if !errors.Is(err, usersvc.ErrNotFound) {
		t.Fatalf("got %v; want ErrNotFound", err)
	}
}

func TestUpdate_HashesPasswordAndLowercasesEmail(t *testing.T) {
	var got userrepo.UserUpdate
	m := &repoMock{
		updateFn: func(ctx context.Context, id int64, upd userrepo.UserUpdate) (*model.User, error) {
			got = upd
			return &model.User{ID: id}, nil
		},
	}
	_, err := usersvc.New(m).Update(context.Background(), 7, usersvc.UpdateReq{
		Email:    strp("  NEW@Example.COM "),
		Password: strp("supersecret"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Email == nil || *got.Email != "new@example.com" {
		t.Fatalf("email not normalized: %v", got.Email)
	}
	if got.PasswordHash == nil || *got.PasswordHash == "supersecret" {
		t.Fatal("password not hashed")
	}
	if !hash.Check(*got.PasswordHash, "supersecret") {
		t.Fatal("stored hash does not verify")
	}
}

func TestUpdate_RejectsBadInput(t *testing.T) {
	s := usersvc.New(&repoMock{})
	ctx := context.Background()

	if _, err := s.Update(ctx, 7, usersvc.UpdateReq{Role: strp("root")}); !errors.Is(err, usersvc.ErrBadInput) {
		t.Fatalf("got %v; want ErrBadInput for unknown role", err)
	}
	if _, err := s.Update(ctx, 7, usersvc.UpdateReq{Password: strp("123")}); !errors.Is(err, usersvc.ErrBadInput) {
		t.Fatalf("got %v; want ErrBadInput for short password", err)
	}
	if _, err := s.Update(ctx, 7, usersvc.UpdateReq{Email: strp("  ")}); !errors.Is(err, usersvc.ErrBadInput) {
		t.Fatalf("got %v; want ErrBadInput for blank email", err)
	}
}

func TestUpdate_EmailTaken(t *testing.T) {
	m := &repoMock{
		updateFn: func(ctx context.Context, id int64, upd userrepo.UserUpdate) (*model.User, error) {
			return nil, userrepo.ErrEmailTaken
		},
	}
	_, err := usersvc.New(m).Update(context.Background(), 7, usersvc.UpdateReq{Email: strp("a@b.c")})
	if !errors.Is(err, usersvc.ErrEmailTaken) {
		t.Fatalf("got %v; want ErrEmailTaken", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	m := &repoMock{
		deleteFn: func(ctx context.Context, id int64) (int64, error) { return 1, nil },
	}
	if err := usersvc.New(m).Delete(ctx, 7); err != nil {
		t.Fatal(err)
	}

	m.deleteFn = func(ctx context.Context, id int64) (int64, error) { return 0, nil }
	if err := usersvc.New(m).Delete(ctx, 7); !errors.Is(err, usersvc.ErrNotFound) {
		t.Fatalf("got %v; want ErrNotFound", err)
	}

	m.deleteFn = func(ctx context.Context, id int64) (int64, error) { return 0, userrepo.ErrHasLoans }
	if err := usersvc.New(m).Delete(ctx, 7); !errors.Is(err, usersvc.ErrHasLoans) {
		t.Fatalf("got %v; want ErrHasLoans", err)
	}
}

func TestList(t *testing.T) {
	m := &repoMock{
		listFn: func(ctx context.Context) ([]model.User, error) {
			return []model.User{{ID: 1}, {ID: 2}}, nil
		},
	}
	users, err := usersvc.New(m).List(context.Background())
	if err != nil || len(users) != 2 {
		t.Fatalf("got %d users err=%v; want 2", len(users), err)
	}
}
