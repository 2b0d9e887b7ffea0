package usersvc

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"booklending/model"
	userrepo "booklending/repository/user"
	"booklending/util/hash"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrBadInput   = errors.New("bad input")
	ErrEmailTaken = userrepo.ErrEmailTaken
	ErrHasLoans   = userrepo.ErrHasLoans
)

// UpdateReq carries partial profile updates. Password is plain text and is
// hashed here; nil fields keep the stored value.
type UpdateReq struct {
	Name     *string
	Email    *string
	Phone    *string
	Role     *string
	Password *string
}

type Service interface {
	// Profile returns the caller's own record.
	Profile(ctx context.Context, userID int64) (*model.User, error)

	List(ctx context.Context) ([]model.User, error)
	Get(ctx context.Context, id int64) (*model.User, error)
	Update(ctx context.Context, id int64, req UpdateReq) (*model.User, error)
	// Delete hard-deletes a member. Refused while loan records reference
	// them; deactivate instead to lock an account with history.
	Delete(ctx context.Context, id int64) error
}

type service struct{ ur userrepo.Repo }

func New(ur userrepo.Repo) Service { return &service{ur: ur} }

func (s *service) Profile(ctx context.Context, userID int64) (*model.User, error) {
	return s.Get(ctx, userID)
}

func (s *service) List(ctx context.Context) ([]model.User, error) {
	return s.ur.List(ctx)
}

func (s *service) Get(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.ur.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *service) Update(ctx context.Context, id int64, req UpdateReq) (*model.User, error) {
	upd := userrepo.UserUpdate{
		Name:  req.Name,
		Phone: req.Phone,
	}
	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if email == "" {
			return nil, ErrBadInput
		}
		upd.Email = &email
	}
	if req.Role != nil {
		switch *req.Role {
		case model.RoleUser, model.RoleLibrarian, model.RoleAdmin:
			upd.Role = req.Role
		default:
			return nil, ErrBadInput
		}
	}
	if req.Password != nil {
		if len(*req.Password) < 6 {
			return nil, ErrBadInput
		}
		hashed, err := hash.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		upd.PasswordHash = &hashed
	}

	u, err := s.ur.Update(ctx, id, upd)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	n, err := s.ur.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
