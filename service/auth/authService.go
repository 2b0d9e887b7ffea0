package authsvc

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"booklending/model"
	sessionrepo "booklending/repository/session"
	userrepo "booklending/repository/user"
	"booklending/util/hash"
	jwtutil "booklending/util/jwt"

	"github.com/google/uuid"
)

var (
	ErrEmailTaken   = userrepo.ErrEmailTaken
	ErrBadInput     = errors.New("bad input")
	ErrInvalidCreds = errors.New("invalid credentials")
	ErrDeactivated  = errors.New("account is deactivated")
	ErrUserNotFound = errors.New("user not found")
)

type Service interface {
	Register(ctx context.Context, req model.RegisterReq) (*model.User, error)
	// Login verifies credentials, records a revocable session and issues
	// a token bound to it.
	Login(ctx context.Context, req model.LoginReq) (*model.User, string, error)
	Logout(ctx context.Context, sessionID string) error
	LogoutAll(ctx context.Context, userID int64) (int64, error)
	// SetActive flips a member's active flag. Deactivating also revokes
	// every live session, so outstanding tokens stop working at once.
	SetActive(ctx context.Context, userID int64, active bool) error
}

type service struct {
	ur         userrepo.Repo
	sessions   sessionrepo.Repo
	secret     string
	sessionTTL time.Duration
}

func New(ur userrepo.Repo, sessions sessionrepo.Repo, secret string, sessionTTL time.Duration) Service {
	return &service{ur: ur, sessions: sessions, secret: secret, sessionTTL: sessionTTL}
}

func (s *service) Register(ctx context.Context, req model.RegisterReq) (*model.User, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || len(req.Password) < 6 {
		return nil, ErrBadInput
	}
	role := req.Role
	if role == "" {
		role = model.RoleUser
	}

	hashed, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Name:         req.Name,
		Email:        email,
		Phone:        req.Phone,
		Role:         role,
		PasswordHash: hashed,
	}
	if err := s.ur.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Login(ctx context.Context, req model.LoginReq) (*model.User, string, error) {
	u, err := s.ur.ByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrInvalidCreds
		}
		return nil, "", err
	}
	if !u.Active {
		return nil, "", ErrDeactivated
	}
	if !hash.Check(u.PasswordHash, req.Password) {
		return nil, "", ErrInvalidCreds
	}

	sid := uuid.NewString()
	if err := s.sessions.Create(ctx, sid, u.ID, s.sessionTTL); err != nil {
		return nil, "", err
	}
	token, err := jwtutil.Issue(s.secret, u.ID, u.Role, sid, s.sessionTTL)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	_, err := s.sessions.Delete(ctx, sessionID)
	return err
}

func (s *service) LogoutAll(ctx context.Context, userID int64) (int64, error) {
	return s.sessions.DeleteAllForUser(ctx, userID)
}

func (s *service) SetActive(ctx context.Context, userID int64, active bool) error {
	if err := s.ur.SetActive(ctx, userID, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if !active {
		if _, err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}
