package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/xxxsen/smartnote/internal/model"
	appErr "github.com/xxxsen/smartnote/internal/pkg/errors"
	"github.com/xxxsen/smartnote/internal/pkg/jwt"
	"github.com/xxxsen/smartnote/internal/pkg/password"
	"github.com/xxxsen/smartnote/internal/pkg/timeutil"
)

var ErrRegisterDisabled = fmt.Errorf("user register disabled: %w", appErr.ErrForbidden)

type AuthService struct {
	users         UserStore
	jwtSecret     []byte
	jwtTTL        time.Duration
	allowRegister bool
}

func NewAuthService(users UserStore, secret []byte, ttl time.Duration, allowRegister bool) *AuthService {
	return &AuthService{users: users, jwtSecret: secret, jwtTTL: ttl, allowRegister: allowRegister}
}

func (s *AuthService) Register(ctx context.Context, email, plainPassword string) (*model.User, string, error) {
	if !s.allowRegister {
		return nil, "", ErrRegisterDisabled
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, "", err
	}
	if err := password.Validate(plainPassword); err != nil {
		return nil, "", fmt.Errorf("%w: %v", appErr.ErrInvalid, err)
	}
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, "", err
	}
	now := timeutil.NowUnix()
	user := &model.User{
		ID:           newID(),
		Email:        email,
		PasswordHash: hash,
		Ctime:        now,
		Mtime:        now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}
	token, err := jwt.GenerateToken(user.ID, user.Email, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, plainPassword string) (*model.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || plainPassword == "" {
		return nil, "", appErr.ErrUnauthorized
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return nil, "", appErr.ErrUnauthorized
		}
		return nil, "", err
	}
	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		return nil, "", appErr.ErrUnauthorized
	}
	token, err := jwt.GenerateToken(user.ID, user.Email, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("invalid email: %w", appErr.ErrInvalid)
	}
	return email, nil
}
