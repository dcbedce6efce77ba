package service

import (
	"context"

	"github.com/alphabot-ai/microblog/internal/auth"
	"github.com/alphabot-ai/microblog/internal/model"
	"github.com/alphabot-ai/microblog/internal/store"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// TokenIssuer is the part of auth.Tokens the services need.
type TokenIssuer interface {
	Issue(model.Identity) (model.Token, error)
	Verify(string) (model.Identity, error)
}

type AuthService struct {
	users  store.UserStore
	hasher auth.Hasher
	tokens TokenIssuer
	log    logrus.FieldLogger
}

func NewAuthService(users store.UserStore, hasher auth.Hasher, tokens TokenIssuer, log logrus.FieldLogger) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens, log: log}
}

func validatePassword(password string) error {
	switch {
	case password == "":
		return fail(ErrValidation, "password is required")
	case len(password) < minPasswordBytes:
		return fail(ErrValidation, "password must be at least %d characters", minPasswordBytes)
	case len(password) > auth.MaxPasswordBytes:
		return fail(ErrValidation, "password must be at most %d bytes", auth.MaxPasswordBytes)
	}
	return nil
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (model.User, error) {
	username, err := validateUsername(username)
	if err != nil {
		return model.User{}, err
	}
	email, err = validateEmail(email)
	if err != nil {
		return model.User{}, err
	}
	if err := validatePassword(password); err != nil {
		return model.User{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return model.User{}, errors.Wrap(err, "hash password")
	}
	user := model.User{Username: username, Email: email}
	if err := s.users.Register(ctx, &user, hash); err != nil {
		return model.User{}, mapStoreErr(err, "user")
	}
	logger(ctx, s.log).WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

// Login keeps NotFound and InvalidCredentials apart so callers can tell an
// unknown email from a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (model.Token, model.User, error) {
	email = store.NormalizeEmail(email)
	if email == "" || password == "" {
		return model.Token{}, model.User{}, fail(ErrValidation, "email and password are required")
	}
	user, creds, err := s.users.FindCredentialsByEmail(ctx, email)
	if err != nil {
		return model.Token{}, model.User{}, mapStoreErr(err, "user")
	}
	if err := s.hasher.Compare(creds.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			logger(ctx, s.log).WithField("user_id", user.ID).Warn("login rejected: wrong password")
			return model.Token{}, model.User{}, fail(ErrInvalidCredentials, "invalid credentials")
		}
		return model.Token{}, model.User{}, errors.Wrap(err, "compare password")
	}
	tok, err := s.tokens.Issue(model.Identity{UserID: user.ID, Username: user.Username})
	if err != nil {
		return model.Token{}, model.User{}, err
	}
	logger(ctx, s.log).WithField("user_id", user.ID).Info("user logged in")
	return tok, user, nil
}

// Authenticate turns a raw bearer token into the acting identity.
func (s *AuthService) Authenticate(ctx context.Context, bearer string) (model.Identity, error) {
	if bearer == "" {
		return model.Identity{}, fail(ErrUnauthenticated, "missing bearer token")
	}
	id, err := s.tokens.Verify(bearer)
	if err != nil {
		logger(ctx, s.log).Warn("rejected bearer token")
		return model.Identity{}, fail(ErrUnauthenticated, "invalid or expired token")
	}
	if err := active(ctx, s.users, id); err != nil {
		logger(ctx, s.log).WithField("user_id", id.UserID).Warn("rejected token for missing account")
		return model.Identity{}, err
	}
	return id, nil
}
