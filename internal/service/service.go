// Package service holds the auth, user, post and comment operations. Every
// mutation runs the ownership check before touching the store.
package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/alphabot-ai/microblog/internal/auth"
	"github.com/alphabot-ai/microblog/internal/logging"
	"github.com/alphabot-ai/microblog/internal/model"
	"github.com/alphabot-ai/microblog/internal/store"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	minPasswordBytes = 8
	maxUsernameLen   = 50
	maxContentLen    = 5000
)

// Services bundles the stateless services built once at startup.
type Services struct {
	Auth     *AuthService
	Users    *UserService
	Posts    *PostService
	Comments *CommentService
}

type Options struct {
	CascadeUserContent bool
}

func New(st store.Store, hasher auth.Hasher, tokens TokenIssuer, opts Options, log logrus.FieldLogger) *Services {
	return &Services{
		Auth:     NewAuthService(st.Users(), hasher, tokens, log),
		Users:    NewUserService(st, hasher, opts.CascadeUserContent, log),
		Posts:    NewPostService(st, log),
		Comments: NewCommentService(st, log),
	}
}

func identity(acting model.Identity) error {
	if acting.UserID == "" {
		return fail(ErrUnauthenticated, "authentication required")
	}
	return nil
}

// active resolves acting to a stored account. Tokens outlive the account
// they were issued for, so a deleted user reads as unauthenticated.
func active(ctx context.Context, users store.UserStore, acting model.Identity) error {
	if err := identity(acting); err != nil {
		return err
	}
	if _, err := users.FindByID(ctx, acting.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(ErrUnauthenticated, "account no longer exists")
		}
		return errors.Wrap(err, "user store")
	}
	return nil
}

func logger(ctx context.Context, fallback logrus.FieldLogger) logrus.FieldLogger {
	return logging.FromContext(ctx, fallback)
}

func validateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fail(ErrValidation, "username is required")
	}
	if len(username) > maxUsernameLen {
		return "", fail(ErrValidation, "username must be at most %d characters", maxUsernameLen)
	}
	return username, nil
}

func validateEmail(email string) (string, error) {
	email = store.NormalizeEmail(email)
	if email == "" {
		return "", fail(ErrValidation, "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fail(ErrValidation, "email is invalid")
	}
	return email, nil
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fail(ErrValidation, "content is required")
	}
	if len(content) > maxContentLen {
		return "", fail(ErrValidation, "content must be at most %d characters", maxContentLen)
	}
	return content, nil
}

func mapStoreErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fail(ErrNotFound, "%s not found", what)
	case errors.Is(err, store.ErrDuplicateEmail):
		return fail(ErrDuplicate, "email already registered")
	case errors.Is(err, store.ErrDuplicateUsername):
		return fail(ErrDuplicate, "username already taken")
	default:
		return errors.Wrapf(err, "%s store", what)
	}
}
