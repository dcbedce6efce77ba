package store

import (
	"context"
	"errors"
	"strings"

	"github.com/alphabot-ai/microblog/internal/model"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrDuplicateEmail    = errors.New("duplicate email")
)

// Getter loads a single entity by id. Missing ids return ErrNotFound.
type Getter[T any] interface {
	FindByID(ctx context.Context, id string) (T, error)
}

// Finder lists entities matching a filter, newest first. A zero filter matches everything.
type Finder[T, F any] interface {
	Find(ctx context.Context, filter F) ([]T, error)
}

// Creator persists a new entity and fills in its id and timestamps.
type Creator[T any] interface {
	Create(ctx context.Context, entity *T) error
}

// Updater applies a partial patch and returns the stored result.
type Updater[T, P any] interface {
	Update(ctx context.Context, id string, patch P) (T, error)
}

type Remover interface {
	Remove(ctx context.Context, id string) error
}

type UserFilter struct {
	Username string
	Email    string
}

// UserPatch has no password field; password changes go through UpdatePasswordHash.
type UserPatch struct {
	Username *string
	Email    *string
}

type PostFilter struct {
	AuthorID string
}

type PostPatch struct {
	Content *string
}

type CommentFilter struct {
	PostID   string
	AuthorID string
}

type CommentPatch struct {
	Content *string
}

type UserStore interface {
	Getter[model.User]
	Finder[model.User, UserFilter]
	Updater[model.User, UserPatch]
	Remover
	Register(ctx context.Context, user *model.User, passwordHash string) error
	FindCredentialsByEmail(ctx context.Context, email string) (model.User, model.Credentials, error)
	FindCredentials(ctx context.Context, userID string) (model.Credentials, error)
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
}

type PostStore interface {
	Getter[model.Post]
	Finder[model.Post, PostFilter]
	Creator[model.Post]
	Updater[model.Post, PostPatch]
	Remover
}

type CommentStore interface {
	Getter[model.Comment]
	Finder[model.Comment, CommentFilter]
	Creator[model.Comment]
	Updater[model.Comment, CommentPatch]
	Remover
	RemoveMany(ctx context.Context, filter CommentFilter) (int64, error)
}

type Store interface {
	Users() UserStore
	Posts() PostStore
	Comments() CommentStore
	Close() error
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
