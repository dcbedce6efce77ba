package service

import (
	"context"

	"github.com/alphabot-ai/microblog/internal/auth"
	"github.com/alphabot-ai/microblog/internal/model"
	"github.com/alphabot-ai/microblog/internal/store"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type UserService struct {
	store   store.Store
	hasher  auth.Hasher
	cascade bool
	log     logrus.FieldLogger
}

// NewUserService builds the user service. With cascade set, deleting a user
// also removes their posts, the comments on those posts and their comments.
func NewUserService(st store.Store, hasher auth.Hasher, cascade bool, log logrus.FieldLogger) *UserService {
	return &UserService{store: st, hasher: hasher, cascade: cascade, log: log}
}

func (s *UserService) Get(ctx context.Context, id string) (model.User, error) {
	u, err := s.store.Users().FindByID(ctx, id)
	return u, mapStoreErr(err, "user")
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.store.Users().Find(ctx, store.UserFilter{})
	return users, mapStoreErr(err, "user")
}

// UserUpdate is the profile patch accepted from clients. It has no password.
type UserUpdate struct {
	Username *string
	Email    *string
}

func (s *UserService) Update(ctx context.Context, id string, acting model.Identity, in UserUpdate) (model.User, error) {
	if err := s.checkSelf(ctx, id, acting); err != nil {
		return model.User{}, err
	}
	var patch store.UserPatch
	if in.Username != nil {
		v, err := validateUsername(*in.Username)
		if err != nil {
			return model.User{}, err
		}
		patch.Username = &v
	}
	if in.Email != nil {
		v, err := validateEmail(*in.Email)
		if err != nil {
			return model.User{}, err
		}
		patch.Email = &v
	}
	u, err := s.store.Users().Update(ctx, id, patch)
	if err != nil {
		return model.User{}, mapStoreErr(err, "user")
	}
	logger(ctx, s.log).WithField("user_id", id).Info("user updated")
	return u, nil
}

// ChangePassword is the only path that rewrites a password hash.
func (s *UserService) ChangePassword(ctx context.Context, id string, acting model.Identity, current, next string) error {
	if err := s.checkSelf(ctx, id, acting); err != nil {
		return err
	}
	if current == "" {
		return fail(ErrValidation, "current password is required")
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	creds, err := s.store.Users().FindCredentials(ctx, id)
	if err != nil {
		return mapStoreErr(err, "user")
	}
	if err := s.hasher.Compare(creds.PasswordHash, current); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return fail(ErrInvalidCredentials, "current password is incorrect")
		}
		return errors.Wrap(err, "compare password")
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	if err := s.store.Users().UpdatePasswordHash(ctx, id, hash); err != nil {
		return mapStoreErr(err, "user")
	}
	logger(ctx, s.log).WithField("user_id", id).Info("password changed")
	return nil
}

func (s *UserService) Delete(ctx context.Context, id string, acting model.Identity) error {
	if err := s.checkSelf(ctx, id, acting); err != nil {
		return err
	}
	if err := s.store.Users().Remove(ctx, id); err != nil {
		return mapStoreErr(err, "user")
	}
	log := logger(ctx, s.log).WithField("user_id", id)
	log.Info("user deleted")
	if !s.cascade {
		return nil
	}
	if err := s.removeContent(ctx, id); err != nil {
		log.WithError(err).Errorf("cascade after user delete failed: %+v", err)
		return err
	}
	return nil
}

// removeContent runs after the user row is gone. A failure part way leaves
// the remaining content orphaned; nothing is rolled back.
func (s *UserService) removeContent(ctx context.Context, userID string) error {
	posts, err := s.store.Posts().Find(ctx, store.PostFilter{AuthorID: userID})
	if err != nil {
		return errors.Wrap(err, "list user posts")
	}
	for _, p := range posts {
		if err := s.store.Posts().Remove(ctx, p.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return errors.Wrapf(err, "remove post %s", p.ID)
		}
		if _, err := s.store.Comments().RemoveMany(ctx, store.CommentFilter{PostID: p.ID}); err != nil {
			return errors.Wrapf(err, "remove comments of post %s", p.ID)
		}
	}
	if _, err := s.store.Comments().RemoveMany(ctx, store.CommentFilter{AuthorID: userID}); err != nil {
		return errors.Wrap(err, "remove user comments")
	}
	return nil
}

// checkSelf runs before any lookup, so another user's id is Forbidden
// whether or not it exists.
func (s *UserService) checkSelf(ctx context.Context, id string, acting model.Identity) error {
	if err := identity(acting); err != nil {
		return err
	}
	if !auth.CanMutate(acting.UserID, id) {
		logger(ctx, s.log).WithFields(logrus.Fields{"user_id": id, "acting": acting.UserID}).Warn("user change forbidden")
		return fail(ErrForbidden, "you can only modify your own account")
	}
	return nil
}
