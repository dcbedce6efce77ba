package service

import (
	"context"

	"github.com/alphabot-ai/microblog/internal/auth"
	"github.com/alphabot-ai/microblog/internal/model"
	"github.com/alphabot-ai/microblog/internal/store"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type PostService struct {
	users    store.UserStore
	posts    store.PostStore
	comments store.CommentStore
	log      logrus.FieldLogger
}

func NewPostService(st store.Store, log logrus.FieldLogger) *PostService {
	return &PostService{users: st.Users(), posts: st.Posts(), comments: st.Comments(), log: log}
}

// Create stores a post authored by the acting identity.
func (s *PostService) Create(ctx context.Context, acting model.Identity, content string) (model.Post, error) {
	if err := active(ctx, s.users, acting); err != nil {
		return model.Post{}, err
	}
	content, err := validateContent(content)
	if err != nil {
		return model.Post{}, err
	}
	post := model.Post{AuthorID: acting.UserID, Content: content}
	if err := s.posts.Create(ctx, &post); err != nil {
		return model.Post{}, mapStoreErr(err, "post")
	}
	logger(ctx, s.log).WithFields(logrus.Fields{"post_id": post.ID, "user_id": acting.UserID}).Info("post created")
	return post, nil
}

func (s *PostService) Get(ctx context.Context, id string) (model.Post, error) {
	p, err := s.posts.FindByID(ctx, id)
	return p, mapStoreErr(err, "post")
}

func (s *PostService) List(ctx context.Context) ([]model.Post, error) {
	posts, err := s.posts.Find(ctx, store.PostFilter{})
	return posts, mapStoreErr(err, "post")
}

func (s *PostService) ListByAuthor(ctx context.Context, authorID string) ([]model.Post, error) {
	if authorID == "" {
		return nil, fail(ErrValidation, "user id is required")
	}
	posts, err := s.posts.Find(ctx, store.PostFilter{AuthorID: authorID})
	return posts, mapStoreErr(err, "post")
}

func (s *PostService) Update(ctx context.Context, id string, acting model.Identity, content string) (model.Post, error) {
	if _, err := s.owned(ctx, id, acting); err != nil {
		return model.Post{}, err
	}
	content, err := validateContent(content)
	if err != nil {
		return model.Post{}, err
	}
	p, err := s.posts.Update(ctx, id, store.PostPatch{Content: &content})
	if err != nil {
		return model.Post{}, mapStoreErr(err, "post")
	}
	logger(ctx, s.log).WithField("post_id", id).Info("post updated")
	return p, nil
}

// Delete removes the post and then its comments. The two steps are not a
// transaction: when the second fails the post stays deleted, the error is
// logged and returned as internal.
func (s *PostService) Delete(ctx context.Context, id string, acting model.Identity) error {
	if _, err := s.owned(ctx, id, acting); err != nil {
		return err
	}
	if err := s.posts.Remove(ctx, id); err != nil {
		return mapStoreErr(err, "post")
	}
	log := logger(ctx, s.log).WithField("post_id", id)
	n, err := s.comments.RemoveMany(ctx, store.CommentFilter{PostID: id})
	if err != nil {
		err = errors.Wrapf(err, "remove comments of deleted post %s", id)
		log.WithError(err).Errorf("comment cascade failed: %+v", err)
		return err
	}
	log.WithField("comments_removed", n).Info("post deleted")
	return nil
}

// owned loads the post and checks the acting identity is its author.
func (s *PostService) owned(ctx context.Context, id string, acting model.Identity) (model.Post, error) {
	if err := identity(acting); err != nil {
		return model.Post{}, err
	}
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return model.Post{}, mapStoreErr(err, "post")
	}
	if !auth.CanMutate(acting.UserID, p.AuthorID) {
		logger(ctx, s.log).WithFields(logrus.Fields{"post_id": id, "acting": acting.UserID}).Warn("post change forbidden")
		return model.Post{}, fail(ErrForbidden, "you can only modify your own posts")
	}
	return p, nil
}
