package service

import (
	"context"
	"strings"

	"github.com/alphabot-ai/microblog/internal/auth"
	"github.com/alphabot-ai/microblog/internal/model"
	"github.com/alphabot-ai/microblog/internal/store"

	"github.com/sirupsen/logrus"
)

type CommentService struct {
	users    store.UserStore
	posts    store.PostStore
	comments store.CommentStore
	log      logrus.FieldLogger
}

func NewCommentService(st store.Store, log logrus.FieldLogger) *CommentService {
	return &CommentService{users: st.Users(), posts: st.Posts(), comments: st.Comments(), log: log}
}

// Create attaches a comment by the acting identity to an existing post.
func (s *CommentService) Create(ctx context.Context, acting model.Identity, postID, content string) (model.Comment, error) {
	if err := active(ctx, s.users, acting); err != nil {
		return model.Comment{}, err
	}
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return model.Comment{}, fail(ErrValidation, "post id is required")
	}
	content, err := validateContent(content)
	if err != nil {
		return model.Comment{}, err
	}
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return model.Comment{}, mapStoreErr(err, "post")
	}
	c := model.Comment{PostID: postID, AuthorID: acting.UserID, Content: content}
	if err := s.comments.Create(ctx, &c); err != nil {
		return model.Comment{}, mapStoreErr(err, "comment")
	}
	logger(ctx, s.log).WithFields(logrus.Fields{"comment_id": c.ID, "post_id": postID}).Info("comment created")
	return c, nil
}

func (s *CommentService) Get(ctx context.Context, id string) (model.Comment, error) {
	c, err := s.comments.FindByID(ctx, id)
	return c, mapStoreErr(err, "comment")
}

// ListByPost returns an empty list for unknown or deleted posts.
func (s *CommentService) ListByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	if postID == "" {
		return nil, fail(ErrValidation, "post id is required")
	}
	comments, err := s.comments.Find(ctx, store.CommentFilter{PostID: postID})
	return comments, mapStoreErr(err, "comment")
}

func (s *CommentService) Update(ctx context.Context, id string, acting model.Identity, content string) (model.Comment, error) {
	if _, err := s.owned(ctx, id, acting); err != nil {
		return model.Comment{}, err
	}
	content, err := validateContent(content)
	if err != nil {
		return model.Comment{}, err
	}
	c, err := s.comments.Update(ctx, id, store.CommentPatch{Content: &content})
	if err != nil {
		return model.Comment{}, mapStoreErr(err, "comment")
	}
	logger(ctx, s.log).WithField("comment_id", id).Info("comment updated")
	return c, nil
}

func (s *CommentService) Delete(ctx context.Context, id string, acting model.Identity) error {
	if _, err := s.owned(ctx, id, acting); err != nil {
		return err
	}
	if err := s.comments.Remove(ctx, id); err != nil {
		return mapStoreErr(err, "comment")
	}
	logger(ctx, s.log).WithField("comment_id", id).Info("comment deleted")
	return nil
}

// owned reports NotFound before Forbidden.
func (s *CommentService) owned(ctx context.Context, id string, acting model.Identity) (model.Comment, error) {
	if err := identity(acting); err != nil {
		return model.Comment{}, err
	}
	c, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return model.Comment{}, mapStoreErr(err, "comment")
	}
	if !auth.CanMutate(acting.UserID, c.AuthorID) {
		logger(ctx, s.log).WithFields(logrus.Fields{"comment_id": id, "acting": acting.UserID}).Warn("comment change forbidden")
		return model.Comment{}, fail(ErrForbidden, "you can only modify your own comments")
	}
	return c, nil
}
