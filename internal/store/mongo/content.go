package mongo

import (
	"context"
	"time"

	"github.com/alphabot-ai/microblog/internal/model"
	"github.com/alphabot-ai/microblog/internal/store"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type postDoc struct {
	ID        string             `bson:"_id"`
	Seq       primitive.ObjectID `bson:"seq"`
	AuthorID  string             `bson:"author_id"`
	Content   string             `bson:"content"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (d postDoc) post() model.Post {
	return model.Post{ID: d.ID, AuthorID: d.AuthorID, Content: d.Content, CreatedAt: d.CreatedAt.UTC(), UpdatedAt: d.UpdatedAt.UTC()}
}

type postStore struct {
	coll *mongo.Collection
}

func (s *postStore) Create(ctx context.Context, post *model.Post) error {
	post.ID = uuid.NewString()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now()
	}
	post.UpdatedAt = post.CreatedAt
	_, err := s.coll.InsertOne(ctx, postDoc{
		ID:        post.ID,
		Seq:       primitive.NewObjectID(),
		AuthorID:  post.AuthorID,
		Content:   post.Content,
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
	})
	return err
}

func (s *postStore) FindByID(ctx context.Context, id string) (model.Post, error) {
	var doc postDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return model.Post{}, notFound(err)
	}
	return doc.post(), nil
}

func (s *postStore) Find(ctx context.Context, f store.PostFilter) ([]model.Post, error) {
	cur, err := s.coll.Find(ctx, filter("author_id", f.AuthorID), newestFirst)
	if err != nil {
		return nil, err
	}
	var docs []postDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	posts := make([]model.Post, 0, len(docs))
	for _, d := range docs {
		posts = append(posts, d.post())
	}
	return posts, nil
}

func (s *postStore) Update(ctx context.Context, id string, patch store.PostPatch) (model.Post, error) {
	if patch.Content == nil {
		return s.FindByID(ctx, id)
	}
	set := bson.M{"content": *patch.Content, "updated_at": now()}
	var doc postDoc
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, returnUpdated).Decode(&doc); err != nil {
		return model.Post{}, notFound(err)
	}
	return doc.post(), nil
}

func (s *postStore) Remove(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

type commentDoc struct {
	ID        string             `bson:"_id"`
	Seq       primitive.ObjectID `bson:"seq"`
	PostID    string             `bson:"post_id"`
	AuthorID  string             `bson:"author_id"`
	Content   string             `bson:"content"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (d commentDoc) comment() model.Comment {
	return model.Comment{
		ID:        d.ID,
		PostID:    d.PostID,
		AuthorID:  d.AuthorID,
		Content:   d.Content,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

type commentStore struct {
	coll *mongo.Collection
}

func (s *commentStore) Create(ctx context.Context, comment *model.Comment) error {
	comment.ID = uuid.NewString()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = now()
	}
	comment.UpdatedAt = comment.CreatedAt
	_, err := s.coll.InsertOne(ctx, commentDoc{
		ID:        comment.ID,
		Seq:       primitive.NewObjectID(),
		PostID:    comment.PostID,
		AuthorID:  comment.AuthorID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	})
	return err
}

func (s *commentStore) FindByID(ctx context.Context, id string) (model.Comment, error) {
	var doc commentDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return model.Comment{}, notFound(err)
	}
	return doc.comment(), nil
}

func (s *commentStore) Find(ctx context.Context, f store.CommentFilter) ([]model.Comment, error) {
	cur, err := s.coll.Find(ctx, filter("post_id", f.PostID, "author_id", f.AuthorID), newestFirst)
	if err != nil {
		return nil, err
	}
	var docs []commentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	comments := make([]model.Comment, 0, len(docs))
	for _, d := range docs {
		comments = append(comments, d.comment())
	}
	return comments, nil
}

func (s *commentStore) Update(ctx context.Context, id string, patch store.CommentPatch) (model.Comment, error) {
	if patch.Content == nil {
		return s.FindByID(ctx, id)
	}
	set := bson.M{"content": *patch.Content, "updated_at": now()}
	var doc commentDoc
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, returnUpdated).Decode(&doc); err != nil {
		return model.Comment{}, notFound(err)
	}
	return doc.comment(), nil
}

func (s *commentStore) Remove(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *commentStore) RemoveMany(ctx context.Context, f store.CommentFilter) (int64, error) {
	sel := filter("post_id", f.PostID, "author_id", f.AuthorID)
	if len(sel) == 0 {
		return 0, errors.New("remove many: empty filter")
	}
	res, err := s.coll.DeleteMany(ctx, sel)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
