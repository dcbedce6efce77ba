package mongo

import (
	"context"
	"strings"
	"time"

	"github.com/alphabot-ai/microblog/internal/model"
	"github.com/alphabot-ai/microblog/internal/store"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type userDoc struct {
	ID           string             `bson:"_id"`
	Seq          primitive.ObjectID `bson:"seq"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	CreatedAt    time.Time          `bson:"created_at"`
}

func (d userDoc) user() model.User {
	return model.User{ID: d.ID, Username: d.Username, Email: d.Email, CreatedAt: d.CreatedAt.UTC()}
}

type userStore struct {
	coll *mongo.Collection
}

func (s *userStore) Register(ctx context.Context, user *model.User, passwordHash string) error {
	user.ID = uuid.NewString()
	user.Username = strings.TrimSpace(user.Username)
	user.Email = store.NormalizeEmail(user.Email)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now()
	}
	_, err := s.coll.InsertOne(ctx, userDoc{
		ID:           user.ID,
		Seq:          primitive.NewObjectID(),
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: passwordHash,
		CreatedAt:    user.CreatedAt,
	})
	return mapUserConstraint(err)
}

func (s *userStore) FindByID(ctx context.Context, id string) (model.User, error) {
	var doc userDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return model.User{}, notFound(err)
	}
	return doc.user(), nil
}

func (s *userStore) Find(ctx context.Context, f store.UserFilter) ([]model.User, error) {
	cur, err := s.coll.Find(ctx, filter(
		"username", strings.TrimSpace(f.Username),
		"email", store.NormalizeEmail(f.Email),
	), newestFirst)
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	users := make([]model.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.user())
	}
	return users, nil
}

func (s *userStore) Update(ctx context.Context, id string, patch store.UserPatch) (model.User, error) {
	set := bson.M{}
	if patch.Username != nil {
		set["username"] = strings.TrimSpace(*patch.Username)
	}
	if patch.Email != nil {
		set["email"] = store.NormalizeEmail(*patch.Email)
	}
	if len(set) == 0 {
		return s.FindByID(ctx, id)
	}
	var doc userDoc
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, returnUpdated).Decode(&doc)
	if err != nil {
		return model.User{}, mapUserConstraint(notFound(err))
	}
	return doc.user(), nil
}

func (s *userStore) Remove(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *userStore) FindCredentialsByEmail(ctx context.Context, email string) (model.User, model.Credentials, error) {
	var doc userDoc
	if err := s.coll.FindOne(ctx, bson.M{"email": store.NormalizeEmail(email)}).Decode(&doc); err != nil {
		return model.User{}, model.Credentials{}, notFound(err)
	}
	return doc.user(), model.Credentials{UserID: doc.ID, PasswordHash: doc.PasswordHash}, nil
}

func (s *userStore) FindCredentials(ctx context.Context, userID string) (model.Credentials, error) {
	var doc userDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc); err != nil {
		return model.Credentials{}, notFound(err)
	}
	return model.Credentials{UserID: doc.ID, PasswordHash: doc.PasswordHash}, nil
}

func (s *userStore) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"password_hash": passwordHash}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
