// Package mongo is the document database backend of the store.
package mongo

import (
	"context"
	"strings"
	"time"

	"github.com/alphabot-ai/microblog/internal/store"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection    = "users"
	postsCollection    = "posts"
	commentsCollection = "comments"

	usernameIndex = "uniq_username"
	emailIndex    = "uniq_email"
)

type Store struct {
	client   *mongo.Client
	users    *userStore
	posts    *postStore
	comments *commentStore
}

var _ store.Store = (*Store)(nil)

// Open connects to uri, selects database and makes sure the indexes exist.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "mongo connect")
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "mongo ping")
	}

	db := client.Database(database)
	if err := ensureIndexes(connectCtx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return &Store{
		client:   client,
		users:    &userStore{coll: db.Collection(usersCollection)},
		posts:    &postStore{coll: db.Collection(postsCollection)},
		comments: &commentStore{coll: db.Collection(commentsCollection)},
	}, nil
}

func (s *Store) Users() store.UserStore       { return s.users }
func (s *Store) Posts() store.PostStore       { return s.posts }
func (s *Store) Comments() store.CommentStore { return s.comments }

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName(usernameIndex)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName(emailIndex)},
	})
	if err != nil {
		return errors.Wrap(err, "create user indexes")
	}
	_, err = db.Collection(postsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "author_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}}},
	})
	if err != nil {
		return errors.Wrap(err, "create post indexes")
	}
	_, err = db.Collection(commentsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "post_id", Value: 1}}},
		{Keys: bson.D{{Key: "author_id", Value: 1}}},
	})
	if err != nil {
		return errors.Wrap(err, "create comment indexes")
	}
	return nil
}

// newestFirst breaks created_at ties with seq, an ObjectID stamped at insert
// whose counter grows with every document this process writes.
var newestFirst = options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}})

var returnUpdated = options.FindOneAndUpdate().SetReturnDocument(options.After)

// filter builds an equality filter from the non-empty fields.
func filter(pairs ...string) bson.M {
	f := bson.M{}
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			f[pairs[i]] = pairs[i+1]
		}
	}
	return f
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

func mapUserConstraint(err error) error {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return err
	}
	if strings.Contains(err.Error(), emailIndex) {
		return store.ErrDuplicateEmail
	}
	return store.ErrDuplicateUsername
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
