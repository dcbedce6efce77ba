package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alphabot-ai/microblog/internal/auth"
	"github.com/alphabot-ai/microblog/internal/logging"
	"github.com/alphabot-ai/microblog/internal/model"
	"github.com/alphabot-ai/microblog/internal/store"
	"github.com/alphabot-ai/microblog/internal/store/sqlite"

	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	store store.Store
	svc   *Services
}

func newFixture(t *testing.T, cascade bool) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	st, err := sqlite.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	tokens := auth.NewTokens("test-secret", time.Hour, "microblog")
	svc := New(st, auth.BcryptHasher{Cost: bcrypt.MinCost}, tokens, Options{CascadeUserContent: cascade}, logging.Discard())
	return &fixture{store: st, svc: svc}
}

func (f *fixture) register(t *testing.T, name string) model.Identity {
	t.Helper()
	u, err := f.svc.Auth.Register(context.Background(), name, name+"@example.com", "password-"+name)
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return model.Identity{UserID: u.ID, Username: u.Username}
}

func TestRegisterNeverExposesPassword(t *testing.T) {
	f := newFixture(t, true)
	u, err := f.svc.Auth.Register(context.Background(), "alice", "Alice@Example.com", "s3cret-password")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	b, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "s3cret-password") || strings.Contains(string(b), "$2a$") {
		t.Fatalf("user leaks password material: %s", b)
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", u.Email)
	}

	users, err := f.svc.Users.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	b, _ = json.Marshal(users)
	if strings.Contains(string(b), "$2a$") {
		t.Fatalf("list leaks hash: %s", b)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	cases := []struct{ name, username, email, password string }{
		{"no username", "", "a@example.com", "password1"},
		{"no email", "a", "", "password1"},
		{"bad email", "a", "not-an-email", "password1"},
		{"short password", "a", "a@example.com", "short"},
		{"long password", "a", "a@example.com", strings.Repeat("p", 73)},
	}
	for _, tc := range cases {
		if _, err := f.svc.Auth.Register(ctx, tc.username, tc.email, tc.password); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestRegisterDuplicate(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	if _, err := f.svc.Auth.Register(ctx, "alice", "alice@example.com", "password1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.svc.Auth.Register(ctx, "alice2", "ALICE@example.com", "password1"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
	if _, err := f.svc.Auth.Register(ctx, "alice", "other@example.com", "password1"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate username, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	alice := f.register(t, "alice")

	tok, u, err := f.svc.Auth.Login(ctx, "ALICE@example.com", "password-alice")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if u.ID != alice.UserID || tok.Value == "" {
		t.Fatalf("unexpected login result %+v %+v", u, tok)
	}
	id, err := f.svc.Auth.Authenticate(ctx, tok.Value)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if id.UserID != alice.UserID {
		t.Fatalf("token subject %q, want %q", id.UserID, alice.UserID)
	}

	if _, _, err := f.svc.Auth.Login(ctx, "nobody@example.com", "password-alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, _, err := f.svc.Auth.Login(ctx, "alice@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := f.svc.Auth.Authenticate(ctx, tok.Value+"x"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	if _, err := f.svc.Auth.Authenticate(ctx, ""); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestCreatePost(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	alice := f.register(t, "alice")

	p, err := f.svc.Posts.Create(ctx, alice, "hello")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.AuthorID != alice.UserID || p.Content != "hello" {
		t.Fatalf("unexpected post %+v", p)
	}
	if _, err := f.svc.Posts.Create(ctx, alice, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.svc.Posts.Create(ctx, alice, "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for blank content, got %v", err)
	}
	if _, err := f.svc.Posts.Create(ctx, model.Identity{}, "hello"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestPostOwnership(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	p, err := f.svc.Posts.Create(ctx, alice, "mine")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Posts.Update(ctx, p.ID, bob, "stolen"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden update, got %v", err)
	}
	if err := f.svc.Posts.Delete(ctx, p.ID, bob); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden delete, got %v", err)
	}
	got, err := f.svc.Posts.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("post should remain: %v", err)
	}
	if got.Content != "mine" {
		t.Fatalf("content changed to %q", got.Content)
	}

	updated, err := f.svc.Posts.Update(ctx, p.ID, alice, "edited")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Content != "edited" || updated.AuthorID != alice.UserID || !updated.CreatedAt.Equal(p.CreatedAt) {
		t.Fatalf("unexpected update %+v", updated)
	}
	if err := f.svc.Posts.Delete(ctx, "missing", alice); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeletePostCascadesComments(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	p1, err := f.svc.Posts.Create(ctx, alice, "p1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	c, err := f.svc.Comments.Create(ctx, bob, p1.ID, "nice post")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if c.AuthorID != bob.UserID || c.PostID != p1.ID {
		t.Fatalf("unexpected comment %+v", c)
	}

	if err := f.svc.Posts.Delete(ctx, p1.ID, alice); err != nil {
		t.Fatalf("delete: %v", err)
	}
	comments, err := f.svc.Comments.ListByPost(ctx, p1.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(comments) != 0 {
		t.Fatalf("expected no comments, got %d", len(comments))
	}
	if _, err := f.svc.Comments.Get(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected comment gone, got %v", err)
	}
	if _, err := f.svc.Posts.Get(ctx, p1.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected post gone, got %v", err)
	}
}

type failingComments struct {
	store.CommentStore
}

func (failingComments) RemoveMany(context.Context, store.CommentFilter) (int64, error) {
	return 0, errors.New("disk on fire")
}

func TestDeletePostCascadeFailureIsInternal(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	alice := f.register(t, "alice")
	p, err := f.svc.Posts.Create(ctx, alice, "p")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	posts := &PostService{posts: f.store.Posts(), comments: failingComments{f.store.Comments()}, log: logging.Discard()}
	err = posts.Delete(ctx, p.ID, alice)
	if err == nil {
		t.Fatalf("expected error")
	}
	var domain *Error
	if errors.As(err, &domain) {
		t.Fatalf("cascade failure should be internal, got %v", err)
	}
	if _, err := f.svc.Posts.Get(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("post delete should have committed, got %v", err)
	}
}

func TestCommentRules(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	p, err := f.svc.Posts.Create(ctx, alice, "p")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.Comments.Create(ctx, bob, "missing", "hi"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found post, got %v", err)
	}
	if _, err := f.svc.Comments.Create(ctx, bob, p.ID, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.svc.Comments.Create(ctx, bob, "", "hi"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	c, err := f.svc.Comments.Create(ctx, bob, p.ID, "hi")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if _, err := f.svc.Comments.Update(ctx, c.ID, alice, "edit"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := f.svc.Comments.Delete(ctx, c.ID, alice); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	for _, acting := range []model.Identity{alice, bob} {
		if _, err := f.svc.Comments.Update(ctx, "missing", acting, "x"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("update missing as %s: expected not found, got %v", acting.Username, err)
		}
		if err := f.svc.Comments.Delete(ctx, "missing", acting); !errors.Is(err, ErrNotFound) {
			t.Fatalf("delete missing as %s: expected not found, got %v", acting.Username, err)
		}
	}

	updated, err := f.svc.Comments.Update(ctx, c.ID, bob, "edited")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Content != "edited" || updated.PostID != p.ID {
		t.Fatalf("unexpected comment %+v", updated)
	}
	if err := f.svc.Comments.Delete(ctx, c.ID, bob); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.svc.Comments.Delete(ctx, c.ID, bob); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted is terminal, got %v", err)
	}
}

func TestUserSelfService(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	name := "mallory"
	if _, err := f.svc.Users.Update(ctx, alice.UserID, bob, UserUpdate{Username: &name}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := f.svc.Users.Delete(ctx, alice.UserID, bob); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	taken := "bob"
	if _, err := f.svc.Users.Update(ctx, alice.UserID, alice, UserUpdate{Username: &taken}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	newName := "alice2"
	u, err := f.svc.Users.Update(ctx, alice.UserID, alice, UserUpdate{Username: &newName})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if u.Username != "alice2" {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, _, err := f.svc.Auth.Login(ctx, "alice@example.com", "password-alice"); err != nil {
		t.Fatalf("profile update must not touch password: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	if err := f.svc.Users.ChangePassword(ctx, alice.UserID, bob, "password-alice", "new-password"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := f.svc.Users.ChangePassword(ctx, alice.UserID, alice, "wrong-password", "new-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if err := f.svc.Users.ChangePassword(ctx, alice.UserID, alice, "password-alice", "short"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := f.svc.Users.ChangePassword(ctx, alice.UserID, alice, "password-alice", "new-password"); err != nil {
		t.Fatalf("change: %v", err)
	}
	if _, _, err := f.svc.Auth.Login(ctx, "alice@example.com", "password-alice"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password should fail, got %v", err)
	}
	if _, _, err := f.svc.Auth.Login(ctx, "alice@example.com", "new-password"); err != nil {
		t.Fatalf("new password should work: %v", err)
	}
}

func seedContent(t *testing.T, f *fixture, alice, bob model.Identity) (model.Post, model.Post, model.Comment) {
	t.Helper()
	ctx := context.Background()
	alicePost, err := f.svc.Posts.Create(ctx, alice, "alice post")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	bobPost, err := f.svc.Posts.Create(ctx, bob, "bob post")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Comments.Create(ctx, bob, alicePost.ID, "bob on alice"); err != nil {
		t.Fatalf("comment: %v", err)
	}
	aliceComment, err := f.svc.Comments.Create(ctx, alice, bobPost.ID, "alice on bob")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	return alicePost, bobPost, aliceComment
}

func TestDeleteUserCascade(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	alicePost, bobPost, aliceComment := seedContent(t, f, alice, bob)

	if err := f.svc.Users.Delete(ctx, alice.UserID, alice); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Users.Get(ctx, alice.UserID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected user gone, got %v", err)
	}
	if posts, _ := f.svc.Posts.ListByAuthor(ctx, alice.UserID); len(posts) != 0 {
		t.Fatalf("expected alice's posts gone, got %d", len(posts))
	}
	if comments, _ := f.svc.Comments.ListByPost(ctx, alicePost.ID); len(comments) != 0 {
		t.Fatalf("expected comments on alice's post gone, got %d", len(comments))
	}
	if _, err := f.svc.Comments.Get(ctx, aliceComment.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected alice's comment gone, got %v", err)
	}
	if _, err := f.svc.Posts.Get(ctx, bobPost.ID); err != nil {
		t.Fatalf("bob's post should remain: %v", err)
	}
	if _, _, err := f.svc.Auth.Login(ctx, "alice@example.com", "password-alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected login not found, got %v", err)
	}
}

func TestDeletedUserTokenRejected(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	bobPost, err := f.svc.Posts.Create(ctx, bob, "bob's post")
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	tok, _, err := f.svc.Auth.Login(ctx, "alice@example.com", "password-alice")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := f.svc.Users.Delete(ctx, alice.UserID, alice); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Auth.Authenticate(ctx, tok.Value); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated for deleted account, got %v", err)
	}
	if _, err := f.svc.Posts.Create(ctx, alice, "ghost"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated post create, got %v", err)
	}
	if _, err := f.svc.Comments.Create(ctx, alice, bobPost.ID, "ghost"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated comment create, got %v", err)
	}
	if posts, _ := f.svc.Posts.ListByAuthor(ctx, alice.UserID); len(posts) != 0 {
		t.Fatalf("deleted user left %d posts", len(posts))
	}
	if comments, _ := f.svc.Comments.ListByPost(ctx, bobPost.ID); len(comments) != 0 {
		t.Fatalf("deleted user left %d comments", len(comments))
	}
}

func TestDeleteUserWithoutCascade(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	alicePost, _, aliceComment := seedContent(t, f, alice, bob)

	if err := f.svc.Users.Delete(ctx, alice.UserID, alice); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Posts.Get(ctx, alicePost.ID); err != nil {
		t.Fatalf("post should remain without cascade: %v", err)
	}
	if _, err := f.svc.Comments.Get(ctx, aliceComment.ID); err != nil {
		t.Fatalf("comment should remain without cascade: %v", err)
	}
}

func TestAliceBobScenario(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	if _, err := f.svc.Auth.Register(ctx, "alice", "alice@example.com", "alice-password"); err != nil {
		t.Fatalf("register alice: %v", err)
	}
	aliceTok, _, err := f.svc.Auth.Login(ctx, "alice@example.com", "alice-password")
	if err != nil {
		t.Fatalf("login alice: %v", err)
	}
	alice, err := f.svc.Auth.Authenticate(ctx, aliceTok.Value)
	if err != nil {
		t.Fatalf("authenticate alice: %v", err)
	}
	p1, err := f.svc.Posts.Create(ctx, alice, "p1")
	if err != nil {
		t.Fatalf("create p1: %v", err)
	}

	if _, err := f.svc.Auth.Register(ctx, "bob", "bob@example.com", "bob-password"); err != nil {
		t.Fatalf("register bob: %v", err)
	}
	bobTok, _, err := f.svc.Auth.Login(ctx, "bob@example.com", "bob-password")
	if err != nil {
		t.Fatalf("login bob: %v", err)
	}
	bob, err := f.svc.Auth.Authenticate(ctx, bobTok.Value)
	if err != nil {
		t.Fatalf("authenticate bob: %v", err)
	}
	if _, err := f.svc.Comments.Create(ctx, bob, p1.ID, "hi alice"); err != nil {
		t.Fatalf("comment: %v", err)
	}

	if err := f.svc.Posts.Delete(ctx, p1.ID, alice); err != nil {
		t.Fatalf("delete p1: %v", err)
	}
	comments, err := f.svc.Comments.ListByPost(ctx, p1.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(comments) != 0 {
		t.Fatalf("bob's comment still listed: %+v", comments)
	}
}
