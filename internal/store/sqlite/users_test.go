package sqlite

import (
	"context"
	"testing"

	"github.com/alphabot-ai/microblog/internal/model"
	"github.com/alphabot-ai/microblog/internal/store"
)

func TestUserRegisterAndCredentials(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	ctx := context.Background()

	user := model.User{Username: " alice ", Email: "Alice@Example.COM"}
	if err := st.Users().Register(ctx, &user, "hash-1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == "" || user.Username != "alice" || user.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}

	got, creds, err := st.Users().FindCredentialsByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("find credentials: %v", err)
	}
	if got.ID != user.ID || creds.PasswordHash != "hash-1" || creds.UserID != user.ID {
		t.Fatalf("unexpected credentials lookup: %+v %+v", got, creds)
	}

	if err := st.Users().UpdatePasswordHash(ctx, user.ID, "hash-2"); err != nil {
		t.Fatalf("update hash: %v", err)
	}
	c, err := st.Users().FindCredentials(ctx, user.ID)
	if err != nil {
		t.Fatalf("find credentials by id: %v", err)
	}
	if c.PasswordHash != "hash-2" {
		t.Fatalf("expected rotated hash, got %q", c.PasswordHash)
	}

	if _, _, err := st.Users().FindCredentialsByEmail(ctx, "nobody@example.com"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserUniqueConstraints(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	ctx := context.Background()

	first := model.User{Username: "bob", Email: "bob@example.com"}
	if err := st.Users().Register(ctx, &first, "h"); err != nil {
		t.Fatalf("register: %v", err)
	}

	dupEmail := model.User{Username: "bobby", Email: "BOB@example.com"}
	if err := st.Users().Register(ctx, &dupEmail, "h"); err != store.ErrDuplicateEmail {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	dupName := model.User{Username: "bob", Email: "other@example.com"}
	if err := st.Users().Register(ctx, &dupName, "h"); err != store.ErrDuplicateUsername {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}

	second := model.User{Username: "carol", Email: "carol@example.com"}
	if err := st.Users().Register(ctx, &second, "h"); err != nil {
		t.Fatalf("register second: %v", err)
	}
	taken := "bob"
	if _, err := st.Users().Update(ctx, second.ID, store.UserPatch{Username: &taken}); err != store.ErrDuplicateUsername {
		t.Fatalf("expected ErrDuplicateUsername on update, got %v", err)
	}

	users, err := st.Users().Find(ctx, store.UserFilter{Email: "Carol@Example.com"})
	if err != nil {
		t.Fatalf("find users: %v", err)
	}
	if len(users) != 1 || users[0].ID != second.ID {
		t.Fatalf("unexpected find result: %+v", users)
	}
}

func TestUserRemove(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	ctx := context.Background()

	user := model.User{Username: "dave", Email: "dave@example.com"}
	if err := st.Users().Register(ctx, &user, "h"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := st.Users().Remove(ctx, user.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := st.Users().FindByID(ctx, user.ID); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
