package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/alphabot-ai/microblog/internal/model"
	"github.com/alphabot-ai/microblog/internal/store"

	"github.com/google/uuid"
)

type userStore struct {
	db *sql.DB
}

func (s *userStore) Register(ctx context.Context, user *model.User, passwordHash string) error {
	user.ID = uuid.NewString()
	user.Username = strings.TrimSpace(user.Username)
	user.Email = store.NormalizeEmail(user.Email)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (id, username, email, password_hash, created_at)
VALUES (?, ?, ?, ?, ?)
`, user.ID, user.Username, user.Email, passwordHash, toUnix(user.CreatedAt))
	return mapUserConstraint(err)
}

func (s *userStore) FindByID(ctx context.Context, id string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, username, email, created_at
FROM users
WHERE id = ?
`, id)
	return scanUser(row)
}

func (s *userStore) Find(ctx context.Context, filter store.UserFilter) ([]model.User, error) {
	var w where
	w.eq("username", strings.TrimSpace(filter.Username))
	w.eq("email", store.NormalizeEmail(filter.Email))
	rows, err := s.db.QueryContext(ctx, `
SELECT id, username, email, created_at
FROM users
`+w.String()+`
ORDER BY created_at DESC, rowid DESC
`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *userStore) Update(ctx context.Context, id string, patch store.UserPatch) (model.User, error) {
	var fields set
	if patch.Username != nil {
		fields.add("username", strings.TrimSpace(*patch.Username))
	}
	if patch.Email != nil {
		fields.add("email", store.NormalizeEmail(*patch.Email))
	}
	if fields.empty() {
		return s.FindByID(ctx, id)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET `+fields.String()+` WHERE id = ?`, append(fields.args, id)...)
	if err != nil {
		return model.User{}, mapUserConstraint(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.User{}, store.ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *userStore) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *userStore) FindCredentialsByEmail(ctx context.Context, email string) (model.User, model.Credentials, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, username, email, created_at, password_hash
FROM users
WHERE email = ?
`, store.NormalizeEmail(email))
	var u model.User
	var c model.Credentials
	var created int64
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &created, &c.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, model.Credentials{}, store.ErrNotFound
		}
		return model.User{}, model.Credentials{}, err
	}
	u.CreatedAt = fromUnix(created)
	c.UserID = u.ID
	return u, c, nil
}

func (s *userStore) FindCredentials(ctx context.Context, userID string) (model.Credentials, error) {
	c := model.Credentials{UserID: userID}
	err := s.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id = ?`, userID).Scan(&c.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Credentials{}, store.ErrNotFound
		}
		return model.Credentials{}, err
	}
	return c, nil
}

func (s *userStore) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanUser(row scanner) (model.User, error) {
	var u model.User
	var created int64
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, store.ErrNotFound
		}
		return model.User{}, err
	}
	u.CreatedAt = fromUnix(created)
	return u, nil
}

func mapUserConstraint(err error) error {
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err, "users.username"):
		return store.ErrDuplicateUsername
	case isUniqueViolation(err, "users.email"):
		return store.ErrDuplicateEmail
	}
	return err
}
