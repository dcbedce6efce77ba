package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/alphabot-ai/microblog/internal/model"
	"github.com/alphabot-ai/microblog/internal/store"

	"github.com/google/uuid"
)

type postStore struct {
	db *sql.DB
}

func (s *postStore) Create(ctx context.Context, post *model.Post) error {
	post.ID = uuid.NewString()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	post.UpdatedAt = post.CreatedAt
	_, err := s.db.ExecContext(ctx, `
INSERT INTO posts (id, author_id, content, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
`, post.ID, post.AuthorID, post.Content, toUnix(post.CreatedAt), toUnix(post.UpdatedAt))
	return err
}

func (s *postStore) FindByID(ctx context.Context, id string) (model.Post, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, author_id, content, created_at, updated_at
FROM posts
WHERE id = ?
`, id)
	return scanPost(row)
}

func (s *postStore) Find(ctx context.Context, filter store.PostFilter) ([]model.Post, error) {
	var w where
	w.eq("author_id", filter.AuthorID)
	rows, err := s.db.QueryContext(ctx, `
SELECT id, author_id, content, created_at, updated_at
FROM posts
`+w.String()+`
ORDER BY created_at DESC, rowid DESC
`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *postStore) Update(ctx context.Context, id string, patch store.PostPatch) (model.Post, error) {
	var fields set
	if patch.Content != nil {
		fields.add("content", *patch.Content)
	}
	if fields.empty() {
		return s.FindByID(ctx, id)
	}
	fields.add("updated_at", toUnix(time.Now().UTC()))
	res, err := s.db.ExecContext(ctx, `UPDATE posts SET `+fields.String()+` WHERE id = ?`, append(fields.args, id)...)
	if err != nil {
		return model.Post{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Post{}, store.ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *postStore) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanPost(row scanner) (model.Post, error) {
	var p model.Post
	var created, updated int64
	if err := row.Scan(&p.ID, &p.AuthorID, &p.Content, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Post{}, store.ErrNotFound
		}
		return model.Post{}, err
	}
	p.CreatedAt = fromUnix(created)
	p.UpdatedAt = fromUnix(updated)
	return p, nil
}
