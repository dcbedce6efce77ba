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

type commentStore struct {
	db *sql.DB
}

func (s *commentStore) Create(ctx context.Context, comment *model.Comment) error {
	comment.ID = uuid.NewString()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	comment.UpdatedAt = comment.CreatedAt
	_, err := s.db.ExecContext(ctx, `
INSERT INTO comments (id, post_id, author_id, content, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
`, comment.ID, comment.PostID, comment.AuthorID, comment.Content, toUnix(comment.CreatedAt), toUnix(comment.UpdatedAt))
	return err
}

func (s *commentStore) FindByID(ctx context.Context, id string) (model.Comment, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, post_id, author_id, content, created_at, updated_at
FROM comments
WHERE id = ?
`, id)
	return scanComment(row)
}

func (s *commentStore) Find(ctx context.Context, filter store.CommentFilter) ([]model.Comment, error) {
	w := commentWhere(filter)
	rows, err := s.db.QueryContext(ctx, `
SELECT id, post_id, author_id, content, created_at, updated_at
FROM comments
`+w.String()+`
ORDER BY created_at DESC, rowid DESC
`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *commentStore) Update(ctx context.Context, id string, patch store.CommentPatch) (model.Comment, error) {
	var fields set
	if patch.Content != nil {
		fields.add("content", *patch.Content)
	}
	if fields.empty() {
		return s.FindByID(ctx, id)
	}
	fields.add("updated_at", toUnix(time.Now().UTC()))
	res, err := s.db.ExecContext(ctx, `UPDATE comments SET `+fields.String()+` WHERE id = ?`, append(fields.args, id)...)
	if err != nil {
		return model.Comment{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Comment{}, store.ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *commentStore) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// RemoveMany refuses an empty filter so a zero value can never wipe the table.
func (s *commentStore) RemoveMany(ctx context.Context, filter store.CommentFilter) (int64, error) {
	w := commentWhere(filter)
	if len(w.clauses) == 0 {
		return 0, errors.New("remove many: empty filter")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM comments `+w.String(), w.args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func commentWhere(filter store.CommentFilter) where {
	var w where
	w.eq("post_id", filter.PostID)
	w.eq("author_id", filter.AuthorID)
	return w
}

func scanComment(row scanner) (model.Comment, error) {
	var c model.Comment
	var created, updated int64
	if err := row.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Content, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Comment{}, store.ErrNotFound
		}
		return model.Comment{}, err
	}
	c.CreatedAt = fromUnix(created)
	c.UpdatedAt = fromUnix(updated)
	return c, nil
}
