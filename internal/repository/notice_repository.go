package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/AurLemon/course-android-mockapi/internal/model"
)

// ErrNoticeNotFound is returned when a notice cannot be found in the DB.
var ErrNoticeNotFound = errors.New("notice not found")

// NoticeRepo encapsulates all database queries related to notices.
type NoticeRepo struct {
	db *sql.DB
}

// NewNoticeRepo constructs a NoticeRepo with the provided DB handle.
func NewNoticeRepo(db *sql.DB) *NoticeRepo {
	return &NoticeRepo{db: db}
}

const noticeSelect = `SELECT n.id, n.title, n.content, COALESCE(n.author_id, 0), COALESCE(u.true_name, ''),
	n.created_at, n.updated_at
	FROM notices n LEFT JOIN users u ON u.uid = n.author_id`

func scanNotice(row rowScanner) (*model.Notice, error) {
	var (
		n       model.Notice
		updated sql.NullTime
	)
	if err := row.Scan(&n.ID, &n.Title, &n.Content, &n.AuthorID, &n.AuthorName, &n.CreatedAt, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoticeNotFound
		}
		return nil, classify(err)
	}
	if strings.TrimSpace(n.AuthorName) == "" {
		n.AuthorName = model.DefaultAuthorName
	}
	if updated.Valid {
		t := updated.Time
		n.UpdatedAt = &t
	}
	return &n, nil
}

// List returns all notices, newest first.
func (r *NoticeRepo) List(ctx context.Context) ([]*model.Notice, error) {
	rows, err := r.db.QueryContext(ctx, noticeSelect+" ORDER BY n.created_at DESC, n.id DESC")
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := []*model.Notice{}
	for rows.Next() {
		n, err := scanNotice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// Count returns the number of notices.
func (r *NoticeRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notices").Scan(&n); err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// GetByID fetches a notice with its author name.
func (r *NoticeRepo) GetByID(ctx context.Context, id uint64) (*model.Notice, error) {
	return scanNotice(r.db.QueryRowContext(ctx, noticeSelect+" WHERE n.id = ?", id))
}

// Create inserts a notice authored by authorID and returns the stored row.
func (r *NoticeRepo) Create(ctx context.Context, title, content string, authorID uint64) (*model.Notice, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO notices (title, content, author_id) VALUES (?, ?, ?)", title, content, authorID)
	if err != nil {
		return nil, classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, classify(err)
	}
	return r.GetByID(ctx, uint64(id))
}

// Update changes the non-nil fields, stamps updated_at and returns the
// stored row.
func (r *NoticeRepo) Update(ctx context.Context, id uint64, title, content *string) (*model.Notice, error) {
	sets := []string{"updated_at = CURRENT_TIMESTAMP"}
	var args []any
	if title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *title)
	}
	if content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *content)
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx, "UPDATE notices SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, classify(err)
	}
	if err := expectOne(res, ErrNoticeNotFound); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a notice.
func (r *NoticeRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM notices WHERE id = ?", id)
	if err != nil {
		return classify(err)
	}
	return expectOne(res, ErrNoticeNotFound)
}
