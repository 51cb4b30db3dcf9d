package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/AurLemon/course-android-mockapi/internal/model"
)

var (
	// ErrAlbumNotFound is returned when an album cannot be found in the DB.
	ErrAlbumNotFound = errors.New("album not found")
	// ErrAlbumTypeNotFound is returned when an album references an unknown type.
	ErrAlbumTypeNotFound = errors.New("album type not found")
)

// AlbumRepo encapsulates all database queries related to albums and their
// types.
type AlbumRepo struct {
	db *sql.DB
}

// NewAlbumRepo constructs an AlbumRepo with the provided DB handle.
func NewAlbumRepo(db *sql.DB) *AlbumRepo {
	return &AlbumRepo{db: db}
}

// albumSortColumns whitelists the sortable columns by their API name.
var albumSortColumns = map[string]string{
	"id":         "a.id",
	"createTime": "a.create_time",
	"updateTime": "a.update_time",
}

const albumSelect = "SELECT a.id, a.title, a.cover_path, a.`describe`, a.type_id, a.loop_pic_path, " +
	"a.create_time, a.update_time, COALESCE(t.name, '') " +
	"FROM albums a LEFT JOIN album_types t ON t.id = a.type_id"

func scanAlbum(row rowScanner) (*model.Album, error) {
	var a model.Album
	if err := row.Scan(&a.ID, &a.Title, &a.CoverPath, &a.Describe, &a.Type, &a.LoopPicPath,
		&a.CreateTime, &a.UpdateTime, &a.TypeName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlbumNotFound
		}
		return nil, classify(err)
	}
	if a.TypeName == "" {
		a.TypeName = model.UncategorizedTypeName
	}
	return &a, nil
}

func (r *AlbumRepo) queryAlbums(ctx context.Context, q string, args ...any) ([]*model.Album, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := []*model.Album{}
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// NormalizeAlbumQuery applies defaults and clamps q to valid values.
func NormalizeAlbumQuery(q model.AlbumQuery) model.AlbumQuery {
	if q.PageNum < 1 {
		q.PageNum = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 15
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}
	if _, ok := albumSortColumns[q.SortBy]; !ok {
		q.SortBy = "id"
	}
	if q.SortOrder = strings.ToLower(q.SortOrder); q.SortOrder != "asc" {
		q.SortOrder = "desc"
	}
	return q
}

// Page returns one page of albums plus the pagination summary.
func (r *AlbumRepo) Page(ctx context.Context, q model.AlbumQuery) ([]*model.Album, model.Page, error) {
	q = NormalizeAlbumQuery(q)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM albums").Scan(&total); err != nil {
		return nil, model.Page{}, classify(err)
	}

	order := albumSortColumns[q.SortBy] + " " + strings.ToUpper(q.SortOrder)
	albums, err := r.queryAlbums(ctx, albumSelect+" ORDER BY "+order+" LIMIT ? OFFSET ?",
		q.PageSize, (q.PageNum-1)*q.PageSize)
	if err != nil {
		return nil, model.Page{}, err
	}

	page := model.Page{
		PageNum:    q.PageNum,
		PageSize:   q.PageSize,
		TotalItems: total,
		TotalPages: (total + q.PageSize - 1) / q.PageSize,
		SortBy:     q.SortBy,
		SortOrder:  q.SortOrder,
	}
	return albums, page, nil
}

// ListByType returns the albums of one type, newest first.
func (r *AlbumRepo) ListByType(ctx context.Context, typeID uint64) ([]*model.Album, error) {
	return r.queryAlbums(ctx, albumSelect+" WHERE a.type_id = ? ORDER BY a.create_time DESC, a.id DESC", typeID)
}

// GetByID fetches one album with its type name.
func (r *AlbumRepo) GetByID(ctx context.Context, id uint64) (*model.Album, error) {
	return scanAlbum(r.db.QueryRowContext(ctx, albumSelect+" WHERE a.id = ?", id))
}

// ListTypes returns every album type ordered by id.
func (r *AlbumRepo) ListTypes(ctx context.Context) ([]*model.AlbumType, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM album_types ORDER BY id")
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := []*model.AlbumType{}
	for rows.Next() {
		t := new(model.AlbumType)
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, classify(err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// TypeExists reports whether an album type with the given id exists.
func (r *AlbumRepo) TypeExists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM album_types WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classify(err)
	}
	return true, nil
}

// Create inserts an album after checking its type and returns the stored row.
func (r *AlbumRepo) Create(ctx context.Context, a *model.Album) (*model.Album, error) {
	ok, err := r.TypeExists(ctx, a.Type)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlbumTypeNotFound
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO albums (title, cover_path, `describe`, type_id, loop_pic_path) VALUES (?, ?, ?, ?, ?)",
		a.Title, a.CoverPath, a.Describe, a.Type, a.LoopPicPath)
	if err != nil {
		return nil, classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, classify(err)
	}
	return r.GetByID(ctx, uint64(id))
}

// AlbumPatch carries the fields of a partial album update.
type AlbumPatch struct {
	Title       *string
	CoverPath   *string
	Describe    *string
	Type        *uint64
	LoopPicPath *string
}

// Update applies the non-nil fields of p and returns the stored row.
func (r *AlbumRepo) Update(ctx context.Context, id uint64, p AlbumPatch) (*model.Album, error) {
	if p.Type != nil {
		ok, err := r.TypeExists(ctx, *p.Type)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrAlbumTypeNotFound
		}
	}
	sets := []string{"update_time = CURRENT_TIMESTAMP"}
	var args []any
	if p.Title != nil {
		sets, args = append(sets, "title = ?"), append(args, *p.Title)
	}
	if p.CoverPath != nil {
		sets, args = append(sets, "cover_path = ?"), append(args, *p.CoverPath)
	}
	if p.Describe != nil {
		sets, args = append(sets, "`describe` = ?"), append(args, *p.Describe)
	}
	if p.Type != nil {
		sets, args = append(sets, "type_id = ?"), append(args, *p.Type)
	}
	if p.LoopPicPath != nil {
		sets, args = append(sets, "loop_pic_path = ?"), append(args, *p.LoopPicPath)
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx, "UPDATE albums SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, classify(err)
	}
	if err := expectOne(res, ErrAlbumNotFound); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes an album.
func (r *AlbumRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM albums WHERE id = ?", id)
	if err != nil {
		return classify(err)
	}
	return expectOne(res, ErrAlbumNotFound)
}

// EnsureType inserts an album type if no type with that name exists and
// returns its id.
func (r *AlbumRepo) EnsureType(ctx context.Context, name string) (uint64, error) {
	var id uint64
	err := r.db.QueryRowContext(ctx, "SELECT id FROM album_types WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, classify(err)
	}
	res, err := r.db.ExecContext(ctx, "INSERT INTO album_types (name) VALUES (?)", name)
	if err != nil {
		return 0, classify(err)
	}
	n, err := res.LastInsertId()
	if err != nil {
		return 0, classify(err)
	}
	return uint64(n), nil
}
