package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/AurLemon/course-android-mockapi/internal/model"
	"github.com/AurLemon/course-android-mockapi/internal/repository"
)

// AlbumStore persists albums and their types.
type AlbumStore interface {
	Page(ctx context.Context, q model.AlbumQuery) ([]*model.Album, model.Page, error)
	ListByType(ctx context.Context, typeID uint64) ([]*model.Album, error)
	GetByID(ctx context.Context, id uint64) (*model.Album, error)
	ListTypes(ctx context.Context) ([]*model.AlbumType, error)
	Create(ctx context.Context, a *model.Album) (*model.Album, error)
	Update(ctx context.Context, id uint64, p repository.AlbumPatch) (*model.Album, error)
	Delete(ctx context.Context, id uint64) error
}

// AlbumHandler serves /api/albums.
type AlbumHandler struct {
	Albums  AlbumStore
	Purge   Purger
	Timeout time.Duration
}

func NewAlbumHandler(albums AlbumStore, purge Purger, timeout time.Duration) *AlbumHandler {
	if albums == nil {
		panic("nil album store passed to NewAlbumHandler")
	}
	if purge == nil {
		purge = func(context.Context, string) {}
	}
	return &AlbumHandler{Albums: albums, Purge: purge, Timeout: timeout}
}

// AlbumCacheGroup is the response cache group of album reads.
const AlbumCacheGroup = "albums"

type createAlbumReq struct {
	Title       string `json:"title"       validate:"required,max=200"`
	CoverPath   string `json:"coverPath"   validate:"max=512"`
	Describe    string `json:"describe"`
	Type        uint64 `json:"type"        validate:"required"`
	LoopPicPath string `json:"loopPicPath"`
}

type updateAlbumReq struct {
	Title       *string `json:"title"     validate:"omitempty,max=200"`
	CoverPath   *string `json:"coverPath" validate:"omitempty,max=512"`
	Describe    *string `json:"describe"`
	Type        *uint64 `json:"type"`
	LoopPicPath *string `json:"loopPicPath"`
}

// queryInt reads an optional integer query parameter.
func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("参数 " + name + " 必须是整数")
	}
	return n, nil
}

// List returns one page of albums. pageNum defaults to 1 and pageSize to
// 15; unknown sort keys fall back to id descending.
func (h *AlbumHandler) List(c echo.Context) error {
	pageNum, err := queryInt(c, "pageNum")
	if err != nil {
		return err
	}
	pageSize, err := queryInt(c, "pageSize")
	if err != nil {
		return err
	}
	q := model.AlbumQuery{
		PageNum:   pageNum,
		PageSize:  pageSize,
		SortBy:    c.QueryParam("sortBy"),
		SortOrder: c.QueryParam("sortOrder"),
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	albums, page, err := h.Albums.Page(ctx, q)
	if err != nil {
		return err
	}
	return okPage(c, albums, page)
}

// Types lists every album type.
func (h *AlbumHandler) Types(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	types, err := h.Albums.ListTypes(ctx)
	if err != nil {
		return err
	}
	return ok(c, types)
}

// ByType lists the albums of one type.
func (h *AlbumHandler) ByType(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	albums, err := h.Albums.ListByType(ctx, id)
	if err != nil {
		return err
	}
	return ok(c, albums)
}

// Get returns one album.
func (h *AlbumHandler) Get(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	a, err := h.Albums.GetByID(ctx, id)
	if errors.Is(err, repository.ErrAlbumNotFound) {
		return notFound("相册ID %d 不存在", id)
	}
	if err != nil {
		return err
	}
	return ok(c, a)
}

// Create adds an album of an existing type.
func (h *AlbumHandler) Create(c echo.Context) error {
	var req createAlbumReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	a, err := h.Albums.Create(ctx, &model.Album{
		Title:       req.Title,
		CoverPath:   req.CoverPath,
		Describe:    req.Describe,
		Type:        req.Type,
		LoopPicPath: req.LoopPicPath,
	})
	if errors.Is(err, repository.ErrAlbumTypeNotFound) {
		return notFound("相册类型ID %d 不存在", req.Type)
	}
	if err != nil {
		return err
	}
	h.Purge(ctx, AlbumCacheGroup)
	return ok(c, a)
}

// Update edits the album in the path; only keys present in the body change.
func (h *AlbumHandler) Update(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req updateAlbumReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	a, err := h.Albums.Update(ctx, id, repository.AlbumPatch{
		Title:       req.Title,
		CoverPath:   req.CoverPath,
		Describe:    req.Describe,
		Type:        req.Type,
		LoopPicPath: req.LoopPicPath,
	})
	switch {
	case errors.Is(err, repository.ErrAlbumNotFound):
		return notFound("相册ID %d 不存在", id)
	case errors.Is(err, repository.ErrAlbumTypeNotFound):
		return notFound("相册类型ID %d 不存在", *req.Type)
	case err != nil:
		return err
	}
	h.Purge(ctx, AlbumCacheGroup)
	return ok(c, a)
}

// Delete removes an album.
func (h *AlbumHandler) Delete(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	err = h.Albums.Delete(ctx, id)
	if errors.Is(err, repository.ErrAlbumNotFound) {
		return notFound("相册ID %d 不存在", id)
	}
	if err != nil {
		return err
	}
	h.Purge(ctx, AlbumCacheGroup)
	return success(c)
}
