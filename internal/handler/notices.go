package handler

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/AurLemon/course-android-mockapi/internal/model"
	"github.com/AurLemon/course-android-mockapi/internal/repository"
)

// NoticeStore persists notices.
type NoticeStore interface {
	List(ctx context.Context) ([]*model.Notice, error)
	Count(ctx context.Context) (int, error)
	GetByID(ctx context.Context, id uint64) (*model.Notice, error)
	Create(ctx context.Context, title, content string, authorID uint64) (*model.Notice, error)
	Update(ctx context.Context, id uint64, title, content *string) (*model.Notice, error)
	Delete(ctx context.Context, id uint64) error
}

// Purger drops cached GET responses of a resource group after a write.
// Failures are the purger's to log; writes never fail because of them.
type Purger func(ctx context.Context, group string)

// NoticeHandler serves /api/notices.
type NoticeHandler struct {
	Notices NoticeStore
	Purge   Purger
	Timeout time.Duration
}

func NewNoticeHandler(notices NoticeStore, purge Purger, timeout time.Duration) *NoticeHandler {
	if notices == nil {
		panic("nil notice store passed to NewNoticeHandler")
	}
	if purge == nil {
		purge = func(context.Context, string) {}
	}
	return &NoticeHandler{Notices: notices, Purge: purge, Timeout: timeout}
}

// NoticeCacheGroup is the response cache group of notice reads.
const NoticeCacheGroup = "notices"

type createNoticeReq struct {
	Title   string `json:"title"   validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

type updateNoticeReq struct {
	ID      uint64  `json:"id"      validate:"required"`
	Title   *string `json:"title"   validate:"omitempty,max=200"`
	Content *string `json:"content"`
}

// List returns every notice, newest first, with the total count.
func (h *NoticeHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	notices, err := h.Notices.List(ctx)
	if err != nil {
		return err
	}
	total, err := h.Notices.Count(ctx)
	if err != nil {
		return err
	}
	return okList(c, notices, total)
}

// Get returns one notice.
func (h *NoticeHandler) Get(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	n, err := h.Notices.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNoticeNotFound) {
		return notFound("通知ID %d 不存在", id)
	}
	if err != nil {
		return err
	}
	return ok(c, n)
}

// Create publishes a notice authored by the caller.
func (h *NoticeHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createNoticeReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	n, err := h.Notices.Create(ctx, req.Title, req.Content, p.UserID)
	if err != nil {
		return err
	}
	h.Purge(ctx, NoticeCacheGroup)
	return ok(c, n)
}

// Update edits the notice whose id is in the body.
func (h *NoticeHandler) Update(c echo.Context) error {
	var req updateNoticeReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	n, err := h.Notices.Update(ctx, req.ID, req.Title, req.Content)
	if errors.Is(err, repository.ErrNoticeNotFound) {
		return notFound("通知ID %d 不存在", req.ID)
	}
	if err != nil {
		return err
	}
	h.Purge(ctx, NoticeCacheGroup)
	return ok(c, n)
}

// Delete removes a notice.
func (h *NoticeHandler) Delete(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	err = h.Notices.Delete(ctx, id)
	if errors.Is(err, repository.ErrNoticeNotFound) {
		return notFound("通知ID %d 不存在", id)
	}
	if err != nil {
		return err
	}
	h.Purge(ctx, NoticeCacheGroup)
	return success(c)
}
