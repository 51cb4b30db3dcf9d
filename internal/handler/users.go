package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/AurLemon/course-android-mockapi/internal/model"
	"github.com/AurLemon/course-android-mockapi/internal/repository"
	"github.com/AurLemon/course-android-mockapi/internal/utils"
)

// UserStore is the user directory as seen by handlers.
type UserStore interface {
	Create(ctx context.Context, u *model.User, password string, cost int) error
	FindByID(ctx context.Context, id uint64) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	UpdateProfile(ctx context.Context, uid uint64, p model.UserProfile) error
	Delete(ctx context.Context, uid uint64) error
}

// UserHandler serves /api/users.
type UserHandler struct {
	Users      UserStore
	Sessions   SessionService
	BcryptCost int
	Timeout    time.Duration
}

func NewUserHandler(users UserStore, sessions SessionService, bcryptCost int, timeout time.Duration) *UserHandler {
	if users == nil || sessions == nil {
		panic("nil dependency passed to NewUserHandler")
	}
	return &UserHandler{Users: users, Sessions: sessions, BcryptCost: bcryptCost, Timeout: timeout}
}

const msgCannotDeleteSelf = "不能删除当前登录的账号"

type createUserReq struct {
	Username  string      `json:"username"  validate:"required,max=64"`
	Password  string      `json:"password"  validate:"omitempty,max=72"`
	TrueName  string      `json:"trueName"  validate:"max=64"`
	Sex       string      `json:"sex"       validate:"max=8"`
	Telephone string      `json:"telephone" validate:"max=32"`
	Birth     string      `json:"birth"     validate:"max=32"`
	Dept      string      `json:"dept"      validate:"max=64"`
	Role      *model.Role `json:"role"      validate:"omitempty,oneof=0 1"`
}

// profileReq is shared by the self-service and admin edits; Dept is only
// honoured for admins.
type profileReq struct {
	UID       uint64  `json:"uid"`
	TrueName  *string `json:"trueName"  validate:"omitempty,max=64"`
	Sex       *string `json:"sex"       validate:"omitempty,max=8"`
	Telephone *string `json:"telephone" validate:"omitempty,max=32"`
	Birth     *string `json:"birth"     validate:"omitempty,max=32"`
	Dept      *string `json:"dept"      validate:"omitempty,max=64"`
}

func (r profileReq) profile(withDept bool) model.UserProfile {
	p := model.UserProfile{TrueName: r.TrueName, Sex: r.Sex, Telephone: r.Telephone, Birth: r.Birth}
	if withDept {
		p.Dept = r.Dept
	}
	return p
}

// List returns every user. Admin only.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return err
	}
	return okList(c, users, len(users))
}

// Create adds a user, defaulting the password and the regular role.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return badRequest("username 不能为空")
	}
	password := req.Password
	if password == "" {
		password = utils.DefaultPassword
	}
	role := model.RoleUser
	if req.Role != nil {
		role = *req.Role
	}
	u := &model.User{
		Username:  req.Username,
		TrueName:  req.TrueName,
		Sex:       req.Sex,
		Telephone: req.Telephone,
		Birth:     req.Birth,
		Dept:      req.Dept,
		Role:      role,
	}

	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	err := h.Users.Create(ctx, u, password, h.BcryptCost)
	if errors.Is(err, repository.ErrUsernameTaken) {
		return echo.NewHTTPError(http.StatusConflict, "用户名 "+req.Username+" 已存在")
	}
	if err != nil {
		return err
	}
	return ok(c, u)
}

// Info returns the caller's own record.
func (h *UserHandler) Info(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	u, err := h.Users.FindByID(ctx, p.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return notFound("用户ID %d 不存在", p.UserID)
	}
	if err != nil {
		return err
	}
	return ok(c, u)
}

// AdminUpdate edits any user's profile; the target uid is in the body.
func (h *UserHandler) AdminUpdate(c echo.Context) error {
	var req profileReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.UID == 0 {
		return badRequest("uid 不能为空")
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	err := h.Users.UpdateProfile(ctx, req.UID, req.profile(true))
	if errors.Is(err, repository.ErrUserNotFound) {
		return notFound("用户ID %d 不存在", req.UID)
	}
	if err != nil {
		return err
	}
	u, err := h.Users.FindByID(ctx, req.UID)
	if err != nil {
		return err
	}
	return ok(c, u)
}

// UpdateSelf edits the caller's own name, sex, telephone and birth date.
// Only the keys present in the body change.
func (h *UserHandler) UpdateSelf(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req profileReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	err = h.Users.UpdateProfile(ctx, p.UserID, req.profile(false))
	if errors.Is(err, repository.ErrUserNotFound) {
		return notFound("用户ID %d 不存在", p.UserID)
	}
	if err != nil {
		return err
	}
	return success(c)
}

// Delete removes a user after revoking their sessions. Admins cannot
// delete themselves.
func (h *UserHandler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	uid, err := idParam(c, "uid")
	if err != nil {
		return err
	}
	if uid == p.UserID {
		return badRequest(msgCannotDeleteSelf)
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	if _, err := h.Users.FindByID(ctx, uid); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return notFound("用户ID %d 不存在", uid)
		}
		return err
	}
	if err := h.Sessions.RevokeAllForUser(ctx, uid); err != nil {
		return err
	}
	err = h.Users.Delete(ctx, uid)
	if errors.Is(err, repository.ErrUserNotFound) {
		return notFound("用户ID %d 不存在", uid)
	}
	if err != nil {
		return err
	}
	return success(c)
}

// LogoutAll revokes every session of the caller.
func (h *UserHandler) LogoutAll(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	if err := h.Sessions.RevokeAllForUser(ctx, p.UserID); err != nil {
		return err
	}
	return success(c)
}

// ForceLogout revokes every session of the user in the path. Admin only.
func (h *UserHandler) ForceLogout(c echo.Context) error {
	uid, err := idParam(c, "uid")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	if err := h.Sessions.RevokeAllForUser(ctx, uid); err != nil {
		return err
	}
	return success(c)
}
