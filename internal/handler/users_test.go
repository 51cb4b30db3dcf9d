package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/AurLemon/course-android-mockapi/internal/middleware"
	"github.com/AurLemon/course-android-mockapi/internal/model"
	"github.com/AurLemon/course-android-mockapi/internal/repository"
	"github.com/AurLemon/course-android-mockapi/internal/utils"
)

type userFixture struct {
	e        *echo.Echo
	users    *mockUsers
	sessions *mockSessions
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	e, guard := newEcho()
	f := &userFixture{e: e, users: new(mockUsers), sessions: new(mockSessions)}
	h := NewUserHandler(f.users, f.sessions, 4, time.Second)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	g := e.Group("/users", guard)
	g.GET("/info", h.Info)
	g.PUT("/modify", h.UpdateSelf)
	g.GET("/logout", h.LogoutAll)
	g.GET("/list", h.List, adminOnly)
	g.POST("/add", h.Create, adminOnly)
	g.PUT("/info/modify", h.AdminUpdate, adminOnly)
	g.DELETE("/delete/:uid", h.Delete, adminOnly)
	g.DELETE("/sessions/:uid", h.ForceLogout, adminOnly)

	t.Cleanup(func() {
		f.users.AssertExpectations(t)
		f.sessions.AssertExpectations(t)
	})
	return f
}

func TestUserListHidesPasswords(t *testing.T) {
	f := newUserFixture(t)
	f.users.On("List", mock.Anything).Return([]*model.User{
		{UID: 1, Username: "admin", PasswordHash: "$2a$secret", Role: model.RoleAdmin},
		{UID: 7, Username: "alice", PasswordHash: "$2a$secret", Role: model.RoleUser},
	}, nil)

	rec := do(f.e, http.MethodGet, "/users/list", "", "admin-token")
	var users []map[string]any
	r := decodeData(t, rec, &users)
	require.NotNil(t, r.Total)
	assert.Equal(t, 2, *r.Total)
	assert.Len(t, users, 2)
	assert.NotContains(t, rec.Body.String(), "secret")
	assert.NotContains(t, rec.Body.String(), "password")

	rec = do(f.e, http.MethodGet, "/users/list", "", "alice-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUserCreateDefaults(t *testing.T) {
	f := newUserFixture(t)
	f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Username == "bob" && u.Role == model.RoleUser && u.Dept == "24计应"
	}), utils.DefaultPassword, 4).Run(func(args mock.Arguments) {
		args.Get(1).(*model.User).UID = 12
	}).Return(nil)

	rec := do(f.e, http.MethodPost, "/users/add", `{"username":" bob ","dept":"24计应"}`, "admin-token")
	var u model.User
	decodeData(t, rec, &u)
	assert.Equal(t, uint64(12), u.UID)
}

func TestUserCreateDuplicate(t *testing.T) {
	f := newUserFixture(t)
	f.users.On("Create", mock.Anything, mock.Anything, "pw", 4).Return(repository.ErrUsernameTaken)

	rec := do(f.e, http.MethodPost, "/users/add", `{"username":"alice","password":"pw","role":0}`, "admin-token")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "用户名 alice 已存在", decode(t, rec).Msg)
}

func TestUserCreateRejectsUnknownRole(t *testing.T) {
	f := newUserFixture(t)
	rec := do(f.e, http.MethodPost, "/users/add", `{"username":"bob","role":5}`, "admin-token")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserInfo(t *testing.T) {
	f := newUserFixture(t)
	f.users.On("FindByID", mock.Anything, uint64(7)).Return(&model.User{UID: 7, Username: "alice", TrueName: "爱丽丝"}, nil)

	rec := do(f.e, http.MethodGet, "/users/info", "", "alice-token")
	var u model.User
	decodeData(t, rec, &u)
	assert.Equal(t, "爱丽丝", u.TrueName)
}

func TestUserUpdateSelfIgnoresDept(t *testing.T) {
	f := newUserFixture(t)
	f.users.On("UpdateProfile", mock.Anything, uint64(7), mock.MatchedBy(func(p model.UserProfile) bool {
		return p.Telephone != nil && *p.Telephone == "123" && p.Dept == nil && p.TrueName == nil
	})).Return(nil)

	rec := do(f.e, http.MethodPut, "/users/modify", `{"telephone":"123","dept":"hacked"}`, "alice-token")
	var body map[string]bool
	decodeData(t, rec, &body)
	assert.True(t, body["success"])
}

func TestUserAdminUpdate(t *testing.T) {
	f := newUserFixture(t)
	f.users.On("UpdateProfile", mock.Anything, uint64(7), mock.MatchedBy(func(p model.UserProfile) bool {
		return p.Dept != nil && *p.Dept == "CS"
	})).Return(nil)
	f.users.On("FindByID", mock.Anything, uint64(7)).Return(&model.User{UID: 7, Dept: "CS"}, nil)
	f.users.On("UpdateProfile", mock.Anything, uint64(99), mock.Anything).Return(repository.ErrUserNotFound)

	rec := do(f.e, http.MethodPut, "/users/info/modify", `{"uid":7,"dept":"CS"}`, "admin-token")
	var u model.User
	decodeData(t, rec, &u)
	assert.Equal(t, "CS", u.Dept)

	rec = do(f.e, http.MethodPut, "/users/info/modify", `{"uid":99,"dept":"CS"}`, "admin-token")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(f.e, http.MethodPut, "/users/info/modify", `{"dept":"CS"}`, "admin-token")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserDeleteRevokesSessionsFirst(t *testing.T) {
	f := newUserFixture(t)
	var order []string
	f.users.On("FindByID", mock.Anything, uint64(7)).Return(&model.User{UID: 7}, nil)
	f.sessions.On("RevokeAllForUser", mock.Anything, uint64(7)).Run(func(mock.Arguments) { order = append(order, "revoke") }).Return(nil)
	f.users.On("Delete", mock.Anything, uint64(7)).Run(func(mock.Arguments) { order = append(order, "delete") }).Return(nil)

	rec := do(f.e, http.MethodDelete, "/users/delete/7", "", "admin-token")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"revoke", "delete"}, order)
}

func TestUserDeleteRefusals(t *testing.T) {
	f := newUserFixture(t)
	f.users.On("FindByID", mock.Anything, uint64(42)).Return(nil, repository.ErrUserNotFound)

	rec := do(f.e, http.MethodDelete, "/users/delete/1", "", "admin-token")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgCannotDeleteSelf, decode(t, rec).Msg)

	rec = do(f.e, http.MethodDelete, "/users/delete/42", "", "admin-token")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(f.e, http.MethodDelete, "/users/delete/abc", "", "admin-token")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserLogoutAndForceLogout(t *testing.T) {
	f := newUserFixture(t)
	f.sessions.On("RevokeAllForUser", mock.Anything, uint64(7)).Return(nil).Twice()

	rec := do(f.e, http.MethodGet, "/users/logout", "", "alice-token")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(f.e, http.MethodDelete, "/users/sessions/7", "", "admin-token")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(f.e, http.MethodDelete, "/users/sessions/7", "", "alice-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
