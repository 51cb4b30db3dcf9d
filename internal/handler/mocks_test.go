package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AurLemon/course-android-mockapi/internal/auth"
	"github.com/AurLemon/course-android-mockapi/internal/middleware"
	"github.com/AurLemon/course-android-mockapi/internal/model"
	"github.com/AurLemon/course-android-mockapi/internal/repository"
)

var (
	alice = model.Principal{UserID: 7, Username: "alice", Role: model.RoleUser}
	admin = model.Principal{UserID: 1, Username: "admin", Role: model.RoleAdmin}
)

// tokenTable resolves fixed bearer tokens for the guard.
type tokenTable map[string]model.Principal

func (t tokenTable) Validate(_ context.Context, token string) (model.Principal, error) {
	if p, ok := t[token]; ok {
		return p, nil
	}
	return model.Principal{}, auth.ErrUnauthorized
}

var testTokens = tokenTable{"alice-token": alice, "admin-token": admin}

func newEcho() (*echo.Echo, echo.MiddlewareFunc) {
	e := echo.New()
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = ErrorHandler(zap.NewNop())
	return e, middleware.Guard(testTokens)
}

func do(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type response struct {
	Code  int             `json:"code"`
	Msg   string          `json:"msg"`
	Total *int            `json:"total"`
	Data  json.RawMessage `json:"data"`
	Page  *model.Page     `json:"page"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	var r response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r), rec.Body.String())
	require.Equal(t, rec.Code, r.Code)
	return r
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) response {
	t.Helper()
	r := decode(t, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(r.Data, dst))
	return r
}

// ----- mocks -----

type mockSessions struct{ mock.Mock }

func (m *mockSessions) IssueOrRotate(ctx context.Context, p model.Principal) (*auth.Grant, error) {
	args := m.Called(ctx, p)
	g, _ := args.Get(0).(*auth.Grant)
	return g, args.Error(1)
}

func (m *mockSessions) Refresh(ctx context.Context, token string) (*auth.Grant, error) {
	args := m.Called(ctx, token)
	g, _ := args.Get(0).(*auth.Grant)
	return g, args.Error(1)
}

func (m *mockSessions) Revoke(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockSessions) RevokeAllForUser(ctx context.Context, uid uint64) error {
	return m.Called(ctx, uid).Error(0)
}

type mockCredentials struct{ mock.Mock }

func (m *mockCredentials) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	args := m.Called(ctx, username, password)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockCredentials) Recheck(ctx context.Context, uid uint64, password string) (*model.User, error) {
	args := m.Called(ctx, uid, password)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Create(ctx context.Context, u *model.User, password string, cost int) error {
	return m.Called(ctx, u, password, cost).Error(0)
}

func (m *mockUsers) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUsers) List(ctx context.Context) ([]*model.User, error) {
	args := m.Called(ctx)
	us, _ := args.Get(0).([]*model.User)
	return us, args.Error(1)
}

func (m *mockUsers) UpdateProfile(ctx context.Context, uid uint64, p model.UserProfile) error {
	return m.Called(ctx, uid, p).Error(0)
}

func (m *mockUsers) UpdatePassword(ctx context.Context, uid uint64, password string, cost int) error {
	return m.Called(ctx, uid, password, cost).Error(0)
}

func (m *mockUsers) Delete(ctx context.Context, uid uint64) error {
	return m.Called(ctx, uid).Error(0)
}

type mockNotices struct{ mock.Mock }

func (m *mockNotices) List(ctx context.Context) ([]*model.Notice, error) {
	args := m.Called(ctx)
	ns, _ := args.Get(0).([]*model.Notice)
	return ns, args.Error(1)
}

func (m *mockNotices) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockNotices) GetByID(ctx context.Context, id uint64) (*model.Notice, error) {
	args := m.Called(ctx, id)
	n, _ := args.Get(0).(*model.Notice)
	return n, args.Error(1)
}

func (m *mockNotices) Create(ctx context.Context, title, content string, authorID uint64) (*model.Notice, error) {
	args := m.Called(ctx, title, content, authorID)
	n, _ := args.Get(0).(*model.Notice)
	return n, args.Error(1)
}

func (m *mockNotices) Update(ctx context.Context, id uint64, title, content *string) (*model.Notice, error) {
	args := m.Called(ctx, id, title, content)
	n, _ := args.Get(0).(*model.Notice)
	return n, args.Error(1)
}

func (m *mockNotices) Delete(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

type mockAlbums struct{ mock.Mock }

func (m *mockAlbums) Page(ctx context.Context, q model.AlbumQuery) ([]*model.Album, model.Page, error) {
	args := m.Called(ctx, q)
	as, _ := args.Get(0).([]*model.Album)
	return as, args.Get(1).(model.Page), args.Error(2)
}

func (m *mockAlbums) ListByType(ctx context.Context, typeID uint64) ([]*model.Album, error) {
	args := m.Called(ctx, typeID)
	as, _ := args.Get(0).([]*model.Album)
	return as, args.Error(1)
}

func (m *mockAlbums) GetByID(ctx context.Context, id uint64) (*model.Album, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*model.Album)
	return a, args.Error(1)
}

func (m *mockAlbums) ListTypes(ctx context.Context) ([]*model.AlbumType, error) {
	args := m.Called(ctx)
	ts, _ := args.Get(0).([]*model.AlbumType)
	return ts, args.Error(1)
}

func (m *mockAlbums) Create(ctx context.Context, a *model.Album) (*model.Album, error) {
	args := m.Called(ctx, a)
	out, _ := args.Get(0).(*model.Album)
	return out, args.Error(1)
}

func (m *mockAlbums) Update(ctx context.Context, id uint64, p repository.AlbumPatch) (*model.Album, error) {
	args := m.Called(ctx, id, p)
	out, _ := args.Get(0).(*model.Album)
	return out, args.Error(1)
}

func (m *mockAlbums) Delete(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

// purgeLog records cache purges.
type purgeLog struct{ groups []string }

func (p *purgeLog) purge(_ context.Context, group string) { p.groups = append(p.groups, group) }
