package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	regentity "github.com/ovaphlow/pitchfork/service-waitlist-go/internal/registration/entity"
	statsentity "github.com/ovaphlow/pitchfork/service-waitlist-go/internal/stats/entity"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/web"
)

type stubRegistrations struct{ rows []regentity.Registration }

func (s stubRegistrations) List(context.Context) ([]regentity.Registration, error) { return s.rows, nil }

type stubStats struct{}

func (stubStats) GetOrCreate(context.Context) (*statsentity.Stats, error) {
	return &statsentity.Stats{ID: 1, PageViews: 7, FormSubmissions: 1, LastUpdated: time.Now()}, nil
}

func newTestMux(t *testing.T) (http.Handler, *Service) {
	t.Helper()
	svc, _ := newTestService(t)
	_, err := svc.CreateAdmin(context.Background(), "admin", "pw")
	require.NoError(t, err)

	views, err := web.NewRenderer()
	require.NoError(t, err)
	logger := zap.NewNop().Sugar()
	h := NewHandler(svc, stubRegistrations{rows: []regentity.Registration{{ID: 1, Email: "a@b.com", FullName: "Jane Doe", CreatedAt: time.Now()}}}, stubStats{}, views, logger, false)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/login", h.LoginForm)
	mux.HandleFunc("POST /admin/login", h.Login)
	mux.Handle("GET /admin/dashboard", RequireAuthenticated(svc, logger)(http.HandlerFunc(h.Dashboard)))
	mux.HandleFunc("GET /admin/logout", h.Logout)
	return mux, svc
}

func login(t *testing.T, mux http.Handler, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {"admin"}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	return nil
}

func TestDashboardRedirectsAnonymous(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))
	assert.NotContains(t, rec.Body.String(), "a@b.com")

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "forged"})
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestLoginFlow(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := login(t, mux, "pw")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, DashboardPath, rec.Header().Get("Location"))
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "a@b.com")
	assert.Contains(t, rec.Body.String(), "Signed in as admin")

	req = httptest.NewRequest(http.MethodGet, "/admin/logout", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	cleared := sessionCookie(rec)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)

	req = httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code, "old cookie no longer opens the dashboard")
}

func TestLoginWrongPasswordRerendersWithFlash(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := login(t, mux, "nope")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), flashBadCredentials)
	assert.Nil(t, sessionCookie(rec))
}

func TestLogoutWithoutSession(t *testing.T) {
	mux, _ := newTestMux(t)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/logout", nil))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
	}
}

func TestIdentityFrom(t *testing.T) {
	_, ok := IdentityFrom(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), &Identity{AdminID: 3, Username: "x"})
	id, ok := IdentityFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(3), id.AdminID)
}
