package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sportshub-ticketing/internal/config"
	"github.com/iliyamo/sportshub-ticketing/internal/events"
	"github.com/iliyamo/sportshub-ticketing/internal/handler"
	"github.com/iliyamo/sportshub-ticketing/internal/middleware"
	"github.com/iliyamo/sportshub-ticketing/internal/model"
	"github.com/iliyamo/sportshub-ticketing/internal/repository"
	"github.com/iliyamo/sportshub-ticketing/internal/utils"
)

type accounts map[uint64]*model.User

func (a accounts) GetByID(_ context.Context, id uint64) (*model.User, error) {
	if u, ok := a[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

var customers = accounts{
	3: {ID: 3, Role: model.RoleCustomer, IsActive: true},
	5: {ID: 5, Role: model.RoleCustomer, IsActive: true},
	6: {ID: 6, Role: model.RoleCustomer, IsActive: true},
}

type noEvents struct{}

func (noEvents) FetchSports(context.Context) (*events.SportsEvents, error) {
	return &events.SportsEvents{}, nil
}

func newEchoWith(limit echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.JSONSerializer = JSONSerializer{}
	RegisterRoutes(e, Handlers{
		Auth:      &handler.AuthHandler{},
		Booking:   handler.NewBookingHandler(nil),
		Stadium:   &handler.StadiumHandler{},
		Events:    &handler.EventsHandler{Source: noEvents{}},
		Payment:   &handler.PaymentHandler{},
		Health:    func(c echo.Context) error { return c.JSON(http.StatusOK, echo.Map{"status": "ok"}) },
		JWTSecret: "router-secret",
		Users:     customers,
		RateLimit: limit,
	})
	return e
}

func newEcho() *echo.Echo { return newEchoWith(nil) }

func bearer(t *testing.T, userID uint64) string {
	t.Helper()
	tok, err := utils.NewAccessToken("router-secret", userID, model.RoleCustomer, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func TestRateLimitKeysOnAuthenticatedUser(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	anyArgs := mock.CustomMatch(func(_, _ []interface{}) error { return nil })
	for i := 0; i < 3; i++ {
		anyArgs.ExpectEvalSha("sha", []string{"key"}, 0, 0, 0, 0, 0).
			SetVal([]interface{}{int64(1), int64(4), int64(0)})
	}
	limit := middleware.RateLimit(config.RateLimitConfig{
		Enabled: true, Debug: true, Prefix: "rl", KeyStrategy: "user",
		Capacity: 5, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute,
	}, rdb)
	e := newEchoWith(limit)

	keyFor := func(auth string) string {
		req := httptest.NewRequest(http.MethodGet, "/events/", nil)
		if auth != "" {
			req.Header.Set(echo.HeaderAuthorization, auth)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		return rec.Header().Get("X-RateLimit-Key")
	}

	assert.Equal(t, "rl:user:5", keyFor(bearer(t, 5)))
	assert.Equal(t, "rl:user:6", keyFor(bearer(t, 6)))

	// public routes are still limited, keyed as anonymous
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "rl:user:anon", rec.Header().Get("X-RateLimit-Key"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletedAccountIsUnauthorized(t *testing.T) {
	e := newEcho()
	req := httptest.NewRequest(http.MethodGet, "/events/", nil)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, 404))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := newEcho()
	for _, r := range []struct{ method, path string }{
		{http.MethodPost, "/booking/book-seats"},
		{http.MethodGet, "/booking/"},
		{http.MethodPost, "/booking/cancel-booking"},
		{http.MethodGet, "/stadiums/seat-map/1"},
		{http.MethodGet, "/events/"},
		{http.MethodPost, "/payments/process"},
		{http.MethodGet, "/auth/me"},
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(r.method, r.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, r.path)
	}
}

func TestOwnerRoutesRequireOwnerRole(t *testing.T) {
	e := newEcho()
	tok, err := utils.NewAccessToken("router-secret", 3, "CUSTOMER", 5)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/stadiums/seat-map", strings.NewReader(`{}`))
	req.Header.Set("x-access-token", tok.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	e := newEcho()
	for _, path := range []string{"/health", "/metrics"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestJSONSerializerReportsSyntaxErrors(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":}`))
	c := e.NewContext(req, httptest.NewRecorder())

	var v map[string]any
	err := JSONSerializer{}.Deserialize(c, &v)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestJSONSerializerEncodes(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, JSONSerializer{}.Serialize(c, echo.Map{"ok": true}, ""))
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}
