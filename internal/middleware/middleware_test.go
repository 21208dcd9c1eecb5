package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sportshub-ticketing/internal/config"
	"github.com/iliyamo/sportshub-ticketing/internal/model"
	"github.com/iliyamo/sportshub-ticketing/internal/repository"
	"github.com/iliyamo/sportshub-ticketing/internal/utils"
)

const secret = "mw-secret"

// fakeUsers maps ids to accounts; a missing id is a deleted user.
type fakeUsers map[uint64]*model.User

func (f fakeUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

var users = fakeUsers{
	1: {ID: 1, Role: "OWNER", IsActive: true},
	2: {ID: 2, Role: "CUSTOMER", IsActive: true},
	5: {ID: 5, Role: "CUSTOMER", IsActive: true},
	7: {ID: 7, Role: "CUSTOMER", IsActive: false},
}

func protected(t *testing.T, mws ...echo.MiddlewareFunc) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"id": c.Get(ContextUserID), "role": c.Get(ContextRole)})
	}, mws...)
	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthHeaders(t *testing.T) {
	tok, err := utils.NewAccessToken(secret, 5, "CUSTOMER", 5)
	require.NoError(t, err)
	e := protected(t, JWTAuth(secret, users))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(AccessTokenHeader, tok.Token)
	rec := serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":5,"role":"CUSTOMER"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	assert.Equal(t, http.StatusOK, serve(e, req).Code)
}

func TestJWTAuthRejects(t *testing.T) {
	other, err := utils.NewAccessToken("someone-else", 5, "CUSTOMER", 5)
	require.NoError(t, err)
	e := protected(t, JWTAuth(secret, users))

	for name, set := range map[string]func(*http.Request){
		"missing":      func(*http.Request) {},
		"wrong secret": func(r *http.Request) { r.Header.Set(AccessTokenHeader, other.Token) },
		"basic scheme": func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Basic abc") },
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			set(req)
			rec := serve(e, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"success":false,"message":"Unauthorized"}`, rec.Body.String())
		})
	}
}

func TestJWTAuthRejectsMissingOrInactiveUser(t *testing.T) {
	e := protected(t, JWTAuth(secret, users))
	for name, id := range map[string]uint64{"deleted": 99, "inactive": 7} {
		t.Run(name, func(t *testing.T) {
			tok, err := utils.NewAccessToken(secret, id, "CUSTOMER", 5)
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set(AccessTokenHeader, tok.Token)
			rec := serve(e, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"success":false,"message":"Unauthorized"}`, rec.Body.String())
		})
	}
}

func TestJWTAuthTakesRoleFromAccount(t *testing.T) {
	// token still claims OWNER after the account was demoted
	tok, err := utils.NewAccessToken(secret, 2, "OWNER", 5)
	require.NoError(t, err)
	e := protected(t, JWTAuth(secret, users), RequireRole("OWNER"))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(AccessTokenHeader, tok.Token)
	assert.Equal(t, http.StatusForbidden, serve(e, req).Code)
}

func TestRequireRole(t *testing.T) {
	owner, err := utils.NewAccessToken(secret, 1, "OWNER", 5)
	require.NoError(t, err)
	customer, err := utils.NewAccessToken(secret, 2, "CUSTOMER", 5)
	require.NoError(t, err)
	e := protected(t, JWTAuth(secret, users), RequireRole("OWNER"))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(AccessTokenHeader, owner.Token)
	assert.Equal(t, http.StatusOK, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(AccessTokenHeader, customer.Token)
	assert.Equal(t, http.StatusForbidden, serve(e, req).Code)
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, got)
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload(bs[:6])
	assert.False(t, ok)
}

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		Prefix:       "cache",
		MaxBodyBytes: 1024,
	}
}

func TestResponseCacheMissStoresAndHitReplays(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := cacheConfig()
	calls := 0
	e := echo.New()
	e.GET("/events", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "hello")
	}, ResponseCache(cfg, rdb))

	req := httptest.NewRequest(http.MethodGet, "/events?league=nba", nil)
	key := cacheKey(cfg, req)
	payload, err := encodePayload(http.StatusOK, http.Header{"Content-Type": {echo.MIMETextPlainCharsetUTF8}}, []byte("hello"))
	require.NoError(t, err)

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, payload, time.Minute).SetVal("OK")
	rec := serve(e, req)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "hello", rec.Body.String())

	mock.ExpectGet(key).SetVal(string(payload))
	rec = serve(e, httptest.NewRequest(http.MethodGet, "/events?league=nba", nil))
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, "hello", rec.Body.String())
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResponseCacheSkipsErrorsAndOtherMethods(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := cacheConfig()
	e := echo.New()
	mw := ResponseCache(cfg, rdb)
	e.GET("/events", func(c echo.Context) error {
		return c.String(http.StatusBadGateway, "upstream down")
	}, mw)
	e.POST("/events", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, mw)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	mock.ExpectGet(cacheKey(cfg, req)).RedisNil()
	rec := serve(e, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = serve(e, httptest.NewRequest(http.MethodPost, "/events", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheKeyUsesConcretePath(t *testing.T) {
	cfg := cacheConfig()
	a := cacheKey(cfg, httptest.NewRequest(http.MethodGet, "/stadiums/seat-map/1", nil))
	b := cacheKey(cfg, httptest.NewRequest(http.MethodGet, "/stadiums/seat-map/2", nil))
	c := cacheKey(cfg, httptest.NewRequest(http.MethodGet, "/stadiums/seat-map/1?x=1", nil))
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/booking/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/booking/")
	c.Set(ContextUserID, uint64(9))

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}
	assert.Equal(t, "rl:ip:10.0.0.1", rateKey(cfg, c))
	cfg.KeyStrategy = "user_route"
	assert.Equal(t, "rl:user:9:route:GET /booking/", rateKey(cfg, c))
	cfg.KeyStrategy = ""
	assert.Equal(t, "rl:ip:10.0.0.1:user:9:route:GET /booking/", rateKey(cfg, c))
}

func TestRateLimitPassThroughWithoutRedis(t *testing.T) {
	mw := RateLimit(config.RateLimitConfig{Enabled: true}, nil)
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, mw)
	assert.Equal(t, http.StatusNoContent, serve(e, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}
