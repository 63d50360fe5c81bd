package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lottery-server/internal/auth"
	"lottery-server/internal/config"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCtx(method, target string, headers map[string]string) (*beegocontext.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ctx := beegocontext.NewContext()
	ctx.Reset(rec, req)
	return ctx, rec
}

func useConfig(t *testing.T, fn func(c *config.Config)) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Auth.JWT.Secret = "s3cret"
	cfg.Auth.JWT.AccessTokenTTL = 60
	fn(cfg)
	config.SetCurrent(cfg)
	t.Cleanup(func() { config.SetCurrent(nil) })
}

func TestAdminAuthFilter(t *testing.T) {
	useConfig(t, func(c *config.Config) {
		c.Auth.Admin.Enabled = true
		c.Auth.Admin.Token = "adm-token"
	})

	tests := []struct {
		name   string
		header string
		status int
		admin  bool
	}{
		{"missing", "", 401, false},
		{"bad format", "adm-token", 401, false},
		{"wrong token", "Bearer nope", 401, false},
		{"ok", "Bearer adm-token", 200, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := map[string]string{}
			if tt.header != "" {
				h["Authorization"] = tt.header
			}
			ctx, rec := newCtx(http.MethodPost, "/api/admin/prizes", h)
			AdminAuthFilter(ctx)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.admin, ctx.Input.GetData("is_admin") != nil)
		})
	}
}

func TestAdminAuthDisabled(t *testing.T) {
	useConfig(t, func(c *config.Config) {})
	ctx, rec := newCtx(http.MethodPost, "/api/admin/prizes", nil)
	AdminAuthFilter(ctx)
	assert.Equal(t, 403, rec.Code)

	useConfig(t, func(c *config.Config) { c.Auth.DemoMode = true })
	ctx, rec = newCtx(http.MethodPost, "/api/admin/prizes", nil)
	AdminAuthFilter(ctx)
	assert.Equal(t, 200, rec.Code)
}

func TestDemoThenUserAuth(t *testing.T) {
	useConfig(t, func(c *config.Config) { c.Auth.DemoMode = true })

	ctx, rec := newCtx(http.MethodPost, "/api/draw", map[string]string{"X-User-Id": "9"})
	DemoAuthFilter(ctx)
	UserAuthFilter(ctx)
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, int64(9), ctx.Input.GetData("user_id"))

	tok, err := auth.GenerateAccessToken(5, "13800000000")
	require.NoError(t, err)
	ctx, rec = newCtx(http.MethodPost, "/api/draw", map[string]string{"Authorization": "Bearer " + tok})
	DemoAuthFilter(ctx)
	UserAuthFilter(ctx)
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, int64(5), ctx.Input.GetData("user_id"))

	ctx, rec = newCtx(http.MethodPost, "/api/draw", nil)
	DemoAuthFilter(ctx)
	UserAuthFilter(ctx)
	assert.Equal(t, 401, rec.Code)
	assert.Nil(t, ctx.Input.GetData("user_id"))
}

func TestDemoHeaderIgnoredOutsideDemoMode(t *testing.T) {
	useConfig(t, func(c *config.Config) {})

	ctx, rec := newCtx(http.MethodPost, "/api/draw", map[string]string{"X-User-Id": "9"})
	DemoAuthFilter(ctx)
	UserAuthFilter(ctx)
	assert.Equal(t, 401, rec.Code)
}

func TestRequestIDFilter(t *testing.T) {
	ctx, rec := newCtx(http.MethodGet, "/", map[string]string{"X-Request-Id": "rid-1"})
	RequestIDFilter(ctx)
	assert.Equal(t, "rid-1", ctx.Input.GetData("trace_id"))
	assert.Equal(t, "rid-1", rec.Header().Get("X-Request-Id"))

	ctx, _ = newCtx(http.MethodGet, "/", nil)
	RequestIDFilter(ctx)
	assert.NotEmpty(t, ctx.Input.GetData("trace_id"))
}

func TestRateLimitHelpers(t *testing.T) {
	assert.Equal(t, 1, windowOrDefault(0))
	assert.Equal(t, 50, limitFor(5, 10))

	ctx, _ := newCtx(http.MethodGet, "/", map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2"})
	assert.Equal(t, "1.1.1.1", getClientIP(ctx))
	ctx, _ = newCtx(http.MethodGet, "/", nil)
	assert.Equal(t, "192.0.2.1", getClientIP(ctx))
}

func TestRateLimitRules(t *testing.T) {
	cfg := &config.Config{}
	cfg.RateLimit.ByIP.RequestsPerSecond = 5
	cfg.RateLimit.ByUser.RequestsPerSecond = 2
	cfg.RateLimit.ByUser.WindowSeconds = 3

	ctx, _ := newCtx(http.MethodPost, "/api/draw", map[string]string{"X-Real-IP": "9.9.9.9"})
	rules := rulesFor(ctx, cfg)
	require.Len(t, rules, 1, "user rule needs user_id")
	assert.Equal(t, rateRule{dimension: "ip", subject: "9.9.9.9", limit: 5, span: time.Second}, rules[0])

	ctx.Input.SetData("user_id", int64(7))
	rules = rulesFor(ctx, cfg)
	require.Len(t, rules, 2)
	assert.Equal(t, rateRule{dimension: "user", subject: "7", limit: 6, span: 3 * time.Second}, rules[1])
}

func TestCORSFilter(t *testing.T) {
	useConfig(t, func(c *config.Config) {
		c.CORS.Enabled = true
		c.CORS.AllowedOrigins = []string{"https://a.example"}
		c.CORS.AllowedMethods = []string{"GET", "POST"}
		c.CORS.MaxAge = 600
	})

	ctx, rec := newCtx(http.MethodOptions, "/api/draw", map[string]string{"Origin": "https://a.example"})
	CORSFilter(ctx)
	assert.Equal(t, 204, rec.Code)
	assert.Equal(t, "https://a.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))

	ctx, rec = newCtx(http.MethodGet, "/api/prizes", map[string]string{"Origin": "https://evil.example"})
	CORSFilter(ctx)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
