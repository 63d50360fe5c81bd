package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"lottery-server/internal/config"

	beegocontext "github.com/beego/beego/v2/server/web/context"
)

// CORSFilter 按配置回写跨域响应头；预检请求直接 204 结束
func CORSFilter(ctx *beegocontext.Context) {
	cfg := config.GetCurrent()
	if cfg == nil || !cfg.CORS.Enabled {
		return
	}
	origin := ctx.Request.Header.Get("Origin")
	if origin == "" || !originAllowed(cfg.CORS.AllowedOrigins, origin) {
		return
	}

	h := ctx.Output
	h.Header("Access-Control-Allow-Origin", origin)
	h.Header("Vary", "Origin")
	h.Header("Access-Control-Allow-Methods", strings.Join(cfg.CORS.AllowedMethods, ", "))
	h.Header("Access-Control-Allow-Headers", strings.Join(cfg.CORS.AllowedHeaders, ", "))
	if len(cfg.CORS.ExposedHeaders) > 0 {
		h.Header("Access-Control-Expose-Headers", strings.Join(cfg.CORS.ExposedHeaders, ", "))
	}
	if cfg.CORS.MaxAge > 0 {
		h.Header("Access-Control-Max-Age", strconv.Itoa(cfg.CORS.MaxAge))
	}
	if cfg.CORS.AllowCredentials {
		h.Header("Access-Control-Allow-Credentials", "true")
	}

	if ctx.Request.Method == http.MethodOptions {
		h.SetStatus(http.StatusNoContent)
		ctx.ResponseWriter.WriteHeader(http.StatusNoContent)
	}
}

func originAllowed(allowed []string, origin string) bool {
	return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
}
