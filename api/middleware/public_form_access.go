/*
 * @module api/middleware/public_form_access
 * @description 公开表单访问限流，按客户端地址计数
 * @architecture 中间件模式
 * @rules 超限返回429；限流器故障时放行
 * @dependencies formbuilder-service/service/rate_limiter
 * @refs service/rate_limiter/redis_rate_limiter.go
 */

package middleware

import (
	"formbuilder-service/service/rate_limiter"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/render"
)

// PublicFormAccess 公开表单访问限流中间件
func PublicFormAccess(limiter rate_limiter.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			result, err := limiter.Allow(r.Context(), ClientIP(r))
			if err != nil {
				slog.Warn("公开表单限流检查失败，已放行", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

			if !result.Allowed {
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, errorBody{
					Status: http.StatusTooManyRequests,
					Msg:    "请求过于频繁，请稍后再试",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP 客户端地址，优先使用代理转发的第一个地址
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
