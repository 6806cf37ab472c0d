/*
 * @module api/middleware/identity
 * @description 身份中间件，从网关转发的请求头中读取当前用户
 * @architecture 中间件模式 - HTTP请求拦截和验证
 * @stateFlow 请求头提取 -> 上下文注入 -> 下一个处理器
 * @rules 所有者接口缺少身份时返回401；公开接口身份可选
 * @dependencies net/http, context
 * @refs api/routes.go
 */

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/render"
)

// ContextKey 上下文键类型
type ContextKey string

const (
	// UserIDKey 当前用户在上下文中的键
	UserIDKey ContextKey = "user_id"
)

// 网关转发的用户标识请求头
const (
	HeaderUserID      = "X-User-ID"
	HeaderForwardedID = "X-Forwarded-User"
)

type errorBody struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
}

// Identity 读取用户标识写入上下文，不做拦截
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := extractUserID(r)
		if userID != "" {
			r = r.WithContext(WithUserID(r.Context(), userID))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser 要求请求携带用户标识
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserIDFromContext(r.Context()) == "" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, errorBody{
				Status: http.StatusUnauthorized,
				Msg:    "未登录或缺少用户标识",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUserID 向上下文写入用户标识
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// UserIDFromContext 获取当前用户标识，未登录时为空
func UserIDFromContext(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}

func extractUserID(r *http.Request) string {
	if userID := strings.TrimSpace(r.Header.Get(HeaderUserID)); userID != "" {
		return userID
	}
	return strings.TrimSpace(r.Header.Get(HeaderForwardedID))
}
