package api

import (
	"net/http"
	"time"

	"envelope/config"
	"envelope/middleware"

	"github.com/gin-gonic/gin"
)

// getCookieOptions 根据运行模式返回 Cookie 的安全选项
// release 模式下启用 Secure（仅 HTTPS 传输），并设置 SameSite 以防止 CSRF
func getCookieOptions() (secure bool, sameSite http.SameSite) {
	cfg := config.GlobalConfig
	if cfg != nil && cfg.Server.Mode == "release" {
		secure = true
	}
	// SameSite=Lax: 防止跨站 POST 请求携带 Cookie，同时允许同站导航
	sameSite = http.SameSiteLaxMode
	return
}

// setSessionCookie 写入 HttpOnly 会话 Cookie
func setSessionCookie(c *gin.Context, token string, ttl time.Duration) {
	secure, sameSite := getCookieOptions()
	c.SetSameSite(sameSite)
	c.SetCookie(middleware.SessionCookieName(), token, int(ttl.Seconds()), "/", "", secure, true)
}

// clearSessionCookie 立即过期会话 Cookie
func clearSessionCookie(c *gin.Context) {
	secure, sameSite := getCookieOptions()
	c.SetSameSite(sameSite)
	c.SetCookie(middleware.SessionCookieName(), "", -1, "/", "", secure, true)
}
