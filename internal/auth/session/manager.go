package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quillform/quillform/internal/config"
)

const (
	// LoginCookie carries the raw login session token.
	LoginCookie = "user_session_id"
	// AuthCookie carries the raw pre-login OTP session id.
	AuthCookie = "_auths"
	// ResponseCookie carries the public answer session id.
	ResponseCookie = "response_session_id"
)

// Manager sets and clears the auth cookies with uniform attributes:
// http-only, same-site lax, secure per config.
type Manager struct {
	secure bool
}

func NewManager(cfg config.Config) *Manager {
	return &Manager{secure: cfg.AuthCookieSecure}
}

func (m *Manager) Read(c *gin.Context, name string) (string, bool) {
	value, err := c.Cookie(name)
	if err != nil {
		return "", false
	}
	if strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

func (m *Manager) Set(c *gin.Context, name, value string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", m.secure, true)
}

// SetSession sets a cookie that lives until the browser closes.
func (m *Manager) SetSession(c *gin.Context, name, value string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, 0, "/", "", m.secure, true)
}

func (m *Manager) Clear(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", m.secure, true)
}
