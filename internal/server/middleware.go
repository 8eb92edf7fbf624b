package server

import (
	"github.com/gin-gonic/gin"
	authdomain "github.com/quillform/quillform/internal/auth/domain"
	"github.com/quillform/quillform/internal/auth/session"
	identitydomain "github.com/quillform/quillform/internal/identity/domain"
)

const currentUserKey = "current_user"

// AuthRequired resolves the login cookie to a user and aborts with 401
// when it cannot.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.Read(c, session.LoginCookie)
		if !ok {
			AbortWithError(c, authdomain.ErrNotAuthenticated)
			return
		}
		user, err := s.authsvc.CurrentUser(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Set(currentUserKey, user)
		c.Next()
	}
}

// OptionalAuth resolves the login cookie when present and valid, and
// otherwise lets the request through anonymously.
func (s *Server) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := s.sessions.Read(c, session.LoginCookie); ok {
			if user := s.authsvc.OptionalCurrentUser(c.Request.Context(), token); user != nil {
				c.Set(currentUserKey, user)
			}
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *identitydomain.User {
	value, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, ok := value.(*identitydomain.User)
	if !ok {
		return nil
	}
	return user
}
