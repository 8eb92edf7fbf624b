package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/quillform/quillform/internal/auth/domain"
	"github.com/quillform/quillform/internal/auth/session"
)

type registerRequest struct {
	Username        string `json:"username" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"password_confirm" binding:"required"`
	Name            string `json:"name"`
}

func (s *Server) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	err := s.authsvc.Register(c.Request.Context(), authdomain.RegisterRequest{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		Name:            req.Name,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"detail": "Account created, check your inbox for the verification code."})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks credentials and opens the short-lived OTP session. The
// login cookie is only set once the OTP is confirmed.
func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	result, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, session.AuthCookie, result.AuthSessionToken, result.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{
		"detail":     "Check your inbox for the login code.",
		"session_id": result.AuthSessionToken,
	})
}

func (s *Server) Me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func (s *Server) Logout(c *gin.Context) {
	s.sessions.Clear(c, session.LoginCookie)
	c.JSON(http.StatusOK, gin.H{"detail": "Logged out."})
}

type verifyAccountRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Token     string `json:"token" binding:"required"`
}

func (s *Server) VerifyAccount(c *gin.Context) {
	var req verifyAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	err := s.authsvc.VerifyAccount(c.Request.Context(), authdomain.VerifyAccountRequest{
		SessionID: req.SessionID,
		OTP:       req.Token,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Account verified."})
}

type verifyLoginRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Token     string `json:"token" binding:"required"`
}

// VerifyLogin exchanges an OTP session id passed in the body.
func (s *Server) VerifyLogin(c *gin.Context) {
	var req verifyLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}
	s.finishLogin(c, req.SessionID, req.Token)
}

type verifyLoginOTPRequest struct {
	Token string `json:"token" binding:"required"`
}

// VerifyLoginOTP exchanges the OTP session carried by the _auths cookie.
func (s *Server) VerifyLoginOTP(c *gin.Context) {
	var req verifyLoginOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	token, ok := s.sessions.Read(c, session.AuthCookie)
	if !ok {
		AbortWithError(c, authdomain.ErrSessionNotFound)
		return
	}
	s.finishLogin(c, token, req.Token)
}

func (s *Server) finishLogin(c *gin.Context, authSessionToken, otp string) {
	result, err := s.authsvc.Authenticate(c.Request.Context(), authdomain.AuthenticateRequest{
		AuthSessionToken: authSessionToken,
		OTP:              otp,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, session.LoginCookie, result.LoginToken, result.ExpiresAt)
	s.sessions.Clear(c, session.AuthCookie)
	c.JSON(http.StatusOK, gin.H{"detail": "Logged in."})
}

type sendVerificationRequest struct {
	Email string `json:"email" binding:"required"`
}

func (s *Server) SendVerification(c *gin.Context) {
	var req sendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	if err := s.authsvc.SendVerification(c.Request.Context(), req.Email); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Verification code sent."})
}
