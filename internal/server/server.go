// Package server exposes the HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quillform/quillform/internal/auth"
	authdomain "github.com/quillform/quillform/internal/auth/domain"
	"github.com/quillform/quillform/internal/auth/session"
	"github.com/quillform/quillform/internal/authorization"
	"github.com/quillform/quillform/internal/background"
	"github.com/quillform/quillform/internal/clock"
	"github.com/quillform/quillform/internal/config"
	"github.com/quillform/quillform/internal/form"
	formdomain "github.com/quillform/quillform/internal/form/domain"
	"github.com/quillform/quillform/internal/identity"
	"github.com/quillform/quillform/internal/observability"
	"github.com/quillform/quillform/internal/providers/email"
	"github.com/quillform/quillform/internal/ratelimit"
	"github.com/quillform/quillform/internal/response"
	responsedomain "github.com/quillform/quillform/internal/response/domain"
	"github.com/quillform/quillform/internal/translation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	config.Module,
	clock.Module,
	observability.Module,
	identity.Module,
	authorization.Module,
	background.Module,
	email.Module,
	auth.Module,
	form.Module,
	response.Module,
	translation.Module,
	ratelimit.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, metrics *observability.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log))
	r.Use(metrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	return r
}

func registerGin(log *zap.Logger, metrics *observability.Metrics) *gin.Engine {
	return NewEngine(log, metrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	authsvc        authdomain.Service
	sessions       *session.Manager
	formsvc        formdomain.Service
	responsesvc    responsedomain.Service
	translationsvc *translation.Service
	limiter        *ratelimit.Limiter
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Authsvc        authdomain.Service
	Sessions       *session.Manager
	Formsvc        formdomain.Service
	Responsesvc    responsedomain.Service
	Translationsvc *translation.Service
	Limiter        *ratelimit.Limiter
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		authsvc:        p.Authsvc,
		sessions:       p.Sessions,
		formsvc:        p.Formsvc,
		responsesvc:    p.Responsesvc,
		translationsvc: p.Translationsvc,
		limiter:        p.Limiter,
	}

	svc.registerAuthRoutes()
	svc.registerFormRoutes()
	svc.registerResponseRoutes()
	svc.registerMiscRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/api/v1/auth")
	limited := s.limiter.Middleware()

	auth.POST("/register", s.Register)
	auth.POST("/login", limited, s.Login)
	auth.GET("/me", s.AuthRequired(), s.Me)
	auth.POST("/logout", s.Logout)
	auth.POST("/verify-account", limited, s.VerifyAccount)
	auth.POST("/verify-login", limited, s.VerifyLogin)
	auth.POST("/verify-login-otp", limited, s.VerifyLoginOTP)
	auth.POST("/send-verification", limited, s.SendVerification)
}

func (s *Server) registerFormRoutes() {
	api := s.engine.Group("/api/v1")

	forms := api.Group("/forms")
	forms.POST("", s.AuthRequired(), s.CreateForm)
	forms.GET("", s.AuthRequired(), s.ListForms)
	forms.GET("/:form_id", s.OptionalAuth(), s.GetForm)
	forms.PUT("/:form_id", s.AuthRequired(), s.UpdateForm)
	forms.DELETE("/:form_id", s.AuthRequired(), s.DeleteForm)
	forms.POST("/:form_id/close", s.AuthRequired(), s.CloseForm)
	forms.POST("/:form_id/open", s.AuthRequired(), s.OpenForm)
	forms.POST("/:form_id/translate", s.TranslateForm)
	forms.GET("/:form_id/fields", s.OptionalAuth(), s.ListFields)
	forms.POST("/:form_id/fields", s.AuthRequired(), s.AddField)
	forms.POST("/:form_id/sessions/submit", s.SubmitResponses)
	forms.GET("/:form_id/responses", s.AuthRequired(), s.ListResponses)
	forms.GET("/:form_id/responses/export", s.AuthRequired(), s.ExportResponses)

	// Own forms live outside /forms so the id wildcard stays unambiguous.
	api.GET("/me/forms", s.AuthRequired(), s.ListOwnForms)

	fields := api.Group("/fields")
	fields.PUT("/:field_id", s.AuthRequired(), s.UpdateField)
	fields.DELETE("/:field_id", s.AuthRequired(), s.DeleteField)
}

func (s *Server) registerResponseRoutes() {
	responses := s.engine.Group("/api/v1/responses")

	responses.POST("", s.Respond)
	responses.POST("/save", s.SaveResponses)
	responses.GET("/session", s.GetAnswerSession)
	responses.PUT("/:answer_id", s.EditResponse)
	responses.DELETE("/:answer_id", s.OptionalAuth(), s.DeleteResponse)
}

func (s *Server) registerMiscRoutes() {
	misc := s.engine.Group("/api/v1/miscellaneous")

	misc.POST("/translate", s.TranslateText)
}
