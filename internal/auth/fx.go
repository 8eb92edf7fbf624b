package auth

import (
	"github.com/quillform/quillform/internal/auth/lifecycle"
	"github.com/quillform/quillform/internal/auth/repository"
	"github.com/quillform/quillform/internal/auth/service"
	"github.com/quillform/quillform/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.Provide),
	fx.Provide(lifecycle.New),
	fx.Provide(service.New),
	fx.Provide(session.NewManager),
)
