package form

import (
	"github.com/quillform/quillform/internal/form/repository"
	"github.com/quillform/quillform/internal/form/service"
	"go.uber.org/fx"
)

var Module = fx.Module("form.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
