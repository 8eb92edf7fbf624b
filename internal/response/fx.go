package response

import (
	"github.com/quillform/quillform/internal/response/repository"
	"github.com/quillform/quillform/internal/response/service"
	"github.com/quillform/quillform/internal/response/validator"
	"go.uber.org/fx"
)

var Module = fx.Module("response.service",
	fx.Provide(repository.Provide),
	fx.Provide(validator.Provide),
	fx.Provide(service.New),
)
