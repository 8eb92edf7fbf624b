package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/quillform/quillform/internal/logger"
	"github.com/quillform/quillform/internal/migration"
	"github.com/quillform/quillform/internal/server"
	"github.com/quillform/quillform/pkg/db"
	"go.uber.org/fx"
)

func registerSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func main() {
	app := fx.New(
		logger.Module,
		db.Module,
		fx.Provide(registerSnowflake),
		server.Module,
		migration.Module,
	)
	app.Run()
}
