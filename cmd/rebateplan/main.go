package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/smallbiznis/rebateplan/internal/artifactstore"
	"github.com/smallbiznis/rebateplan/internal/clock"
	"github.com/smallbiznis/rebateplan/internal/config"
	"github.com/smallbiznis/rebateplan/internal/field"
	"github.com/smallbiznis/rebateplan/internal/observability"
	"github.com/smallbiznis/rebateplan/internal/rebate"
	"github.com/smallbiznis/rebateplan/internal/savelock"
	"github.com/smallbiznis/rebateplan/internal/server"
	"github.com/smallbiznis/rebateplan/pkg/db"
)

func main() {
	app := fx.New(
		fx.Provide(config.Load),
		fx.Provide(RegisterSnowflake),

		observability.Module,
		clock.Module,
		db.Module,
		field.Module,
		savelock.Module,
		artifactstore.Module,
		rebate.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
