//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cloudstok/mines-game-backend/internal/biz"
	"github.com/cloudstok/mines-game-backend/internal/conf"
	"github.com/cloudstok/mines-game-backend/internal/data"
	"github.com/cloudstok/mines-game-backend/internal/server"
	"github.com/cloudstok/mines-game-backend/internal/service"
)

// wireApp assembles the application graph.
func wireApp(*conf.Server, *conf.Data, *conf.Game, *zap.Logger) (*app, func(), error) {
	panic(wire.Build(server.ProviderSet, data.ProviderSet, biz.ProviderSet, service.ProviderSet, newApp))
}
