//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"InferGate/internal/biz"
	"InferGate/internal/conf"
	"InferGate/internal/data"
	"InferGate/internal/metrics"
	"InferGate/internal/model"
	"InferGate/internal/server"
	"InferGate/internal/service"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init kratos application.
func wireApp(*conf.Server, *conf.Data, *conf.Resilience, []*model.ProviderConfig, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(
		metrics.NewDefault,
		data.ProviderSet,
		biz.ProviderSet,
		service.ProviderSet,
		server.ProviderSet,
		newCronServer,
		newApp,
	))
}
