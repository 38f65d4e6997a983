//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"rsd/internal"
	"rsd/internal/controllers"
	"rsd/internal/gateway"
	"rsd/internal/lock"
	"rsd/internal/notifier"
	"rsd/internal/poller"
	"rsd/internal/providers"
	"rsd/internal/services"
	"rsd/internal/store"
	"rsd/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,
		providers.NewSourceProvider,

		store.NewZstdCompressor,
		store.NewBadgerStore,
		wire.Bind(new(store.MetricStore), new(*store.BadgerStore)),

		services.NewStatusService,
		gateway.NewHub,
		wire.Bind(new(notifier.Sink), new(*gateway.Hub)),
		notifier.NewNotifier,

		lock.NewManagerFromStore,
		lock.NewGate,
		poller.NewPoller,

		controllers.NewApiController,
		controllers.NewHealthController,
		controllers.NewWsController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
