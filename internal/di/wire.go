//go:build wireinject
// +build wireinject

package di

import (
	"CargoCast/pkg/config"
	"CargoCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Data and model stores
		ProvideDataBackend,
		ProvideModelStore,
		ProvideRunStore,
		ProvideRunEvents,
		ProvideBytesCache,

		// Engines and services
		ProvideForecaster,
		ProvideBacktestEngine,
		ProvideForecastService,
		ProvideRunService,

		// HTTP and application server
		ProvideHandlers,
		ProvideApp,
	)
	return &server.App{}, nil
}
