//go:build wireinject
// +build wireinject

package di

import (
	"FinLoad/pkg/config"
	"FinLoad/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRecorder,
		ProvideMetrics,

		// Infrastructure
		ProvidePriceStore,
		ProvideCache,
		ProvideRunLock,
		ProvideReportPublisher,
		ProvideQuoteProvider,

		// Use cases
		ProvideIngestion,
		ProvidePricesUseCase,

		// HTTP
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application
		ProvideApp,
	)
	return nil, nil, nil
}
