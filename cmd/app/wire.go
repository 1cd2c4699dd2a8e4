//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/points-dashboard/internal/bootstrap"
	"github.com/yanqian/points-dashboard/internal/domain/dashboard"
	"github.com/yanqian/points-dashboard/internal/infra/backend"
	"github.com/yanqian/points-dashboard/internal/infra/config"
	httpiface "github.com/yanqian/points-dashboard/internal/interface/http"
	"github.com/yanqian/points-dashboard/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideDashboardConfig,
		provideBackendClient,
		provideRuleSource,
		provideClassifier,
		provideNormalizer,
		provideInvalidationBus,
		provideBroadcaster,
		provideVerifier,
		dashboard.NewService,
		wire.Bind(new(dashboard.RemoteClient), new(*backend.Client)),
		httpiface.NewDashboardHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
