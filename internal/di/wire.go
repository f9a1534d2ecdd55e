//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"msgengine/internal/config"
	"msgengine/internal/dbstore"
	"msgengine/internal/engine"
	"msgengine/internal/msgsync"
	"msgengine/internal/sched"
)

// This is just a declaration, wire generates the real body
func InitializeApplication() (*Application, error) {
	wire.Build(
		ProvideConfig,
		config.NewLogger,
		dbstore.NewDB,
		dbstore.NewMessageStore,
		dbstore.NewSettings,
		ProvideTokenSource,
		ProvideAuthClient,
		ProvideSyncClient,
		ProvideFetcher,
		ProvideMessageWriter,
		msgsync.NewCoordinator,
		ProvideSyncRunner,
		sched.NewTickerScheduler,
		ProvideBackgroundScheduler,
		ProvideConsentGate,
		ProvidePushProvider,
		ProvideObserverManager,
		engine.New,
		wire.Struct(new(Application), "*"),
	)
	return &Application{}, nil
}
