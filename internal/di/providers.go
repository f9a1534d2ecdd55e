package di

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"msgengine/internal/common"
	"msgengine/internal/config"
	"msgengine/internal/dbstore"
	"msgengine/internal/engine"
	"msgengine/internal/httpx"
	"msgengine/internal/msgsync"
	"msgengine/internal/push"
	"msgengine/internal/sched"
)

// Application bundles everything the host process needs a handle on:
// the engine itself plus the pieces with their own shutdown story.
type Application struct {
	Config    *config.Config
	Log       *zap.SugaredLogger
	DB        *gorm.DB
	Store     dbstore.MessageStore
	Settings  common.Settings
	Scheduler *sched.TickerScheduler
	Engine    *engine.Engine
}

func ProvideConfig() (*config.Config, error) {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func ProvideTokenSource(cfg *config.Config) httpx.TokenSource {
	if cfg.Sync.TokenSecret == "" {
		return httpx.StaticTokenSource("")
	}
	return httpx.NewHS256TokenSource(cfg.Sync.TokenSecret, cfg.Sync.TokenSubject)
}

func ProvideAuthClient(tokens httpx.TokenSource, log *zap.SugaredLogger) common.AuthenticatedClient {
	return httpx.NewAuthClient(tokens, log)
}

func ProvideSyncClient(cfg *config.Config, httpClient common.AuthenticatedClient, log *zap.SugaredLogger) *msgsync.Client {
	return msgsync.NewClient(httpClient, cfg.Sync.BaseURL, log)
}

func ProvideFetcher(client *msgsync.Client) msgsync.Fetcher {
	return client
}

func ProvideMessageWriter(store dbstore.MessageStore) msgsync.MessageWriter {
	return store
}

func ProvideSyncRunner(coordinator *msgsync.Coordinator) engine.SyncRunner {
	return coordinator
}

func ProvideBackgroundScheduler(scheduler *sched.TickerScheduler) common.BackgroundScheduler {
	return scheduler
}

// ProvideConsentGate reads the host's consent decision once at startup.
// Real hosts pass their own gate through engine construction; the demo
// binary reads it from the environment.
func ProvideConsentGate() common.ConsentGate {
	return staticConsent(strings.EqualFold(os.Getenv("MSGENGINE_CONSENT"), "granted"))
}

type staticConsent bool

func (s staticConsent) Enabled() bool { return bool(s) }

func ProvidePushProvider(cfg *config.Config, log *zap.SugaredLogger) common.PushProvider {
	return push.Probe(context.Background(), cfg, log)
}

func ProvideObserverManager(cfg *config.Config, log *zap.SugaredLogger) *engine.ObserverManager {
	return engine.NewObserverManager(cfg.Engine.Workers, cfg.Engine.EventBufferSize, log)
}
