package push

import (
	"context"
	"fmt"
	"os"

	"msgengine/internal/common"
	"msgengine/internal/config"

	"go.uber.org/zap"
)

// TokenSettingKey is where the registered push token is persisted.
const TokenSettingKey = "msgengine.push.token"

// Probe selects the push capability once at startup from explicit
// configuration. There is no runtime class loading: the variant is a plain
// value decided here and passed down by the composition root.
func Probe(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) common.PushProvider {
	switch cfg.Push.Provider {
	case string(common.PushFCM):
		if cfg.Push.CredentialsFilePath == "" {
			log.Warnw("FCM requested but no credentials file configured, push disabled")
			return NoneProvider{}
		}
		if _, err := os.Stat(cfg.Push.CredentialsFilePath); err != nil {
			log.Warnw("FCM credentials file unreadable, push disabled",
				"path", cfg.Push.CredentialsFilePath, "error", err)
			return NoneProvider{}
		}
		provider, err := NewFCMProvider(ctx, cfg, log)
		if err != nil {
			log.Warnw("FCM initialization failed, push disabled", "error", err)
			return NoneProvider{}
		}
		return provider
	case string(common.PushHMS):
		// no HMS SDK is linked; the capability exists so hosts that carry
		// one can slot it in without touching the engine
		log.Warnw("HMS requested but no HMS SDK is linked, push disabled")
		return NoneProvider{}
	default:
		return NoneProvider{}
	}
}

// NoneProvider is the no-push variant. Tickles still work when delivered
// through the host's own channels.
type NoneProvider struct{}

func (NoneProvider) Kind() common.PushKind {
	return common.PushNone
}

func (NoneProvider) Register(ctx context.Context) (string, error) {
	return "", fmt.Errorf("push registration unavailable: no provider configured")
}
