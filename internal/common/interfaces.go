package common

import (
	"context"
	"time"
)

// HTTPResponse is the minimal response shape the engine cares about. Header
// handling, redirects etc. all live behind the AuthenticatedClient.
type HTTPResponse struct {
	Status int
	Body   []byte
}

// AuthenticatedClient is the transport collaborator. Whoever implements it
// owns auth headers, TLS, proxies and timeouts - the engine never touches
// net/http directly outside of httpx.
type AuthenticatedClient interface {
	Execute(ctx context.Context, method, url string, headers map[string]string, body []byte) (*HTTPResponse, error)
}

// Settings is the key-value collaborator used for small scalar state that
// must survive restarts (the sync cursor, the registered push token).
type Settings interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// BackgroundScheduler registers periodic and one-shot deferred work.
// Implementations guarantee at-least-once invocation and may retry a task
// that reports OutcomeRetry.
type BackgroundScheduler interface {
	SchedulePeriodic(name string, interval time.Duration, task func(context.Context) TaskOutcome) (cancel func())
	ScheduleOnce(name string, delay time.Duration, task func(context.Context) TaskOutcome)
}

// RenderSurface is the sandboxed content view the bridge drives. It is an
// untrusted async peer: calls may fail, events may arrive stale.
type RenderSurface interface {
	LoadContent(html string) error
	EvaluateScript(src string) error
	Close() error
}

// ConsentGate is checked before any sync or presentation work is scheduled.
type ConsentGate interface {
	Enabled() bool
}

// PushProvider is the compile-time capability interface for push
// registration. Exactly one variant is selected at startup by probing the
// platform configuration, there is no runtime class loading of vendor SDKs.
type PushProvider interface {
	Kind() PushKind
	Register(ctx context.Context) (string, error)
}

type EngineObserver interface {
	Update(event EngineEvent) error
	Name() string
}

type Subject interface {
	Subscribe(observer EngineObserver)
	Unsubscribe(observer EngineObserver)
	Notify(event EngineEvent)
	NotifyAsync(event EngineEvent)
}
