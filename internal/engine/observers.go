package engine

import (
	"context"
	"sync"

	"msgengine/internal/common"
	"msgengine/internal/dbstore"

	"go.uber.org/zap"
)

// ObserverManager fans engine events out to subscribers. Analytics and
// telemetry live behind this surface so the core never links them
// directly.
type ObserverManager struct {
	observers    map[string]common.EngineObserver
	eventChannel chan common.EngineEvent
	ctx          context.Context
	cancel       context.CancelFunc
	mu           sync.RWMutex
	wg           sync.WaitGroup
	log          *zap.SugaredLogger
}

func NewObserverManager(workerPoolSize, bufferSize int, log *zap.SugaredLogger) *ObserverManager {
	ctx, cancel := context.WithCancel(context.Background())

	if workerPoolSize <= 0 {
		workerPoolSize = 1
	}
	if bufferSize <= 0 {
		bufferSize = 64
	}

	om := &ObserverManager{
		observers:    make(map[string]common.EngineObserver),
		eventChannel: make(chan common.EngineEvent, bufferSize),
		ctx:          ctx,
		cancel:       cancel,
		log:          log,
	}

	for i := 0; i < workerPoolSize; i++ {
		om.wg.Add(1)
		go om.processEvents()
	}

	return om
}

func (om *ObserverManager) Subscribe(observer common.EngineObserver) {
	om.mu.Lock()
	defer om.mu.Unlock()
	om.observers[observer.Name()] = observer
	om.log.Debugw("observer subscribed", "observer", observer.Name())
}

func (om *ObserverManager) Unsubscribe(observer common.EngineObserver) {
	om.mu.Lock()
	defer om.mu.Unlock()
	delete(om.observers, observer.Name())
	om.log.Debugw("observer unsubscribed", "observer", observer.Name())
}

func (om *ObserverManager) Notify(event common.EngineEvent) {
	om.mu.RLock()
	observers := make([]common.EngineObserver, 0, len(om.observers))
	for _, obs := range om.observers {
		observers = append(observers, obs)
	}
	om.mu.RUnlock()

	for _, observer := range observers {
		if err := observer.Update(event); err != nil {
			// a broken observer never breaks delivery
			om.log.Warnw("observer update failed",
				"observer", observer.Name(), "event", event.Type, "error", err)
		}
	}
}

func (om *ObserverManager) NotifyAsync(event common.EngineEvent) {
	select {
	case om.eventChannel <- event:
	case <-om.ctx.Done():
	default:
		om.log.Warnw("event channel full, dropping event", "event", event.Type)
	}
}

func (om *ObserverManager) processEvents() {
	defer om.wg.Done()

	for {
		select {
		case event := <-om.eventChannel:
			om.Notify(event)
		case <-om.ctx.Done():
			return
		}
	}
}

func (om *ObserverManager) Shutdown() {
	om.cancel()
	om.wg.Wait()
	om.log.Debugw("observer manager shutdown complete")
}

// BadgeObserver recomputes the unread inbox count after every delivery or
// user action and pushes it to the host's badge/launcher indicator.
type BadgeObserver struct {
	store   dbstore.MessageStore
	onBadge func(count int64)
}

func NewBadgeObserver(store dbstore.MessageStore, onBadge func(count int64)) *BadgeObserver {
	return &BadgeObserver{
		store:   store,
		onBadge: onBadge,
	}
}

func (b *BadgeObserver) Name() string {
	return "badge_observer"
}

func (b *BadgeObserver) Update(event common.EngineEvent) error {
	if b.onBadge == nil {
		return nil
	}
	b.onBadge(b.store.UnreadInboxCount(context.Background()))
	return nil
}
