package engine

import (
	"context"
	"sync"
	"time"

	"msgengine/internal/common"
	"msgengine/internal/config"
	"msgengine/internal/dbstore"
	"msgengine/internal/msgsync"
	"msgengine/internal/present"
	"msgengine/internal/push"

	"go.uber.org/zap"
)

// SyncRunner is the slice of the sync coordinator the engine drives.
type SyncRunner interface {
	SyncPass(ctx context.Context) (*msgsync.Result, error)
}

// Engine is the application-lifetime composition of store, sync, queue and
// bridge. It is explicitly owned and constructor-injected: references are
// passed in, never looked up through a global.
//
// Threading model: all queue and state-machine work funnels through the
// UI-affine dispatcher; store and network work runs on a small worker
// pool. The two never mix on one goroutine.
type Engine struct {
	cfg         *config.Config
	store       dbstore.MessageStore
	coordinator SyncRunner
	scheduler   common.BackgroundScheduler
	consent     common.ConsentGate
	provider    common.PushProvider
	settings    common.Settings
	observers   *ObserverManager
	log         *zap.SugaredLogger

	queue      *present.Queue
	machine    *present.StateMachine
	dispatcher *present.Dispatcher

	ctx    context.Context
	cancel context.CancelFunc
	tasks  chan func(context.Context)
	wg     sync.WaitGroup

	cancelPeriodic func()
	now            func() time.Time
}

func New(
	cfg *config.Config,
	store dbstore.MessageStore,
	coordinator SyncRunner,
	scheduler common.BackgroundScheduler,
	consent common.ConsentGate,
	provider common.PushProvider,
	settings common.Settings,
	observers *ObserverManager,
	log *zap.SugaredLogger,
) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		cfg:         cfg,
		store:       store,
		coordinator: coordinator,
		scheduler:   scheduler,
		consent:     consent,
		provider:    provider,
		settings:    settings,
		observers:   observers,
		log:         log,
		queue:       present.NewQueue(),
		dispatcher:  present.NewDispatcher(cfg.Engine.DispatchCapacity, log),
		ctx:         ctx,
		cancel:      cancel,
		tasks:       make(chan func(context.Context), cfg.Engine.Workers*4),
		now:         time.Now,
	}

	e.machine = present.NewStateMachine(e.queue, present.Callbacks{
		OnOpened:    e.handleOpened,
		OnDismissed: e.handleDismissed,
	}, log)

	for i := 0; i < cfg.Engine.Workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}

	return e
}

// Start registers push and kicks off the periodic sync. With consent
// withheld the engine stays completely inert: no network, no presentation,
// no scheduling.
func (e *Engine) Start() {
	if !e.consent.Enabled() {
		e.log.Infow("consent withheld, engine staying inert")
		return
	}

	e.submit(func(ctx context.Context) {
		e.registerPushToken(ctx)
	})

	e.scheduler.ScheduleOnce("initial-sync", e.cfg.Sync.InitialDelay, e.syncTask)
	e.cancelPeriodic = e.scheduler.SchedulePeriodic("periodic-sync", e.cfg.Sync.PeriodicInterval, e.syncTask)
}

func (e *Engine) registerPushToken(ctx context.Context) {
	if e.provider.Kind() == common.PushNone {
		return
	}
	token, err := e.provider.Register(ctx)
	if err != nil {
		e.log.Warnw("push registration failed", "kind", e.provider.Kind(), "error", err)
		return
	}
	if err := e.settings.Set(push.TokenSettingKey, token); err != nil {
		e.log.Warnw("failed to persist push token", "error", err)
	}
}

// syncTask is the unit of work handed to the scheduler. Its outcome is the
// retry signal: transient network and server failures ask for a retry,
// everything else settles silently.
func (e *Engine) syncTask(ctx context.Context) common.TaskOutcome {
	if !e.consent.Enabled() {
		return common.OutcomeOK
	}

	result, err := e.coordinator.SyncPass(ctx)
	if err != nil {
		if common.IsRetryable(err) {
			e.log.Infow("sync failed, requesting scheduler retry", "error", err)
			return common.OutcomeRetry
		}
		e.log.Warnw("sync failed permanently this cycle", "error", err)
		return common.OutcomeFailed
	}

	if result.Coalesced {
		return common.OutcomeOK
	}

	e.applySyncResult(result, nil)
	return common.OutcomeOK
}

// applySyncResult marshals the queue merge onto the dispatcher, preserving
// program order relative to user-interaction mutations already queued
// there, and fans out delivery events.
func (e *Engine) applySyncResult(result *msgsync.Result, tickleIDs []uint64) {
	if len(result.Presentable) > 0 || len(tickleIDs) > 0 {
		presentable := result.Presentable
		e.dispatcher.Post(func() {
			headChanged := e.queue.Merge(presentable, tickleIDs)
			e.machine.QueueChanged(headChanged)
		})
	}

	for _, id := range result.DeliveredIDs {
		e.observers.NotifyAsync(common.EngineEvent{
			Type:      common.EventDelivered,
			MessageID: id,
			When:      e.now(),
		})
	}
}

// OnForeground runs one sync pass, retrying through the scheduler if the
// backend is unreachable.
func (e *Engine) OnForeground() {
	if !e.consent.Enabled() {
		return
	}
	e.submit(func(ctx context.Context) {
		if outcome := e.syncTask(ctx); outcome == common.OutcomeRetry {
			e.scheduler.ScheduleOnce("foreground-retry", e.cfg.Sync.InitialDelay, e.syncTask)
		}
	})
}

// OnTickleReceived runs a targeted sync and moves the tickled message to
// the front of the queue. A failed or coalesced sync still reorders
// whatever is already queued: the tickle must win over queue order.
func (e *Engine) OnTickleReceived(id uint64) {
	if !e.consent.Enabled() {
		return
	}
	e.submit(func(ctx context.Context) {
		result, err := e.coordinator.SyncPass(ctx)
		if err != nil {
			e.log.Warnw("tickle sync failed, reordering existing queue only", "id", id, "error", err)
			result = &msgsync.Result{}
		}
		e.applySyncResult(result, []uint64{id})
	})
}

// OnSurfaceAvailable rebuilds the queue from the store (the queue is only
// a cache) and attaches the surface, resuming presentation.
func (e *Engine) OnSurfaceAvailable(surface common.RenderSurface) {
	e.submit(func(ctx context.Context) {
		rows := e.store.ReadPresentable(ctx)
		e.dispatcher.Post(func() {
			e.queue.Merge(rows, nil)
			e.machine.Attach(surface)
		})
	})
}

func (e *Engine) OnSurfaceUnavailable() {
	e.dispatcher.Post(func() {
		e.machine.Detach()
	})
}

// OnSurfaceMessage forwards one raw host-bound bridge message from the
// render surface.
func (e *Engine) OnSurfaceMessage(raw []byte) {
	e.dispatcher.Post(func() {
		e.machine.HandleSurfaceMessage(raw)
	})
}

// CloseCurrent is the host asking to wind down the visible message.
func (e *Engine) CloseCurrent() {
	e.dispatcher.Post(func() {
		e.machine.CloseCurrent()
	})
}

// CancelPresentation empties the queue, used on user/account switch.
func (e *Engine) CancelPresentation() {
	e.dispatcher.Post(func() {
		e.queue.Clear()
		e.machine.CloseCurrent()
	})
}

// Observers exposes the event fan-out for hosts that want badge updates
// or analytics hooks.
func (e *Engine) Observers() *ObserverManager {
	return e.observers
}

func (e *Engine) ReadInboxItems(ctx context.Context) []common.InboxItem {
	return e.store.ReadInboxItems(ctx)
}

func (e *Engine) UnreadInboxCount(ctx context.Context) int64 {
	return e.store.UnreadInboxCount(ctx)
}

func (e *Engine) MarkInboxRead(ctx context.Context, id uint64) error {
	if err := e.store.MarkInboxRead(ctx, id, e.now()); err != nil {
		return err
	}
	e.observers.NotifyAsync(common.EngineEvent{Type: common.EventOpened, MessageID: id, When: e.now()})
	return nil
}

func (e *Engine) MarkInboxDismissed(ctx context.Context, id uint64) error {
	if err := e.store.MarkInboxDismissed(ctx, id, e.now()); err != nil {
		return err
	}
	e.observers.NotifyAsync(common.EngineEvent{Type: common.EventDismissed, MessageID: id, When: e.now()})
	return nil
}

// PresentInboxItem queues a specific inbox message for display. An item
// whose window has lapsed reports FailedExpired instead of silently doing
// nothing.
func (e *Engine) PresentInboxItem(ctx context.Context, id uint64) common.PresentResult {
	m, err := e.store.InboxMessage(ctx, id)
	if err != nil {
		e.log.Warnw("inbox item unavailable for presentation", "id", id, "error", err)
		return common.Failed
	}
	if !m.InWindow(e.now()) {
		return common.FailedExpired
	}

	e.dispatcher.Post(func() {
		headChanged := e.queue.Merge([]*dbstore.Message{m}, []uint64{id})
		e.machine.QueueChanged(headChanged)
	})
	return common.Presented
}

// handleOpened runs on the dispatcher goroutine; the store write moves to
// the worker pool immediately.
func (e *Engine) handleOpened(id uint64) {
	e.submit(func(ctx context.Context) {
		if err := e.store.MarkOpened(ctx, id, e.now()); err != nil {
			e.log.Warnw("mark opened failed, next sync will reconcile", "id", id, "error", err)
		}
		e.observers.NotifyAsync(common.EngineEvent{Type: common.EventOpened, MessageID: id, When: e.now()})
	})
}

func (e *Engine) handleDismissed(id uint64) {
	e.observers.NotifyAsync(common.EngineEvent{Type: common.EventDismissed, MessageID: id, When: e.now()})
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for {
		select {
		case task := <-e.tasks:
			task(e.ctx)
		case <-e.ctx.Done():
			return
		}
	}
}

func (e *Engine) submit(task func(context.Context)) {
	select {
	case e.tasks <- task:
	case <-e.ctx.Done():
	}
}

// Shutdown stops periodic work, drains the worker pool and the dispatcher.
func (e *Engine) Shutdown() {
	if e.cancelPeriodic != nil {
		e.cancelPeriodic()
	}
	e.cancel()
	e.wg.Wait()
	e.dispatcher.Stop()
	e.observers.Shutdown()
	e.log.Infow("engine shutdown complete")
}
