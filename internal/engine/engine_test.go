package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"msgengine/internal/common"
	"msgengine/internal/config"
	"msgengine/internal/dbstore"
	"msgengine/internal/msgsync"
	"msgengine/internal/push"
)

// Complete mock implementation of the message store with ALL required methods

type MockMessageStore struct {
	mock.Mock
}

func (m *MockMessageStore) UpsertAndPrune(ctx context.Context, messages []*dbstore.Message) ([]*dbstore.Message, []uint64) {
	args := m.Called(ctx, messages)
	var presentable []*dbstore.Message
	if args.Get(0) != nil {
		presentable = args.Get(0).([]*dbstore.Message)
	}
	var delivered []uint64
	if args.Get(1) != nil {
		delivered = args.Get(1).([]uint64)
	}
	return presentable, delivered
}

func (m *MockMessageStore) ReadPresentable(ctx context.Context) []*dbstore.Message {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*dbstore.Message)
}

func (m *MockMessageStore) MarkOpened(ctx context.Context, id uint64, openedAt time.Time) error {
	args := m.Called(ctx, id, openedAt)
	return args.Error(0)
}

func (m *MockMessageStore) ReadInboxItems(ctx context.Context) []common.InboxItem {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]common.InboxItem)
}

func (m *MockMessageStore) MarkInboxRead(ctx context.Context, id uint64, readAt time.Time) error {
	args := m.Called(ctx, id, readAt)
	return args.Error(0)
}

func (m *MockMessageStore) MarkInboxDismissed(ctx context.Context, id uint64, deletedAt time.Time) error {
	args := m.Called(ctx, id, deletedAt)
	return args.Error(0)
}

func (m *MockMessageStore) UnreadInboxCount(ctx context.Context) int64 {
	args := m.Called(ctx)
	return args.Get(0).(int64)
}

func (m *MockMessageStore) InboxMessage(ctx context.Context, id uint64) (*dbstore.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbstore.Message), args.Error(1)
}

type fakeCoordinator struct {
	mu     sync.Mutex
	calls  int
	result *msgsync.Result
	err    error
}

func (f *fakeCoordinator) SyncPass(ctx context.Context) (*msgsync.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &msgsync.Result{}, nil
}

func (f *fakeCoordinator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeScheduler struct {
	mu       sync.Mutex
	periodic []string
	once     []string
}

func (f *fakeScheduler) SchedulePeriodic(name string, interval time.Duration, task func(context.Context) common.TaskOutcome) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.periodic = append(f.periodic, name)
	return func() {}
}

func (f *fakeScheduler) ScheduleOnce(name string, delay time.Duration, task func(context.Context) common.TaskOutcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.once = append(f.once, name)
}

func (f *fakeScheduler) scheduled() (periodic, once []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.periodic...), append([]string(nil), f.once...)
}

type fakeConsent bool

func (f fakeConsent) Enabled() bool { return bool(f) }

type fakeSettings struct {
	mu     sync.Mutex
	values map[string]string
}

func (f *fakeSettings) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[key]
	return value, ok
}

func (f *fakeSettings) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[key] = value
	return nil
}

// stubSurface records every bridge call, guarded because the dispatcher
// goroutine is the caller.
type stubSurface struct {
	mu      sync.Mutex
	loads   []string
	scripts []string
	closes  int
}

func (s *stubSurface) LoadContent(html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads = append(s.loads, html)
	return nil
}

func (s *stubSurface) EvaluateScript(src string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts = append(s.scripts, src)
	return nil
}

func (s *stubSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *stubSurface) loaded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.loads...)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Engine.Workers = 2
	cfg.Engine.DispatchCapacity = 32
	cfg.Engine.EventBufferSize = 32
	cfg.Sync.InitialDelay = time.Millisecond
	cfg.Sync.PeriodicInterval = time.Hour
	return cfg
}

func storeMessage(id uint64, content string) *dbstore.Message {
	return &dbstore.Message{
		ID:            id,
		Content:       content,
		PresentedWhen: "immediately",
		SentAt:        time.Now(),
		UpdatedAt:     time.Now(),
	}
}

func newTestEngine(t *testing.T, store dbstore.MessageStore, coordinator SyncRunner, scheduler common.BackgroundScheduler, consent common.ConsentGate) *Engine {
	cfg := testConfig()
	observers := NewObserverManager(1, cfg.Engine.EventBufferSize, zap.NewNop().Sugar())
	e := New(cfg, store, coordinator, scheduler, consent, push.NoneProvider{}, &fakeSettings{}, observers, zap.NewNop().Sugar())
	t.Cleanup(e.Shutdown)
	return e
}

func TestStart_ConsentWithheldIsInert(t *testing.T) {
	store := new(MockMessageStore)
	coordinator := &fakeCoordinator{}
	scheduler := &fakeScheduler{}

	e := newTestEngine(t, store, coordinator, scheduler, fakeConsent(false))
	e.Start()
	e.OnForeground()
	e.OnTickleReceived(7)

	time.Sleep(50 * time.Millisecond)
	periodic, once := scheduler.scheduled()
	assert.Empty(t, periodic, "no periodic sync may be scheduled without consent")
	assert.Empty(t, once)
	assert.Zero(t, coordinator.callCount(), "no network activity without consent")
}

func TestStart_SchedulesInitialAndPeriodicSync(t *testing.T) {
	store := new(MockMessageStore)
	coordinator := &fakeCoordinator{}
	scheduler := &fakeScheduler{}

	e := newTestEngine(t, store, coordinator, scheduler, fakeConsent(true))
	e.Start()

	assert.Eventually(t, func() bool {
		periodic, once := scheduler.scheduled()
		return len(periodic) == 1 && len(once) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSyncTask_OutcomeMapping(t *testing.T) {
	store := new(MockMessageStore)
	scheduler := &fakeScheduler{}

	tests := []struct {
		name    string
		err     error
		outcome common.TaskOutcome
	}{
		{
			name:    "network error asks for retry",
			err:     &common.NetworkError{Op: "GET", Err: errors.New("refused")},
			outcome: common.OutcomeRetry,
		},
		{
			name:    "server error asks for retry",
			err:     &common.ServerError{Status: 503},
			outcome: common.OutcomeRetry,
		},
		{
			name:    "other errors settle as failed",
			err:     errors.New("weird"),
			outcome: common.OutcomeFailed,
		},
		{
			name:    "clean pass is ok",
			outcome: common.OutcomeOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coordinator := &fakeCoordinator{err: tt.err}
			e := newTestEngine(t, store, coordinator, scheduler, fakeConsent(true))
			assert.Equal(t, tt.outcome, e.syncTask(context.Background()))
		})
	}
}

func TestOnForeground_PresentsDeliveredMessages(t *testing.T) {
	store := new(MockMessageStore)
	store.On("ReadPresentable", mock.Anything).Return([]*dbstore.Message{})

	delivered := storeMessage(1, `{"layout":"banner"}`)
	coordinator := &fakeCoordinator{result: &msgsync.Result{
		Presentable:  []*dbstore.Message{delivered},
		DeliveredIDs: []uint64{1},
	}}
	scheduler := &fakeScheduler{}

	e := newTestEngine(t, store, coordinator, scheduler, fakeConsent(true))

	surface := &stubSurface{}
	e.OnSurfaceAvailable(surface)
	e.OnForeground()

	assert.Eventually(t, func() bool {
		loads := surface.loaded()
		return len(loads) == 1 && loads[0] == `{"layout":"banner"}`
	}, 2*time.Second, 5*time.Millisecond)
}

func TestOnTickle_ReordersExistingQueueEvenWhenSyncFails(t *testing.T) {
	first := storeMessage(1, `{"m":1}`)
	second := storeMessage(2, `{"m":2}`)

	store := new(MockMessageStore)
	store.On("ReadPresentable", mock.Anything).Return([]*dbstore.Message{first, second})

	coordinator := &fakeCoordinator{err: &common.NetworkError{Op: "GET", Err: errors.New("offline")}}
	scheduler := &fakeScheduler{}

	e := newTestEngine(t, store, coordinator, scheduler, fakeConsent(true))

	surface := &stubSurface{}
	e.OnSurfaceAvailable(surface)

	// head is message 1 first
	assert.Eventually(t, func() bool {
		return len(surface.loaded()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	e.OnTickleReceived(2)

	assert.Eventually(t, func() bool {
		loads := surface.loaded()
		return len(loads) == 2 && loads[1] == `{"m":2}`
	}, 2*time.Second, 5*time.Millisecond)
}

func TestOpenedEvent_MarksStoreAndNotifiesObservers(t *testing.T) {
	head := storeMessage(3, `{"m":3}`)
	store := new(MockMessageStore)
	store.On("ReadPresentable", mock.Anything).Return([]*dbstore.Message{head})
	store.On("MarkOpened", mock.Anything, uint64(3), mock.Anything).Return(nil)

	coordinator := &fakeCoordinator{}
	scheduler := &fakeScheduler{}

	e := newTestEngine(t, store, coordinator, scheduler, fakeConsent(true))

	events := make(chan common.EngineEvent, 8)
	e.observers.Subscribe(&channelObserver{name: "test", events: events})

	surface := &stubSurface{}
	e.OnSurfaceAvailable(surface)

	assert.Eventually(t, func() bool {
		return len(surface.loaded()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	e.OnSurfaceMessage([]byte(`{"type":"MESSAGE_OPENED"}`))

	select {
	case event := <-events:
		assert.Equal(t, common.EventOpened, event.Type)
		assert.Equal(t, uint64(3), event.MessageID)
	case <-time.After(2 * time.Second):
		t.Fatal("no opened event observed")
	}
	store.AssertCalled(t, "MarkOpened", mock.Anything, uint64(3), mock.Anything)
}

func TestPresentInboxItem(t *testing.T) {
	now := time.Now().UTC()

	live := storeMessage(10, `{"inbox":true}`)
	from := now.Add(-time.Hour)
	to := now.Add(time.Hour)
	live.InboxFrom = &from
	live.InboxTo = &to

	expired := storeMessage(12, `{"inbox":true}`)
	expiredTo := now.Add(-time.Minute)
	expired.InboxTo = &expiredTo

	store := new(MockMessageStore)
	store.On("ReadPresentable", mock.Anything).Return([]*dbstore.Message{})
	store.On("InboxMessage", mock.Anything, uint64(10)).Return(live, nil)
	store.On("InboxMessage", mock.Anything, uint64(11)).Return(nil, common.ErrNotFound)
	store.On("InboxMessage", mock.Anything, uint64(12)).Return(expired, nil)

	e := newTestEngine(t, store, &fakeCoordinator{}, &fakeScheduler{}, fakeConsent(true))

	surface := &stubSurface{}
	e.OnSurfaceAvailable(surface)

	ctx := context.Background()
	assert.Equal(t, common.Failed, e.PresentInboxItem(ctx, 11))
	assert.Equal(t, common.FailedExpired, e.PresentInboxItem(ctx, 12))
	assert.Equal(t, common.Presented, e.PresentInboxItem(ctx, 10))

	assert.Eventually(t, func() bool {
		loads := surface.loaded()
		return len(loads) == 1 && loads[0] == `{"inbox":true}`
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDeliveredEventsFanOut(t *testing.T) {
	store := new(MockMessageStore)
	coordinator := &fakeCoordinator{result: &msgsync.Result{
		Presentable:  []*dbstore.Message{storeMessage(4, `{"m":4}`)},
		DeliveredIDs: []uint64{4, 5},
	}}

	e := newTestEngine(t, store, coordinator, &fakeScheduler{}, fakeConsent(true))

	events := make(chan common.EngineEvent, 8)
	e.observers.Subscribe(&channelObserver{name: "test", events: events})

	e.OnForeground()

	got := map[uint64]bool{}
	for i := 0; i < 2; i++ {
		select {
		case event := <-events:
			assert.Equal(t, common.EventDelivered, event.Type)
			got[event.MessageID] = true
		case <-time.After(2 * time.Second):
			t.Fatal("missing delivered events")
		}
	}
	assert.True(t, got[4] && got[5])
}

type channelObserver struct {
	name   string
	events chan common.EngineEvent
}

func (o *channelObserver) Name() string { return o.name }

func (o *channelObserver) Update(event common.EngineEvent) error {
	o.events <- event
	return nil
}
