package msgsync

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"msgengine/internal/common"
	"msgengine/internal/dbstore"

	"go.uber.org/zap"
)

// CursorSettingKey is where the sync watermark lives in the key-value
// collaborator.
const CursorSettingKey = "msgengine.sync.cursor"

// Fetcher is the slice of Client the coordinator needs.
type Fetcher interface {
	Fetch(ctx context.Context, cursor *time.Time) ([]*dbstore.Message, error)
}

// MessageWriter is the slice of the store the coordinator needs.
type MessageWriter interface {
	UpsertAndPrune(ctx context.Context, messages []*dbstore.Message) ([]*dbstore.Message, []uint64)
}

// Result is what one sync pass hands back to the trigger.
type Result struct {
	Presentable  []*dbstore.Message
	DeliveredIDs []uint64

	// Coalesced is set when the pass was skipped because another one was
	// already in flight. Its eventual results cover this trigger too.
	Coalesced bool
}

// Coordinator owns the sync cursor and orchestrates one pass: fetch, write
// through the store, then - and only then - advance the cursor. Writing
// first bounds the failure mode to reprocessing already-seen messages,
// which the idempotent upsert makes harmless. Advancing first could lose a
// message forever.
type Coordinator struct {
	fetcher  Fetcher
	store    MessageWriter
	settings common.Settings
	log      *zap.SugaredLogger

	// single in-flight sync at a time, concurrent triggers are coalesced
	inFlight atomic.Bool
}

func NewCoordinator(fetcher Fetcher, store MessageWriter, settings common.Settings, log *zap.SugaredLogger) *Coordinator {
	return &Coordinator{
		fetcher:  fetcher,
		store:    store,
		settings: settings,
		log:      log,
	}
}

// Cursor returns the persisted watermark, if any.
func (c *Coordinator) Cursor() (time.Time, bool) {
	raw, ok := c.settings.Get(CursorSettingKey)
	if !ok || raw == "" {
		return time.Time{}, false
	}
	cursor, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		c.log.Warnw("persisted cursor is unparseable, falling back to full fetch",
			"raw", raw, "error", err)
		return time.Time{}, false
	}
	return cursor, true
}

// SyncPass runs one complete pass. Network and server errors propagate to
// the caller as a scheduler-level retry signal with cursor and store left
// untouched.
func (c *Coordinator) SyncPass(ctx context.Context) (*Result, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		c.log.Debugw("sync pass already in flight, coalescing trigger")
		return &Result{Coalesced: true}, nil
	}
	defer c.inFlight.Store(false)

	var cursorPtr *time.Time
	if cursor, ok := c.Cursor(); ok {
		cursorPtr = &cursor
	}

	messages, err := c.fetcher.Fetch(ctx, cursorPtr)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// nothing provisioned for this user yet
			return &Result{}, nil
		}
		var validationErr *common.ValidationError
		if errors.As(err, &validationErr) {
			// the whole body was garbage: skip this cycle, do not poison
			// the scheduler with endless retries
			c.log.Warnw("sync response malformed, skipping cycle", "error", err)
			return &Result{}, nil
		}
		return nil, err
	}

	if len(messages) == 0 {
		// an empty pass leaves the cursor exactly where it was
		return &Result{}, nil
	}

	maxUpdated := messages[0].UpdatedAt
	for _, m := range messages[1:] {
		if m.UpdatedAt.After(maxUpdated) {
			maxUpdated = m.UpdatedAt
		}
	}

	presentable, deliveredIDs := c.store.UpsertAndPrune(ctx, messages)
	if len(deliveredIDs) == 0 {
		// the store degraded to an empty write; leave the cursor alone so
		// the next pass re-fetches this batch
		c.log.Warnw("store write yielded no delivered ids, keeping cursor", "fetched", len(messages))
		return &Result{}, nil
	}

	c.advanceCursor(maxUpdated)

	return &Result{Presentable: presentable, DeliveredIDs: deliveredIDs}, nil
}

// advanceCursor moves the watermark forward, never backward.
func (c *Coordinator) advanceCursor(to time.Time) {
	if current, ok := c.Cursor(); ok && !to.After(current) {
		return
	}
	if err := c.settings.Set(CursorSettingKey, to.Format(time.RFC3339Nano)); err != nil {
		// worst case is a duplicate fetch next pass, upsert absorbs it
		c.log.Warnw("failed to persist sync cursor", "cursor", to, "error", err)
	}
}
