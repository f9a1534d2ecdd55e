package dbstore

import (
	"context"
	"sync"
	"time"

	"msgengine/internal/common"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageStore owns the persisted representation of every message. The
// presentation queue only ever holds a projection of what this store
// returns and can be rebuilt from it at any time.
type MessageStore interface {
	// UpsertAndPrune writes the fetched batch (insert-or-update on id, never
	// a duplicate row), deletes everything matching an eviction rule and
	// returns the rows still eligible for display plus the ids that were
	// written. The delivered ids are an at-least-once signal: an id shows up
	// whether the row was new or just refreshed.
	UpsertAndPrune(ctx context.Context, messages []*Message) (presentable []*Message, deliveredIDs []uint64)

	// ReadPresentable returns the displayable rows without writing anything.
	// Used on cold start and surface-available triggers that have no fresh
	// fetch to merge.
	ReadPresentable(ctx context.Context) []*Message

	// MarkOpened is idempotent: it sets opened_at if unset and silently does
	// nothing when the id is unknown, the row may already have been evicted.
	MarkOpened(ctx context.Context, id uint64, openedAt time.Time) error

	ReadInboxItems(ctx context.Context) []common.InboxItem
	MarkInboxRead(ctx context.Context, id uint64, readAt time.Time) error
	MarkInboxDismissed(ctx context.Context, id uint64, deletedAt time.Time) error
	UnreadInboxCount(ctx context.Context) int64

	// InboxMessage loads a single inbox row for targeted presentation.
	InboxMessage(ctx context.Context, id uint64) (*Message, error)
}

type messageStore struct {
	db  *gorm.DB
	log *zap.SugaredLogger

	// single-writer discipline over the store file
	mu sync.Mutex

	now func() time.Time
}

func NewMessageStore(db *gorm.DB, log *zap.SugaredLogger) MessageStore {
	return &messageStore{
		db:  db,
		log: log,
		now: time.Now,
	}
}

func (s *messageStore) UpsertAndPrune(ctx context.Context, messages []*Message) ([]*Message, []uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deliveredIDs := make([]uint64, 0, len(messages))

	if len(messages) > 0 {
		// Conflict on id resolves to an update of every column, so a later
		// fetch of a known message overwrites fields instead of duplicating
		// the row.
		err := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{UpdateAll: true}).
			Create(&messages).Error
		if err != nil {
			// Local persistence must never take the host down. The server
			// stays the source of truth, the next sync re-delivers the batch.
			s.log.Errorw("message upsert failed, degrading to empty result",
				"count", len(messages), "error", &common.StorageError{Op: "upsert", Err: err})
			return nil, nil
		}
		for _, m := range messages {
			deliveredIDs = append(deliveredIDs, m.ID)
		}
	}

	if err := s.prune(ctx); err != nil {
		s.log.Errorw("message prune failed", "error", err)
		// pruning failure is not fatal for delivery, keep going with reads
	}

	return s.readPresentable(ctx), deliveredIDs
}

// prune physically deletes rows matching either eviction rule. Runs inside
// every write cycle, there is no separate sweep.
func (s *messageStore) prune(ctx context.Context) error {
	now := s.now()

	// Rule 1: opened and not an inbox item.
	err := s.db.WithContext(ctx).
		Where("opened_at IS NOT NULL AND inbox_from IS NULL AND inbox_to IS NULL").
		Delete(&Message{}).Error
	if err != nil {
		return &common.StorageError{Op: "prune opened", Err: err}
	}

	// Rule 2: inbox item whose window has lapsed, opened or not. A window
	// that has not opened yet is kept: the row becomes visible once
	// inbox_from passes. An absent upper bound means the window never
	// lapses.
	err = s.db.WithContext(ctx).
		Where("inbox_to IS NOT NULL AND inbox_to < ?", now).
		Delete(&Message{}).Error
	if err != nil {
		return &common.StorageError{Op: "prune expired inbox", Err: err}
	}

	return nil
}

func (s *messageStore) ReadPresentable(ctx context.Context) []*Message {
	return s.readPresentable(ctx)
}

func (s *messageStore) readPresentable(ctx context.Context) []*Message {
	var rows []*Message
	err := s.db.WithContext(ctx).
		Where("opened_at IS NULL").
		Order("updated_at ASC").
		Find(&rows).Error
	if err != nil {
		s.log.Errorw("read presentable failed, degrading to empty result",
			"error", &common.StorageError{Op: "read presentable", Err: err})
		return nil
	}

	// TTL is a display lifetime, not an eviction rule: expired rows stay in
	// the store until a rule matches but are filtered out of presentation.
	now := s.now()
	presentable := rows[:0]
	for _, m := range rows {
		if m.TTLExpired(now) {
			continue
		}
		if m.PresentedWhen == string(common.PresentInboxOnly) {
			continue
		}
		presentable = append(presentable, m)
	}
	return presentable
}

func (s *messageStore) MarkOpened(ctx context.Context, id uint64, openedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// UpdateColumn skips gorm's timestamp tracking so the server-assigned
	// updated_at stays untouched and the cursor keeps its meaning.
	err := s.db.WithContext(ctx).
		Model(&Message{}).
		Where("id = ? AND opened_at IS NULL", id).
		UpdateColumn("opened_at", openedAt).Error
	if err != nil {
		return &common.StorageError{Op: "mark opened", Err: err}
	}
	// zero rows affected means already opened or already evicted, both fine
	return nil
}

func (s *messageStore) ReadInboxItems(ctx context.Context) []common.InboxItem {
	var rows []*Message
	err := s.db.WithContext(ctx).
		Where("(inbox_from IS NOT NULL OR inbox_to IS NOT NULL) AND inbox_deleted_at IS NULL").
		Order("sent_at DESC").
		Find(&rows).Error
	if err != nil {
		s.log.Errorw("read inbox failed, degrading to empty result",
			"error", &common.StorageError{Op: "read inbox", Err: err})
		return nil
	}

	now := s.now()
	items := make([]common.InboxItem, 0, len(rows))
	for _, m := range rows {
		if !m.InWindow(now) {
			continue
		}
		items = append(items, common.InboxItem{
			ID:          m.ID,
			Content:     m.Content,
			BadgeConfig: m.BadgeConfig,
			SentAt:      m.SentAt,
			ExpiresAt:   m.WindowTo(),
			ReadAt:      m.ReadAt,
		})
	}
	return items
}

func (s *messageStore) MarkInboxRead(ctx context.Context, id uint64, readAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).
		Model(&Message{}).
		Where("id = ? AND read_at IS NULL", id).
		UpdateColumn("read_at", readAt).Error
	if err != nil {
		return &common.StorageError{Op: "mark inbox read", Err: err}
	}
	return nil
}

func (s *messageStore) MarkInboxDismissed(ctx context.Context, id uint64, deletedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).
		Model(&Message{}).
		Where("id = ? AND inbox_deleted_at IS NULL", id).
		UpdateColumn("inbox_deleted_at", deletedAt).Error
	if err != nil {
		return &common.StorageError{Op: "mark inbox dismissed", Err: err}
	}
	return nil
}

// UnreadInboxCount feeds the persistent badge indicator.
func (s *messageStore) UnreadInboxCount(ctx context.Context) int64 {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Message{}).
		Where("(inbox_from IS NOT NULL OR inbox_to IS NOT NULL) AND read_at IS NULL AND inbox_deleted_at IS NULL").
		Count(&count).Error
	if err != nil {
		s.log.Errorw("unread inbox count failed", "error", &common.StorageError{Op: "unread count", Err: err})
		return 0
	}
	return count
}

func (s *messageStore) InboxMessage(ctx context.Context, id uint64) (*Message, error) {
	var m Message
	err := s.db.WithContext(ctx).
		Where("id = ? AND (inbox_from IS NOT NULL OR inbox_to IS NOT NULL)", id).
		First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, common.ErrNotFound
		}
		return nil, &common.StorageError{Op: "inbox message", Err: err}
	}
	return &m, nil
}
