package dbstore

import (
	"time"
)

// farFuture stands in for an open inbox window upper bound.
var farFuture = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

type Message struct { //Message struct containing all the attributes for the messages table
	ID          uint64  `gorm:"primaryKey"`
	Content     string  `gorm:"not null;type:text"`
	Data        *string `gorm:"type:text"`
	BadgeConfig *string `gorm:"type:text"`

	// Inbox window bounds. Both nil means the message is not an inbox item.
	InboxFrom *time.Time
	InboxTo   *time.Time

	PresentedWhen string `gorm:"not null;size:50;default:'immediately'"`
	TTLHours      *int

	// Server-assigned timestamps. UpdatedAt drives the sync cursor so gorm
	// must never touch it on write.
	SentAt    time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;index;autoUpdateTime:false"`

	// Local user-action timestamps
	OpenedAt       *time.Time
	ReadAt         *time.Time
	InboxDeletedAt *time.Time
}

func (Message) TableName() string {
	return "messages"
}

// IsInbox reports whether the message carries an inbox window at all.
func (m *Message) IsInbox() bool {
	return m.InboxFrom != nil || m.InboxTo != nil
}

// WindowFrom returns the inbox window lower bound, defaulting to the epoch.
func (m *Message) WindowFrom() time.Time {
	if m.InboxFrom != nil {
		return *m.InboxFrom
	}
	return time.Unix(0, 0)
}

// WindowTo returns the inbox window upper bound, defaulting far into the
// future.
func (m *Message) WindowTo() time.Time {
	if m.InboxTo != nil {
		return *m.InboxTo
	}
	return farFuture
}

// InWindow reports whether now falls inside the inbox window.
func (m *Message) InWindow(now time.Time) bool {
	return !now.Before(m.WindowFrom()) && !now.After(m.WindowTo())
}

// TTLExpired reports whether the optional display lifetime has run out.
func (m *Message) TTLExpired(now time.Time) bool {
	if m.TTLHours == nil {
		return false
	}
	return now.After(m.SentAt.Add(time.Duration(*m.TTLHours) * time.Hour))
}
