package common

import (
	"time"
)

type PresentedWhen string

const (
	// PresentImmediately messages go straight into the presentation queue
	PresentImmediately PresentedWhen = "immediately"
	// PresentInboxOnly messages are only reachable through the inbox surface
	PresentInboxOnly PresentedWhen = "inbox_only"
)

type EngineEventType string

const (
	EventDelivered EngineEventType = "delivered"
	EventOpened    EngineEventType = "opened"
	EventDismissed EngineEventType = "dismissed"
)

// EngineEvent is what we fan out to observers (analytics etc.) whenever a
// message changes state. Payload is kept small on purpose, observers that
// need the full row can read it back from the store.
type EngineEvent struct {
	Type      EngineEventType
	MessageID uint64
	When      time.Time
	Metadata  map[string]interface{}
}

// PresentResult is returned by the inbox presentation entry point.
type PresentResult int

const (
	Presented PresentResult = iota
	Failed
	FailedExpired
)

func (r PresentResult) String() string {
	switch r {
	case Presented:
		return "presented"
	case Failed:
		return "failed"
	case FailedExpired:
		return "failed_expired"
	}
	return "unknown"
}

// TaskOutcome is what a scheduled unit of work reports back to the
// background scheduler so it can decide whether to retry.
type TaskOutcome int

const (
	OutcomeOK TaskOutcome = iota
	OutcomeRetry
	OutcomeFailed
)

type PushKind string

const (
	PushFCM  PushKind = "fcm"
	PushHMS  PushKind = "hms"
	PushNone PushKind = "none"
)

// InboxItem is the read-model handed to the host application inbox UI.
type InboxItem struct {
	ID          uint64     `json:"id"`
	Content     string     `json:"content"`
	BadgeConfig *string    `json:"badge_config,omitempty"`
	SentAt      time.Time  `json:"sent_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}
