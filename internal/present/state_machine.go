package present

import (
	"msgengine/internal/common"

	"go.uber.org/zap"
)

type State int

const (
	// Detached - no render surface available, queue contents preserved
	Detached State = iota
	// Idle - surface attached, nothing to show
	Idle
	// Presenting - head message sent to the surface, awaiting open/close
	Presenting
	// Closing - close command sent, awaiting confirmation before advancing
	Closing
)

func (s State) String() string {
	switch s {
	case Detached:
		return "detached"
	case Idle:
		return "idle"
	case Presenting:
		return "presenting"
	case Closing:
		return "closing"
	}
	return "unknown"
}

// Callbacks are how the machine reports user actions upward. The engine
// marshals the store writes behind them onto the worker pool, nothing
// blocking ever runs on the dispatcher goroutine.
type Callbacks struct {
	OnOpened    func(id uint64)
	OnDismissed func(id uint64)
}

// StateMachine drives the render surface lifecycle and translates queue
// state into render commands. Like the queue it is confined to the
// dispatcher goroutine and is not thread-safe by design.
//
// The surface is an untrusted asynchronous peer: it may deliver stale
// events after a rapid close/reopen, so anything out-of-state is logged
// and dropped, never fatal.
type StateMachine struct {
	state     State
	surface   common.RenderSurface
	queue     *Queue
	callbacks Callbacks
	log       *zap.SugaredLogger
}

func NewStateMachine(queue *Queue, callbacks Callbacks, log *zap.SugaredLogger) *StateMachine {
	return &StateMachine{
		state:     Detached,
		queue:     queue,
		callbacks: callbacks,
		log:       log,
	}
}

func (sm *StateMachine) State() State {
	return sm.state
}

// Attach hands the machine a live surface. Presentation resumes where it
// left off: a non-empty queue goes straight back to Presenting.
func (sm *StateMachine) Attach(surface common.RenderSurface) {
	if sm.state != Detached {
		sm.log.Warnw("attach while already attached, replacing surface", "state", sm.state.String())
	}
	sm.surface = surface
	if sm.queue.Len() > 0 {
		sm.presentHead()
	} else {
		sm.state = Idle
	}
}

// Detach drops the surface. Queue contents and in-flight presentation
// state are preserved so re-attachment resumes without a re-fetch.
func (sm *StateMachine) Detach() {
	sm.surface = nil
	sm.state = Detached
}

// QueueChanged is called after a merge. A changed head must be
// re-presented even if something is already on screen.
func (sm *StateMachine) QueueChanged(headChanged bool) {
	switch sm.state {
	case Detached:
		// presentation defers until a surface attaches
	case Idle:
		if sm.queue.Len() > 0 {
			sm.presentHead()
		}
	case Presenting:
		if headChanged {
			sm.presentHead()
		}
	case Closing:
		// the pending closed event will pick up the new head
	}
}

// HandleSurfaceMessage processes one raw host-bound bridge message.
func (sm *StateMachine) HandleSurfaceMessage(raw []byte) {
	event, err := decodeSurfaceEvent(raw)
	if err != nil {
		sm.log.Warnw("ignoring unparseable bridge message",
			"error", &common.ProtocolError{Raw: string(raw), State: sm.state.String()})
		return
	}

	switch event.Type {
	case eventReady:
		sm.handleReady()
	case eventOpened:
		sm.handleOpened()
	case eventClosed:
		sm.handleClosed()
	default:
		sm.ignore(event.Type)
	}
}

func (sm *StateMachine) handleReady() {
	if sm.state != Idle {
		sm.ignore(eventReady)
		return
	}
	if sm.queue.Len() > 0 {
		sm.presentHead()
	}
	// queue empty: stay Idle
}

func (sm *StateMachine) handleOpened() {
	if sm.state != Presenting {
		sm.ignore(eventOpened)
		return
	}
	head := sm.queue.PeekHead()
	if head == nil {
		sm.ignore(eventOpened)
		return
	}
	if sm.callbacks.OnOpened != nil {
		sm.callbacks.OnOpened(head.ID)
	}
	// stay Presenting, awaiting closed
}

func (sm *StateMachine) handleClosed() {
	if sm.state != Presenting && sm.state != Closing {
		sm.ignore(eventClosed)
		return
	}

	head := sm.queue.PopHead()
	if head != nil && sm.callbacks.OnDismissed != nil {
		sm.callbacks.OnDismissed(head.ID)
	}

	if sm.queue.Len() > 0 {
		sm.presentHead()
		return
	}

	sm.state = Idle
	if sm.surface != nil {
		// nothing left to show, the surface dismisses itself
		if err := sm.surface.Close(); err != nil {
			sm.log.Warnw("surface close failed", "error", err)
		}
	}
}

// CloseCurrent is the host-initiated close. The machine waits for the
// surface to confirm before advancing the queue.
func (sm *StateMachine) CloseCurrent() {
	if sm.state != Presenting {
		sm.log.Debugw("close requested outside presenting", "state", sm.state.String())
		return
	}
	sm.state = Closing
	if err := sm.surface.EvaluateScript(closeScript()); err != nil {
		sm.log.Warnw("close command failed", "error", err)
	}
}

func (sm *StateMachine) presentHead() {
	head := sm.queue.PeekHead()
	if head == nil || sm.surface == nil {
		return
	}

	script, err := showScript(head)
	if err != nil {
		sm.log.Errorw("cannot encode message for presentation", "id", head.ID, "error", err)
		return
	}
	if err := sm.surface.LoadContent(head.Content); err != nil {
		sm.log.Warnw("surface load failed", "id", head.ID, "error", err)
		return
	}
	if err := sm.surface.EvaluateScript(script); err != nil {
		sm.log.Warnw("surface present failed", "id", head.ID, "error", err)
		return
	}
	sm.state = Presenting
}

func (sm *StateMachine) ignore(eventType string) {
	sm.log.Infow("ignoring out-of-state bridge event",
		"event", eventType, "state", sm.state.String())
}
