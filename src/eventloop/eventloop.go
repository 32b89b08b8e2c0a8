package eventloop

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"screen-ocr-hotkey/src/messages"
)

// DefaultPollInterval is the delay between two drains of the queue.
const DefaultPollInterval = 100 * time.Millisecond

// Queue is a multi-producer/single-consumer event queue. Post may be called
// from any goroutine; Drain is called only by the UI loop.
type Queue struct {
	mu      sync.Mutex
	pending []messages.Event
}

func NewQueue() *Queue { return &Queue{} }

// Post appends ev. It never blocks on the consumer.
func (q *Queue) Post(ev messages.Event) {
	if ev == nil {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, ev)
	q.mu.Unlock()
}

// Drain removes and returns everything queued so far, oldest first.
func (q *Queue) Drain() []messages.Event {
	q.mu.Lock()
	evs := q.pending
	q.pending = nil
	q.mu.Unlock()
	return evs
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// UIThread runs fn on the UI thread and returns after fn completes.
type UIThread interface {
	Do(fn func())
}

// Direct runs fn on the calling goroutine. The goroutine calling Loop.Run is
// then the UI thread.
type Direct struct{}

func (Direct) Do(fn func()) { fn() }

// Handlers receive dispatched events on the UI thread. A nil handler drops
// events of its kind.
type Handlers struct {
	Capture      func(ev messages.Capture) error
	Settings     func() error
	Notification func(ev messages.Notification) error
}

// Loop is the single consumer of the queue and the only code path that
// mutates UI state.
type Loop struct {
	queue    *Queue
	handlers Handlers
	ui       UIThread
	interval time.Duration
	running  atomic.Bool
}

// New creates a loop draining q. A nil ui means Direct.
func New(q *Queue, h Handlers, ui UIThread) *Loop {
	if q == nil {
		q = NewQueue()
	}
	if ui == nil {
		ui = Direct{}
	}
	return &Loop{queue: q, handlers: h, ui: ui, interval: DefaultPollInterval}
}

// SetInterval overrides the poll interval (tests use a short one).
func (l *Loop) SetInterval(d time.Duration) {
	if d > 0 {
		l.interval = d
	}
}

// Post enqueues ev for the next drain. Safe from any goroutine.
func (l *Loop) Post(ev messages.Event) { l.queue.Post(ev) }

// Queue returns the underlying queue.
func (l *Loop) Queue() *Queue { return l.queue }

// Stop clears the running flag. A drain in progress completes; no further
// drain is scheduled.
func (l *Loop) Stop() { l.running.Store(false) }

func (l *Loop) Running() bool { return l.running.Load() }

// Run polls the queue every interval until Stop is called or ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	l.running.Store(true)
	timer := time.NewTimer(l.interval)
	defer timer.Stop()

	log.Printf("eventloop: polling every %v", l.interval)
	for {
		l.ui.Do(func() { l.DrainOnce() })
		if !l.running.Load() {
			log.Printf("eventloop: stopped")
			return nil
		}
		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-timer.C:
			timer.Reset(l.interval)
		}
	}
}

// DrainOnce dispatches every event queued before the call, in order. Events
// posted by handlers during the drain wait for the next cycle. Must run on
// the UI thread. Returns the number of events dispatched.
func (l *Loop) DrainOnce() int {
	evs := l.queue.Drain()
	for _, ev := range evs {
		if err := l.dispatch(ev); err != nil {
			log.Printf("eventloop: %s handler failed: %v", ev.Type(), err)
		}
	}
	return len(evs)
}

func (l *Loop) dispatch(ev messages.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			log.Printf("eventloop: recovered panic in %s handler\n%s", ev.Type(), debug.Stack())
		}
	}()

	switch e := ev.(type) {
	case messages.Capture:
		if l.handlers.Capture != nil {
			return l.handlers.Capture(e)
		}
	case messages.Settings:
		if l.handlers.Settings != nil {
			return l.handlers.Settings()
		}
	case messages.Notification:
		if l.handlers.Notification != nil {
			return l.handlers.Notification(e)
		}
	default:
		log.Printf("eventloop: dropping unknown event %s", ev.Type())
	}
	return nil
}
