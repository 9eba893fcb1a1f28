// Package progress implements the per-session progress hub: the single
// place pipeline stage transitions are recorded and fanned out to
// subscribers. It is an observability side channel; nothing about job
// correctness depends on anyone listening.
package progress

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Asdafers/contenitzer-sub001/models"
)

const (
	// subscriberBuffer bounds how far a slow subscriber may fall behind
	// before events are dropped for it. Dropping beats blocking the
	// executor's stage updates.
	subscriberBuffer = 64

	// maxRetainedEvents bounds the backlog replayed to late subscribers.
	maxRetainedEvents = 256

	// terminalRetention is how long a finished session's backlog stays
	// available before the session is reaped.
	terminalRetention = 5 * time.Minute
)

type session struct {
	events   []models.ProgressEvent
	subs     map[int]chan models.ProgressEvent
	nextSub  int
	terminal bool
}

// Tracker is the in-process progress hub. One writer per session (the
// worker executing that session's job) appends events; any number of
// subscribers receive identical, ordered sequences.
type Tracker struct {
	mu       sync.Mutex
	sessions map[string]*session
	logger   *logrus.Logger
}

// NewTracker creates an empty hub.
func NewTracker(logger *logrus.Logger) *Tracker {
	return &Tracker{
		sessions: make(map[string]*session),
		logger:   logger,
	}
}

// Update records a stage transition for a session and fans it out. It never
// fails: a session that nobody ever subscribes to simply accumulates a
// bounded backlog until it is reaped.
func (t *Tracker) Update(sessionID, stage string, percentage int, details map[string]interface{}) models.ProgressEvent {
	event := models.ProgressEvent{
		SessionID:  sessionID,
		Stage:      stage,
		Percentage: percentage,
		Timestamp:  time.Now().UTC(),
		Details:    details,
		Terminal:   stage == models.StageCompleted || stage == models.StageFailed,
	}

	t.mu.Lock()
	sess := t.sessions[sessionID]
	if sess == nil {
		sess = &session{subs: make(map[int]chan models.ProgressEvent)}
		t.sessions[sessionID] = sess
	} else if sess.terminal {
		// Sessions outlive jobs: resubmitting after a terminal job reuses
		// the session id. Reopen with a fresh backlog so late subscribers
		// replay the new job's run, not the finished one's.
		sess.terminal = false
		sess.events = nil
	}

	sess.events = append(sess.events, event)
	if len(sess.events) > maxRetainedEvents {
		sess.events = sess.events[len(sess.events)-maxRetainedEvents:]
	}

	for id, ch := range sess.subs {
		select {
		case ch <- event:
		default:
			t.logger.WithFields(logrus.Fields{
				"session_id":    sessionID,
				"subscriber_id": id,
			}).Warn("Slow progress subscriber, dropping event")
		}
	}

	if event.Terminal {
		sess.terminal = true
		for _, ch := range sess.subs {
			close(ch)
		}
		sess.subs = make(map[int]chan models.ProgressEvent)
		time.AfterFunc(terminalRetention, func() { t.reap(sessionID) })
	}
	t.mu.Unlock()

	return event
}

// Subscribe returns a channel that replays the session's retained backlog
// and then delivers live events in append order. The channel is closed once
// the session reaches a terminal event. The returned cancel function
// detaches the subscriber; it is safe to call after the channel closed.
func (t *Tracker) Subscribe(sessionID string) (<-chan models.ProgressEvent, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sess := t.sessions[sessionID]
	if sess == nil {
		sess = &session{subs: make(map[int]chan models.ProgressEvent)}
		t.sessions[sessionID] = sess
	}

	// Size the channel so the whole backlog fits without blocking.
	ch := make(chan models.ProgressEvent, len(sess.events)+subscriberBuffer)
	for _, event := range sess.events {
		ch <- event
	}

	if sess.terminal {
		close(ch)
		return ch, func() {}
	}

	id := sess.nextSub
	sess.nextSub++
	sess.subs[id] = ch

	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if cur, ok := t.sessions[sessionID]; ok {
			if sub, ok := cur.subs[id]; ok {
				delete(cur.subs, id)
				close(sub)
			}
		}
	}
	return ch, cancel
}

// Latest returns the most recent event for a session, if any.
func (t *Tracker) Latest(sessionID string) (models.ProgressEvent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess := t.sessions[sessionID]
	if sess == nil || len(sess.events) == 0 {
		return models.ProgressEvent{}, false
	}
	return sess.events[len(sess.events)-1], true
}

func (t *Tracker) reap(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess := t.sessions[sessionID]
	if sess != nil && sess.terminal {
		delete(t.sessions, sessionID)
	}
}
