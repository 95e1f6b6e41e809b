// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat composes the session store, stream decoder, delta
// reconciler and lifecycle controller into one user turn.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/streamchat/internal/backend"
	"github.com/jeranaias/streamchat/internal/lifecycle"
	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/session"
	"github.com/jeranaias/streamchat/internal/stream"
)

// =============================================================================
// ERRORS AND CONFIG
// =============================================================================

var (
	// ErrEmptyInput is returned by Send for blank input.
	ErrEmptyInput = errors.New("message is empty")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("orchestrator is closed")
)

const (
	// DefaultFallbackMessage is committed when an exchange fails.
	DefaultFallbackMessage = "Sorry, I encountered an error while generating a response. Please try again."

	// DefaultFreshDuration is how long new messages keep IsFresh.
	DefaultFreshDuration = 500 * time.Millisecond
)

// Streamer opens a chat stream. *backend.Client implements it.
type Streamer interface {
	Stream(ctx context.Context, sessionID, question string) (*backend.Response, error)
}

// Config holds orchestrator settings.
type Config struct {
	// FallbackMessage replaces a failed reply (default: DefaultFallbackMessage)
	FallbackMessage string

	// FreshDuration before IsFresh is cleared; <= 0 never clears
	FreshDuration time.Duration

	Logger *zap.Logger
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		FallbackMessage: DefaultFallbackMessage,
		FreshDuration:   DefaultFreshDuration,
	}
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator runs chat turns against a Streamer. It is safe for
// concurrent use; Send blocks until its exchange settles.
type Orchestrator struct {
	// mu serializes store writes with controller transitions
	mu       sync.Mutex
	store    *session.Store
	ctrl     *lifecycle.Controller
	streamer Streamer
	cfg      Config
	logger   *zap.Logger

	active          *lifecycle.Exchange
	streaming       string
	streamingSessID string
	freshTimers     map[string]*time.Timer
	closed          bool

	subsMu  sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// New creates an orchestrator over store. A nil store gets a fresh one.
func New(store *session.Store, streamer Streamer, cfg Config) *Orchestrator {
	if store == nil {
		store = session.NewStore()
	}
	if cfg.FallbackMessage == "" {
		cfg.FallbackMessage = DefaultFallbackMessage
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Orchestrator{
		store:       store,
		ctrl:        lifecycle.NewController(lifecycle.WithLogger(cfg.Logger)),
		streamer:    streamer,
		cfg:         cfg,
		logger:      cfg.Logger,
		freshTimers: make(map[string]*time.Timer),
		subs:        make(map[int]func(Event)),
	}
}

// Store returns the underlying session store.
func (o *Orchestrator) Store() *session.Store {
	return o.store
}

// SetStreamer swaps the backend used by subsequent turns.
func (o *Orchestrator) SetStreamer(s Streamer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.streamer = s
}

// Subscribe registers fn for events and returns a function that removes it.
func (o *Orchestrator) Subscribe(fn func(Event)) (unsubscribe func()) {
	o.subsMu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	o.subsMu.Unlock()

	return func() {
		o.subsMu.Lock()
		delete(o.subs, id)
		o.subsMu.Unlock()
	}
}

// Send runs one user turn in the current session, creating a session if
// none exists. It returns when the exchange settles. Failures return the
// error after committing the fallback reply; supersession and
// cancellation return a nil error.
func (o *Orchestrator) Send(ctx context.Context, text string) (Result, error) {
	text = norm.NFC.String(strings.TrimSpace(text))
	if text == "" {
		return Result{}, ErrEmptyInput
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return Result{}, ErrClosed
	}
	streamer := o.streamer

	sid := o.store.CurrentID()
	if sid == "" {
		sid = o.store.Create()
	}
	sess, _ := o.store.Get(sid)
	var seed string
	if last, ok := sess.LastAssistant(); ok {
		seed = last.Content
	}
	o.store.Commit(sid, append(sess.Messages, model.NewUserMessage(text)))

	ex := o.ctrl.Begin(ctx, sid, text)
	o.active = ex
	o.streaming = ""
	o.streamingSessID = sid
	o.scheduleFreshLocked(sid)
	o.mu.Unlock()

	o.emit(Event{Kind: EventSessions, SessionID: sid})
	o.emit(Event{Kind: EventStarted, SessionID: sid})

	rec := stream.NewReconciler(seed)
	outcome, runErr := o.run(ex, streamer, rec)

	res := Result{SessionID: sid, ExchangeID: ex.ID()}
	o.mu.Lock()
	settled := o.ctrl.Settle(ex, outcome, func() {
		o.streaming = ""
		content := rec.Last()
		if outcome == lifecycle.OutcomeFailure {
			content = o.cfg.FallbackMessage
		}
		reply := model.NewAssistantMessage(content)
		reply.IsFresh = true
		cur, ok := o.store.Get(sid)
		if !ok {
			return
		}
		o.store.Commit(sid, append(cur.Messages, reply))
		res.Reply = reply
	})
	if settled {
		o.streaming = ""
		o.active = nil
		if !outcome.Silent() {
			o.scheduleFreshLocked(sid)
		}
	}
	o.mu.Unlock()

	res.Outcome = ex.Outcome()
	res.Diverged = rec.Diverged()
	if rec.Diverged() > 0 {
		o.logger.Debug("stream diverged from baseline",
			zap.String("session_id", sid),
			zap.Int("resets", rec.Diverged()))
	}

	if !settled {
		// Superseded or aborted elsewhere; that path already emitted
		return res, nil
	}

	if outcome == lifecycle.OutcomeFailure {
		o.logger.Warn("chat exchange failed",
			zap.String("session_id", sid),
			zap.Error(runErr))
	}
	o.emit(Event{Kind: EventSessions, SessionID: sid})
	o.emit(Event{Kind: EventSettled, SessionID: sid, Outcome: res.Outcome, Err: runErr})

	if outcome == lifecycle.OutcomeFailure {
		return res, runErr
	}
	return res, nil
}

// run performs the request and stream, returning the outcome to settle.
func (o *Orchestrator) run(ex *lifecycle.Exchange, streamer Streamer, rec *stream.Reconciler) (lifecycle.Outcome, error) {
	ctx := ex.Context()
	if streamer == nil {
		return lifecycle.OutcomeFailure, errors.New("no backend configured")
	}

	resp, err := streamer.Stream(ctx, ex.SessionID(), ex.Question())
	if err != nil {
		if ctx.Err() != nil {
			return lifecycle.OutcomeCancelled, nil
		}
		return lifecycle.OutcomeFailure, err
	}
	defer resp.Close()

	if !o.ctrl.MarkStreaming(ex) {
		return lifecycle.OutcomeCancelled, nil
	}

	err = resp.Decode(ctx, func(r stream.Record) error {
		delta := rec.Reconcile(r.Message)
		o.mu.Lock()
		applied := o.ctrl.Do(ex, func() { o.streaming = delta })
		o.mu.Unlock()
		if !applied {
			return context.Canceled
		}
		o.emit(Event{Kind: EventDelta, SessionID: ex.SessionID(), Delta: delta})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil || !o.ctrl.IsCurrent(ex) {
			return lifecycle.OutcomeCancelled, nil
		}
		return lifecycle.OutcomeFailure, err
	}
	if ctx.Err() != nil {
		return lifecycle.OutcomeCancelled, nil
	}
	return lifecycle.OutcomeSuccess, nil
}

// Cancel aborts the running exchange without committing a reply.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	aborted := o.ctrl.Abort()
	var sid string
	if aborted {
		sid = o.streamingSessID
		o.streaming = ""
		o.active = nil
	}
	o.mu.Unlock()

	if aborted {
		o.emit(Event{Kind: EventSettled, SessionID: sid, Outcome: lifecycle.OutcomeCancelled})
	}
	return aborted
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// NewSession creates and selects a new session.
func (o *Orchestrator) NewSession() string {
	o.mu.Lock()
	id := o.store.Create()
	o.mu.Unlock()

	o.emit(Event{Kind: EventSessions, SessionID: id})
	return id
}

// SwitchTo selects session id. Unknown ids are ignored.
func (o *Orchestrator) SwitchTo(id string) {
	o.mu.Lock()
	o.store.SwitchTo(id)
	cur := o.store.CurrentID()
	o.mu.Unlock()

	o.emit(Event{Kind: EventSessions, SessionID: cur})
}

// DeleteSession removes session id, aborting its exchange if one is
// running.
func (o *Orchestrator) DeleteSession(id string) {
	o.mu.Lock()
	aborted := false
	if o.active != nil && o.active.SessionID() == id {
		aborted = o.ctrl.Abort()
		o.active = nil
		o.streaming = ""
	}
	if t, ok := o.freshTimers[id]; ok {
		t.Stop()
		delete(o.freshTimers, id)
	}
	o.store.Delete(id)
	cur := o.store.CurrentID()
	o.mu.Unlock()

	if aborted {
		o.emit(Event{Kind: EventSettled, SessionID: id, Outcome: lifecycle.OutcomeCancelled})
	}
	o.emit(Event{Kind: EventSessions, SessionID: cur})
}

// Snapshot returns the current session and live state atomically.
func (o *Orchestrator) Snapshot() View {
	o.mu.Lock()
	defer o.mu.Unlock()

	v := View{
		Sessions: o.store.List(),
		Loading:  o.ctrl.Loading(),
		State:    o.ctrl.State(),
	}
	v.Session, v.HasSession = o.store.Current()
	if o.active != nil && o.ctrl.IsCurrent(o.active) {
		v.ActiveSession = o.active.SessionID()
	}
	if v.HasSession && v.Session.ID == o.streamingSessID {
		v.Streaming = o.streaming
	}
	return v
}

// Close aborts any exchange and stops pending timers. Later Sends fail
// with ErrClosed.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	o.ctrl.Abort()
	o.streaming = ""
	o.active = nil
	for id, t := range o.freshTimers {
		t.Stop()
		delete(o.freshTimers, id)
	}
	return nil
}

// =============================================================================
// INTERNALS
// =============================================================================

// scheduleFreshLocked must be called with o.mu held.
func (o *Orchestrator) scheduleFreshLocked(sid string) {
	d := o.cfg.FreshDuration
	if d <= 0 {
		return
	}
	if t, ok := o.freshTimers[sid]; ok {
		t.Stop()
	}
	o.freshTimers[sid] = time.AfterFunc(d, func() { o.clearFresh(sid) })
}

func (o *Orchestrator) clearFresh(sid string) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	delete(o.freshTimers, sid)
	sess, ok := o.store.Get(sid)
	changed := false
	if ok {
		for i := range sess.Messages {
			if sess.Messages[i].IsFresh {
				sess.Messages[i].IsFresh = false
				changed = true
			}
		}
		if changed {
			o.store.Commit(sid, sess.Messages)
		}
	}
	o.mu.Unlock()

	if changed {
		o.emit(Event{Kind: EventSessions, SessionID: sid})
	}
}

func (o *Orchestrator) emit(ev Event) {
	o.subsMu.Lock()
	handlers := make([]func(Event), 0, len(o.subs))
	for _, fn := range o.subs {
		handlers = append(handlers, fn)
	}
	o.subsMu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}
