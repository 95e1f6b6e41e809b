// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lifecycle tracks the single in-flight chat exchange.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// STATE AND OUTCOME
// =============================================================================

// State is the phase of an exchange.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateStreaming
	StateSettled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateRequesting:
		return "requesting"
	case StateStreaming:
		return "streaming"
	case StateSettled:
		return "settled"
	default:
		return "idle"
	}
}

// Outcome is how a settled exchange ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeFailure
	// OutcomeSuperseded means a newer exchange replaced this one.
	OutcomeSuperseded
	// OutcomeCancelled means the user or the caller's context gave up.
	OutcomeCancelled
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeSuperseded:
		return "superseded"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "none"
	}
}

// Silent reports whether the outcome leaves the session untouched.
func (o Outcome) Silent() bool {
	return o == OutcomeSuperseded || o == OutcomeCancelled
}

// =============================================================================
// EXCHANGE
// =============================================================================

// Exchange is one request/stream pair started by Begin.
type Exchange struct {
	id        uint64
	sessionID string
	question  string
	started   time.Time

	ctx    context.Context
	cancel context.CancelFunc
	ctrl   *Controller

	// guarded by ctrl.mu
	state   State
	outcome Outcome
}

// ID returns the exchange sequence number, unique per Controller.
func (e *Exchange) ID() uint64 { return e.id }

// SessionID returns the session the exchange commits to.
func (e *Exchange) SessionID() string { return e.sessionID }

// Question returns the user text that started the exchange.
func (e *Exchange) Question() string { return e.question }

// Started returns when Begin was called.
func (e *Exchange) Started() time.Time { return e.started }

// Context is cancelled when the exchange is superseded, aborted or settled.
func (e *Exchange) Context() context.Context { return e.ctx }

// State returns the current phase.
func (e *Exchange) State() State {
	e.ctrl.mu.Lock()
	defer e.ctrl.mu.Unlock()
	return e.state
}

// Outcome returns how the exchange ended, or OutcomeNone while active.
func (e *Exchange) Outcome() Outcome {
	e.ctrl.mu.Lock()
	defer e.ctrl.mu.Unlock()
	return e.outcome
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the active exchange and the loading indicator.
type Controller struct {
	mu      sync.Mutex
	seq     uint64
	current *Exchange
	loading bool
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController creates an idle controller.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Begin supersedes any active exchange and starts a new one in the
// Requesting state. The returned exchange's context derives from parent.
func (c *Controller) Begin(parent context.Context, sessionID, question string) *Exchange {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	c.mu.Lock()
	defer c.mu.Unlock()

	if prev := c.current; prev != nil && prev.state != StateSettled {
		// Invalidate before the new handle is stored
		prev.cancel()
		prev.state = StateSettled
		prev.outcome = OutcomeSuperseded
		c.logger.Debug("exchange superseded",
			zap.Uint64("exchange", prev.id),
			zap.String("session_id", prev.sessionID))
	}

	c.seq++
	ex := &Exchange{
		id:        c.seq,
		sessionID: sessionID,
		question:  question,
		started:   c.now(),
		ctx:       ctx,
		cancel:    cancel,
		ctrl:      c,
		state:     StateRequesting,
	}
	c.current = ex
	c.loading = true
	return ex
}

// MarkStreaming moves ex from Requesting to Streaming. It reports whether
// ex is still current.
func (c *Controller) MarkStreaming(ex *Exchange) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isCurrentLocked(ex) {
		return false
	}
	if ex.state == StateRequesting {
		ex.state = StateStreaming
	}
	return true
}

// Settle finishes ex with outcome. When ex is still current, its context
// is released, loading is cleared and commit, if non-nil, runs under the
// controller lock; Settle then returns true. A stale exchange is left
// alone and commit is not called. commit must not call back into c.
func (c *Controller) Settle(ex *Exchange, outcome Outcome, commit func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isCurrentLocked(ex) {
		return false
	}

	ex.state = StateSettled
	ex.outcome = outcome
	ex.cancel()
	c.loading = false

	if commit != nil && !outcome.Silent() {
		commit()
	}
	c.logger.Debug("exchange settled",
		zap.Uint64("exchange", ex.id),
		zap.Stringer("outcome", outcome),
		zap.Duration("elapsed", c.now().Sub(ex.started)))
	return true
}

// Abort cancels the active exchange as OutcomeCancelled. It reports
// whether anything was running.
func (c *Controller) Abort() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ex := c.current
	if ex == nil || ex.state == StateSettled {
		return false
	}
	ex.cancel()
	ex.state = StateSettled
	ex.outcome = OutcomeCancelled
	c.loading = false
	c.logger.Debug("exchange aborted", zap.Uint64("exchange", ex.id))
	return true
}

// IsCurrent reports whether ex is the active, unsettled exchange.
func (c *Controller) IsCurrent(ex *Exchange) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isCurrentLocked(ex)
}

// Do runs fn under the controller lock if ex is still current. It is the
// hook for applying live updates that must not outlive supersession.
func (c *Controller) Do(ex *Exchange, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isCurrentLocked(ex) {
		return false
	}
	fn()
	return true
}

// Loading reports whether an exchange is Requesting or Streaming.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// State returns the state of the most recent exchange, or StateIdle
// before the first Begin.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return StateIdle
	}
	return c.current.state
}

// LastOutcome returns the outcome of the most recent exchange.
func (c *Controller) LastOutcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return OutcomeNone
	}
	return c.current.outcome
}

func (c *Controller) isCurrentLocked(ex *Exchange) bool {
	return ex != nil && c.current == ex && ex.state != StateSettled
}
