// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"

	"github.com/jeranaias/streamchat/internal/chat"
)

// notifier moves orchestrator events into the program without blocking
// the publisher. Events keep their order; delta events are throttled to
// the redraw rate since the model re-reads the snapshot on every event.
type notifier struct {
	send    func(tea.Msg)
	limiter *rate.Limiter

	mu      sync.Mutex
	queue   []chat.Event
	pending bool // a throttled delta redraw is scheduled
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

func newNotifier(send func(tea.Msg), maxFPS int) *notifier {
	limit := rate.Inf
	if maxFPS > 0 {
		limit = rate.Limit(maxFPS)
	}
	n := &notifier{
		send:    send,
		limiter: rate.NewLimiter(limit, 1),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go n.loop()
	return n
}

// Publish queues ev. It never blocks and is safe to use as a
// chat.Orchestrator subscriber.
func (n *notifier) Publish(ev chat.Event) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.queue = append(n.queue, ev)
	n.mu.Unlock()

	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// Close stops the delivery goroutine. Queued events are dropped.
func (n *notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.queue = nil
	n.mu.Unlock()
	close(n.done)
}

func (n *notifier) loop() {
	for {
		select {
		case <-n.done:
			return
		case <-n.wake:
		}

		n.mu.Lock()
		batch := n.queue
		n.queue = nil
		n.mu.Unlock()

		for _, ev := range batch {
			if ev.Kind == chat.EventDelta {
				n.throttle(ev)
				continue
			}
			n.deliver(ev)
		}
	}
}

func (n *notifier) throttle(ev chat.Event) {
	n.mu.Lock()
	if n.pending {
		n.mu.Unlock()
		return
	}
	delay := n.limiter.Reserve().Delay()
	if delay <= 0 {
		n.mu.Unlock()
		n.deliver(ev)
		return
	}
	n.pending = true
	n.mu.Unlock()

	time.AfterFunc(delay, func() {
		n.mu.Lock()
		n.pending = false
		n.mu.Unlock()
		n.deliver(ev)
	})
}

func (n *notifier) deliver(ev chat.Event) {
	select {
	case <-n.done:
		return
	default:
	}
	n.send(EventMsg{Event: ev})
}
