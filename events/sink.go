// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package events

import (
	"fmt"
	"sync"

	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"
)

// Sink consumes protocol records. Emit must never block the emitting
// transition.
type Sink interface {
	Emit(Event)
}

// NopSink discards every record.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// subscriberBuffer bounds the fan-out channel; slow watchers miss records
// rather than stalling a transition.
const subscriberBuffer = 64

// Log is an append-only in-memory sink with fan-out to subscribed watchers.
type Log struct {
	entries []Event
	subs    []chan Event

	mu sync.RWMutex
}

var _ Sink = (*Log)(nil)

// NewLog creates an empty event log.
func NewLog() *Log {
	return &Log{}
}

// Emit implements Sink.
func (l *Log) Emit(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, ev)
	for _, sub := range l.subs {
		select {
		case sub <- ev:
		default:
		}
	}
}

// All returns every record emitted so far, in emission order.
func (l *Log) All() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Event, len(l.entries))
	copy(out, l.entries)
	return out
}

// ByOrder returns the records correlated to an order hash.
func (l *Log) ByOrder(orderHash common.Hash) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Event
	for _, ev := range l.entries {
		if ev.Related() == orderHash {
			out = append(out, ev)
		}
	}
	return out
}

// Len returns the number of records emitted.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Subscribe returns a channel receiving every record emitted after the call.
// The channel is buffered; records are dropped for subscribers that fall
// behind.
func (l *Log) Subscribe() <-chan Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	l.subs = append(l.subs, ch)
	return ch
}

// LoggerSink forwards records to a structured logger, optionally chaining to
// a next sink.
type LoggerSink struct {
	log  log.Logger
	next Sink
}

var _ Sink = (*LoggerSink)(nil)

// NewLoggerSink wraps next with record logging. next may be nil.
func NewLoggerSink(logger log.Logger, next Sink) *LoggerSink {
	if next == nil {
		next = NopSink{}
	}
	return &LoggerSink{log: logger, next: next}
}

// Emit implements Sink.
func (s *LoggerSink) Emit(ev Event) {
	s.log.Info(fmt.Sprintf("swap event %s order=%s t=%d", ev.Type(), ev.Related().Hex(), ev.Time()))
	s.next.Emit(ev)
}
