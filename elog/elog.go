// Package elog is the in-memory, caller-drained log the sync engine
// reports through: every warning, error, or protocol trace observed
// while ticking is appended here instead of written to a file, and the
// host program drains the queue once per tick.
/*
 * Copyright (c) 2024, Electronic Theatre Controls, Inc.
 */
package elog

import (
	"fmt"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Kind classifies a log Record.
type Kind int

const (
	Debug Kind = iota
	Info
	Warning
	Error
	Recv
	Send
)

func (k Kind) String() string {
	switch k {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Recv:
		return "recv"
	case Send:
		return "send"
	default:
		return "unknown"
	}
}

// Record is one log entry.
type Record struct {
	Kind Kind
	Time time.Time
	Text string
}

// MarshalJSON renders Kind as its lower-case name.
func (r Record) MarshalJSON() ([]byte, error) {
	return jsoniter.Marshal(struct {
		Kind string    `json:"kind"`
		Time time.Time `json:"time"`
		Text string    `json:"text"`
	}{r.Kind.String(), r.Time, r.Text})
}

// Log is a bounded FIFO of Records. A zero Log is ready to use with no
// capacity limit; Cap can be set before first use to bound memory.
type Log struct {
	mu   sync.Mutex
	recs []Record
	Cap  int // 0 means unbounded
}

// NewLog returns a Log bounded to cap records (0 for unbounded).
func NewLog(cap int) *Log {
	return &Log{Cap: cap}
}

func (l *Log) add(kind Kind, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recs = append(l.recs, Record{Kind: kind, Time: time.Now(), Text: text})
	if l.Cap > 0 && len(l.recs) > l.Cap {
		l.recs = l.recs[len(l.recs)-l.Cap:]
	}
}

func (l *Log) Debugf(format string, args ...any)   { l.add(Debug, fmt.Sprintf(format, args...)) }
func (l *Log) Infof(format string, args ...any)    { l.add(Info, fmt.Sprintf(format, args...)) }
func (l *Log) Warningf(format string, args ...any) { l.add(Warning, fmt.Sprintf(format, args...)) }
func (l *Log) Errorf(format string, args ...any)   { l.add(Error, fmt.Sprintf(format, args...)) }
func (l *Log) Recvf(format string, args ...any)    { l.add(Recv, fmt.Sprintf(format, args...)) }
func (l *Log) Sendf(format string, args ...any)    { l.add(Send, fmt.Sprintf(format, args...)) }

// Drain empties and returns the queued records, oldest first.
func (l *Log) Drain() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.recs) == 0 {
		return nil
	}
	out := l.recs
	l.recs = nil
	return out
}

// Len reports the number of records currently queued.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.recs)
}
