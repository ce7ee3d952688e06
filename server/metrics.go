package server

import "sync/atomic"

type Metrics struct {
	connections atomic.Int64
	sessions    atomic.Int64
	frames      atomic.Int64
	audio       atomic.Int64
	dropped     atomic.Int64
	results     atomic.Int64
	fallbacks   atomic.Int64
	errors      atomic.Int64
	scored      atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) ConnectionOpened() {
	m.connections.Add(1)
	m.sessions.Add(1)
}

func (m *Metrics) ConnectionClosed() {
	m.connections.Add(-1)
}

func (m *Metrics) IncrementFrames() {
	m.frames.Add(1)
}

func (m *Metrics) IncrementAudio() {
	m.audio.Add(1)
}

// IncrementDropped counts stream messages discarded because a buffer was full.
func (m *Metrics) IncrementDropped() {
	m.dropped.Add(1)
}

func (m *Metrics) RecordResult(usedFallback bool) {
	m.results.Add(1)
	if usedFallback {
		m.fallbacks.Add(1)
	}
}

func (m *Metrics) IncrementErrors() {
	m.errors.Add(1)
}

func (m *Metrics) IncrementScored() {
	m.scored.Add(1)
}

func (m *Metrics) GetConnections() int64 {
	return m.connections.Load()
}

func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"connections": m.connections.Load(),
		"sessions":    m.sessions.Load(),
		"frames":      m.frames.Load(),
		"audio":       m.audio.Load(),
		"dropped":     m.dropped.Load(),
		"results":     m.results.Load(),
		"fallbacks":   m.fallbacks.Load(),
		"errors":      m.errors.Load(),
		"scored":      m.scored.Load(),
	}
}
