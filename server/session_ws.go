package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/interview-coach/audio"
	"github.com/maastricht-university/interview-coach/geometry"
	"github.com/maastricht-university/interview-coach/orchestrator"
)

// Inbound message types on /ws/session.
const (
	MsgStart      = "start"
	MsgFrame      = "frame"
	MsgAudio      = "audio"
	MsgTranscript = "transcript"
	MsgSubmit     = "submit"
	MsgCancel     = "cancel"

	MsgError = "error"
)

// ClientMessage is one inbound websocket message.
type ClientMessage struct {
	Type       string      `json:"type"`
	Landmarks  [][]float64 `json:"landmarks,omitempty"`
	Confidence *float64    `json:"confidence,omitempty"`
	Bins       []int       `json:"bins,omitempty"`
	Text       string      `json:"text,omitempty"`
}

// ErrorMessage is sent when an inbound message cannot be applied.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// handleSession runs one session for the lifetime of the connection. Frames
// and audio go through bounded channels; when a channel is full the message
// is dropped rather than stalling the reader.
func (s *Server) handleSession(c *websocket.Conn) {
	s.metrics.ConnectionOpened()
	defer s.metrics.ConnectionClosed()

	size := s.cfg.Server.StreamBuffer
	if size <= 0 {
		size = 64
	}
	out := make(chan any, size)
	closed := make(chan struct{})
	frames := make(chan orchestrator.FrameInput, size)
	buffers := make(chan []uint8, size)

	send := func(v any, droppable bool) {
		if droppable {
			select {
			case out <- v:
			case <-closed:
			default:
				s.metrics.IncrementDropped()
			}
			return
		}
		select {
		case out <- v:
		case <-closed:
		}
	}
	sendErr := func(err error) {
		s.metrics.IncrementErrors()
		send(ErrorMessage{Type: MsgError, Error: err.Error()}, false)
	}

	sess := s.pipe.NewSession(func(ev orchestrator.Event) {
		if ev.Type == orchestrator.EventResult && ev.Result != nil {
			s.metrics.RecordResult(ev.Result.UsedFallback)
		}
		send(ev, ev.Type == orchestrator.EventLive || ev.Type == orchestrator.EventAudio)
	})
	log := s.log.WithFields(logrus.Fields{"session_id": sess.ID(), "remote": c.RemoteAddr().String()})
	log.Info("session connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		// Keep draining after a write error so session callbacks never block
		// on a full out channel.
		broken := false
		for {
			select {
			case v := <-out:
				if broken {
					continue
				}
				if err := c.WriteJSON(v); err != nil {
					log.WithError(err).Debug("write failed")
					broken = true
				}
			case <-closed:
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		if err := sess.Consume(ctx, frames, buffers); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Warn("stream consumer stopped")
		}
	}()

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			break
		}
		var m ClientMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			sendErr(fmt.Errorf("invalid message: %w", err))
			continue
		}
		switch m.Type {
		case MsgStart:
			if err := sess.Start(ctx); err != nil {
				sendErr(err)
			}
		case MsgFrame:
			conf := s.cfg.Session.Confidence
			if m.Confidence != nil {
				conf = *m.Confidence
			}
			in := orchestrator.FrameInput{Frame: geometry.FromTriples(m.Landmarks), Confidence: conf}
			select {
			case frames <- in:
				s.metrics.IncrementFrames()
			default:
				s.metrics.IncrementDropped()
			}
		case MsgAudio:
			select {
			case buffers <- audio.FromInts(m.Bins):
				s.metrics.IncrementAudio()
			default:
				s.metrics.IncrementDropped()
			}
		case MsgTranscript:
			if !sess.SetAnswer(m.Text) {
				sendErr(orchestrator.ErrNotActive)
			}
		case MsgSubmit:
			go func() {
				if _, err := sess.Submit(ctx); err != nil {
					sendErr(err)
				}
			}()
		case MsgCancel:
			sess.Cancel()
		default:
			sendErr(fmt.Errorf("unknown message type %q", m.Type))
		}
	}

	close(closed)
	sess.Cancel()
	cancel()
	wg.Wait()
	log.Info("session disconnected")
}
