package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/interview-coach/orchestrator"
)

type streamEvent struct {
	Type   string               `json:"type"`
	State  string               `json:"state"`
	Error  string               `json:"error"`
	Result *orchestrator.Result `json:"result"`
}

// Stream plays a recording against a running /ws/session endpoint, pacing
// events by their timestamps once the question is active, and returns the
// server's result.
func Stream(ctx context.Context, url string, rec *orchestrator.Recording, log logrus.FieldLogger) (*orchestrator.Result, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	ws, _, err := gws.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	defer ws.Close()

	active := make(chan struct{})
	results := make(chan *orchestrator.Result, 1)
	failed := make(chan error, 1)
	go func() {
		activated := false
		for {
			var ev streamEvent
			if err := ws.ReadJSON(&ev); err != nil {
				failed <- err
				return
			}
			switch ev.Type {
			case "state":
				if ev.State == orchestrator.StateActive.String() && !activated {
					activated = true
					close(active)
				}
				if ev.State == orchestrator.StateCancelled.String() {
					failed <- errors.New("session cancelled by server")
					return
				}
			case MsgError:
				log.WithField("error", ev.Error).Warn("server rejected message")
			case "result":
				results <- ev.Result
				return
			}
		}
	}()

	if err := ws.WriteJSON(ClientMessage{Type: MsgStart}); err != nil {
		return nil, err
	}
	select {
	case <-active:
	case err := <-failed:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	start := time.Now()
	for _, ev := range rec.Events {
		if wait := time.Until(start.Add(ev.At())); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		msg := ClientMessage{Confidence: ev.Confidence}
		switch ev.Type {
		case orchestrator.RecFrame:
			msg.Type, msg.Landmarks = MsgFrame, ev.Landmarks
		case orchestrator.RecAudio:
			msg.Type, msg.Bins = MsgAudio, ev.Data
		case orchestrator.RecTranscript:
			msg.Type, msg.Text = MsgTranscript, ev.Text
		default:
			continue
		}
		if err := ws.WriteJSON(msg); err != nil {
			return nil, err
		}
	}
	if rec.Answer != "" {
		if err := ws.WriteJSON(ClientMessage{Type: MsgTranscript, Text: rec.Answer}); err != nil {
			return nil, err
		}
	}
	if err := ws.WriteJSON(ClientMessage{Type: MsgSubmit}); err != nil {
		return nil, err
	}

	select {
	case res := <-results:
		_ = ws.WriteMessage(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, ""))
		return res, nil
	case err := <-failed:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
