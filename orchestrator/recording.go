package orchestrator

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/maastricht-university/interview-coach/audio"
	"github.com/maastricht-university/interview-coach/geometry"
)

type RecType string

const (
	RecMeta       RecType = "meta"
	RecFrame      RecType = "frame"
	RecAudio      RecType = "audio"
	RecTranscript RecType = "transcript"
)

// RecEvent is one line of a recorded session.
type RecEvent struct {
	T          int64       `json:"t"` // ms since start
	Type       RecType     `json:"type"`
	Landmarks  [][]float64 `json:"landmarks,omitempty"`
	Confidence *float64    `json:"confidence,omitempty"`
	Data       []int       `json:"bins,omitempty"`
	Text       string      `json:"text,omitempty"`

	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`
}

func (e RecEvent) At() time.Duration { return time.Duration(e.T) * time.Millisecond }

func (e RecEvent) Frame() geometry.Frame { return geometry.FromTriples(e.Landmarks) }

func (e RecEvent) Bins() []uint8 { return audio.FromInts(e.Data) }

func (e RecEvent) ConfidenceOr(def float64) float64 {
	if e.Confidence == nil {
		return def
	}
	return *e.Confidence
}

// Recording is a replayable session: question, final answer and the
// interleaved landmark/audio/transcript events in arrival order.
type Recording struct {
	Question string
	Answer   string
	Events   []RecEvent
}

// ReadRecording parses JSON Lines. "meta" lines set the question and answer;
// events must be in non-decreasing time order.
func ReadRecording(r io.Reader) (*Recording, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	rec := &Recording{}
	var last int64
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var ev RecEvent
		if err := json.Unmarshal(b, &ev); err != nil {
			return nil, fmt.Errorf("recording line %d: %w", line, err)
		}
		switch ev.Type {
		case RecMeta:
			if ev.Question != "" {
				rec.Question = ev.Question
			}
			if ev.Answer != "" {
				rec.Answer = ev.Answer
			}
			continue
		case RecFrame, RecAudio, RecTranscript:
		default:
			return nil, fmt.Errorf("recording line %d: unknown type %q", line, ev.Type)
		}
		if ev.T < last {
			return nil, fmt.Errorf("recording line %d: out of order (t=%d after %d)", line, ev.T, last)
		}
		last = ev.T
		rec.Events = append(rec.Events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rec, nil
}
