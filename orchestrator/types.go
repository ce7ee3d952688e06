package orchestrator

import (
	"time"

	"github.com/maastricht-university/interview-coach/audio"
	"github.com/maastricht-university/interview-coach/geometry"
	"github.com/maastricht-university/interview-coach/scoring"
)

type State int

const (
	StateIdle State = iota
	StateCountdown
	StateActive
	StateSubmitting
	StateConcluded
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCountdown:
		return "countdown"
	case StateActive:
		return "active"
	case StateSubmitting:
		return "submitting"
	case StateConcluded:
		return "concluded"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Trigger records what moved a session out of Active.
type Trigger string

const (
	TriggerSubmit  Trigger = "submit"
	TriggerTimeout Trigger = "timeout"
)

// Live is the per-frame snapshot shown while a question runs.
type Live struct {
	FaceScore float64         `json:"faceScore"`
	LiveScore float64         `json:"liveScore"`
	Scores    geometry.Scores `json:"scores"`
	Details   scoring.Details `json:"details"`
	Feedback  string          `json:"feedback"`
}

// Verdict is the content judge's answer, real or synthesized.
type Verdict struct {
	Success    bool    `json:"success"`
	AIScore    float64 `json:"aiScore"`
	AIFeedback string  `json:"aiFeedback"`
	FaceScore  float64 `json:"faceScore"`
	FinalScore int     `json:"finalScore"`
	Error      string  `json:"error,omitempty"`
}

// FallbackFeedback is the judge feedback used when no verdict could be obtained.
const FallbackFeedback = "AI evaluation is unavailable. A default score was used."

// Result is produced once per session at submission and never changed.
type Result struct {
	SessionID         string               `json:"sessionId"`
	TotalScore        int                  `json:"totalScore"`
	Grade             string               `json:"grade"`
	FaceScore         float64              `json:"faceScore"`
	FaceScoreDetails  scoring.Details      `json:"faceScoreDetails"`
	FaceSubScores     geometry.Scores      `json:"faceSubScores"`
	AIScore           *float64             `json:"aiScore"`
	AIFeedback        *string              `json:"aiFeedback"`
	UsedFallback      bool                 `json:"usedFallback"`
	Feedback          string               `json:"feedback"`
	Question          string               `json:"question"`
	Answer            string               `json:"answer"`
	AudioScoreDetails scoring.AudioDetails `json:"audioScoreDetails"`
	AudioTracking     audio.Tracking       `json:"audioTracking"`
	Trigger           Trigger              `json:"trigger"`
	ConcludedAt       time.Time            `json:"concludedAt"`
}

type EventType string

const (
	EventState  EventType = "state"
	EventLive   EventType = "live"
	EventAudio  EventType = "audio"
	EventResult EventType = "result"
)

// Event is published to the session observer after every visible change.
type Event struct {
	// Seq increases by one per event within a session.
	Seq       uint64        `json:"seq"`
	Type      EventType     `json:"type"`
	State     State         `json:"state"`
	Countdown int           `json:"countdown,omitempty"`
	Question  string        `json:"question,omitempty"`
	Deadline  *time.Time    `json:"deadline,omitempty"`
	Live      *Live         `json:"live,omitempty"`
	Audio     *audio.Sample `json:"audio,omitempty"`
	Result    *Result       `json:"result,omitempty"`
}

// FrameInput is one landmark frame with its detection confidence.
type FrameInput struct {
	Frame      geometry.Frame
	Confidence float64
}
