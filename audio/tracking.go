package audio

import (
	"encoding/json"
	"time"
)

// DefaultHistory caps the volume and frequency histories.
const DefaultHistory = 100

// Tracking accumulates per-session speaking statistics from emitted samples.
type Tracking struct {
	SpeakingTime     time.Duration `json:"-"`
	TotalTime        time.Duration `json:"-"`
	VolumeHistory    []float64     `json:"volumeHistory"`
	FrequencyHistory []float64     `json:"frequencyHistory"`
	StartedAt        time.Time     `json:"startedAt"`

	limit int
}

// NewTracking returns empty tracking state capped at limit samples.
func NewTracking(limit int) *Tracking {
	if limit <= 0 {
		limit = DefaultHistory
	}
	return &Tracking{limit: limit}
}

// Reset clears the counters and histories and restarts the clock at now.
func (t *Tracking) Reset(now time.Time) {
	t.SpeakingTime = 0
	t.TotalTime = 0
	t.VolumeHistory = make([]float64, 0, t.limit)
	t.FrequencyHistory = make([]float64, 0, t.limit)
	t.StartedAt = now
}

// Observe folds one emitted sample into the tracking state. credit is the
// speaking time attributed to a sample reported as speaking.
func (t *Tracking) Observe(s Sample, now time.Time, credit time.Duration) {
	if t.StartedAt.IsZero() {
		return
	}
	if elapsed := now.Sub(t.StartedAt); elapsed > t.TotalTime {
		t.TotalTime = elapsed
	}
	if s.IsSpeaking {
		t.SpeakingTime += credit
	}
	t.VolumeHistory = pushBounded(t.VolumeHistory, s.Volume, t.limit)
	t.FrequencyHistory = pushBounded(t.FrequencyHistory, s.Frequency, t.limit)
}

// SpeakingRatio is speaking time over total time, 0 before any time passed.
func (t *Tracking) SpeakingRatio() float64 {
	if t.TotalTime <= 0 {
		return 0
	}
	r := float64(t.SpeakingTime) / float64(t.TotalTime)
	if r > 1 {
		return 1
	}
	return r
}

// Snapshot returns a copy safe to hand to other goroutines.
func (t *Tracking) Snapshot() Tracking {
	c := *t
	c.VolumeHistory = append([]float64(nil), t.VolumeHistory...)
	c.FrequencyHistory = append([]float64(nil), t.FrequencyHistory...)
	return c
}

func pushBounded(xs []float64, v float64, limit int) []float64 {
	xs = append(xs, v)
	if over := len(xs) - limit; over > 0 {
		copy(xs, xs[over:])
		xs = xs[:limit]
	}
	return xs
}

// MarshalJSON reports the counters in milliseconds.
func (t Tracking) MarshalJSON() ([]byte, error) {
	type alias Tracking
	return json.Marshal(struct {
		alias
		SpeakingTime int64 `json:"speakingTime"`
		TotalTime    int64 `json:"totalTime"`
	}{
		alias:        alias(t),
		SpeakingTime: t.SpeakingTime.Milliseconds(),
		TotalTime:    t.TotalTime.Milliseconds(),
	})
}
