package scoring

import (
	"math"

	"github.com/maastricht-university/interview-coach/audio"
)

// AudioWeight is the share of the audio score in any blend. The audio score
// is still computed and reported but does not move the grade.
const AudioWeight = 0.0

const (
	minHistory          = 5
	minVoicedFrequency  = 3
	shortHistoryScore   = 15.0
	unvoicedScore       = 10.0
	volumeTolerance     = 0.2
	frequencyTolerance  = 0.15
	stabilityComponents = 30.0
)

// AudioDetails break the audio score into speaking (0-40), volume stability
// (0-30) and frequency stability (0-30).
type AudioDetails struct {
	Speaking  float64 `json:"speaking"`
	Volume    float64 `json:"volume"`
	Frequency float64 `json:"frequency"`
}

// Total is the clamped sum of the parts.
func (d AudioDetails) Total() float64 {
	return clamp(d.Speaking+d.Volume+d.Frequency, 0, 100)
}

// AudioScore derives the audio breakdown from session tracking.
func AudioScore(t audio.Tracking) AudioDetails {
	return AudioDetails{
		Speaking:  math.Min(40, t.SpeakingRatio()*40),
		Volume:    volumeStability(t.VolumeHistory),
		Frequency: frequencyStability(t.FrequencyHistory),
	}
}

func volumeStability(h []float64) float64 {
	if len(h) < minHistory {
		return shortHistoryScore
	}
	return stabilityRatio(h, volumeTolerance)
}

func frequencyStability(h []float64) float64 {
	if len(h) < minHistory {
		return shortHistoryScore
	}
	voiced := make([]float64, 0, len(h))
	for _, f := range h {
		if f > 0 {
			voiced = append(voiced, f)
		}
	}
	if len(voiced) < minVoicedFrequency {
		return unvoicedScore
	}
	return stabilityRatio(voiced, frequencyTolerance)
}

// stabilityRatio scores 30 for a flat series, falling to 0 once the standard
// deviation reaches tolerance*mean.
func stabilityRatio(xs []float64, tolerance float64) float64 {
	m, sd := meanStd(xs)
	limit := m * tolerance
	if limit <= 0 {
		if sd == 0 {
			return stabilityComponents
		}
		return 0
	}
	return clamp((1-sd/limit)*stabilityComponents, 0, stabilityComponents)
}

func meanStd(xs []float64) (float64, float64) {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	m := sum / float64(len(xs))
	var v float64
	for _, x := range xs {
		v += (x - m) * (x - m)
	}
	return m, math.Sqrt(v / float64(len(xs)))
}
