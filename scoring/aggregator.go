// Package scoring composes geometry sub-scores into a face score, blends the
// face score with the content judge's score, and derives feedback text.
package scoring

import (
	"math"

	"github.com/maastricht-university/interview-coach/geometry"
)

// Sub-score weights inside the face score.
const (
	EyeContactWeight = 0.4
	StabilityWeight  = 0.3
	PostureWeight    = 0.3
)

// Final-grade weights.
const (
	FaceWeight    = 0.1
	ContentWeight = 0.9

	// DefaultContentScore stands in for the judge when it is unavailable.
	DefaultContentScore = 50.0
)

// Details are the weighted sub-score contributions: eye contact in [0,40],
// stability and posture in [0,30].
type Details struct {
	EyeContact float64 `json:"eyeContact"`
	Stability  float64 `json:"stability"`
	Posture    float64 `json:"posture"`
}

// Total is the sum of the contributions clamped to [0,100].
func (d Details) Total() float64 {
	return clamp(d.EyeContact+d.Stability+d.Posture, 0, 100)
}

// Weigh scales raw 0-100 sub-scores into their contributions.
func Weigh(s geometry.Scores) Details {
	return Details{
		EyeContact: s.EyeContact * EyeContactWeight,
		Stability:  s.Stability * StabilityWeight,
		Posture:    s.Posture * PostureWeight,
	}
}

// FaceScore is the weighted sum of the raw sub-scores in [0,100].
func FaceScore(s geometry.Scores) float64 {
	return Weigh(s).Total()
}

// LiveScore is the part of the final grade the face score can account for,
// shown while the question is still running.
func LiveScore(faceScore float64) float64 {
	return clamp(faceScore, 0, 100) * FaceWeight
}

// FinalScore blends the judge's content score with the face score and rounds
// to the nearest integer.
func FinalScore(contentScore, faceScore float64) int {
	v := clamp(contentScore, 0, 100)*ContentWeight + clamp(faceScore, 0, 100)*FaceWeight
	return int(math.Round(v))
}

// FallbackScore is FinalScore with the default content score.
func FallbackScore(faceScore float64) int {
	return FinalScore(DefaultContentScore, faceScore)
}

// Grade maps a final score to a letter.
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "S"
	case score >= 80:
		return "A"
	case score >= 70:
		return "B"
	case score >= 60:
		return "C"
	default:
		return "D"
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}
