// Package geometry turns face-mesh landmark frames into bounded 0-100
// sub-scores for eye contact, head stability and posture.
//
// Every function here is total: a frame missing the landmarks it needs
// yields the documented fallback value instead of an error.
package geometry

import "math"

const (
	// PostureFallback is returned when nose, chin or either eye key point is missing.
	PostureFallback = 50.0

	alignmentBonusMax = 30.0
	jitterScale       = 2000.0
	tiltScale         = 500.0
)

// Scores holds the three raw 0-100 sub-scores for one frame.
type Scores struct {
	EyeContact float64 `json:"eyeContact"`
	Stability  float64 `json:"stability"`
	Posture    float64 `json:"posture"`
}

// Score evaluates all three sub-scores. prev may be nil.
func Score(frame, prev Frame, confidence float64) Scores {
	return Scores{
		EyeContact: EyeContact(frame, confidence),
		Stability:  Stability(frame, prev, confidence),
		Posture:    Posture(frame),
	}
}

// EyeContact approximates gaze directness from how far the eye centroid sits
// from the forehead center. Confidence contributes a floor of up to 70.
func EyeContact(frame Frame, confidence float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	base := clampUnit(confidence) * 100
	center, ok := frame.At(FaceCenter)
	if !ok || !frame.Has(leftEyeContour...) || !frame.Has(rightEyeContour...) {
		return clamp(base, 0, 100)
	}

	left := centroid(frame, leftEyeContour)
	right := centroid(frame, rightEyeContour)
	eyes := Point{X: (left.X + right.X) / 2, Y: (left.Y + right.Y) / 2}

	bonus := clamp(alignmentBonusMax-distance(eyes, center)*100, 0, alignmentBonusMax)
	return clamp(base*0.7+bonus, 0, 100)
}

// Stability scores how little the anchor points moved since prev.
// Without a previous frame the detection confidence alone is used.
func Stability(frame, prev Frame, confidence float64) float64 {
	c := clampUnit(confidence)
	if len(prev) == 0 {
		return c * 100
	}

	var total float64
	var n int
	for _, l := range anchors {
		cur, ok := frame.At(l)
		if !ok {
			continue
		}
		old, ok := prev.At(l)
		if !ok {
			continue
		}
		total += distance(cur, old)
		n++
	}
	if n == 0 {
		return c * 100
	}

	held := clamp(100-(total/float64(n))*jitterScale, 0, 100)
	return clamp(held*0.7+c*100*0.3, 0, 100)
}

// Posture combines the nose-chin axis angle against vertical (60%) with the
// eye-level difference (40%).
func Posture(frame Frame) float64 {
	nose, ok1 := frame.At(NoseTip)
	chin, ok2 := frame.At(Chin)
	le, ok3 := frame.At(LeftEyeKey)
	re, ok4 := frame.At(RightEyeKey)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return PostureFallback
	}

	angle := math.Abs(math.Atan2(chin.Y-nose.Y, chin.X-nose.X) * 180 / math.Pi)
	vertical := math.Max(0, 100-math.Abs(angle-90)*2)
	tilt := math.Max(0, 100-math.Abs(le.Y-re.Y)*tiltScale)

	return clamp(vertical*0.6+tilt*0.4, 0, 100)
}

func centroid(frame Frame, idx []Landmark) Point {
	var p Point
	for _, l := range idx {
		q := frame[l]
		p.X += q.X
		p.Y += q.Y
	}
	n := float64(len(idx))
	return Point{X: p.X / n, Y: p.Y / n}
}

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func clampUnit(v float64) float64 { return clamp(v, 0, 1) }

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}
