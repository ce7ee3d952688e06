// Package audio analyzes microphone spectrum frames: it calibrates a noise
// floor, derives a normalized volume and a speaking decision per tick, and
// hands a decimated sample stream to the session.
package audio

import (
	"math"

	"github.com/sirupsen/logrus"
)

// MaxMagnitude is the largest value a spectrum bin can carry.
const MaxMagnitude = 255

// Defaults used when an Options field is left zero.
const (
	DefaultSampleRate       = 48000
	DefaultSensitivity      = 0.35
	DefaultCalibrationTicks = 60
	DefaultEmitEvery        = 10

	// VolumeEpsilon is the smallest volume change that is reported outward.
	VolumeEpsilon = 0.01

	transientMargin = 20
	thresholdCap    = 0.8
)

// Options configures an Analyzer.
type Options struct {
	SampleRate       int
	Bins             int // 0 locks to the length of the first buffer
	Sensitivity      float64
	CalibrationTicks int
	EmitEvery        int
}

func (o Options) withDefaults() Options {
	if o.SampleRate <= 0 {
		o.SampleRate = DefaultSampleRate
	}
	if o.Sensitivity <= 0 {
		o.Sensitivity = DefaultSensitivity
	}
	if o.CalibrationTicks <= 0 {
		o.CalibrationTicks = DefaultCalibrationTicks
	}
	if o.EmitEvery <= 0 {
		o.EmitEvery = DefaultEmitEvery
	}
	return o
}

// Sample is the rate-limited outward view of the analyzer.
type Sample struct {
	Volume     float64 `json:"volume"`
	Frequency  float64 `json:"frequency"`
	IsSpeaking bool    `json:"isSpeaking"`
}

// Tick is the full result of analyzing one buffer.
type Tick struct {
	Valid bool

	RawVolume        float64
	NormalizedVolume float64
	Speaking         bool
	Frequency        float64
	Calibrated       bool

	VolumeChanged   bool
	SpeakingChanged bool

	// Emit is set on every EmitEvery-th valid tick; Sample is only meaningful then.
	Emit   bool
	Sample Sample
}

// Analyzer is not safe for concurrent use; one goroutine owns it for the
// lifetime of a microphone session.
type Analyzer struct {
	opts Options
	log  logrus.FieldLogger

	bins int

	calibration []float64
	noiseFloor  float64
	calibrated  bool

	reportedVolume   float64
	reportedSpeaking bool
	ticks            int
}

// NewAnalyzer creates an analyzer in its calibrating state.
func NewAnalyzer(opts Options, log logrus.FieldLogger) *Analyzer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	a := &Analyzer{opts: opts.withDefaults(), log: log}
	a.Reset()
	return a
}

// Reset drops calibration, reported state and the decimation counter.
func (a *Analyzer) Reset() {
	a.bins = a.opts.Bins
	a.calibration = make([]float64, 0, a.opts.CalibrationTicks)
	a.noiseFloor = 0
	a.calibrated = false
	a.reportedVolume = 0
	a.reportedSpeaking = false
	a.ticks = 0
}

// NoiseFloor returns the frozen floor and whether calibration has finished.
func (a *Analyzer) NoiseFloor() (float64, bool) { return a.noiseFloor, a.calibrated }

// ReportedVolume is the last volume that passed change suppression.
func (a *Analyzer) ReportedVolume() float64 { return a.reportedVolume }

// Speaking is the last reported speaking state.
func (a *Analyzer) Speaking() bool { return a.reportedSpeaking }

// Process analyzes one spectrum buffer. A buffer whose length differs from
// the locked bin count is skipped and returns a Tick with Valid unset.
func (a *Analyzer) Process(buf []uint8) Tick {
	if len(buf) == 0 {
		return Tick{}
	}
	if a.bins == 0 {
		a.bins = len(buf)
	}
	if len(buf) != a.bins {
		a.log.WithFields(logrus.Fields{"got": len(buf), "want": a.bins}).Debug("audio buffer length mismatch, skipping")
		return Tick{}
	}

	var sum, nonZero int
	var maxValue uint8
	maxIndex := 0
	for i, v := range buf {
		sum += int(v)
		if v > maxValue {
			maxValue = v
			maxIndex = i
		}
		if v > 0 {
			nonZero++
		}
	}
	n := float64(len(buf))
	maxNorm := float64(maxValue) / MaxMagnitude
	avgNorm := float64(sum) / n / MaxMagnitude
	active := float64(nonZero) / n

	raw := math.Min(1, (maxNorm*0.7+avgNorm*0.3)*3+active*0.08)

	if !a.calibrated {
		a.calibration = append(a.calibration, raw)
		if len(a.calibration) >= a.opts.CalibrationTicks {
			a.noiseFloor = mean(a.calibration)
			a.calibrated = true
			a.calibration = nil
			a.log.WithField("noise_floor", a.noiseFloor).Debug("noise floor calibrated")
		}
	}

	t := Tick{
		Valid:      true,
		RawVolume:  raw,
		Calibrated: a.calibrated,
		Frequency:  float64(maxIndex) * float64(a.opts.SampleRate) / (2 * n),
	}

	if a.calibrated {
		t.NormalizedVolume = a.Normalize(raw)
		threshold := math.Min(thresholdCap, a.noiseFloor+a.opts.Sensitivity*0.3)
		t.Speaking = t.NormalizedVolume > threshold ||
			float64(maxValue) > a.noiseFloor*MaxMagnitude+transientMargin
	} else {
		t.NormalizedVolume = raw
		t.Speaking = raw > math.Min(thresholdCap, a.opts.Sensitivity*0.5)
	}

	if math.Abs(t.NormalizedVolume-a.reportedVolume) > VolumeEpsilon {
		a.reportedVolume = t.NormalizedVolume
		t.VolumeChanged = true
	}
	if t.Speaking != a.reportedSpeaking {
		a.reportedSpeaking = t.Speaking
		t.SpeakingChanged = true
	}

	a.ticks++
	if a.ticks >= a.opts.EmitEvery {
		a.ticks = 0
		t.Emit = true
		t.Sample = Sample{
			Volume:     a.reportedVolume,
			Frequency:  t.Frequency,
			IsSpeaking: a.reportedSpeaking,
		}
	}
	return t
}

// Normalize removes the frozen noise floor from a raw volume and rescales the
// remainder to [0,1]. Before calibration it returns raw unchanged.
func (a *Analyzer) Normalize(raw float64) float64 {
	if !a.calibrated {
		return raw
	}
	v := math.Max(0, raw-a.noiseFloor)
	if a.noiseFloor < 1 {
		v /= 1 - a.noiseFloor
	}
	return math.Min(1, math.Max(0, v))
}

// FromInts converts wire bin values into a spectrum buffer, clamping each
// value to [0,MaxMagnitude].
func FromInts(vs []int) []uint8 {
	out := make([]uint8, len(vs))
	for i, v := range vs {
		switch {
		case v < 0:
			out[i] = 0
		case v > MaxMagnitude:
			out[i] = MaxMagnitude
		default:
			out[i] = uint8(v)
		}
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}
