package geometry

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// uprightFrame is a full mesh with every point at the face center, the chin
// straight below the nose and both eye keys level.
func uprightFrame() Frame {
	f := make(Frame, MeshSize)
	for i := range f {
		f[i] = Point{X: 0.5, Y: 0.5}
	}
	f[NoseTip] = Point{X: 0.5, Y: 0.5}
	f[Chin] = Point{X: 0.5, Y: 0.7}
	return f
}

func shifted(f Frame, dx, dy float64) Frame {
	out := make(Frame, len(f))
	for i, p := range f {
		out[i] = Point{X: p.X + dx, Y: p.Y + dy}
	}
	return out
}

func TestEyeContact(t *testing.T) {
	tests := []struct {
		name       string
		frame      Frame
		confidence float64
		want       float64
	}{
		{"empty frame", nil, 0.8, 0},
		{"eyes on face center", uprightFrame(), 0.8, 0.8*100*0.7 + 30},
		{"truncated mesh falls back to confidence", uprightFrame()[:300], 0.8, 80},
		{"confidence above one is clamped", uprightFrame()[:300], 3, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EyeContact(tt.frame, tt.confidence), 1e-9)
		})
	}
}

func TestEyeContact_OffsetReducesBonus(t *testing.T) {
	f := uprightFrame()
	f[FaceCenter] = Point{X: 0.5, Y: 0.4} // 0.1 away from the eye centroid

	got := EyeContact(f, 1)
	assert.InDelta(t, 70+20, got, 1e-9)
}

func TestStability(t *testing.T) {
	cur := uprightFrame()

	t.Run("no previous frame", func(t *testing.T) {
		assert.InDelta(t, 80, Stability(cur, nil, 0.8), 1e-9)
	})
	t.Run("identical frames", func(t *testing.T) {
		assert.InDelta(t, 100*0.7+80*0.3, Stability(cur, uprightFrame(), 0.8), 1e-9)
	})
	t.Run("small drift", func(t *testing.T) {
		prev := shifted(cur, 0.01, 0)
		assert.InDelta(t, 80*0.7+80*0.3, Stability(cur, prev, 0.8), 1e-9)
	})
	t.Run("large jump bottoms out", func(t *testing.T) {
		prev := shifted(cur, 0.3, 0.3)
		assert.InDelta(t, 80*0.3, Stability(cur, prev, 0.8), 1e-9)
	})
	t.Run("no shared anchors", func(t *testing.T) {
		assert.InDelta(t, 80, Stability(cur, cur[:2], 0.8), 1e-9)
	})
}

func TestPosture(t *testing.T) {
	t.Run("upright and level", func(t *testing.T) {
		assert.InDelta(t, 100, Posture(uprightFrame()), 1e-9)
	})
	t.Run("eye tilt", func(t *testing.T) {
		f := uprightFrame()
		f[RightEyeKey] = Point{X: 0.5, Y: 0.6}
		assert.InDelta(t, 100*0.6+50*0.4, Posture(f), 1e-9)
	})
	t.Run("head rolled 45 degrees", func(t *testing.T) {
		f := uprightFrame()
		f[Chin] = Point{X: 0.7, Y: 0.7}
		assert.InDelta(t, 10*0.6+100*0.4, Posture(f), 1e-9)
	})
	t.Run("missing chin", func(t *testing.T) {
		assert.Equal(t, PostureFallback, Posture(uprightFrame()[:100]))
	})
}

func TestScore_Bounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	random := func() Frame {
		f := make(Frame, MeshSize)
		for i := range f {
			f[i] = Point{X: rng.Float64()*4 - 2, Y: rng.Float64()*4 - 2}
		}
		return f
	}

	prev := random()
	for i := 0; i < 500; i++ {
		cur := random()
		s := Score(cur, prev, rng.Float64()*1.5-0.25)
		for _, v := range []float64{s.EyeContact, s.Stability, s.Posture} {
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 100.0)
		}
		prev = cur
	}
}

func TestFromTriples(t *testing.T) {
	f := FromTriples([][]float64{{0.1, 0.2, 0.3}, {0.4}, {}})
	require.Len(t, f, 3)
	assert.Equal(t, Point{X: 0.1, Y: 0.2, Z: 0.3}, f[0])
	assert.Equal(t, Point{X: 0.4}, f[1])

	_, ok := f.At(Chin)
	assert.False(t, ok)
}
