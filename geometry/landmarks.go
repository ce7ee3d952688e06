package geometry

// Point is a single detector landmark in normalized image coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

// Landmark is an index into the face-mesh landmark scheme.
type Landmark int

const (
	NoseTip     Landmark = 4
	FaceCenter  Landmark = 10 // forehead center
	LeftEyeKey  Landmark = 33
	Chin        Landmark = 152
	RightEyeKey Landmark = 362
)

// MeshSize is the number of points a full face-mesh frame carries.
const MeshSize = 468

var (
	leftEyeContour = []Landmark{
		33, 7, 163, 144, 145, 153, 154, 155, 133, 173, 157, 158, 159, 160, 161, 246,
	}
	rightEyeContour = []Landmark{
		362, 382, 381, 380, 374, 373, 390, 249, 263, 466, 388, 387, 386, 385, 384, 398,
	}

	// anchors compared between consecutive frames for stability.
	anchors = []Landmark{NoseTip, FaceCenter, LeftEyeKey, Chin, RightEyeKey}
)

// Frame is one detector output. Index meaning is fixed by the Landmark table.
type Frame []Point

// At returns the point for l and whether the frame carries it.
func (f Frame) At(l Landmark) (Point, bool) {
	if l < 0 || int(l) >= len(f) {
		return Point{}, false
	}
	return f[l], true
}

// Has reports whether every landmark in ls is present.
func (f Frame) Has(ls ...Landmark) bool {
	for _, l := range ls {
		if _, ok := f.At(l); !ok {
			return false
		}
	}
	return true
}

// FromTriples converts [[x,y(,z)]...] wire data into a frame. Short rows are
// zero-filled so indices stay aligned.
func FromTriples(rows [][]float64) Frame {
	f := make(Frame, len(rows))
	for i, r := range rows {
		if len(r) > 0 {
			f[i].X = r[0]
		}
		if len(r) > 1 {
			f[i].Y = r[1]
		}
		if len(r) > 2 {
			f[i].Z = r[2]
		}
	}
	return f
}
