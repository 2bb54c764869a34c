// Package orientation converts armband orientation quaternions into the
// normalised roll/pitch/yaw values used for display and motor control.
package orientation

import "math"

// DefaultScale is the width of the normalised range [0, Scale].
const DefaultScale = 20

// Quaternion is a rotation reported by the armband.
type Quaternion struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Identity is the zero rotation.
var Identity = Quaternion{W: 1}

// Norm returns the magnitude of q.
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Normalized returns q scaled to unit length. A zero quaternion is returned unchanged.
func (q Quaternion) Normalized() Quaternion {
	n := q.Norm()
	if n == 0 {
		return q
	}
	return Quaternion{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}

// Euler holds Tait-Bryan angles in radians.
type Euler struct {
	Roll  float64
	Pitch float64
	Yaw   float64
}

// ToEuler converts a unit quaternion to roll, pitch and yaw:
//
//	roll  = atan2(2(wx+yz), 1-2(x²+y²))
//	pitch = asin(2(wy-zx))
//	yaw   = atan2(2(wz+xy), 1-2(y²+z²))
//
// q must already be normalised. The asin argument is not clipped, so a
// non-unit quaternion can yield a NaN pitch.
func ToEuler(q Quaternion) Euler {
	return Euler{
		Roll:  math.Atan2(2*(q.W*q.X+q.Y*q.Z), 1-2*(q.X*q.X+q.Y*q.Y)),
		Pitch: math.Asin(2 * (q.W*q.Y - q.Z*q.X)),
		Yaw:   math.Atan2(2*(q.W*q.Z+q.X*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z)),
	}
}

// Angles are roll, pitch and yaw rescaled to [0, Scale].
type Angles struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Finite reports whether every angle is a real number.
func (a Angles) Finite() bool {
	for _, v := range []float64{a.Roll, a.Pitch, a.Yaw} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Disconnected is what the angles read while no armband is connected.
// Negative values map to a zero motor command.
var Disconnected = Angles{Roll: -1, Pitch: -1, Yaw: -1}

// Filter rescales Euler angles to the control range.
type Filter struct {
	Scale float64
}

// NewFilter returns a filter for the given scale, falling back to DefaultScale.
func NewFilter(scale float64) Filter {
	if scale <= 0 {
		scale = DefaultScale
	}
	return Filter{Scale: scale}
}

// Apply converts q to normalised angles. No clamping is done.
func (f Filter) Apply(q Quaternion) Angles {
	e := ToEuler(q)
	return Angles{
		Roll:  (e.Roll + math.Pi) / (2 * math.Pi) * f.Scale,
		Pitch: (e.Pitch + math.Pi/2) / math.Pi * f.Scale,
		Yaw:   (e.Yaw + math.Pi) / (2 * math.Pi) * f.Scale,
	}
}

// FromEuler builds the quaternion for roll, pitch, yaw (radians). It is the
// inverse of ToEuler and is used by the simulated armband.
func FromEuler(roll, pitch, yaw float64) Quaternion {
	cr, sr := math.Cos(roll/2), math.Sin(roll/2)
	cp, sp := math.Cos(pitch/2), math.Sin(pitch/2)
	cy, sy := math.Cos(yaw/2), math.Sin(yaw/2)

	return Quaternion{
		W: cr*cp*cy + sr*sp*sy,
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
	}
}
