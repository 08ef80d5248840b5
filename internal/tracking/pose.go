package tracking

import "math"

// Pose is a 6-DoF object pose: translation in millimetres along the camera
// axes and rotation in degrees about X, Y and Z.
type Pose struct {
	Tx    float64 `json:"tx" yaml:"tx"`
	Ty    float64 `json:"ty" yaml:"ty"`
	Tz    float64 `json:"tz" yaml:"tz"`
	Alpha float64 `json:"alpha" yaml:"alpha"`
	Beta  float64 `json:"beta" yaml:"beta"`
	Gamma float64 `json:"gamma" yaml:"gamma"`
}

// InitialPose places the object z millimetres in front of the camera with the
// default starting orientation.
func InitialPose(z float64) Pose {
	return Pose{Tx: 15, Ty: -45, Tz: z, Alpha: 115, Beta: 0, Gamma: 45}
}

// SetTx sets the X translation.
func (p *Pose) SetTx(v float64) { p.Tx = v }

// SetTy sets the Y translation.
func (p *Pose) SetTy(v float64) { p.Ty = v }

// SetTz sets the Z translation.
func (p *Pose) SetTz(v float64) { p.Tz = v }

// SetAlpha sets the rotation about X, wrapped into [0, 360).
func (p *Pose) SetAlpha(deg float64) { p.Alpha = wrapDegrees(deg) }

// SetBeta sets the rotation about Y, wrapped into [0, 360).
func (p *Pose) SetBeta(deg float64) { p.Beta = wrapDegrees(deg) }

// SetGamma sets the rotation about Z, wrapped into [0, 360).
func (p *Pose) SetGamma(deg float64) { p.Gamma = wrapDegrees(deg) }

func wrapDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Matrix4 is a row-major homogeneous transform.
type Matrix4 [4][4]float64

// Identity returns the identity transform.
func Identity() Matrix4 {
	return Matrix4{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}
}

// Mul returns m * n.
func (m Matrix4) Mul(n Matrix4) Matrix4 {
	var r Matrix4
	for i := range 4 {
		for j := range 4 {
			for k := range 4 {
				r[i][j] += m[i][k] * n[k][j]
			}
		}
	}
	return r
}

// Matrix returns the object-to-camera transform. Rotations apply about X
// first, then Y, then Z: R = Rz * Ry * Rx.
func (p Pose) Matrix() Matrix4 {
	a := p.Alpha * math.Pi / 180
	b := p.Beta * math.Pi / 180
	g := p.Gamma * math.Pi / 180

	rx := Matrix4{
		{1, 0, 0, 0},
		{0, math.Cos(a), -math.Sin(a), 0},
		{0, math.Sin(a), math.Cos(a), 0},
		{0, 0, 0, 1},
	}
	ry := Matrix4{
		{math.Cos(b), 0, math.Sin(b), 0},
		{0, 1, 0, 0},
		{-math.Sin(b), 0, math.Cos(b), 0},
		{0, 0, 0, 1},
	}
	rz := Matrix4{
		{math.Cos(g), -math.Sin(g), 0, 0},
		{math.Sin(g), math.Cos(g), 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}

	m := rz.Mul(ry).Mul(rx)
	m[0][3], m[1][3], m[2][3] = p.Tx, p.Ty, p.Tz
	return m
}
