package tracking

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func apply(m Matrix4, v [3]float64) [3]float64 {
	var r [3]float64
	for i := range 3 {
		r[i] = m[i][0]*v[0] + m[i][1]*v[1] + m[i][2]*v[2] + m[i][3]
	}
	return r
}

func TestInitialPose(t *testing.T) {
	got := InitialPose(1000)
	want := Pose{Tx: 15, Ty: -45, Tz: 1000, Alpha: 115, Beta: 0, Gamma: 45}
	if got != want {
		t.Errorf("InitialPose = %+v, want %+v", got, want)
	}
}

func TestZeroPoseIsIdentity(t *testing.T) {
	m := Pose{}.Matrix()
	id := Identity()
	for i := range 4 {
		for j := range 4 {
			if !near(m[i][j], id[i][j]) {
				t.Fatalf("m[%d][%d] = %v", i, j, m[i][j])
			}
		}
	}
}

func TestMatrixRotationOrder(t *testing.T) {
	tests := []struct {
		name string
		pose Pose
		in   [3]float64
		want [3]float64
	}{
		{"translation only", Pose{Tx: 1, Ty: 2, Tz: 3}, [3]float64{0, 0, 0}, [3]float64{1, 2, 3}},
		{"gamma 90 turns x into y", Pose{Gamma: 90}, [3]float64{1, 0, 0}, [3]float64{0, 1, 0}},
		{"alpha 90 turns y into z", Pose{Alpha: 90}, [3]float64{0, 1, 0}, [3]float64{0, 0, 1}},
		{"beta 90 turns z into x", Pose{Beta: 90}, [3]float64{0, 0, 1}, [3]float64{1, 0, 0}},
		// X first: y -> z, then Z leaves z alone.
		{"x before z", Pose{Alpha: 90, Gamma: 90}, [3]float64{0, 1, 0}, [3]float64{0, 0, 1}},
		// X first leaves x alone, then Z: x -> y.
		{"z after x", Pose{Alpha: 90, Gamma: 90}, [3]float64{1, 0, 0}, [3]float64{0, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := apply(tt.pose.Matrix(), tt.in)
			for i := range 3 {
				if !near(got[i], tt.want[i]) {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestAngleSettersWrap(t *testing.T) {
	var p Pose
	p.SetAlpha(370)
	p.SetBeta(-90)
	p.SetGamma(360)
	p.SetTz(850)
	if p.Alpha != 10 || p.Beta != 270 || p.Gamma != 0 || p.Tz != 850 {
		t.Errorf("pose = %+v", p)
	}
}
