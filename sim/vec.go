package sim

import (
	"math"

	"github.com/xlab/linmath"
)

// Small vector helpers on top of linmath.Vec3. The matrix work stays in
// linmath; these cover the handful of component-wise operations the
// integrator and the camera need.

func vecAdd(a, b linmath.Vec3) linmath.Vec3 {
	return linmath.Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func vecSub(a, b linmath.Vec3) linmath.Vec3 {
	return linmath.Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func vecScale(a linmath.Vec3, k float32) linmath.Vec3 {
	return linmath.Vec3{a[0] * k, a[1] * k, a[2] * k}
}

func vecDot(a, b linmath.Vec3) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func vecCross(a, b linmath.Vec3) linmath.Vec3 {
	return linmath.Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func vecLength(a linmath.Vec3) float32 {
	return float32(math.Sqrt(float64(vecDot(a, a))))
}

func vecNormalize(a linmath.Vec3) linmath.Vec3 {
	l := vecLength(a)
	if l == 0 {
		return linmath.Vec3{}
	}
	return vecScale(a, 1/l)
}
