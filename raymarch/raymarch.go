// Package raymarch holds the CPU reference implementation of the
// gravitational lensing pass. The GLSL fragment shader in shaders/raymarch.frag
// mirrors this file constant for constant; tuning happens here first because
// this version is testable.
package raymarch

import (
	"math"
)

// Vec3 is a float64 vector. The reference runs in float64 so the property
// tests are not chasing float32 noise; the shader runs the same math in
// float32.
type Vec3 [3]float64

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }
func (v Vec3) Scale(k float64) Vec3 { return Vec3{v[0] * k, v[1] * k, v[2] * k} }
func (v Vec3) Dot(o Vec3) float64   { return v[0]*o[0] + v[1]*o[1] + v[2]*o[2] }
func (v Vec3) Length() float64      { return math.Sqrt(v.Dot(v)) }

func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l < epsilon {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func lerpVec(a, b Vec3, t float64) Vec3 {
	return Vec3{lerp(a[0], b[0], t), lerp(a[1], b[1], t), lerp(a[2], b[2], t)}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// epsilon guards every distance denominator near the singularity.
const epsilon = 1e-4

// Params fixes the march for one frame. All distances are world units.
type Params struct {
	// SchwarzschildRadius is the absorption radius r_s; rays inside it
	// terminate black.
	SchwarzschildRadius float64

	// DistortionPower is the exponent p of the distortion weight (r_s/d)^p.
	// Higher values confine the bending closer to the hole.
	DistortionPower float64

	DiskInner         float64
	DiskOuter         float64
	DiskHalfThickness float64

	MaxSteps    int
	MaxDistance float64
	BaseStep    float64

	// Time animates the disk swirl.
	Time float64

	// Noise samples the tiling noise texture at a UV coordinate. Nil falls
	// back to a procedural hash noise.
	Noise func(u, v float64) float64
}

// Result is what one marched ray produced.
type Result struct {
	// Absorbed is set when the ray fell below the Schwarzschild radius.
	Absorbed bool

	// HitDisk is set when the ray crossed the accretion disk annulus. Only
	// the nearest crossing is recorded. DiskPoint is relative to the hole.
	HitDisk      bool
	DiskDistance float64
	DiskPoint    Vec3

	// Dir is the final, bent ray direction; the skybox is sampled with it
	// when nothing absorbed the ray.
	Dir Vec3

	Steps int
}

// RayDirection bilinearly interpolates the four frustum corner rays at the
// normalized screen coordinate (u, v), u and v in [0, 1], corner order
// bottom-left, bottom-right, top-left, top-right.
func RayDirection(u, v float64, corners [4]Vec3) Vec3 {
	bottom := lerpVec(corners[0], corners[1], u)
	top := lerpVec(corners[2], corners[3], u)
	return lerpVec(bottom, top, v).Normalize()
}

// DistortionWeight returns the blend factor between travelling straight and
// bending toward the singularity: w = (r_s/d)^p, clamped to [0, 1]. This is
// the empirical lensing approximation, not geodesic integration.
func DistortionWeight(rs, dist, power float64) float64 {
	if dist < epsilon {
		dist = epsilon
	}
	return clamp01(math.Pow(rs/dist, power))
}

// StepSize is the adaptive step policy: shrink near the hole (stronger
// curvature needs smaller lensing error) and near the disk plane (avoid
// skipping the thin disk), stretch out when the ray is far from both.
func (p *Params) StepSize(pos Vec3, center Vec3) float64 {
	rel := pos.Sub(center)
	dist := rel.Length()

	step := p.BaseStep

	// Curvature term: inside ~8 r_s fall toward a fraction of the distance.
	near := dist / (8 * p.SchwarzschildRadius)
	if near < 1 {
		step *= math.Max(near, 0.05)
	}

	// Disk term: within a few thicknesses of the midplane, while radially
	// inside the annulus band, clamp the step below the half thickness so a
	// crossing cannot straddle more than one refine.
	radial := math.Hypot(rel[0], rel[2])
	if radial < p.DiskOuter*1.2 {
		planeDist := math.Abs(rel[1])
		if planeDist < p.DiskHalfThickness*16 {
			limit := math.Max(p.DiskHalfThickness, p.BaseStep*0.02)
			if step > limit {
				step = limit
			}
		}
	}

	if step < p.SchwarzschildRadius*0.01 {
		step = p.SchwarzschildRadius * 0.01
	}
	return step
}

// March walks one ray from origin along dir around a singularity at center.
func (p *Params) March(origin, dir Vec3, center Vec3) Result {
	res := Result{Dir: dir.Normalize()}

	pos := origin
	traveled := 0.0

	for step := 0; step < p.MaxSteps && traveled < p.MaxDistance; step++ {
		res.Steps = step + 1

		rel := pos.Sub(center)
		dist := rel.Length()

		// Full absorption inside the horizon.
		if dist < p.SchwarzschildRadius {
			res.Absorbed = true
			return res
		}

		// Bend: blend straight travel against a pull toward the hole.
		w := DistortionWeight(p.SchwarzschildRadius, dist, p.DistortionPower)
		pull := rel.Scale(-1 / math.Max(dist, epsilon))
		res.Dir = lerpVec(res.Dir, pull, w).Normalize()

		stepLen := p.StepSize(pos, center)
		next := pos.Add(res.Dir.Scale(stepLen))

		// Disk crossing test with a backtrack refine: when the segment
		// straddles the midplane, intersect it with the plane so thin disks
		// are not missed between samples. Only the first (nearest) hit
		// counts. A faint ring artifact remains at grazing angles; that is
		// a known cost of the refine approximation.
		if !res.HitDisk {
			if hit, t := p.diskCrossing(pos.Sub(center), next.Sub(center)); hit {
				res.HitDisk = true
				res.DiskDistance = traveled + t*stepLen
				res.DiskPoint = lerpVec(pos, next, t).Sub(center)
			}
		}

		pos = next
		traveled += stepLen
	}

	return res
}

// diskCrossing tests the segment from a to b (both relative to the hole) for
// a crossing of the disk annulus. It returns the segment parameter of the
// crossing when found.
func (p *Params) diskCrossing(a, b Vec3) (bool, float64) {
	inBand := func(v Vec3) bool {
		return math.Abs(v[1]) <= p.DiskHalfThickness
	}
	inAnnulus := func(v Vec3) bool {
		radial := math.Hypot(v[0], v[2])
		return radial >= p.DiskInner && radial <= p.DiskOuter
	}

	// Endpoint inside the disk volume.
	if inBand(a) && inAnnulus(a) {
		return true, 0
	}
	if inBand(b) && inAnnulus(b) {
		return true, 1
	}

	// Straddling the midplane: refine with the plane intercept.
	if (a[1] > 0) != (b[1] > 0) {
		denom := a[1] - b[1]
		if math.Abs(denom) < epsilon {
			return false, 0
		}
		t := a[1] / denom
		at := lerpVec(a, b, t)
		if inAnnulus(at) {
			return true, t
		}
	}

	return false, 0
}
