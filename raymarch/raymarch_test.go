package raymarch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistortionWeight(t *testing.T) {
	const rs = 10.0

	assert.Equal(t, 1.0, DistortionWeight(rs, rs, 2), "weight saturates at the horizon")
	assert.Equal(t, 1.0, DistortionWeight(rs, rs/2, 2), "weight stays clamped inside")
	assert.Less(t, DistortionWeight(rs, rs*100, 2), 1e-3, "weight vanishes far away")

	// Monotone decay with distance.
	prev := 1.0
	for d := rs; d < rs*50; d *= 1.5 {
		w := DistortionWeight(rs, d, 2)
		assert.LessOrEqual(t, w, prev, "weight must not grow with distance (d=%g)", d)
		prev = w
	}

	// Higher exponent confines the bending tighter.
	assert.Less(t, DistortionWeight(rs, rs*4, 4), DistortionWeight(rs, rs*4, 2))
}

func TestRayDirectionCorners(t *testing.T) {
	corners := [4]Vec3{
		{-1, -1, -2}, // bottom-left
		{1, -1, -2},  // bottom-right
		{-1, 1, -2},  // top-left
		{1, 1, -2},   // top-right
	}

	cases := []struct {
		u, v float64
		want Vec3
	}{
		{0, 0, corners[0]},
		{1, 0, corners[1]},
		{0, 1, corners[2]},
		{1, 1, corners[3]},
		{0.5, 0.5, Vec3{0, 0, -2}},
	}

	for _, tc := range cases {
		got := RayDirection(tc.u, tc.v, corners)
		want := tc.want.Normalize()
		for i := 0; i < 3; i++ {
			assert.InDelta(t, want[i], got[i], 1e-12, "component %d at (%g, %g)", i, tc.u, tc.v)
		}
		assert.InDelta(t, 1, got.Length(), 1e-12, "result stays unit length")
	}
}

func TestDiskOpacityEdges(t *testing.T) {
	const inner, outer = 30.0, 100.0

	assert.Equal(t, 0.0, DiskOpacity(inner, inner, outer), "inner edge")
	assert.Equal(t, 0.0, DiskOpacity(outer, inner, outer), "outer edge")
	assert.Equal(t, 0.0, DiskOpacity(inner/2, inner, outer), "inside the gap")
	assert.Equal(t, 0.0, DiskOpacity(outer*2, inner, outer), "beyond the rim")

	// Continuity at the rim: an epsilon inside must already be near zero,
	// this is what keeps the outer edge from drawing a hard ring.
	assert.Less(t, DiskOpacity(outer-1e-3, inner, outer), 1e-6)
	assert.Less(t, DiskOpacity(inner+1e-3, inner, outer), 1e-2)

	// Fully opaque through the body of the disk.
	assert.InDelta(t, 1, DiskOpacity(inner+(outer-inner)*0.3, inner, outer), 1e-9)
}

func TestEquirectUV(t *testing.T) {
	u, v := EquirectUV(Vec3{1, 0, 0})
	assert.InDelta(t, 0.5, u, 1e-12)
	assert.InDelta(t, 0.5, v, 1e-12)

	u, _ = EquirectUV(Vec3{0, 0, 1})
	assert.InDelta(t, 0.75, u, 1e-12)

	_, v = EquirectUV(Vec3{0, 1, 0})
	assert.InDelta(t, 0, v, 1e-12, "zenith maps to the first texture row")

	_, v = EquirectUV(Vec3{0, -1, 0})
	assert.InDelta(t, 1, v, 1e-12, "nadir maps to the last row")

	// Every direction stays inside the texture.
	for yaw := 0.0; yaw < 2*math.Pi; yaw += 0.37 {
		for pitch := -1.5; pitch < 1.5; pitch += 0.31 {
			dir := Vec3{
				math.Cos(pitch) * math.Cos(yaw),
				math.Sin(pitch),
				math.Cos(pitch) * math.Sin(yaw),
			}
			u, v := EquirectUV(dir)
			assert.GreaterOrEqual(t, u, 0.0)
			assert.LessOrEqual(t, u, 1.0)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func marchParams() Params {
	return Params{
		SchwarzschildRadius: 10,
		DistortionPower:     4,
		DiskInner:           30,
		DiskOuter:           100,
		DiskHalfThickness:   0.5,
		MaxSteps:            20000,
		MaxDistance:         2000,
		BaseStep:            5,
	}
}

func TestMarchAbsorption(t *testing.T) {
	p := marchParams()

	// Aimed slightly above the midplane straight through the hole; the ray
	// never enters the disk band but falls below the horizon.
	res := p.March(Vec3{200, 3, 0}, Vec3{-1, 0, 0}, Vec3{})

	assert.True(t, res.Absorbed)
	assert.False(t, res.HitDisk)
}

func TestMarchDiskCrossing(t *testing.T) {
	p := marchParams()

	// Straight down through the annulus from well outside the strong-field
	// region; the crossing point must land on the midplane at the launch
	// radius, give or take the slight inward bend.
	res := p.March(Vec3{60, 50, 0}, Vec3{0, -1, 0}, Vec3{})

	require.True(t, res.HitDisk)
	assert.False(t, res.Absorbed)

	assert.LessOrEqual(t, math.Abs(res.DiskPoint[1]), p.DiskHalfThickness,
		"refined hit sits inside the disk band")

	radial := math.Hypot(res.DiskPoint[0], res.DiskPoint[2])
	assert.InDelta(t, 60, radial, 3, "hit radius near the launch radius")
	assert.InDelta(t, 50, res.DiskDistance, 5, "travel distance to the plane")
}

func TestMarchRecordsNearestHitOnly(t *testing.T) {
	p := marchParams()
	p.DiskHalfThickness = 2

	// Shallow diagonal into a thick band: consecutive step endpoints all sit
	// inside the disk volume, so many crossings are visible along the path.
	// The recorded one must be the entry, not a later re-detection.
	dir := Vec3{-0.3, -1, 0}.Normalize()
	origin := Vec3{90, 30, 0}
	res := p.March(origin, dir, Vec3{})

	require.True(t, res.HitDisk)

	// Distance along the (near-straight) ray to the band's upper face.
	entry := (origin[1] - p.DiskHalfThickness) / -dir[1]
	assert.InDelta(t, entry, res.DiskDistance, 2.5,
		"recorded distance is the entry into the band")

	plane := origin[1] / -dir[1]
	assert.Less(t, res.DiskDistance, plane,
		"hit recorded before the midplane, not at a later crossing")
}

func TestMarchMissStaysStraight(t *testing.T) {
	p := marchParams()
	p.SchwarzschildRadius = 0.01
	p.DiskInner = 0.02
	p.DiskOuter = 0.03

	dir := Vec3{0.2, 0.1, -1}.Normalize()
	res := p.March(Vec3{0, 0, 500}, dir, Vec3{})

	assert.False(t, res.Absorbed)
	assert.False(t, res.HitDisk)
	assert.InDelta(t, 1, res.Dir.Dot(dir), 1e-6, "negligible field leaves the ray straight")
}

func TestDiskCrossingRefinesToPlane(t *testing.T) {
	p := marchParams()

	// Segment straddling the midplane through the annulus.
	hit, tc := p.diskCrossing(Vec3{50, 2, 0}, Vec3{50, -2, 0})
	require.True(t, hit)
	assert.InDelta(t, 0.5, tc, 1e-12)

	// Straddling outside the annulus is not a hit.
	hit, _ = p.diskCrossing(Vec3{200, 2, 0}, Vec3{200, -2, 0})
	assert.False(t, hit)

	// Endpoint already inside the disk volume hits at its own parameter.
	hit, tc = p.diskCrossing(Vec3{50, 0.1, 0}, Vec3{50, -5, 0})
	require.True(t, hit)
	assert.Equal(t, 0.0, tc)
}

func TestShadeCompositing(t *testing.T) {
	p := marchParams()

	sky := func(Vec3) Color { return Color{0.2, 0.4, 0.6} }

	// Absorbed rays are black regardless of the background.
	c := p.Shade(Result{Absorbed: true}, sky)
	assert.Equal(t, Color{0, 0, 0}, c)

	// A clean miss samples the skybox with the bent direction.
	c = p.Shade(Result{Dir: Vec3{0, 0, -1}}, sky)
	assert.Equal(t, Color{0.2, 0.4, 0.6}, c)

	// A disk hit in the opaque body replaces the background entirely.
	hit := Result{
		HitDisk:   true,
		DiskPoint: Vec3{55, 0, 0},
		Dir:       Vec3{0, 0, -1},
	}
	c = p.Shade(hit, sky)
	assert.NotEqual(t, Color{0.2, 0.4, 0.6}, c)
	assert.Greater(t, c[0], c[2], "disk shading runs hot, red over blue")
}

func TestShadeDiskOutsideAnnulusIsTransparent(t *testing.T) {
	p := marchParams()

	_, opacity := p.ShadeDisk(Vec3{p.DiskOuter + 1, 0, 0})
	assert.Equal(t, 0.0, opacity)

	_, opacity = p.ShadeDisk(Vec3{p.DiskInner - 1, 0, 0})
	assert.Equal(t, 0.0, opacity)
}
