package raymarch

import (
	"math"
)

// Color is an RGB triple in linear space, clamped to [0, 1] on output.
type Color [3]float64

func (c Color) Scale(k float64) Color {
	return Color{c[0] * k, c[1] * k, c[2] * k}
}

func (c Color) Add(o Color) Color {
	return Color{c[0] + o[0], c[1] + o[1], c[2] + o[2]}
}

// Clamp bounds every channel to [0, 1].
func (c Color) Clamp() Color {
	return Color{clamp01(c[0]), clamp01(c[1]), clamp01(c[2])}
}

// Disk gradient endpoints: near-white hot at the inner edge cooling to a
// deep orange at the rim.
var (
	diskHotColor  = Color{1.0, 0.96, 0.90}
	diskCoolColor = Color{0.95, 0.45, 0.10}
	holeColor     = Color{0, 0, 0}
)

// DiskOpacity is the smooth opacity falloff across the annulus. It reaches
// exactly zero at the outer radius with zero slope so the rim never shows a
// hard ring, and eases in from the inner edge.
func DiskOpacity(radial, inner, outer float64) float64 {
	if radial <= inner || radial >= outer {
		return 0
	}

	t := (radial - inner) / math.Max(outer-inner, epsilon)

	// smoothstep ramp-in over the first 5% and a smooth decay to the rim.
	rampIn := smoothstep(0, 0.05, t)
	fade := 1 - smoothstep(0.55, 1, t)

	return clamp01(rampIn * fade)
}

func smoothstep(edge0, edge1, x float64) float64 {
	t := clamp01((x - edge0) / math.Max(edge1-edge0, epsilon))
	return t * t * (3 - 2*t)
}

// hashNoise is the procedural fallback when no noise texture sampler is
// provided: a sine-hash value noise with bilinear interpolation.
func hashNoise(u, v float64) float64 {
	hash := func(x, y float64) float64 {
		s := math.Sin(x*127.1+y*311.7) * 43758.5453
		return s - math.Floor(s)
	}

	xi, yi := math.Floor(u), math.Floor(v)
	xf, yf := u-xi, v-yi

	a := hash(xi, yi)
	b := hash(xi+1, yi)
	c := hash(xi, yi+1)
	d := hash(xi+1, yi+1)

	sx := xf * xf * (3 - 2*xf)
	sy := yf * yf * (3 - 2*yf)

	return lerp(lerp(a, b, sx), lerp(c, d, sx), sy)
}

// ShadeDisk produces the procedural accretion disk color and opacity at a
// hit point (relative to the hole). The swirl comes from sampling the noise
// at several rotated/offset coordinates with a time-dependent angular
// offset; the glow term fades with distance from the midplane.
func (p *Params) ShadeDisk(rel Vec3) (Color, float64) {
	radial := math.Hypot(rel[0], rel[2])
	opacity := DiskOpacity(radial, p.DiskInner, p.DiskOuter)
	if opacity == 0 {
		return Color{}, 0
	}

	t := clamp01((radial - p.DiskInner) / math.Max(p.DiskOuter-p.DiskInner, epsilon))
	base := lerpColor(diskHotColor, diskCoolColor, t)

	noise := p.Noise
	if noise == nil {
		noise = hashNoise
	}

	// Angular coordinate swirling against the rotation direction; inner
	// material swirls faster, matching the orbital speed gradient.
	angle := math.Atan2(rel[2], rel[0])
	swirl := angle + p.Time*0.35/(0.2+t)

	turbulence := 0.0
	amplitude := 0.6
	for octave := 0; octave < 3; octave++ {
		scale := float64(int(1) << uint(octave))
		u := swirl*3*scale/math.Pi + float64(octave)*7.13
		v := t*10*scale + p.Time*0.07
		turbulence += noise(u, v) * amplitude
		amplitude *= 0.5
	}
	turbulence = clamp01(turbulence)

	brightness := 0.55 + 0.45*turbulence

	// Midplane glow, brightest dead on the plane.
	glow := 1 - clamp01(math.Abs(rel[1])/math.Max(p.DiskHalfThickness, epsilon))
	brightness *= 0.6 + 0.4*glow*glow

	return base.Scale(brightness).Clamp(), opacity
}

func lerpColor(a, b Color, t float64) Color {
	return Color{lerp(a[0], b[0], t), lerp(a[1], b[1], t), lerp(a[2], b[2], t)}
}

// EquirectUV maps a direction onto equirectangular texture coordinates:
// u from atan2(z, x), v from asin(y), both shifted into [0, 1] with v
// flipped so the texture's first row is the zenith.
func EquirectUV(dir Vec3) (float64, float64) {
	d := dir.Normalize()

	u := math.Atan2(d[2], d[0])/(2*math.Pi) + 0.5
	v := 1 - (math.Asin(clampRange(d[1], -1, 1))/math.Pi + 0.5)

	return clamp01(u), clamp01(v)
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Shade composites a marched ray against the background. skybox samples the
// environment for a final direction; it may be nil, in which case missed
// rays are black.
func (p *Params) Shade(res Result, skybox func(dir Vec3) Color) Color {
	base := holeColor
	if !res.Absorbed && skybox != nil {
		base = skybox(res.Dir)
	}

	if res.HitDisk {
		rel := res.DiskPoint
		diskColor, opacity := p.ShadeDisk(rel)
		base = lerpColor(base, diskColor, opacity)
	}

	return base.Clamp()
}
