package sim

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xlab/linmath"
)

func testDiskConfig() DiskConfig {
	return DiskConfig{
		Count:       1000,
		InnerRadius: 220,
		OuterRadius: 1220,
		Thickness:   0.1,
		CenterMass:  3.2e6,
		Seed:        42,
	}
}

func TestGenerateDiskAnnulusBounds(t *testing.T) {
	cfg := testDiskConfig()
	field := GenerateDisk(cfg, linmath.Vec3{})
	require.Len(t, field.Particles, cfg.Count)

	for _, p := range field.Particles {
		radial := math.Hypot(float64(p.Position[0]), float64(p.Position[2]))

		assert.GreaterOrEqual(t, radial, float64(cfg.InnerRadius),
			"particle %d radius below the inner hole", p.ID)
		assert.LessOrEqual(t, radial, float64(cfg.OuterRadius)*(1+1e-6),
			"particle %d radius beyond the outer rim", p.ID)
		assert.LessOrEqual(t, math.Abs(float64(p.Position[1])),
			float64(cfg.Thickness)/2, "particle %d outside thickness band", p.ID)
	}
}

func TestGenerateDiskOrbitSeeding(t *testing.T) {
	cfg := testDiskConfig()
	center := linmath.Vec3{10, -5, 3}
	field := GenerateDisk(cfg, center)

	for _, p := range field.Particles {
		radial := vecSub(p.Position, center)

		dot := math.Abs(float64(vecDot(radial, p.Velocity)))
		norm := float64(vecLength(radial)) * float64(vecLength(p.Velocity))
		require.Greater(t, norm, 0.0)

		assert.Less(t, dot/norm, 1e-4,
			"particle %d velocity not perpendicular to its radius", p.ID)

		expectedSpeed := math.Sqrt(cfg.CenterMass / float64(vecLength(radial)))
		assert.InEpsilon(t, expectedSpeed, float64(vecLength(p.Velocity)), 1e-3,
			"particle %d speed does not match sqrt(M/r)", p.ID)
	}
}

func TestGenerateDiskDeterministicSeed(t *testing.T) {
	cfg := testDiskConfig()
	a := GenerateDisk(cfg, linmath.Vec3{})
	b := GenerateDisk(cfg, linmath.Vec3{})

	assert.Equal(t, a.Particles, b.Particles)
}

func TestGenerateDiskZeroSeedVaries(t *testing.T) {
	cfg := testDiskConfig()
	cfg.Seed = 0

	a := GenerateDisk(cfg, linmath.Vec3{})
	// Keep the wall-clock seeds apart.
	time.Sleep(time.Millisecond)
	b := GenerateDisk(cfg, linmath.Vec3{})

	assert.NotEqual(t, a.Particles, b.Particles,
		"a zero seed must not reproduce the same disk")
}

func TestAdvanceBoundedOrbit(t *testing.T) {
	const (
		mass   = 3.2e6
		radius = 500.0
		dt     = 0.016
		ticks  = 1000
	)

	field := &ParticleField{
		Particles: []DustParticle{{
			Position: linmath.Vec3{radius, 0, 0},
			Velocity: linmath.Vec3{0, 0, float32(math.Sqrt(mass / radius))},
		}},
		mass: mass,
	}

	energy := func(p DustParticle) float64 {
		v := float64(vecLength(p.Velocity))
		r := float64(vecLength(p.Position))
		return v*v - 2*mass/r
	}

	initial := energy(field.Particles[0])
	require.Less(t, initial, 0.0, "circular orbit should be bound")

	for i := 0; i < ticks; i++ {
		field.Advance(dt)

		r := float64(vecLength(field.Particles[0].Position))
		require.Greater(t, r, radius/4, "orbit collapsed at tick %d", i)
		require.Less(t, r, radius*4, "orbit escaped at tick %d", i)
	}

	// Explicit Euler is not energy conserving, but over this horizon the
	// drift must stay small rather than blow up.
	final := energy(field.Particles[0])
	assert.InEpsilon(t, initial, final, 0.05)
}

func TestAdvanceInsideEpsilonCoasts(t *testing.T) {
	field := &ParticleField{
		Particles: []DustParticle{{
			Position: linmath.Vec3{0.05, 0, 0},
			Velocity: linmath.Vec3{1, 0, 0},
		}},
		mass: 1e6,
	}

	field.Advance(0.5)

	// Within the epsilon guard no acceleration applies; the particle keeps
	// its velocity and drifts in a straight line.
	assert.Equal(t, linmath.Vec3{1, 0, 0}, field.Particles[0].Velocity)
	assert.InDelta(t, 0.55, field.Particles[0].Position[0], 1e-6)
}
