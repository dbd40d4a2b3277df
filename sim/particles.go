package sim

import (
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/xlab/linmath"
)

// minGravityDistance is the distance below which the integrator stops
// deflecting a particle. Particles inside it keep their velocity and simply
// coast toward (or through) the singularity. That is a documented boundary
// behavior of the simplified Newtonian model, not something the integrator
// tries to correct.
const minGravityDistance = 0.1

// DustParticle is one accretion disk dust grain. The whole set is owned
// exclusively by the simulation thread.
type DustParticle struct {
	ID       uint32
	Position linmath.Vec3
	Velocity linmath.Vec3
}

// DiskConfig describes the initial particle distribution of the accretion
// disk.
type DiskConfig struct {
	Count       int
	InnerRadius float32
	OuterRadius float32
	Thickness   float32

	// CenterMass is the gravitational parameter of the singularity in world
	// units. It seeds the circular orbit speed sqrt(M/r).
	CenterMass float64

	// Seed makes generation reproducible. Zero picks an arbitrary seed.
	Seed int64
}

// ParticleField holds and advances the dust ensemble.
type ParticleField struct {
	Particles []DustParticle

	center linmath.Vec3
	mass   float64
}

// GenerateDisk distributes cfg.Count particles uniformly (by area) over an
// annulus around center and gives each one a tangential circular-orbit
// velocity. Generation is independent per particle, so the work is split
// across GOMAXPROCS goroutines, each with its own rand source; the combine
// is a plain subslice fill and does not depend on ordering.
func GenerateDisk(cfg DiskConfig, center linmath.Vec3) *ParticleField {
	field := &ParticleField{
		Particles: make([]DustParticle, cfg.Count),
		center:    center,
		mass:      cfg.CenterMass,
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > cfg.Count {
		workers = 1
	}

	var wg sync.WaitGroup
	chunk := (cfg.Count + workers - 1) / workers

	for w := 0; w < workers; w++ {
		begin := w * chunk
		end := begin + chunk
		if end > cfg.Count {
			end = cfg.Count
		}
		if begin >= end {
			break
		}

		wg.Add(1)
		go func(w, begin, end int) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(seed + int64(w)))
			for i := begin; i < end; i++ {
				field.Particles[i] = sampleDiskParticle(uint32(i), cfg, center, rng)
			}
		}(w, begin, end)
	}
	wg.Wait()

	return field
}

func sampleDiskParticle(
	id uint32,
	cfg DiskConfig,
	center linmath.Vec3,
	rng *rand.Rand,
) DustParticle {
	inner := float64(cfg.InnerRadius)
	outer := float64(cfg.OuterRadius)

	// Uniform-area sampling over the annulus: picking r² uniformly keeps the
	// surface density constant instead of clustering toward the center.
	r := math.Sqrt(rng.Float64()*(outer*outer-inner*inner) + inner*inner)
	if r < inner {
		r = inner
	}

	phi := rng.Float64() * 2 * math.Pi
	height := (rng.Float64() - 0.5) * float64(cfg.Thickness)

	offset := linmath.Vec3{
		float32(r * math.Cos(phi)),
		float32(height),
		float32(r * math.Sin(phi)),
	}

	// Circular orbit speed from the simplified v = sqrt(M/r) relation, along
	// the tangent of the disk at this azimuth.
	speed := float32(math.Sqrt(cfg.CenterMass / r))
	tangent := vecNormalize(linmath.Vec3{
		float32(-math.Sin(phi)),
		0,
		float32(math.Cos(phi)),
	})

	return DustParticle{
		ID:       id,
		Position: vecAdd(center, offset),
		Velocity: vecScale(tangent, speed),
	}
}

// Advance integrates every particle by dt seconds with explicit Euler under
// the singularity's Newtonian pull. Particles only read their own state, so
// the loop is parallelized over disjoint slices.
func (f *ParticleField) Advance(dt float32) {
	workers := runtime.GOMAXPROCS(0)
	count := len(f.Particles)
	if workers > count {
		workers = 1
	}
	if count == 0 {
		return
	}

	var wg sync.WaitGroup
	chunk := (count + workers - 1) / workers

	for w := 0; w < workers; w++ {
		begin := w * chunk
		end := begin + chunk
		if end > count {
			end = count
		}
		if begin >= end {
			break
		}

		wg.Add(1)
		go func(begin, end int) {
			defer wg.Done()
			for i := begin; i < end; i++ {
				f.advanceParticle(&f.Particles[i], dt)
			}
		}(begin, end)
	}
	wg.Wait()
}

func (f *ParticleField) advanceParticle(p *DustParticle, dt float32) {
	toCenter := vecSub(f.center, p.Position)
	dist := vecLength(toCenter)
	if dist > minGravityDistance {
		accel := float32(f.mass / float64(dist*dist))
		dir := vecScale(toCenter, 1/dist)
		p.Velocity = vecAdd(p.Velocity, vecScale(dir, accel*dt))
	}
	p.Position = vecAdd(p.Position, vecScale(p.Velocity, dt))
}

// Center returns the gravitational center the field orbits.
func (f *ParticleField) Center() linmath.Vec3 { return f.center }

// Mass returns the gravitational parameter in world units.
func (f *ParticleField) Mass() float64 { return f.mass }
