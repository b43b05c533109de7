/*package particle implements the tiled particle subsystem: structure-of-arrays
particle storage, bucket sorting into spatial tiles, cross-region migration,
moving-window injection, and the per-tile advance kernel.*/
package particle

import (
	"math"
)

// Particle is a single super-particle: global cell coordinates, sub-cell
// offsets in [0, 1), and relativistic momentum.
type Particle struct {
	Ix, Iy     int32
	X, Y       float32
	Ux, Uy, Uz float32
}

// Buffer stores particles column-wise. Dead marks tombstoned particles:
// they are skipped by every kernel and physically removed by the next sort.
type Buffer struct {
	Ix, Iy     []int32
	X, Y       []float32
	Ux, Uy, Uz []float32
	Dead       []bool

	// Logical size. The arrays may be longer.
	N int
}

// NewBuffer creates an empty buffer with the given capacity.
func NewBuffer(cap int) *Buffer {
	buf := &Buffer{}
	buf.Reserve(cap)
	return buf
}

// Cap returns the buffer's current capacity.
func (buf *Buffer) Cap() int { return len(buf.Ix) }

// Reserve grows the underlying arrays to hold at least n particles. The
// logical size and existing contents are unchanged.
func (buf *Buffer) Reserve(n int) {
	if n <= buf.Cap() {
		return
	}
	n = (n/1024 + 1) * 1024

	grow32 := func(xs []int32) []int32 {
		out := make([]int32, n)
		copy(out, xs)
		return out
	}
	growF := func(xs []float32) []float32 {
		out := make([]float32, n)
		copy(out, xs)
		return out
	}

	buf.Ix, buf.Iy = grow32(buf.Ix), grow32(buf.Iy)
	buf.X, buf.Y = growF(buf.X), growF(buf.Y)
	buf.Ux, buf.Uy, buf.Uz = growF(buf.Ux), growF(buf.Uy), growF(buf.Uz)

	dead := make([]bool, n)
	copy(dead, buf.Dead)
	buf.Dead = dead
}

// Append adds p to the end of the buffer, growing it if needed.
func (buf *Buffer) Append(p Particle) {
	buf.Reserve(buf.N + 1)
	buf.Set(buf.N, p)
	buf.Dead[buf.N] = false
	buf.N++
}

// Set overwrites slot i. The slot's tombstone flag is not touched.
func (buf *Buffer) Set(i int, p Particle) {
	buf.Ix[i], buf.Iy[i] = p.Ix, p.Iy
	buf.X[i], buf.Y[i] = p.X, p.Y
	buf.Ux[i], buf.Uy[i], buf.Uz[i] = p.Ux, p.Uy, p.Uz
}

// At returns the particle in slot i.
func (buf *Buffer) At(i int) Particle {
	return Particle{
		buf.Ix[i], buf.Iy[i], buf.X[i], buf.Y[i],
		buf.Ux[i], buf.Uy[i], buf.Uz[i],
	}
}

// Clear resets the logical size to zero without releasing storage.
func (buf *Buffer) Clear() { buf.N = 0 }

// Alive counts the non-tombstoned particles.
func (buf *Buffer) Alive() int {
	n := 0
	for i := 0; i < buf.N; i++ {
		if !buf.Dead[i] {
			n++
		}
	}
	return n
}

// Species holds the physical constants shared by every region a species
// populates. Per-region particle storage lives in State.
type Species struct {
	Name string

	// Charge of an individual super-particle and mass-to-charge ratio.
	Q, MQ float32

	// Particles per cell along each axis.
	PPC [2]int

	// Density profile and initial momentum distribution.
	Density  Profile
	Ufl, Uth [3]float32

	// Simulation box info.
	Nx  [2]int
	Dx  [2]float32
	Box [2]float32
	Dt  float32

	MovingWindow bool

	// Seed for the thermal momentum sampler.
	Seed uint64
}

// NewSpecies fills in the derived constants. The super-particle charge is
// the reference density split across the particles in a cell, signed like
// the mass-to-charge ratio.
func NewSpecies(
	name string, mq float32, ppc [2]int, ufl, uth [3]float32,
	density Profile, nx [2]int, box [2]float32, dt float32, seed uint64,
) *Species {
	if density.N == 0 {
		density.N = 1
	}
	spec := &Species{
		Name: name, MQ: mq, PPC: ppc, Ufl: ufl, Uth: uth,
		Density: density, Nx: nx, Box: box, Dt: dt, Seed: seed,
	}
	spec.Dx[0] = box[0] / float32(nx[0])
	spec.Dx[1] = box[1] / float32(nx[1])
	spec.Q = float32(math.Copysign(float64(density.N), float64(mq))) /
		float32(ppc[0]*ppc[1])
	return spec
}

// Hand-off buffer slots of a State.
const (
	InFromBelow = iota // particles that crossed up into this region
	InFromAbove        // particles that crossed down into this region
	InWindow           // particles scheduled by the moving window
	nIncoming
)

// State is the particle state of one species within one region: the main
// buffer, the three inbound hand-off buffers, and the tile-offset table.
type State struct {
	Spec *Species

	Main     *Buffer
	Incoming [nIncoming]*Buffer

	Tiles TileGrid

	// TileOffset[t] is the first main-buffer slot of tile t; the trailing
	// entry holds the logical size. Valid only between a sort and the next
	// advance.
	TileOffset []int32

	// Scratch table for the incremental sort.
	moverOffset []int32

	// Global y-slice owned by the region: [LimitsY[0], LimitsY[1]).
	LimitsY [2]int

	// Moving window bookkeeping.
	Iter         int
	NMove        int
	windowFilled bool

	// Kinetic energy accumulated by the last advance, in units of
	// m_e c^2 per unit charge density.
	Energy float64
}

// NewState creates the per-region particle state for spec over the y-slice
// [limits[0], limits[1]) with the given tile edge length.
func NewState(spec *Species, limits [2]int, tileSize int) *State {
	tiles := NewTileGrid(spec.Nx[0], limits[1]-limits[0], limits[0], tileSize)
	s := &State{
		Spec:        spec,
		Main:        NewBuffer(0),
		Tiles:       tiles,
		TileOffset:  make([]int32, tiles.N()+1),
		moverOffset: make([]int32, tiles.N()+1),
		LimitsY:     limits,
	}
	for i := range s.Incoming {
		s.Incoming[i] = NewBuffer(0)
	}
	return s
}

// checkOffsets panics if the tile-offset table is inconsistent with the
// buffer's logical size. Continuing would scatter out of bounds.
func (s *State) checkOffsets() {
	nt := s.Tiles.N()
	if int(s.TileOffset[nt]) != s.Main.N {
		panic("particle: tile-offset table inconsistent with buffer size")
	}
}
