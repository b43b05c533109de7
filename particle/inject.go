package particle

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/table"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Density profiles along x. The profile fixes how many of the stratified
// per-cell candidates are injected in each cell; momenta come from a
// drifting Maxwellian with the species' fluid and thermal velocities.

type ProfileKind int

const (
	Uniform ProfileKind = iota
	Step                // vacuum for x < Start, plasma after
	Slab                // plasma only inside [Start, End]
	Tabulated           // density read from a two-column text table
)

// Profile describes a species' injected density along x. N is the reference
// density multiplying the shape; Start and End are in simulation units.
type Profile struct {
	Kind       ProfileKind
	N          float64
	Start, End float64

	// Tabulated profile support: sorted positions and densities relative
	// to N, loaded with LoadTable.
	Xs, Ns []float64
}

// LoadTable reads a tabulated profile from a whitespace-separated text file
// with position and density columns.
func (prof *Profile) LoadTable(fname string) error {
	cols, err := table.ReadTable(fname, []int{0, 1}, nil)
	if err != nil {
		return err
	}
	prof.Xs, prof.Ns = cols[0], cols[1]
	if len(prof.Xs) < 2 {
		return fmt.Errorf("Profile table '%s' needs at least two rows.", fname)
	}
	for i := 1; i < len(prof.Xs); i++ {
		if prof.Xs[i] <= prof.Xs[i-1] {
			return fmt.Errorf(
				"Profile table '%s' positions must increase, but row %d does not.",
				fname, i,
			)
		}
	}
	return nil
}

// frac returns the local density as a fraction of the reference density at
// position x (simulation units, lab frame).
func (prof *Profile) frac(x float64) float64 {
	switch prof.Kind {
	case Uniform:
		return 1
	case Step:
		if x >= prof.Start {
			return 1
		}
		return 0
	case Slab:
		if x >= prof.Start && x <= prof.End {
			return 1
		}
		return 0
	case Tabulated:
		return interpTable(prof.Xs, prof.Ns, x)
	}
	panic("particle: unknown profile kind")
}

func interpTable(xs, ns []float64, x float64) float64 {
	if x <= xs[0] {
		return ns[0]
	} else if x >= xs[len(xs)-1] {
		return ns[len(ns)-1]
	}
	lo := 0
	for xs[lo+1] < x {
		lo++
	}
	t := (x - xs[lo]) / (xs[lo+1] - xs[lo])
	return ns[lo] + t*(ns[lo+1]-ns[lo])
}

// Inject fills buf with particles for the cell range rng, [x0, x1) by
// [y0, y1) in global cells. Particles are stratified within each cell on a
// PPC[0] x PPC[1] sub-grid; nMove is the cumulative window shift, which
// offsets the profile so injected plasma continues the lab-frame density.
// Momenta are drawn deterministically from the species seed, the shift
// count, and the cell range.
func Inject(buf *Buffer, spec *Species, rng [2][2]int, nMove int) {
	ppcX, ppcY := spec.PPC[0], spec.PPC[1]
	dx := float64(spec.Dx[0])

	norm := distuv.Normal{
		Mu: 0, Sigma: 1,
		Src: rand.NewSource(spec.Seed ^ injectSeed(rng, nMove)),
	}

	for iy := rng[1][0]; iy < rng[1][1]; iy++ {
		for ix := rng[0][0]; ix < rng[0][1]; ix++ {
			// Number of the cell's candidates that the profile keeps.
			x := (float64(ix+nMove) + 0.5) * dx
			keep := int(math.Round(float64(ppcX*ppcY) * spec.Density.frac(x)))

			placed := 0
			for j := 0; j < ppcY && placed < keep; j++ {
				for i := 0; i < ppcX && placed < keep; i++ {
					p := Particle{
						Ix: int32(ix),
						Iy: int32(iy),
						X:  (float32(i) + 0.5) / float32(ppcX),
						Y:  (float32(j) + 0.5) / float32(ppcY),
					}
					p.Ux = spec.Ufl[0] + spec.Uth[0]*float32(norm.Rand())
					p.Uy = spec.Ufl[1] + spec.Uth[1]*float32(norm.Rand())
					p.Uz = spec.Ufl[2] + spec.Uth[2]*float32(norm.Rand())
					buf.Append(p)
					placed++
				}
			}
		}
	}
}

// injectSeed is a cheap splitmix-style hash; it only needs to decorrelate
// separate injection calls.
func injectSeed(rng [2][2]int, nMove int) uint64 {
	h := uint64(nMove)*0x9e3779b97f4a7c15 + uint64(rng[1][0])
	h ^= h >> 31
	return h*0xbf58476d1ce4e5b9 + uint64(rng[0][0])
}

// InitialFill injects the species' profile into every cell of the region's
// slice and organizes the result in tile order.
func (s *State) InitialFill() {
	rng := [2][2]int{{0, s.Spec.Nx[0]}, {s.LimitsY[0], s.LimitsY[1]}}
	Inject(s.Main, s.Spec, rng, 0)
	s.FullSort()
}
