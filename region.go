package gopic

import (
	"fmt"

	"github.com/phil-mansfield/gopic/grid"
	"github.com/phil-mansfield/gopic/particle"
	"github.com/phil-mansfield/gopic/sched"
)

// Region is one horizontal slab of the simulation domain: its own field
// and current meshes, one particle state per species, and the scheduler
// resources step tasks declare their accesses against.
type Region struct {
	Idx     int
	LimitsY [2]int

	EMF *grid.EMF
	Cur *grid.Current

	// One state per species, in Simulation.Species order.
	States []*particle.State

	emf, cur *sched.Resource
	// part guards a state's main buffer and tile offsets, inc its
	// inbound hand-off buffers. Separate so a neighbor can append
	// hand-offs without contending on the whole state.
	part, inc []*sched.Resource

	queue string
}

func newRegion(sim *Simulation, g *sched.Graph, idx int) *Region {
	regionNy := sim.Nx[1] / len(sim.Regions)
	limits := [2]int{idx * regionNy, (idx + 1) * regionNy}
	nx := [2]int{sim.Nx[0], regionNy}

	r := &Region{
		Idx:     idx,
		LimitsY: limits,
		EMF:     grid.NewEMF(nx, sim.Dx, sim.Dt, sim.MovingWindow),
		Cur:     grid.NewCurrent(nx, sim.Dx, sim.Dt, sim.MovingWindow),
		emf:     g.Resource(fmt.Sprintf("emf%d", idx)),
		cur:     g.Resource(fmt.Sprintf("cur%d", idx)),
		queue:   fmt.Sprintf("region%d", idx),
	}

	for i, spec := range sim.Species {
		r.States = append(r.States,
			particle.NewState(spec, limits, sim.TileSize))
		r.part = append(r.part,
			g.Resource(fmt.Sprintf("part%d.%d", idx, i)))
		r.inc = append(r.inc,
			g.Resource(fmt.Sprintf("inc%d.%d", idx, i)))
	}

	return r
}

// gatherVec copies one component of a region-local mesh into its slice of
// a row-major global grid.
func (r *Region) gatherVec(
	dst []float32, m *grid.Mesh, comp int, nxGlobal int,
) {
	for j := 0; j < m.Ny; j++ {
		row := (r.LimitsY[0] + j) * nxGlobal
		for i := 0; i < m.Nx; i++ {
			v := m.At(i, j)
			switch comp {
			case 0:
				dst[row+i] = v.X
			case 1:
				dst[row+i] = v.Y
			default:
				dst[row+i] = v.Z
			}
		}
	}
}
