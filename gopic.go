/*Package gopic is a 2D electromagnetic particle-in-cell plasma simulator.

The domain is split into horizontal regions which advance in parallel:
each region owns its field, current, and particle state, and every step
phase is submitted to a dependency-tracking scheduler which orders tasks
by their declared resource accesses. Within a region, particles are kept
bucketed into square tiles so the advance kernel works against small
field caches and deposition never leaves a tile-local buffer.
*/
package gopic

import (
	"fmt"
	"log"
	"math"
	"os"
	"path"
	"runtime"
	"sort"

	"github.com/phil-mansfield/gopic/grid"
	"github.com/phil-mansfield/gopic/io"
	"github.com/phil-mansfield/gopic/particle"
	"github.com/phil-mansfield/gopic/sched"
)

type Simulation struct {
	Nx  [2]int
	Box [2]float32
	Dx  [2]float32
	Dt  float32

	TMax         float64
	NDump        int
	TileSize     int
	MovingWindow bool

	Iter int

	Species []*particle.Species
	Lasers  []*grid.Laser
	Regions []*Region

	graph  *sched.Graph
	outDir string
	log    bool
}

// NewSimulation builds a simulation from a validated configuration: it
// splits the domain into regions, fills every species' initial particle
// load, injects the lasers, and synchronizes the guard cells.
func NewSimulation(con *io.SimulationConfig, logFlag bool) (*Simulation, error) {
	sc := &con.Simulation

	regions := sc.Regions
	if regions == 0 {
		regions = defaultRegions(sc.Ny, sc.TileSize, runtime.NumCPU())
	}
	runtime.GOMAXPROCS(runtime.NumCPU())

	sim := &Simulation{
		Nx:           [2]int{sc.Nx, sc.Ny},
		Box:          [2]float32{float32(sc.BoxX), float32(sc.BoxY)},
		Dt:           float32(sc.Dt),
		TMax:         sc.TMax,
		NDump:        sc.NDump,
		TileSize:     sc.TileSize,
		MovingWindow: sc.MovingWindow,
		outDir:       sc.Output,
		log:          logFlag,
	}
	sim.Dx[0] = sim.Box[0] / float32(sim.Nx[0])
	sim.Dx[1] = sim.Box[1] / float32(sim.Nx[1])

	if err := sim.initSpecies(con); err != nil {
		return nil, err
	}
	if err := sim.initLasers(con); err != nil {
		return nil, err
	}

	sim.graph = sched.NewGraph(regions)
	sim.Regions = make([]*Region, regions)
	for i := range sim.Regions {
		sim.Regions[i] = newRegion(sim, sim.graph, i)
	}

	for _, r := range sim.Regions {
		for _, s := range r.States {
			s.InitialFill()
		}
		for _, l := range sim.Lasers {
			l.Add(r.EMF, r.LimitsY[0])
		}
		if !sim.MovingWindow {
			r.EMF.UpdateGCX()
		}
	}
	for ri, r := range sim.Regions {
		below := sim.Regions[(ri+regions-1)%regions]
		r.EMF.ExchangeGhostsY(below.EMF)
	}

	if sim.outDir != "" {
		if err := os.MkdirAll(sim.outDir, 0755); err != nil {
			return nil, err
		}
	}

	if sim.log {
		log.Printf(
			"Grid: %d x %d cells in %d regions of %d x %d tiles. "+
				"%d species, %d lasers.",
			sim.Nx[0], sim.Nx[1], regions,
			sim.Nx[0]/sim.TileSize,
			sim.Nx[1]/(regions*sim.TileSize),
			len(sim.Species), len(sim.Lasers),
		)
	}

	return sim, nil
}

// defaultRegions picks the largest region count not above the CPU count
// which splits ny into whole tile rows.
func defaultRegions(ny, tileSize, cpus int) int {
	max := ny / tileSize
	if cpus < max {
		max = cpus
	}
	for r := max; r > 1; r-- {
		if ny%(r*tileSize) == 0 {
			return r
		}
	}
	return 1
}

func (sim *Simulation) initSpecies(con *io.SimulationConfig) error {
	names := []string{}
	for name := range con.Species {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sp := con.Species[name]

		prof := particle.Profile{
			N:     sp.Density,
			Start: sp.DensityStart,
			End:   sp.DensityEnd,
		}
		switch sp.DensityType {
		case "uniform":
			prof.Kind = particle.Uniform
		case "step":
			prof.Kind = particle.Step
		case "slab":
			prof.Kind = particle.Slab
		case "tabulated":
			prof.Kind = particle.Tabulated
			if err := prof.LoadTable(sp.DensityFile); err != nil {
				return err
			}
		}

		spec := particle.NewSpecies(
			name, float32(sp.MassCharge),
			[2]int{sp.PPCX, sp.PPCY},
			[3]float32{
				float32(sp.UflX), float32(sp.UflY), float32(sp.UflZ),
			},
			[3]float32{
				float32(sp.UthX), float32(sp.UthY), float32(sp.UthZ),
			},
			prof, sim.Nx, sim.Box, sim.Dt, uint64(sp.Seed),
		)
		spec.MovingWindow = sim.MovingWindow
		sim.Species = append(sim.Species, spec)
	}
	return nil
}

func (sim *Simulation) initLasers(con *io.SimulationConfig) error {
	names := []string{}
	for name := range con.Laser {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		lc := con.Laser[name]

		l := &grid.Laser{
			Start:        float32(lc.Start),
			FWHM:         float32(lc.FWHM),
			Rise:         float32(lc.Rise),
			Flat:         float32(lc.Flat),
			Fall:         float32(lc.Fall),
			A0:           float32(lc.A0),
			Omega0:       float32(lc.Omega0),
			Polarization: float32(lc.Polarization),
			W0:           float32(lc.W0),
			FocalDist:    float32(lc.Focus),
			Axis:         float32(lc.Axis),
		}
		if lc.Type == "gaussian" {
			l.Kind = grid.Gaussian
		}
		if err := l.CheckInit(name); err != nil {
			return err
		}
		sim.Lasers = append(sim.Lasers, l)
	}
	return nil
}

// Time returns the simulation time of the current iteration.
func (sim *Simulation) Time() float64 {
	return float64(sim.Iter) * float64(sim.Dt)
}

// Step advances the whole simulation one time step. The phases are
// submitted to the scheduler in dependency order and the call returns
// after every task has finished.
func (sim *Simulation) Step() {
	g := sim.graph
	R := len(sim.Regions)

	res := func(rs ...*sched.Resource) []*sched.Resource { return rs }

	for _, r := range sim.Regions {
		r := r
		g.Submit("currentZero", nil, res(r.cur), r.queue,
			func() { r.Cur.Zero() })
	}

	for si := range sim.Species {
		si := si
		for _, r := range sim.Regions {
			r := r
			g.Submit("advance", res(r.emf), res(r.cur, r.part[si]),
				r.queue, func() { r.States[si].Advance(r.EMF, r.Cur) })
		}
	}

	if sim.MovingWindow {
		for si := range sim.Species {
			si := si
			for _, r := range sim.Regions {
				r := r
				g.Submit("moveWindow", nil, res(r.part[si], r.inc[si]),
					r.queue, func() {
						if r.States[si].WindowTriggered() {
							r.States[si].MoveWindow()
						}
					})
			}
		}
	}

	for si := range sim.Species {
		si := si
		for ri, r := range sim.Regions {
			r := r
			below := sim.Regions[(ri+R-1)%R]
			above := sim.Regions[(ri+1)%R]
			g.Submit("boundary",
				nil, res(r.part[si], below.inc[si], above.inc[si]),
				r.queue, func() {
					r.States[si].CheckBoundaries(
						below.States[si].Incoming[particle.InFromAbove],
						above.States[si].Incoming[particle.InFromBelow],
					)
				})
		}
	}

	for ri, r := range sim.Regions {
		r := r
		above := sim.Regions[(ri+1)%R]
		g.Submit("currentReduce", nil, res(r.cur, above.cur), r.queue,
			func() { r.Cur.ReduceY(above.Cur) })
	}
	for _, r := range sim.Regions {
		r := r
		g.Submit("currentGCX", nil, res(r.cur), r.queue,
			func() { r.Cur.UpdateGCX() })
	}

	for _, r := range sim.Regions {
		r := r
		g.Submit("fieldAdvance", res(r.cur), res(r.emf), r.queue,
			func() { r.EMF.Advance(r.Cur) })
	}
	for ri, r := range sim.Regions {
		r := r
		below := sim.Regions[(ri+R-1)%R]
		g.Submit("ghostExchangeY", nil, res(r.emf, below.emf), r.queue,
			func() { r.EMF.ExchangeGhostsY(below.EMF) })
	}

	for si := range sim.Species {
		si := si
		for _, r := range sim.Regions {
			r := r
			g.Submit("sort", nil, res(r.part[si], r.inc[si]), r.queue,
				func() { r.States[si].Sort() })
		}
	}

	g.Wait()
	sim.Iter++
}

// Run advances the simulation to TMax, writing diagnostics every NDump
// iterations.
func (sim *Simulation) Run() error {
	for {
		if sim.NDump > 0 && sim.Iter%sim.NDump == 0 {
			if err := sim.Report(); err != nil {
				return err
			}
		}
		if sim.Time() >= sim.TMax {
			break
		}
		if sim.log && sim.Iter%100 == 0 {
			log.Printf("Iter %d, t = %.3f / %.3f", sim.Iter,
				sim.Time(), sim.TMax)
			ms := &runtime.MemStats{}
			runtime.ReadMemStats(ms)
			log.Printf("Alloc: %d MB, Sys: %d MB",
				ms.Alloc>>20, ms.Sys>>20)
		}
		sim.Step()
	}
	sim.graph.Stop()
	return nil
}

// FieldEnergy returns the total field energy.
func (sim *Simulation) FieldEnergy() float64 {
	sum := 0.0
	for _, r := range sim.Regions {
		sum += r.EMF.Energy()
	}
	return sum
}

// KineticEnergy returns the total kinetic energy of one species, summed
// over regions and scaled by the super-particle mass.
func (sim *Simulation) KineticEnergy(si int) float64 {
	spec := sim.Species[si]
	mass := math.Abs(float64(spec.Q * spec.MQ))
	cell := float64(sim.Dx[0]) * float64(sim.Dx[1])

	sum := 0.0
	for _, r := range sim.Regions {
		sum += r.States[si].Energy
	}
	return sum * mass * cell
}

// Report writes the diagnostic dumps for the current iteration: the field
// and current grids, the charge density, a particle snapshot per species,
// and one row of the energy history.
func (sim *Simulation) Report() error {
	fieldE := sim.FieldEnergy()
	kinE := 0.0
	for si := range sim.Species {
		kinE += sim.KineticEnergy(si)
	}

	if sim.log {
		log.Printf(
			"Report at iter %d: field energy %.6g, kinetic energy %.6g",
			sim.Iter, fieldE, kinE,
		)
	}
	if sim.outDir == "" {
		return nil
	}

	if err := io.AppendEnergy(
		path.Join(sim.outDir, "energy.dat"),
		sim.Iter, sim.Time(), fieldE, kinE,
	); err != nil {
		return err
	}

	mesh := io.NewMeshInfo(
		sim.Nx[0], sim.Nx[1], float64(sim.Dx[0]), float64(sim.Dx[1]),
		sim.Iter, sim.Time(),
	)

	grids := []struct {
		flag io.GridFlag
		mesh func(r *Region) *grid.Mesh
	}{
		{io.ElectricField, func(r *Region) *grid.Mesh { return r.EMF.E }},
		{io.MagneticField, func(r *Region) *grid.Mesh { return r.EMF.B }},
		{io.CurrentDensity, func(r *Region) *grid.Mesh { return r.Cur.J }},
	}
	for _, gr := range grids {
		for comp := 0; comp < 3; comp++ {
			vals := make([]float32, sim.Nx[0]*sim.Nx[1])
			for _, r := range sim.Regions {
				r.gatherVec(vals, gr.mesh(r), comp, sim.Nx[0])
			}

			fname := fmt.Sprintf(
				"%s%c-%06d.gpic", gr.flag, 'x'+comp, sim.Iter,
			)
			if err := sim.writeGrid(gr.flag, vals, mesh, fname); err != nil {
				return err
			}
		}
	}

	if err := sim.reportCharge(mesh); err != nil {
		return err
	}
	return sim.reportParticles()
}

func (sim *Simulation) writeGrid(
	flag io.GridFlag, vals []float32, mesh io.MeshInfo, fname string,
) error {
	f, err := os.Create(path.Join(sim.outDir, fname))
	if err != nil {
		return err
	}
	defer f.Close()
	return io.WriteGrid(flag, vals, mesh, f)
}

func (sim *Simulation) reportCharge(mesh io.MeshInfo) error {
	nx, ny := sim.Nx[0], sim.Nx[1]
	nrow := nx + 1
	rho := make([]float32, nrow*(ny+1))

	for _, r := range sim.Regions {
		for _, s := range r.States {
			s.DepositCharge(rho[r.LimitsY[0]*nrow:])
		}
	}

	// Fold the pad row and, outside a moving window, the pad column back
	// into the periodic interior.
	for i := 0; i < nrow; i++ {
		rho[i] += rho[ny*nrow+i]
	}
	if !sim.MovingWindow {
		for j := 0; j < ny; j++ {
			rho[j*nrow] += rho[j*nrow+nx]
		}
	}

	vals := make([]float32, nx*ny)
	for j := 0; j < ny; j++ {
		copy(vals[j*nx:(j+1)*nx], rho[j*nrow:j*nrow+nx])
	}

	fname := fmt.Sprintf("%s-%06d.gpic", io.ChargeDensity, sim.Iter)
	return sim.writeGrid(io.ChargeDensity, vals, mesh, fname)
}

func (sim *Simulation) reportParticles() error {
	for si, spec := range sim.Species {
		x, y := []float32{}, []float32{}
		ux, uy, uz := []float32{}, []float32{}, []float32{}

		for _, r := range sim.Regions {
			buf := r.States[si].Main
			// Window-frame cell indices, lab-frame output.
			shift := float32(r.States[si].NMove)
			for k := 0; k < buf.N; k++ {
				if buf.Dead[k] {
					continue
				}
				x = append(x, (float32(buf.Ix[k])+buf.X[k]+shift)*sim.Dx[0])
				y = append(y, (float32(buf.Iy[k])+buf.Y[k])*sim.Dx[1])
				ux = append(ux, buf.Ux[k])
				uy = append(uy, buf.Uy[k])
				uz = append(uz, buf.Uz[k])
			}
		}

		fname := path.Join(sim.outDir,
			fmt.Sprintf("%s-%06d.gpic", spec.Name, sim.Iter))
		f, err := os.Create(fname)
		if err != nil {
			return err
		}
		err = io.WriteParticles(x, y, ux, uy, uz, sim.Iter, sim.Time(), f)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
