package grid

// EMF holds one region's electric and magnetic field meshes and advances
// them with the leapfrog Yee update, modified so E and B stay time
// centered: a half step of B, a full step of E, another half step of B.
type EMF struct {
	E, B *Mesh

	Nx [2]int // region interior cells
	Dx [2]float32
	Dt float32

	Iter int

	MovingWindow bool
	NMove        int
}

// NewEMF creates zeroed field meshes for a region of nx cells.
func NewEMF(nx [2]int, dx [2]float32, dt float32, movingWindow bool) *EMF {
	return &EMF{
		E: NewMesh(nx[0], nx[1]), B: NewMesh(nx[0], nx[1]),
		Nx: nx, Dx: dx, Dt: dt, MovingWindow: movingWindow,
	}
}

func yeeB(b, e *Mesh, dtdx, dtdy float32, nx [2]int) {
	for j := -1; j <= nx[1]; j++ {
		for i := -1; i <= nx[0]; i++ {
			bv, ev := b.At(i, j), e.At(i, j)
			bv.X += -dtdy * (e.At(i, j+1).Z - ev.Z)
			bv.Y += dtdx * (e.At(i+1, j).Z - ev.Z)
			bv.Z += -dtdx*(e.At(i+1, j).Y-ev.Y) + dtdy*(e.At(i, j+1).X-ev.X)
		}
	}
}

func yeeE(e, b, j *Mesh, dtdx, dtdy, dt float32, nx [2]int) {
	for jy := 0; jy <= nx[1]+1; jy++ {
		for i := 0; i <= nx[0]; i++ {
			ev, bv, jv := e.At(i, jy), b.At(i, jy), j.At(i, jy)
			ev.X += dtdy*(bv.Z-b.At(i, jy-1).Z) - dt*jv.X
			ev.Y += -dtdx*(bv.Z-b.At(i-1, jy).Z) - dt*jv.Y
			ev.Z += dtdx*(bv.Y-b.At(i-1, jy).Y) -
				dtdy*(bv.X-b.At(i, jy-1).X) - dt*jv.Z
		}
	}
}

// Advance integrates the fields one time step using the deposited current,
// then refreshes the x guard cells (or shifts the moving window when the
// elapsed time crosses the next cell width).
func (em *EMF) Advance(cur *Current) {
	dtdx := em.Dt / em.Dx[0]
	dtdy := em.Dt / em.Dx[1]

	em.Iter++
	shift := em.MovingWindow &&
		float32(em.Iter)*em.Dt > em.Dx[0]*float32(em.NMove+1)

	yeeB(em.B, em.E, dtdx/2, dtdy/2, em.Nx)
	yeeE(em.E, em.B, cur.J, dtdx, dtdy, em.Dt, em.Nx)
	yeeB(em.B, em.E, dtdx/2, dtdy/2, em.Nx)

	if em.MovingWindow {
		if shift {
			em.NMove++
			shiftMesh(em.E)
			shiftMesh(em.B)
		}
	} else {
		updateGCX(em.E, em.Nx)
		updateGCX(em.B, em.Nx)
	}
}

// UpdateGCX refreshes the periodic x guard cells of both meshes. Needed
// after direct field modifications such as laser injection.
func (em *EMF) UpdateGCX() {
	updateGCX(em.E, em.Nx)
	updateGCX(em.B, em.Nx)
}

// updateGCX refreshes the periodic x guard cells from the far interior.
func updateGCX(m *Mesh, nx [2]int) {
	for j := -GuardY0; j < nx[1]+GuardY1; j++ {
		for i := -GuardX0; i < 0; i++ {
			*m.At(i, j) = *m.At(nx[0]+i, j)
		}
		for i := 0; i < GuardX1; i++ {
			*m.At(nx[0]+i, j) = *m.At(i, j)
		}
	}
}

// shiftMesh slides the mesh one cell left and zeroes the exposed columns.
func shiftMesh(m *Mesh) {
	for j := -GuardY0; j < m.Ny+GuardY1; j++ {
		for i := -GuardX0; i < m.Nx-1; i++ {
			*m.At(i, j) = *m.At(i+1, j)
		}
		for i := m.Nx - 1; i < m.Nx+GuardX1; i++ {
			*m.At(i, j) = Vec3{}
		}
	}
}

// ExchangeGhostsY synchronizes the overlap zone with the region below:
// this region's lower guard rows take the below region's top interior
// rows, and the below region's upper guard rows take this region's first
// interior rows. Periodic wrap in y is expressed by calling this with the
// last region as "below" the first.
func (em *EMF) ExchangeGhostsY(below *EMF) {
	exchangeY(em.E, below.E)
	exchangeY(em.B, below.B)
}

func exchangeY(m, below *Mesh) {
	for i := -GuardX0; i < m.Nx+GuardX1; i++ {
		for j := -GuardY0; j < 0; j++ {
			*m.At(i, j) = *below.At(i, below.Ny+j)
		}
		for j := 0; j < GuardY1; j++ {
			*below.At(i, below.Ny+j) = *m.At(i, j)
		}
	}
}

// Energy returns the field energy over the region's interior cells.
func (em *EMF) Energy() float64 {
	sum := 0.0
	for j := 0; j < em.Nx[1]; j++ {
		for i := 0; i < em.Nx[0]; i++ {
			e, b := em.E.At(i, j), em.B.At(i, j)
			sum += float64(e.X*e.X + e.Y*e.Y + e.Z*e.Z)
			sum += float64(b.X*b.X + b.Y*b.Y + b.Z*b.Z)
		}
	}
	return sum * 0.5 * float64(em.Dx[0]) * float64(em.Dx[1])
}
