package grid

// Current is one region's current-density mesh. The advance kernel deposits
// into it (guard cells included, to absorb spill from trajectory splits);
// reduction against neighbor regions and the periodic x fold make it
// consistent before the field solve reads it.
type Current struct {
	J *Mesh

	Nx [2]int
	Dx [2]float32
	Dt float32

	MovingWindow bool
}

// NewCurrent creates a zeroed current mesh for a region of nx cells.
func NewCurrent(nx [2]int, dx [2]float32, dt float32, movingWindow bool) *Current {
	return &Current{
		J: NewMesh(nx[0], nx[1]),
		Nx: nx, Dx: dx, Dt: dt, MovingWindow: movingWindow,
	}
}

// Zero clears the mesh. Deposition requires this before every step.
func (cur *Current) Zero() { cur.J.Zero() }

// ReduceY folds the deposition overlap between this region and the region
// above it: the rows where both regions deposited are summed and the total
// stored on both sides. Calling this for every adjacent pair (including
// last-to-first for the periodic wrap) makes every row globally complete.
func (cur *Current) ReduceY(above *Current) {
	for j := -GuardY0; j < GuardY1; j++ {
		for i := -GuardX0; i < cur.Nx[0]+GuardX1; i++ {
			mine := cur.J.At(i, cur.Nx[1]+j)
			theirs := above.J.At(i, j)
			sum := mine.Add(*theirs)
			*mine = sum
			*theirs = sum
		}
	}
}

// UpdateGCX folds the periodic x guard columns into their interior
// counterparts and mirrors the totals back. No-op under a moving window,
// where x is not periodic.
func (cur *Current) UpdateGCX() {
	if cur.MovingWindow {
		return
	}
	nx0 := cur.Nx[0]
	for j := -GuardY0; j < cur.Nx[1]+GuardY1; j++ {
		for i := -GuardX0; i < 0; i++ {
			*cur.J.At(nx0+i, j) = cur.J.At(nx0+i, j).Add(*cur.J.At(i, j))
		}
		for i := 0; i < GuardX1; i++ {
			*cur.J.At(i, j) = cur.J.At(i, j).Add(*cur.J.At(nx0+i, j))
		}
		for i := -GuardX0; i < 0; i++ {
			*cur.J.At(i, j) = *cur.J.At(nx0+i, j)
		}
		for i := 0; i < GuardX1; i++ {
			*cur.J.At(nx0+i, j) = *cur.J.At(i, j)
		}
	}
}
