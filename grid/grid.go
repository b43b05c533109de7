/*package grid implements the Yee-staggered electromagnetic meshes owned by
each region: the E and B fields, the current mesh the particles deposit
into, the leapfrog field solver, and laser pulse injection.*/
package grid

// Vec3 is one mesh element: the three components of a field vector.
type Vec3 struct {
	X, Y, Z float32
}

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z}
}

// Guard cell widths for linear interpolation, lower/upper per axis.
const (
	GuardX0 = 1
	GuardX1 = 2
	GuardY0 = 1
	GuardY1 = 2
)

// Mesh is a 2D vector-field mesh over a region's cells plus guard cells.
// Storage is row-major; indices are relative to cell (0, 0), so guard cells
// have negative indices or indices at or beyond Nx/Ny.
type Mesh struct {
	Data   []Vec3
	Nx, Ny int // interior cells
	Stride int
	off    int // index of cell (0, 0) in Data
}

// NewMesh creates a zeroed mesh for an nx * ny cell region.
func NewMesh(nx, ny int) *Mesh {
	stride := GuardX0 + nx + GuardX1
	rows := GuardY0 + ny + GuardY1
	return &Mesh{
		Data:   make([]Vec3, stride*rows),
		Nx:     nx,
		Ny:     ny,
		Stride: stride,
		off:    GuardX0 + GuardY0*stride,
	}
}

// At returns a pointer to the element at cell (i, j). Guard cells are
// reachable with i in [-GuardX0, Nx+GuardX1) and j likewise.
func (m *Mesh) At(i, j int) *Vec3 {
	return &m.Data[m.off+i+j*m.Stride]
}

// Zero clears the whole mesh, guard cells included.
func (m *Mesh) Zero() {
	for i := range m.Data {
		m.Data[i] = Vec3{}
	}
}
