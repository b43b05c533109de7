package particle

// TileGrid describes the fixed-size tile partition of one region. Tiles are
// TileSize cells on a side and laid out row-major across the region.
type TileGrid struct {
	TileSize int
	Nx, Ny   int // tiles along each axis
	Y0       int // global y cell offset of the region
}

// NewTileGrid partitions an nx*ny cell region into tiles. The region
// dimensions must be a multiple of the tile size; anything else breaks the
// histogram/sort agreement and is a setup error.
func NewTileGrid(nx, ny, y0, tileSize int) TileGrid {
	if nx%tileSize != 0 || ny%tileSize != 0 {
		panic("particle: region dimensions not a multiple of the tile size")
	}
	return TileGrid{TileSize: tileSize, Nx: nx / tileSize, Ny: ny / tileSize, Y0: y0}
}

// N returns the number of tiles in the grid.
func (tg TileGrid) N() int { return tg.Nx * tg.Ny }

// Index maps global cell coordinates to a tile id. The histogram and sort
// passes must agree exactly on this function.
func (tg TileGrid) Index(ix, iy int32) int {
	tx := int(ix) / tg.TileSize
	ty := (int(iy) - tg.Y0) / tg.TileSize
	return tx + ty*tg.Nx
}

// Coords returns the tile coordinates of tile id t.
func (tg TileGrid) Coords(t int) (tx, ty int) {
	return t % tg.Nx, t / tg.Nx
}
