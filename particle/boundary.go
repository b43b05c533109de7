package particle

// Boundary handling after an advance. X is periodic within the region (or
// ejecting, under a moving window); Y hands particles off to the adjacent
// regions. Only the tiles on the region's edges are scanned.

// CheckBoundaries wraps or ejects particles that left the region in x, and
// moves particles that left in y into the neighbor hand-off buffers: below
// receives this region's down-goers, above its up-goers. Each leaving
// particle is appended exactly once and tombstoned exactly once.
func (s *State) CheckBoundaries(below, above *Buffer) {
	tg := s.Tiles
	nx0 := int32(s.Spec.Nx[0])
	ny := int32(s.Spec.Nx[1])
	buf := s.Main

	// Left edge: first tile of every tile row.
	for ty := 0; ty < tg.Ny; ty++ {
		t := ty * tg.Nx
		begin, end := s.TileOffset[t], s.TileOffset[t+1]
		for i := begin; i < end; i++ {
			if buf.Ix[i] >= 0 {
				continue
			}
			if s.Spec.MovingWindow {
				buf.Dead[i] = true
			} else {
				buf.Ix[i] += nx0
			}
		}
	}

	// Right edge: last tile of every tile row.
	for ty := 0; ty < tg.Ny; ty++ {
		t := (ty+1)*tg.Nx - 1
		begin, end := s.TileOffset[t], s.TileOffset[t+1]
		for i := begin; i < end; i++ {
			if buf.Ix[i] < nx0 {
				continue
			}
			if s.Spec.MovingWindow {
				buf.Dead[i] = true
			} else {
				buf.Ix[i] -= nx0
			}
		}
	}

	// Lower edge: bottom tile row. Particles below the slice wrap at the
	// global y extent and leave for the region below.
	lo := int32(s.LimitsY[0])
	for tx := 0; tx < tg.Nx; tx++ {
		begin, end := s.TileOffset[tx], s.TileOffset[tx+1]
		for i := begin; i < end; i++ {
			if buf.Dead[i] || buf.Iy[i] >= lo {
				continue
			}
			p := buf.At(int(i))
			if p.Iy < 0 {
				p.Iy += ny
			}
			below.Append(p)
			buf.Dead[i] = true
		}
	}

	// Upper edge: top tile row.
	hi := int32(s.LimitsY[1])
	for tx := 0; tx < tg.Nx; tx++ {
		t := tx + (tg.Ny-1)*tg.Nx
		begin, end := s.TileOffset[t], s.TileOffset[t+1]
		for i := begin; i < end; i++ {
			if buf.Dead[i] || buf.Iy[i] < hi {
				continue
			}
			p := buf.At(int(i))
			if p.Iy >= ny {
				p.Iy -= ny
			}
			above.Append(p)
			buf.Dead[i] = true
		}
	}
}
