package particle

// Histograms of particles per tile. The full variant recounts everything;
// the incremental variant exploits the CFL-bounded step: a particle moves at
// most one tile per axis per step, so each tile only scatters into its own
// 3x3 neighborhood.

// fullHistogram counts every live particle's destination tile into
// s.TileOffset[:nTiles] and records each particle's rank within its tile in
// pos. Tombstoned particles get pos[i] = -1.
func (s *State) fullHistogram(pos []int32) {
	tg := s.Tiles
	for i := range s.TileOffset {
		s.TileOffset[i] = 0
	}
	for i := 0; i < s.Main.N; i++ {
		if s.Main.Dead[i] {
			pos[i] = -1
			continue
		}
		t := tg.Index(s.Main.Ix[i], s.Main.Iy[i])
		pos[i] = s.TileOffset[t]
		s.TileOffset[t]++
	}
}

// histogram prepares the incremental sort: it fills s.TileOffset with the
// next layout's tile offsets (hand-off and injected particles included) and
// s.moverOffset with per-tile offsets for the particles that must relocate.
// oldSize is the main buffer's logical size before the sort resizes it.
func (s *State) histogram(oldSize int) {
	tg := s.Tiles
	nt := tg.N()
	counts := make([]int32, nt)

	// Resident particles, classified into the 3x3 tile neighborhood. The
	// x direction is periodic across the region edge. A classification
	// outside the neighborhood means the CFL precondition was violated;
	// the np bounds check turns that into a panic instead of a corrupted
	// sort.
	for ty := 0; ty < tg.Ny; ty++ {
		for tx := 0; tx < tg.Nx; tx++ {
			t := tx + ty*tg.Nx
			begin, end := s.TileOffset[t], s.TileOffset[t+1]

			var np [9]int32
			for k := begin; k < end; k++ {
				if s.Main.Dead[k] {
					continue
				}
				px := int(s.Main.Ix[k]) / tg.TileSize
				py := (int(s.Main.Iy[k]) - tg.Y0) / tg.TileSize

				var lx int
				switch {
				case tx == tg.Nx-1 && px == 0:
					lx = 2
				case tx == 0 && px == tg.Nx-1:
					lx = 0
				default:
					lx = px - tx + 1
				}
				ly := py - ty + 1

				np[lx+ly*3]++
			}

			for j := 0; j < 3; j++ {
				for i := 0; i < 3; i++ {
					if np[i+j*3] == 0 {
						continue
					}
					gx, gy := tx+i-1, ty+j-1
					if gx < 0 {
						gx += tg.Nx
					} else if gx >= tg.Nx {
						gx -= tg.Nx
					}
					counts[gx+gy*tg.Nx] += np[i+j*3]
				}
			}
		}
	}

	// Hand-off and injected particles fold into the same histogram.
	for _, in := range s.Incoming {
		for k := 0; k < in.N; k++ {
			counts[tg.Index(in.Ix[k], in.Iy[k])]++
		}
	}

	copy(s.TileOffset[:nt], counts)
	s.TileOffset[nt] = 0
	PrefixSum(s.TileOffset)

	// Movers, counted against the new offsets. Slots beyond the old
	// logical size are stale and tombstoned here.
	for t := 0; t < nt; t++ {
		begin, end := s.TileOffset[t], s.TileOffset[t+1]
		leaving := int32(0)
		for k := begin; k < end; k++ {
			if int(k) >= oldSize {
				s.Main.Dead[k] = true
			}
			target := tg.Index(s.Main.Ix[k], s.Main.Iy[k])
			if s.Main.Dead[k] || target != t {
				leaving++
			}
		}
		s.moverOffset[t] = leaving
	}
	s.moverOffset[nt] = 0
	PrefixSum(s.moverOffset)
}
