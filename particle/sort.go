package particle

// Bucket sort of the main buffer into tile order. FullSort rebuilds the
// whole permutation; Sort is the steady-state incremental path that only
// relocates particles whose tile changed, using local cursors so that the
// common adjacent-tile move stays cache-local.

// moveInt32 applies a permutation to one int32 field array. With source
// indices, it gathers vector[source[i]] and scatters to vector[target[i]]
// for every i with source[i] >= 0. With source == nil it moves every element
// i to target[i] (target[i] < 0 drops the element). The scratch buffer
// bounds extra memory to one field's size.
func moveInt32(vector []int32, source, target []int32, n int) {
	tmp := make([]int32, n)
	if source != nil {
		for i := 0; i < n; i++ {
			if source[i] >= 0 {
				tmp[i] = vector[source[i]]
			}
		}
		for i := 0; i < n; i++ {
			if source[i] >= 0 {
				vector[target[i]] = tmp[i]
			}
		}
		return
	}
	copy(tmp, vector[:n])
	for i := 0; i < n; i++ {
		if target[i] >= 0 {
			vector[target[i]] = tmp[i]
		}
	}
}

func moveFloat32(vector []float32, source, target []int32, n int) {
	tmp := make([]float32, n)
	if source != nil {
		for i := 0; i < n; i++ {
			if source[i] >= 0 {
				tmp[i] = vector[source[i]]
			}
		}
		for i := 0; i < n; i++ {
			if source[i] >= 0 {
				vector[target[i]] = tmp[i]
			}
		}
		return
	}
	copy(tmp, vector[:n])
	for i := 0; i < n; i++ {
		if target[i] >= 0 {
			vector[target[i]] = tmp[i]
		}
	}
}

func (s *State) moveFields(source, target []int32, n int) {
	moveInt32(s.Main.Ix, source, target, n)
	moveInt32(s.Main.Iy, source, target, n)
	moveFloat32(s.Main.X, source, target, n)
	moveFloat32(s.Main.Y, source, target, n)
	moveFloat32(s.Main.Ux, source, target, n)
	moveFloat32(s.Main.Uy, source, target, n)
	moveFloat32(s.Main.Uz, source, target, n)
}

// FullSort recomputes tile membership for every particle and rebuilds the
// buffer in tile order, dropping tombstoned particles. Hand-off buffers are
// drained by appending before the permutation is built.
func (s *State) FullSort() {
	for _, in := range s.Incoming {
		s.Main.Reserve(s.Main.N + in.N)
		for k := 0; k < in.N; k++ {
			s.Main.Append(in.At(k))
		}
		in.Clear()
	}

	size := s.Main.N
	nt := s.Tiles.N()

	pos := make([]int32, size)
	s.fullHistogram(pos)
	s.TileOffset[nt] = 0
	PrefixSum(s.TileOffset)

	tg := s.Tiles
	for i := 0; i < size; i++ {
		if pos[i] >= 0 {
			pos[i] += s.TileOffset[tg.Index(s.Main.Ix[i], s.Main.Iy[i])]
		}
	}

	s.Main.N = int(s.TileOffset[nt])
	s.moveFields(nil, pos, size)
	for k := 0; k < s.Main.N; k++ {
		s.Main.Dead[k] = false
	}
	s.checkOffsets()
}

// Sort is the incremental resort: compact tombstones, relocate the
// particles whose tile membership changed, and merge the hand-off buffers
// into the freed slots. Requires valid tile offsets from the previous sort
// and the CFL-bounded displacement precondition.
func (s *State) Sort() {
	oldSize := s.Main.N
	nInj := 0
	for _, in := range s.Incoming {
		nInj += in.N
	}
	s.Main.Reserve(oldSize + nInj)

	s.histogram(oldSize)
	s.sortMovers(oldSize)
	s.checkOffsets()
}

// sortMovers builds the relocation lists from the mover histogram and
// applies them. Particles headed for the tile immediately to the left or
// right are placed through signed cursors walking inward from the tile's
// own mover range; everything else goes through a per-tile counter.
func (s *State) sortMovers(oldSize int) {
	tg := s.Tiles
	nt := tg.N()
	sortingSize := int(s.moverOffset[nt])

	sourceIdx := make([]int32, sortingSize)
	targetIdx := make([]int32, sortingSize)
	sourceCounter := make([]int32, nt)

	for i := range sourceIdx {
		sourceIdx[i] = -1
	}
	copy(sourceCounter, s.moverOffset[:nt])

	s.Main.N = int(s.TileOffset[nt])

	// Pass 1: collect the slots that need new occupants, and reserve space
	// in the right neighbor's counter for particles arriving from here.
	for ty := 0; ty < tg.Ny; ty++ {
		for tx := 0; tx < tg.Nx; tx++ {
			t := tx + ty*tg.Nx
			begin, end := s.TileOffset[t], s.TileOffset[t+1]
			offset := s.moverOffset[t]

			right := int32(0)
			for k := begin; k < end; k++ {
				target := tg.Index(s.Main.Ix[k], s.Main.Iy[k])
				if s.Main.Dead[k] || target != t {
					targetIdx[offset] = k
					offset++
				}
				if !s.Main.Dead[k] && target == t+1 {
					right++
				}
			}
			if tx < tg.Nx-1 {
				sourceCounter[t+1] += right
			}
		}
	}

	// Pass 2: pair each relocating particle with a hole. Left-neighbor
	// arrivals decrement from the range start, right-neighbor arrivals
	// increment past the range end; both land in slots the neighboring
	// tile's counters already account for.
	for ty := 0; ty < tg.Ny; ty++ {
		for tx := 0; tx < tg.Nx; tx++ {
			t := tx + ty*tg.Nx
			begin, end := s.moverOffset[t], s.moverOffset[t+1]

			left := begin - 1
			right := end
			for k := begin; k < end; k++ {
				source := targetIdx[k]
				if s.Main.Dead[source] {
					continue
				}
				target := tg.Index(s.Main.Ix[source], s.Main.Iy[source])

				var idx int32
				switch {
				case tx > 0 && target == t-1:
					idx = left
					left--
				case tx < tg.Nx-1 && target == t+1:
					idx = right
					right++
				default:
					idx = sourceCounter[target]
					sourceCounter[target]++
				}
				sourceIdx[idx] = source
			}
		}
	}

	// If the buffer shrank, live particles stranded beyond the new size
	// still need slots.
	if s.Main.N < oldSize {
		for k := s.Main.N; k < oldSize; k++ {
			if s.Main.Dead[k] {
				continue
			}
			target := tg.Index(s.Main.Ix[k], s.Main.Iy[k])
			idx := sourceCounter[target]
			sourceCounter[target]++
			sourceIdx[idx] = int32(k)
		}
	}

	s.moveFields(sourceIdx, targetIdx, sortingSize)
	for i := 0; i < sortingSize; i++ {
		if sourceIdx[i] >= 0 {
			s.Main.Dead[targetIdx[i]] = false
		}
	}

	s.mergeIncoming(sourceCounter, targetIdx)
}

// mergeIncoming drains the hand-off buffers into the remaining holes and
// resets them to empty.
func (s *State) mergeIncoming(counter, targetIdx []int32) {
	tg := s.Tiles
	for _, in := range s.Incoming {
		for k := 0; k < in.N; k++ {
			t := tg.Index(in.Ix[k], in.Iy[k])
			idx := counter[t]
			counter[t]++
			target := targetIdx[idx]

			s.Main.Set(int(target), in.At(k))
			s.Main.Dead[target] = false
		}
		in.Clear()
	}
}
