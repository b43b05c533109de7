package particle

import (
	"fmt"
	"math/rand"
	"testing"
)

func testState(nx, ny, y0, tileSize int) *State {
	spec := &Species{
		Name: "test", Q: -1, MQ: -1,
		Nx: [2]int{nx, 512}, Box: [2]float32{float32(nx), 512},
		Dx: [2]float32{1, 1}, Dt: 0.07,
	}
	return NewState(spec, [2]int{y0, y0 + ny}, tileSize)
}

func fillRandom(s *State, n int, seed int64) {
	gen := rand.New(rand.NewSource(seed))
	nx := s.Spec.Nx[0]
	for i := 0; i < n; i++ {
		s.Main.Append(Particle{
			Ix: int32(gen.Intn(nx)),
			Iy: int32(s.LimitsY[0] + gen.Intn(s.LimitsY[1]-s.LimitsY[0])),
			X:  gen.Float32(), Y: gen.Float32(),
			Ux: gen.Float32(), Uy: gen.Float32(), Uz: gen.Float32(),
		})
	}
}

func key(p Particle) string {
	return fmt.Sprintf("%d %d %g %g %g %g %g",
		p.Ix, p.Iy, p.X, p.Y, p.Ux, p.Uy, p.Uz)
}

// tileContents maps tile id to the multiset of particles stored in its
// slot range.
func tileContents(t *testing.T, s *State) []map[string]int {
	nt := s.Tiles.N()
	out := make([]map[string]int, nt)

	if s.TileOffset[0] != 0 {
		t.Fatalf("first tile offset is %d", s.TileOffset[0])
	}
	if int(s.TileOffset[nt]) != s.Main.N {
		t.Fatalf("trailing offset %d does not match size %d",
			s.TileOffset[nt], s.Main.N)
	}

	for tile := 0; tile < nt; tile++ {
		if s.TileOffset[tile] > s.TileOffset[tile+1] {
			t.Fatalf("offsets decrease at tile %d", tile)
		}

		out[tile] = map[string]int{}
		for k := s.TileOffset[tile]; k < s.TileOffset[tile+1]; k++ {
			if s.Main.Dead[k] {
				t.Fatalf("tombstone survived the sort in slot %d", k)
			}
			if s.Tiles.Index(s.Main.Ix[k], s.Main.Iy[k]) != tile {
				t.Fatalf(
					"slot %d holds cell (%d, %d), which is not in tile %d",
					k, s.Main.Ix[k], s.Main.Iy[k], tile,
				)
			}
			out[tile][key(s.Main.At(int(k)))]++
		}
	}
	return out
}

func TestFullSortOrganizesTiles(t *testing.T) {
	s := testState(64, 32, 0, 16)
	fillRandom(s, 2000, 1)

	before := map[string]int{}
	for k := 0; k < s.Main.N; k++ {
		before[key(s.Main.At(k))]++
	}

	s.FullSort()
	tiles := tileContents(t, s)

	after := map[string]int{}
	for _, tile := range tiles {
		for k, n := range tile {
			after[k] += n
		}
	}
	if len(after) != len(before) {
		t.Fatalf("%d distinct particles instead of %d",
			len(after), len(before))
	}
	for k, n := range before {
		if after[k] != n {
			t.Errorf("particle %q appears %d times instead of %d",
				k, after[k], n)
		}
	}
}

func TestFullSortDropsDead(t *testing.T) {
	s := testState(32, 32, 0, 16)
	fillRandom(s, 500, 2)

	gen := rand.New(rand.NewSource(3))
	dead := 0
	for k := 0; k < s.Main.N; k++ {
		if gen.Intn(4) == 0 {
			s.Main.Dead[k] = true
			dead++
		}
	}

	s.FullSort()
	tileContents(t, s)

	if s.Main.N != 500-dead {
		t.Errorf("%d particles after sort instead of %d",
			s.Main.N, 500-dead)
	}
}

// moveSome shifts a random subset of particles to a neighboring cell,
// wrapping in x and staying inside the region in y, the way one advance
// step under the displacement bound can.
func moveSome(s *State, seed int64) {
	gen := rand.New(rand.NewSource(seed))
	nx := int32(s.Spec.Nx[0])

	for k := 0; k < s.Main.N; k++ {
		if gen.Intn(3) != 0 {
			continue
		}
		di := int32(gen.Intn(3) - 1)
		dj := int32(gen.Intn(3) - 1)

		ix := s.Main.Ix[k] + di
		if ix < 0 {
			ix += nx
		} else if ix >= nx {
			ix -= nx
		}

		iy := s.Main.Iy[k] + dj
		if int(iy) < s.LimitsY[0] || int(iy) >= s.LimitsY[1] {
			iy = s.Main.Iy[k]
		}

		s.Main.Ix[k], s.Main.Iy[k] = ix, iy
	}
}

func TestSortMatchesFullSort(t *testing.T) {
	s1 := testState(64, 32, 0, 16)
	fillRandom(s1, 3000, 4)
	s1.FullSort()
	moveSome(s1, 5)

	s2 := testState(64, 32, 0, 16)
	s2.Main.Reserve(s1.Main.N)
	for k := 0; k < s1.Main.N; k++ {
		s2.Main.Append(s1.Main.At(k))
	}
	copy(s2.TileOffset, s1.TileOffset)

	s1.Sort()
	s2.FullSort()

	tiles1 := tileContents(t, s1)
	tiles2 := tileContents(t, s2)

	for tile := range tiles1 {
		if len(tiles1[tile]) != len(tiles2[tile]) {
			t.Fatalf("tile %d holds %d distinct particles instead of %d",
				tile, len(tiles1[tile]), len(tiles2[tile]))
		}
		for k, n := range tiles2[tile] {
			if tiles1[tile][k] != n {
				t.Errorf("tile %d: particle %q appears %d times "+
					"instead of %d", tile, k, tiles1[tile][k], n)
			}
		}
	}
}

func TestSortIsIdempotent(t *testing.T) {
	s := testState(64, 32, 0, 16)
	fillRandom(s, 1500, 6)
	s.FullSort()

	before := make([]Particle, s.Main.N)
	for k := range before {
		before[k] = s.Main.At(k)
	}

	s.Sort()

	if s.Main.N != len(before) {
		t.Fatalf("size changed from %d to %d", len(before), s.Main.N)
	}
	for k := range before {
		if s.Main.At(k) != before[k] {
			t.Errorf("slot %d changed from %v to %v",
				k, before[k], s.Main.At(k))
		}
	}
}

func TestSortMergesIncoming(t *testing.T) {
	s := testState(32, 32, 16, 16)
	fillRandom(s, 800, 7)
	s.FullSort()
	moveSome(s, 8)

	gen := rand.New(rand.NewSource(9))
	nInc := 0
	for _, in := range s.Incoming {
		for i := 0; i < 40; i++ {
			in.Append(Particle{
				Ix: int32(gen.Intn(32)),
				Iy: int32(16 + gen.Intn(32)),
				X:  gen.Float32(), Y: gen.Float32(),
			})
			nInc++
		}
	}

	alive := s.Main.Alive()
	s.Sort()
	tileContents(t, s)

	if s.Main.N != alive+nInc {
		t.Errorf("%d particles after merge instead of %d",
			s.Main.N, alive+nInc)
	}
	for _, in := range s.Incoming {
		if in.N != 0 {
			t.Errorf("hand-off buffer not drained: %d left", in.N)
		}
	}
}

func TestSortDropsDeadAndFillsHoles(t *testing.T) {
	s := testState(32, 32, 0, 16)
	fillRandom(s, 1000, 10)
	s.FullSort()
	moveSome(s, 11)

	gen := rand.New(rand.NewSource(12))
	dead := 0
	for k := 0; k < s.Main.N; k++ {
		if gen.Intn(5) == 0 {
			s.Main.Dead[k] = true
			dead++
		}
	}

	s.Sort()
	tileContents(t, s)

	if s.Main.N != 1000-dead {
		t.Errorf("%d particles after sort instead of %d",
			s.Main.N, 1000-dead)
	}
}
