package grid

import (
	"math"
	"testing"
)

func TestMeshIndexing(t *testing.T) {
	m := NewMesh(8, 4)

	*m.At(0, 0) = Vec3{X: 1}
	*m.At(-GuardX0, -GuardY0) = Vec3{Y: 2}
	*m.At(7+GuardX1, 3+GuardY1) = Vec3{Z: 3}

	if m.At(0, 0).X != 1 {
		t.Errorf("cell (0, 0) lost its value")
	}
	if m.At(-1, -1).Y != 2 {
		t.Errorf("lower guard corner lost its value")
	}
	if m.At(9, 5).Z != 3 {
		t.Errorf("upper guard corner lost its value")
	}
	if m.Data[0] != (Vec3{Y: 2}) {
		t.Errorf("lower guard corner is not the first element")
	}
	if m.Data[len(m.Data)-1] != (Vec3{Z: 3}) {
		t.Errorf("upper guard corner is not the last element")
	}
}

func TestEMFZeroStaysZero(t *testing.T) {
	em := NewEMF([2]int{16, 16}, [2]float32{0.5, 0.5}, 0.07, false)
	cur := NewCurrent([2]int{16, 16}, [2]float32{0.5, 0.5}, 0.07, false)

	for i := 0; i < 10; i++ {
		em.Advance(cur)
	}

	for _, v := range em.E.Data {
		if v != (Vec3{}) {
			t.Fatalf("E drifted from zero with no sources")
		}
	}
	for _, v := range em.B.Data {
		if v != (Vec3{}) {
			t.Fatalf("B drifted from zero with no sources")
		}
	}
	if em.Iter != 10 {
		t.Errorf("iteration count is %d instead of 10", em.Iter)
	}
}

func TestEMFUniformFieldIsStatic(t *testing.T) {
	em := NewEMF([2]int{16, 16}, [2]float32{0.5, 0.5}, 0.07, false)
	cur := NewCurrent([2]int{16, 16}, [2]float32{0.5, 0.5}, 0.07, false)

	for i := range em.E.Data {
		em.E.Data[i] = Vec3{X: 1, Y: 2, Z: 3}
	}

	em.Advance(cur)

	for j := 0; j < 16; j++ {
		for i := 0; i < 16; i++ {
			if *em.E.At(i, j) != (Vec3{X: 1, Y: 2, Z: 3}) {
				t.Fatalf("uniform E changed at (%d, %d): %v",
					i, j, *em.E.At(i, j))
			}
			if *em.B.At(i, j) != (Vec3{}) {
				t.Fatalf("uniform E induced B at (%d, %d)", i, j)
			}
		}
	}
}

func TestEMFCurrentDrivesE(t *testing.T) {
	em := NewEMF([2]int{16, 16}, [2]float32{0.5, 0.5}, 0.07, false)
	cur := NewCurrent([2]int{16, 16}, [2]float32{0.5, 0.5}, 0.07, false)

	cur.J.At(8, 8).X = 1
	em.Advance(cur)

	want := float32(-0.07)
	if math.Abs(float64(em.E.At(8, 8).X-want)) > 1e-7 {
		t.Errorf("E response to current is %g instead of %g",
			em.E.At(8, 8).X, want)
	}
}

func TestEMFEnergy(t *testing.T) {
	em := NewEMF([2]int{16, 8}, [2]float32{0.5, 0.25}, 0.07, false)

	if em.Energy() != 0 {
		t.Errorf("empty field has energy %g", em.Energy())
	}

	for j := 0; j < 8; j++ {
		for i := 0; i < 16; i++ {
			*em.E.At(i, j) = Vec3{X: 2}
		}
	}

	want := 0.5 * 4.0 * 16 * 8 * 0.5 * 0.25
	if math.Abs(em.Energy()-want) > 1e-10 {
		t.Errorf("energy is %g instead of %g", em.Energy(), want)
	}
}

func TestEMFExchangeGhostsY(t *testing.T) {
	top := NewEMF([2]int{8, 4}, [2]float32{1, 1}, 0.07, false)
	bottom := NewEMF([2]int{8, 4}, [2]float32{1, 1}, 0.07, false)

	for j := 0; j < 4; j++ {
		for i := 0; i < 8; i++ {
			*top.E.At(i, j) = Vec3{X: float32(10 + j)}
			*bottom.E.At(i, j) = Vec3{X: float32(20 + j)}
		}
	}

	top.ExchangeGhostsY(bottom)

	for i := 0; i < 8; i++ {
		if top.E.At(i, -1).X != 23 {
			t.Fatalf("top lower guard row holds %g instead of 23",
				top.E.At(i, -1).X)
		}
		if bottom.E.At(i, 4).X != 10 || bottom.E.At(i, 5).X != 11 {
			t.Fatalf("bottom upper guard rows hold %g, %g",
				bottom.E.At(i, 4).X, bottom.E.At(i, 5).X)
		}
	}
}

func TestEMFMovingWindowShift(t *testing.T) {
	em := NewEMF([2]int{16, 4}, [2]float32{1, 1}, 0.9, true)
	cur := NewCurrent([2]int{16, 4}, [2]float32{1, 1}, 0.9, true)

	for j := 0; j < 4; j++ {
		for i := 0; i < 16; i++ {
			em.E.At(i, j).Z = float32(i)
		}
	}

	// dt = 0.9, dx = 1: the window shifts on the second step.
	em.Advance(cur)
	if em.NMove != 0 {
		t.Fatalf("window shifted on the first step")
	}
	em.Advance(cur)
	if em.NMove != 1 {
		t.Fatalf("window did not shift on the second step")
	}

	// The shift exposes the last interior column and the x guard cells.
	for i := 15; i < 16+GuardX1; i++ {
		if em.E.At(i, 1).Z != 0 {
			t.Errorf("exposed column %d was not cleared: %g",
				i, em.E.At(i, 1).Z)
		}
	}
}
