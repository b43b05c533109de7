package particle

import (
	"math"

	"github.com/phil-mansfield/gopic/grid"
)

// The per-tile advance kernel. Each tile caches a halo-padded window of the
// field meshes once, pushes its resident particles through interpolation
// and the Boris rotation, and deposits the charge-conserving current into a
// tile-local buffer that is flushed to the region mesh in one pass.

// virtSeg is one segment of a trajectory split at cell boundaries.
type virtSeg struct {
	x0, x1, y0, y1 float32
	dx, dy, qvz    float32
	ix, iy         int
}

// ltrim returns the cell crossing of a final position: +1 past the upper
// edge, -1 past the lower edge, 0 inside.
func ltrim(x float32) int32 {
	switch {
	case x >= 1:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

// Advance pushes every live particle one time step and deposits its
// current. Requires tile offsets from the previous sort, valid field guard
// cells, and a zeroed current mesh. A diverging momentum is not detected
// here; it propagates (deliberately minimal error model).
func (s *State) Advance(em *grid.EMF, cur *grid.Current) {
	s.checkOffsets()

	spec := s.Spec
	tem := 0.5 * spec.Dt / spec.MQ
	dtdx := spec.Dt / spec.Dx[0]
	dtdy := spec.Dt / spec.Dx[1]

	// Auxiliary values for current deposition.
	qnx := spec.Q * spec.Dx[0] / spec.Dt
	qny := spec.Q * spec.Dx[1] / spec.Dt

	tg := s.Tiles
	T := tg.TileSize
	fRow := T + 2 // field cache stride, one halo cell per side
	jRow := T + 3 // current cache stride, extra halo for split spill

	eLoc := make([]grid.Vec3, fRow*fRow)
	bLoc := make([]grid.Vec3, fRow*fRow)
	jLoc := make([]grid.Vec3, jRow*jRow)

	buf := s.Main
	energy := 0.0

	for ty := 0; ty < tg.Ny; ty++ {
		for tx := 0; tx < tg.Nx; tx++ {
			t := tx + ty*tg.Nx
			begin, end := s.TileOffset[t], s.TileOffset[t+1]

			// Load the halo-padded field window once per tile.
			for j := 0; j < fRow; j++ {
				for i := 0; i < fRow; i++ {
					gx, gy := tx*T+i-1, ty*T+j-1
					eLoc[i+j*fRow] = *em.E.At(gx, gy)
					bLoc[i+j*fRow] = *em.B.At(gx, gy)
				}
			}
			for i := range jLoc {
				jLoc[i] = grid.Vec3{}
			}

			for k := begin; k < end; k++ {
				if buf.Dead[k] {
					continue
				}

				ux, uy, uz := buf.Ux[k], buf.Uy[k], buf.Uz[k]
				x, y := buf.X[k], buf.Y[k]

				// Cell index relative to the cache origin.
				lix := int(buf.Ix[k]) - (tx*T - 1)
				liy := int(buf.Iy[k]) - (ty*T - 1) - tg.Y0

				ep, bp := interpolate(eLoc, bLoc, fRow, lix, liy, x, y)
				ux, uy, uz = borisPush(ux, uy, uz, ep, bp, tem)

				usq := ux*ux + uy*uy + uz*uz
				gamma := float32(math.Sqrt(float64(1 + usq)))
				rg := 1 / gamma
				energy += float64(usq / (gamma + 1))

				dx := dtdx * rg * ux
				dy := dtdy * rg * uy
				x1, y1 := x+dx, y+dy
				di, dj := ltrim(x1), ltrim(y1)

				qvz := spec.Q * uz * rg
				depositCurrent(
					jLoc, jRow, lix, liy, int(di), int(dj),
					x, y, dx, dy, qnx, qny, qvz,
				)

				buf.X[k] = x1 - float32(di)
				buf.Y[k] = y1 - float32(dj)
				buf.Ix[k] += di
				buf.Iy[k] += dj
				buf.Ux[k], buf.Uy[k], buf.Uz[k] = ux, uy, uz
			}

			// Flush the tile-local current: one add per cell instead of
			// several per particle.
			for j := 0; j < jRow; j++ {
				for i := 0; i < jRow; i++ {
					v := jLoc[i+j*jRow]
					if v == (grid.Vec3{}) {
						continue
					}
					g := cur.J.At(tx*T+i-1, ty*T+j-1)
					*g = g.Add(v)
				}
			}
		}
	}

	s.Energy = energy
	s.Iter++
}

// interpolate samples E and B at the particle position. Each component
// lives at its own staggered point, so components interpolated along the
// staggered axis use a half-cell shifted stencil chosen by which half of
// the cell the particle occupies.
func interpolate(
	e, b []grid.Vec3, nrow, ix, iy int, x, y float32,
) (ep, bp grid.Vec3) {
	ih, jh := ix, iy
	if x < 0.5 {
		ih--
	}
	if y < 0.5 {
		jh--
	}

	w1h := x - 0.5
	if x < 0.5 {
		w1h = x + 0.5
	}
	w2h := y - 0.5
	if y < 0.5 {
		w2h = y + 0.5
	}

	ep.X = (e[ih+iy*nrow].X*(1-w1h)+e[ih+1+iy*nrow].X*w1h)*(1-y) +
		(e[ih+(iy+1)*nrow].X*(1-w1h)+e[ih+1+(iy+1)*nrow].X*w1h)*y
	ep.Y = (e[ix+jh*nrow].Y*(1-x)+e[ix+1+jh*nrow].Y*x)*(1-w2h) +
		(e[ix+(jh+1)*nrow].Y*(1-x)+e[ix+1+(jh+1)*nrow].Y*x)*w2h
	ep.Z = (e[ix+iy*nrow].Z*(1-x)+e[ix+1+iy*nrow].Z*x)*(1-y) +
		(e[ix+(iy+1)*nrow].Z*(1-x)+e[ix+1+(iy+1)*nrow].Z*x)*y

	bp.X = (b[ix+jh*nrow].X*(1-x)+b[ix+1+jh*nrow].X*x)*(1-w2h) +
		(b[ix+(jh+1)*nrow].X*(1-x)+b[ix+1+(jh+1)*nrow].X*x)*w2h
	bp.Y = (b[ih+iy*nrow].Y*(1-w1h)+b[ih+1+iy*nrow].Y*w1h)*(1-y) +
		(b[ih+(iy+1)*nrow].Y*(1-w1h)+b[ih+1+(iy+1)*nrow].Y*w1h)*y
	bp.Z = (b[ih+jh*nrow].Z*(1-w1h)+b[ih+1+jh*nrow].Z*w1h)*(1-w2h) +
		(b[ih+(jh+1)*nrow].Z*(1-w1h)+b[ih+1+(jh+1)*nrow].Z*w1h)*w2h

	return ep, bp
}

// borisPush advances a momentum: half electric acceleration, a magnetic
// rotation built from two half-angle tangent rotations, then the second
// half of the electric acceleration.
func borisPush(ux, uy, uz float32, ep, bp grid.Vec3, tem float32) (float32, float32, float32) {
	ep.X *= tem
	ep.Y *= tem
	ep.Z *= tem

	utx := ux + ep.X
	uty := uy + ep.Y
	utz := uz + ep.Z

	ustq := utx*utx + uty*uty + utz*utz
	gtem := tem / float32(math.Sqrt(float64(1+ustq)))

	bp.X *= gtem
	bp.Y *= gtem
	bp.Z *= gtem

	vx := utx + uty*bp.Z - utz*bp.Y
	vy := uty + utz*bp.X - utx*bp.Z
	vz := utz + utx*bp.Y - uty*bp.X

	otsq := 2 / (1 + bp.X*bp.X + bp.Y*bp.Y + bp.Z*bp.Z)
	bp.X *= otsq
	bp.Y *= otsq
	bp.Z *= otsq

	utx += vy*bp.Z - vz*bp.Y
	uty += vz*bp.X - vx*bp.Z
	utz += vx*bp.Y - vy*bp.X

	return utx + ep.X, uty + ep.Y, utz + ep.Z
}

// depositCurrent splits the sub-step trajectory at each cell-boundary
// crossing (at most one per axis, so at most three segments) and deposits
// each segment's area-weighted contribution into the tile-local current.
// Adapted Villasenor-Buneman method.
func depositCurrent(
	j []grid.Vec3, nrow, ix, iy, di, dj int,
	x0, y0, dx, dy, qnx, qny, qvz float32,
) {
	var vp [3]virtSeg
	vnp := 1

	vp[0] = virtSeg{
		x0: x0, y0: y0, dx: dx, dy: dy,
		x1: x0 + dx, y1: y0 + dy,
		qvz: qvz / 2, ix: ix, iy: iy,
	}

	// Split at the x boundary crossing.
	if di != 0 {
		ib := 0
		if di == 1 {
			ib = 1
		}
		delta := (x0 + dx - float32(ib)) / dx
		ycross := y0 + dy*(1-delta)

		vp[1] = virtSeg{
			x0: 1 - float32(ib), x1: (x0 + dx) - float32(di),
			dx: dx * delta, ix: ix + di,
			y0: ycross, y1: vp[0].y1, dy: dy * delta, iy: iy,
			qvz: vp[0].qvz * delta,
		}

		vp[0].x1 = float32(ib)
		vp[0].dx *= 1 - delta
		vp[0].dy *= 1 - delta
		vp[0].y1 = ycross
		vp[0].qvz *= 1 - delta

		vnp++
	}

	// Split at the y boundary crossing. The segment containing the
	// crossing is the one whose final y is out of range.
	if dj != 0 {
		isy := 1
		if vp[0].y1 < 0 || vp[0].y1 >= 1 {
			isy = 0
		}
		jb := 0
		if dj == 1 {
			jb = 1
		}
		delta := (vp[isy].y1 - float32(jb)) / vp[isy].dy
		xcross := vp[isy].x0 + vp[isy].dx*(1-delta)

		vp[vnp] = virtSeg{
			y0: 1 - float32(jb), y1: vp[isy].y1 - float32(dj),
			dy: vp[isy].dy * delta, iy: vp[isy].iy + dj,
			x0: xcross, x1: vp[isy].x1, dx: vp[isy].dx * delta,
			ix: vp[isy].ix,
			qvz: vp[isy].qvz * delta,
		}

		vp[isy].y1 = float32(jb)
		vp[isy].dy *= 1 - delta
		vp[isy].dx *= 1 - delta
		vp[isy].x1 = xcross
		vp[isy].qvz *= 1 - delta

		if isy < vnp-1 {
			vp[1].y0 -= float32(dj)
			vp[1].y1 -= float32(dj)
			vp[1].iy += dj
		}
		vnp++
	}

	for k := 0; k < vnp; k++ {
		s0x := [2]float32{1 - vp[k].x0, vp[k].x0}
		s1x := [2]float32{1 - vp[k].x1, vp[k].x1}
		s0y := [2]float32{1 - vp[k].y0, vp[k].y0}
		s1y := [2]float32{1 - vp[k].y1, vp[k].y1}

		wl1 := qnx * vp[k].dx
		wl2 := qny * vp[k].dy
		wp1 := [2]float32{0.5 * (s0y[0] + s1y[0]), 0.5 * (s0y[1] + s1y[1])}
		wp2 := [2]float32{0.5 * (s0x[0] + s1x[0]), 0.5 * (s0x[1] + s1x[1])}

		base := vp[k].ix + nrow*vp[k].iy
		j[base].X += wl1 * wp1[0]
		j[base+nrow].X += wl1 * wp1[1]
		j[base].Y += wl2 * wp2[0]
		j[base+1].Y += wl2 * wp2[1]

		j[base].Z += vp[k].qvz *
			(s0x[0]*s0y[0] + s1x[0]*s1y[0] + (s0x[0]*s1y[0]-s1x[0]*s0y[0])/2)
		j[base+1].Z += vp[k].qvz *
			(s0x[1]*s0y[0] + s1x[1]*s1y[0] + (s0x[1]*s1y[0]-s1x[1]*s0y[0])/2)
		j[base+nrow].Z += vp[k].qvz *
			(s0x[0]*s0y[1] + s1x[0]*s1y[1] + (s0x[0]*s1y[1]-s1x[0]*s0y[1])/2)
		j[base+nrow+1].Z += vp[k].qvz *
			(s0x[1]*s0y[1] + s1x[1]*s1y[1] + (s0x[1]*s1y[1]-s1x[1]*s0y[1])/2)
	}
}
