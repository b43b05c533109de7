package grid

import (
	"fmt"
	"math"
)

type LaserKind int

const (
	Plane LaserKind = iota
	Gaussian
)

// Laser describes a pulse added to the initial fields. Longitudinal shape
// is a sin^2 rise, a flat top, and a sin^2 fall, positioned by Start.
type Laser struct {
	Kind LaserKind

	Start            float32 // front edge position, simulation units
	FWHM             float32 // overrides Rise/Flat/Fall when nonzero
	Rise, Flat, Fall float32

	A0           float32 // normalized amplitude
	Omega0       float32 // laser frequency
	Polarization float32

	// Gaussian beams only.
	W0        float32 // waist
	FocalDist float32
	Axis      float32 // propagation axis y position
}

// CheckInit validates the pulse timing parameters, applying the FWHM
// override first. Invalid timing aborts the run before it starts.
func (l *Laser) CheckInit(name string) error {
	if l.FWHM != 0 {
		if l.FWHM <= 0 {
			return fmt.Errorf("Laser '%s' FWHM must be > 0, but is %g.", name, l.FWHM)
		}
		l.Rise, l.Fall, l.Flat = l.FWHM, l.FWHM, 0
	}
	if l.Rise <= 0 {
		return fmt.Errorf("Laser '%s' Rise must be > 0, but is %g.", name, l.Rise)
	}
	if l.Flat < 0 {
		return fmt.Errorf("Laser '%s' Flat must be >= 0, but is %g.", name, l.Flat)
	}
	if l.Fall <= 0 {
		return fmt.Errorf("Laser '%s' Fall must be > 0, but is %g.", name, l.Fall)
	}
	return nil
}

// lonEnv is the longitudinal envelope at position z.
func (l *Laser) lonEnv(z float32) float32 {
	switch {
	case z > l.Start:
		return 0
	case z > l.Start-l.Rise:
		e := math.Sin(math.Pi / 2 * float64(z-l.Start) / float64(l.Rise))
		return float32(e * e)
	case z > l.Start-(l.Rise+l.Flat):
		return 1
	case z > l.Start-(l.Rise+l.Flat+l.Fall):
		csi := z - (l.Start - l.Rise - l.Flat - l.Fall)
		e := math.Sin(math.Pi / 2 * float64(csi) / float64(l.Fall))
		return float32(e * e)
	}
	return 0
}

// gaussPhase is the transverse Gaussian beam profile at (z, r) relative to
// the focal plane and axis.
func (l *Laser) gaussPhase(z, r float32) float32 {
	z0 := float64(l.Omega0) * float64(l.W0) * float64(l.W0) / 2
	zf := float64(z)
	rho2 := float64(r) * float64(r)
	curv := rho2 * zf / (z0*z0 + zf*zf)
	rWl2 := z0 * z0 / (z0*z0 + zf*zf)
	gouy := math.Atan2(zf, z0)

	return float32(math.Sqrt(math.Sqrt(rWl2)) *
		math.Exp(-rho2*rWl2/(float64(l.W0)*float64(l.W0))) *
		math.Cos(float64(l.Omega0)*(zf+curv)-gouy))
}

// Add injects the pulse into a region's fields. offsetY is the region's
// global y cell offset, so Gaussian beams line up across regions.
func (l *Laser) Add(em *EMF, offsetY int) {
	dx, dy := em.Dx[0], em.Dx[1]
	amp := l.Omega0 * l.A0
	cosPol := float32(math.Cos(float64(l.Polarization)))
	sinPol := float32(math.Sin(float64(l.Polarization)))

	switch l.Kind {
	case Plane:
		k := l.Omega0
		for i := 0; i < em.Nx[0]; i++ {
			z := float32(i) * dx
			z2 := z + dx/2
			lenv := amp * l.lonEnv(z)
			lenv2 := amp * l.lonEnv(z2)
			cosKz := float32(math.Cos(float64(k * z)))
			cosKz2 := float32(math.Cos(float64(k * z2)))

			for j := 0; j < em.Nx[1]; j++ {
				e, b := em.E.At(i, j), em.B.At(i, j)
				e.Y += lenv * cosKz * cosPol
				e.Z += lenv * cosKz * sinPol
				b.Y += -lenv2 * cosKz2 * sinPol
				b.Z += lenv2 * cosKz2 * cosPol
			}
		}
	case Gaussian:
		for i := 0; i < em.Nx[0]; i++ {
			z := float32(i)*dx - l.FocalDist
			z2 := z + dx/2
			lenv := amp * l.lonEnv(z+l.FocalDist)
			lenv2 := amp * l.lonEnv(z2+l.FocalDist)

			for j := 0; j < em.Nx[1]; j++ {
				r := float32(j+offsetY)*dy - l.Axis
				r2 := r + dy/2
				e, b := em.E.At(i, j), em.B.At(i, j)
				e.Y += lenv * l.gaussPhase(z, r2) * cosPol
				e.Z += lenv * l.gaussPhase(z, r) * sinPol
				b.Y += -lenv2 * l.gaussPhase(z2, r) * sinPol
				b.Z += lenv2 * l.gaussPhase(z2, r2) * cosPol
			}
		}
	}
}
