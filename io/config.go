package io

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/gcfg.v1"
)

const (
	ExampleSimulationFile = `[Simulation]

#######################
# Required Parameters #
#######################

# Number of grid cells along each axis.
Nx = 128
Ny = 128

# Simulation box size in normalized units, c / omega_p.
BoxX = 12.8
BoxY = 12.8

# Time step and final time in units of 1 / omega_p. The time step must
# satisfy the field stability bound dt < 1 / sqrt(1/dx^2 + 1/dy^2).
Dt   = 0.07
TMax = 35.0

#######################
# Optional Parameters #
#######################

# Number of iterations between diagnostic dumps. 0 disables dumps.
# NDump = 50

# Number of horizontal slabs the domain is split into for parallel
# execution. Ny must be divisible by Regions * TileSize. Defaults to the
# number of CPUs.
# Regions = 4

# Side length of the square particle tiles. Nx and the region height must
# be divisible by it.
# TileSize = 16

# Enables the moving simulation window.
# MovingWindow = false

# Directory which diagnostic dumps will be written to.
# Output = path/to/output/dir

# Output files which are useful for profiling and debugging. Generally,
# there isn't a reason to use these unless something goes wrong.
# ProfileFile = prof.out
# LogFile = log.out

[Species "electrons"]

# Particles per cell along each axis.
PPCX = 4
PPCY = 4

# Mass to charge ratio in electron units. Electrons are -1.
MassCharge = -1.0

# Reference density in units of the plasma density.
# Density = 1.0

# Density profile type, one of [ Uniform | Step | Slab | Tabulated ].
# Step rises at DensityStart, Slab spans [DensityStart, DensityEnd), and
# Tabulated interpolates the two-column text file DensityFile.
# DensityType  = Uniform
# DensityStart = 0.0
# DensityEnd   = 0.0
# DensityFile  = path/to/profile.dat

# Fluid and thermal momenta, in units of m_e c.
# UflX = 0.0
# UflY = 0.0
# UflZ = 0.0
# UthX = 0.0
# UthY = 0.0
# UthZ = 0.0

# Seed for the thermal momentum sampler.
# Seed = 42

# [Laser "pump"]

# Type is one of [ Plane | Gaussian ].
# Type   = Plane
# Start  = 17.0
# FWHM   = 2.0
# A0     = 2.0
# Omega0 = 10.0

# Gaussian beams additionally take a waist, focal distance, and
# propagation axis height.
# W0    = 4.0
# Focus = 20.0
# Axis  = 6.4`
)

type SimConfig struct {
	// Required
	Nx, Ny     int
	BoxX, BoxY float64
	Dt, TMax   float64

	// Optional
	NDump        int
	Regions      int
	TileSize     int
	MovingWindow bool
	Output       string
	ProfileFile  string
	LogFile      string
}

type SpeciesConfig struct {
	// Required
	PPCX, PPCY int
	MassCharge float64

	// Optional
	Density          float64
	DensityType      string
	DensityStart     float64
	DensityEnd       float64
	DensityFile      string
	UflX, UflY, UflZ float64
	UthX, UthY, UthZ float64
	Seed             int64

	// Optional, "undocumented"
	Name string
}

type LaserConfig struct {
	// Required
	Type   string
	A0     float64
	Omega0 float64

	// Pulse timing. FWHM overrides Rise/Flat/Fall.
	Start            float64
	FWHM             float64
	Rise, Flat, Fall float64

	// Optional
	Polarization float64
	W0           float64
	Focus        float64
	Axis         float64

	Name string
}

type SimulationConfig struct {
	Simulation SimConfig
	Species    map[string]*SpeciesConfig
	Laser      map[string]*LaserConfig
}

func DefaultSimConfig() SimConfig {
	return SimConfig{TileSize: 16}
}

func (sim *SimConfig) CheckInit() error {
	if sim.Nx <= 0 || sim.Ny <= 0 {
		return fmt.Errorf(
			"Need to specify positive cell counts, but Nx = %d, Ny = %d.",
			sim.Nx, sim.Ny,
		)
	}
	if sim.BoxX <= 0 || sim.BoxY <= 0 {
		return fmt.Errorf(
			"Need to specify positive box sizes, but BoxX = %g, BoxY = %g.",
			sim.BoxX, sim.BoxY,
		)
	}
	if sim.TMax < 0 {
		return fmt.Errorf("TMax must be non-negative, but is %g.", sim.TMax)
	}

	dx, dy := sim.BoxX/float64(sim.Nx), sim.BoxY/float64(sim.Ny)
	cour := math.Sqrt(1 / (1/(dx*dx) + 1/(dy*dy)))
	if sim.Dt <= 0 || sim.Dt >= cour {
		return fmt.Errorf(
			"Dt must be in range (0, %g) for this grid, but is %g.",
			cour, sim.Dt,
		)
	}

	if sim.NDump < 0 {
		return fmt.Errorf("NDump must be non-negative, but is %d.", sim.NDump)
	}
	if sim.Regions < 0 {
		return fmt.Errorf(
			"Regions must be non-negative, but is %d.", sim.Regions,
		)
	}
	if sim.TileSize <= 0 {
		return fmt.Errorf(
			"TileSize must be positive, but is %d.", sim.TileSize,
		)
	}
	if sim.Nx%sim.TileSize != 0 {
		return fmt.Errorf(
			"Nx = %d must be divisible by TileSize = %d.",
			sim.Nx, sim.TileSize,
		)
	}
	if sim.Regions > 0 && sim.Ny%(sim.Regions*sim.TileSize) != 0 {
		return fmt.Errorf(
			"Ny = %d must be divisible by Regions * TileSize = %d.",
			sim.Ny, sim.Regions*sim.TileSize,
		)
	}

	return nil
}

func (sp *SpeciesConfig) CheckInit(name string) error {
	if sp.PPCX <= 0 || sp.PPCY <= 0 {
		return fmt.Errorf(
			"Need positive particle counts for Species '%s', but "+
				"PPCX = %d, PPCY = %d.", name, sp.PPCX, sp.PPCY,
		)
	}
	if sp.MassCharge == 0 {
		return fmt.Errorf(
			"Need a non-zero MassCharge for Species '%s'.", name,
		)
	}

	if sp.Density == 0 {
		sp.Density = 1
	} else if sp.Density < 0 {
		return fmt.Errorf(
			"Species '%s' given a negative Density, %g.", name, sp.Density,
		)
	}

	typ := strings.ToLower(strings.Trim(sp.DensityType, " "))
	switch typ {
	case "", "uniform":
		sp.DensityType = "uniform"
	case "step":
		sp.DensityType = "step"
	case "slab":
		sp.DensityType = "slab"
		if sp.DensityEnd <= sp.DensityStart {
			return fmt.Errorf(
				"Slab profile of Species '%s' must have DensityEnd > "+
					"DensityStart, but has [%g, %g).",
				name, sp.DensityStart, sp.DensityEnd,
			)
		}
	case "tabulated":
		sp.DensityType = "tabulated"
		if sp.DensityFile == "" {
			return fmt.Errorf(
				"Tabulated profile of Species '%s' needs a DensityFile.", name,
			)
		}
	default:
		return fmt.Errorf(
			"DensityType of Species '%s' must be one of [ Uniform | Step | "+
				"Slab | Tabulated ]. '%s' is not recognized.",
			name, sp.DensityType,
		)
	}

	if sp.UthX < 0 || sp.UthY < 0 || sp.UthZ < 0 {
		return fmt.Errorf(
			"Thermal momenta of Species '%s' must be non-negative.", name,
		)
	}

	sp.Name = name
	return nil
}

func (ls *LaserConfig) CheckInit(name string) error {
	typ := strings.ToLower(strings.Trim(ls.Type, " "))
	switch typ {
	case "", "plane":
		ls.Type = "plane"
	case "gaussian":
		ls.Type = "gaussian"
		if ls.W0 <= 0 {
			return fmt.Errorf(
				"Gaussian Laser '%s' needs a positive W0, but has %g.",
				name, ls.W0,
			)
		}
	default:
		return fmt.Errorf(
			"Type of Laser '%s' must be one of [ Plane | Gaussian ]. '%s' "+
				"is not recognized.", name, ls.Type,
		)
	}

	if ls.A0 <= 0 {
		return fmt.Errorf(
			"Need a positive A0 for Laser '%s', but have %g.", name, ls.A0,
		)
	}
	if ls.Omega0 <= 0 {
		return fmt.Errorf(
			"Need a positive Omega0 for Laser '%s', but have %g.",
			name, ls.Omega0,
		)
	}

	ls.Name = name
	return nil
}

// ReadSimulationConfig parses and validates a simulation configuration
// file. Pulse timing is validated later, when the Laser values are built.
func ReadSimulationConfig(fname string) (*SimulationConfig, error) {
	con := &SimulationConfig{Simulation: DefaultSimConfig()}
	if err := gcfg.ReadFileInto(con, fname); err != nil {
		return nil, err
	}

	if err := con.Simulation.CheckInit(); err != nil {
		return nil, err
	}
	if len(con.Species) == 0 {
		return nil, fmt.Errorf(
			"Configuration file '%s' does not contain any Species.", fname,
		)
	}
	for name, sp := range con.Species {
		if err := sp.CheckInit(name); err != nil {
			return nil, err
		}
	}
	for name, ls := range con.Laser {
		if err := ls.CheckInit(name); err != nil {
			return nil, err
		}
	}

	return con, nil
}
