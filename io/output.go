// Package io reads gopic configuration files and writes diagnostic dumps.
// Grid and particle dumps are little-endian binary files with a fixed-size
// header followed by a zstd-compressed payload. The energy history is a
// plain text table so it can be plotted without custom tooling.
package io

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/DataDog/zstd"
)

var end = binary.LittleEndian

type GridHeader struct {
	Type TypeInfo
	Mesh MeshInfo
}

type TypeInfo struct {
	Endianness int64
	HeaderSize int64
	GridType   int64
}

type MeshInfo struct {
	Cells     IntVector
	CellWidth Vector
	Iter      int64
	Time      float64
}

type Vector [2]float64
type IntVector [2]int64

type GridFlag int64

const (
	ElectricField GridFlag = iota
	MagneticField
	CurrentDensity
	ChargeDensity
)

func (flag GridFlag) String() string {
	switch flag {
	case ElectricField:
		return "E"
	case MagneticField:
		return "B"
	case CurrentDensity:
		return "J"
	case ChargeDensity:
		return "Charge"
	}
	panic(fmt.Sprintf("Unknown GridFlag %d", flag))
}

func NewMeshInfo(nx, ny int, dx, dy float64, iter int, time float64) MeshInfo {
	return MeshInfo{
		Cells:     IntVector{int64(nx), int64(ny)},
		CellWidth: Vector{dx, dy},
		Iter:      int64(iter),
		Time:      time,
	}
}

// WriteGrid writes one scalar grid. The payload is the row-major cell
// values, compressed.
func WriteGrid(
	flag GridFlag, vals []float32, mesh MeshInfo, wr io.Writer,
) error {
	hd := GridHeader{
		Type: TypeInfo{
			Endianness: -1,
			HeaderSize: int64(binary.Size(GridHeader{})),
			GridType:   int64(flag),
		},
		Mesh: mesh,
	}
	if int64(len(vals)) != hd.Mesh.Cells[0]*hd.Mesh.Cells[1] {
		return fmt.Errorf(
			"Grid of type %s has %d values, but a %d x %d mesh.",
			flag, len(vals), hd.Mesh.Cells[0], hd.Mesh.Cells[1],
		)
	}

	if err := binary.Write(wr, end, &hd); err != nil {
		return err
	}
	return writeCompressed(wr, vals)
}

// ReadGrid reads a grid written by WriteGrid.
func ReadGrid(rd io.Reader) (GridFlag, []float32, MeshInfo, error) {
	hd := GridHeader{}
	if err := binary.Read(rd, end, &hd); err != nil {
		return 0, nil, MeshInfo{}, err
	}
	if hd.Type.Endianness != -1 {
		return 0, nil, MeshInfo{}, fmt.Errorf(
			"Grid file is corrupted or was written on a big-endian machine.",
		)
	}

	vals := make([]float32, hd.Mesh.Cells[0]*hd.Mesh.Cells[1])
	if err := readCompressed(rd, vals); err != nil {
		return 0, nil, MeshInfo{}, err
	}
	return GridFlag(hd.Type.GridType), vals, hd.Mesh, nil
}

type ParticleHeader struct {
	Type TypeInfo
	N    int64
	Iter int64
	Time float64
}

// WriteParticles writes a raw particle snapshot: global positions in cell
// units followed by the three momentum components, each compressed
// separately.
func WriteParticles(
	x, y, ux, uy, uz []float32, iter int, time float64, wr io.Writer,
) error {
	hd := ParticleHeader{
		Type: TypeInfo{
			Endianness: -1,
			HeaderSize: int64(binary.Size(ParticleHeader{})),
			GridType:   -1,
		},
		N:    int64(len(x)),
		Iter: int64(iter),
		Time: time,
	}

	if err := binary.Write(wr, end, &hd); err != nil {
		return err
	}
	for _, vec := range [][]float32{x, y, ux, uy, uz} {
		if len(vec) != len(x) {
			return fmt.Errorf(
				"Particle component lengths do not match: %d and %d.",
				len(x), len(vec),
			)
		}
		if err := writeCompressed(wr, vec); err != nil {
			return err
		}
	}
	return nil
}

// ReadParticles reads a snapshot written by WriteParticles and returns the
// five component vectors in write order.
func ReadParticles(rd io.Reader) ([5][]float32, ParticleHeader, error) {
	hd := ParticleHeader{}
	vecs := [5][]float32{}

	if err := binary.Read(rd, end, &hd); err != nil {
		return vecs, hd, err
	}
	if hd.Type.Endianness != -1 {
		return vecs, hd, fmt.Errorf(
			"Particle file is corrupted or was written on a big-endian " +
				"machine.",
		)
	}

	for i := range vecs {
		vecs[i] = make([]float32, hd.N)
		if err := readCompressed(rd, vecs[i]); err != nil {
			return vecs, hd, err
		}
	}
	return vecs, hd, nil
}

func writeCompressed(wr io.Writer, vals []float32) error {
	raw := &bytes.Buffer{}
	if err := binary.Write(raw, end, vals); err != nil {
		return err
	}

	buf, err := zstd.CompressLevel(nil, raw.Bytes(), 1)
	if err != nil {
		return err
	}
	if err := binary.Write(wr, end, int64(len(buf))); err != nil {
		return err
	}
	_, err = wr.Write(buf)
	return err
}

func readCompressed(rd io.Reader, vals []float32) error {
	n := int64(0)
	if err := binary.Read(rd, end, &n); err != nil {
		return err
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(rd, buf); err != nil {
		return err
	}
	raw, err := zstd.Decompress(nil, buf)
	if err != nil {
		return err
	}
	return binary.Read(bytes.NewReader(raw), end, vals)
}

// AppendEnergy appends one row to the energy history table, writing the
// column header first if the file is new.
func AppendEnergy(fname string, iter int, time, fieldE, kinE float64) error {
	f, err := os.OpenFile(fname, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	if st.Size() == 0 {
		_, err = fmt.Fprintf(f, "# Iter Time FieldEnergy KineticEnergy Total\n")
		if err != nil {
			return err
		}
	}

	_, err = fmt.Fprintf(
		f, "%d %g %g %g %g\n", iter, time, fieldE, kinE, fieldE+kinE,
	)
	return err
}
