package models

import (
	"errors"
	"fmt"

	"surfacemetrics/pkg/ndimage"
)

// VoxelSize is the physical size of one voxel along each axis, in microns.
type VoxelSize struct {
	X, Y, Z float64
}

// Volume is a dense 3D scalar image snapshot.
type Volume struct {
	// Name identifies the volume for the host that registers it
	Name string

	// Data is the 3D volume data as a 1D array in row-major order
	// (z, then y, then x)
	Data []float64

	// Width, Height and Depth are the dimensions in voxels
	Width, Height, Depth int

	// VoxelSize is the physical size of each voxel
	VoxelSize VoxelSize

	// SurfaceLevel is the isosurface threshold of the surface drawn from this volume
	SurfaceLevel float64
}

// NewVolume wraps a field as a volume. The field data is not copied.
func NewVolume(name string, f *ndimage.Field, size VoxelSize, level float64) *Volume {
	return &Volume{
		Name:         name,
		Data:         f.Data,
		Depth:        f.Dims[0],
		Height:       f.Dims[1],
		Width:        f.Dims[2],
		VoxelSize:    size,
		SurfaceLevel: level,
	}
}

// Validate checks that the dimensions match the data and the voxel size is positive.
func (v *Volume) Validate() error {
	if v.Width*v.Height*v.Depth != len(v.Data) {
		return fmt.Errorf("volume %q: %dx%dx%d does not match %d samples", v.Name, v.Depth, v.Height, v.Width, len(v.Data))
	}
	if v.VoxelSize.X <= 0 || v.VoxelSize.Y <= 0 || v.VoxelSize.Z <= 0 {
		return errors.New("volume " + v.Name + ": voxel size must be positive")
	}
	return nil
}

// FullMatrix returns a caller-owned copy of the samples as a grid.
func (v *Volume) FullMatrix() *ndimage.Field {
	f := ndimage.NewGrid[float64](v.Depth, v.Height, v.Width)
	copy(f.Data, v.Data)
	return f
}

// Copy returns a deep copy of the volume.
func (v *Volume) Copy() *Volume {
	out := *v
	out.Data = make([]float64, len(v.Data))
	copy(out.Data, v.Data)
	return &out
}
