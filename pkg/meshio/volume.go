package meshio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"surfacemetrics/internal/models"
)

// VolumeExt is the file extension of compressed raw volumes.
const VolumeExt = ".vol.zst"

var volumeMagic = [4]byte{'S', 'M', 'V', '1'}

// ErrNotVolume is returned when a stream does not hold a volume.
var ErrNotVolume = errors.New("meshio: not a volume stream")

// volumeHeader precedes the little-endian float64 samples, in z, y, x order.
type volumeHeader struct {
	Magic                [4]byte
	Width, Height, Depth uint32
	SizeX, SizeY, SizeZ  float64
	SurfaceLevel         float64
	NameLen              uint32
}

// WriteVolume writes v to w as a zstd compressed raw stream.
func WriteVolume(w io.Writer, v *models.Volume) error {
	if err := v.Validate(); err != nil {
		return err
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(enc)
	hdr := volumeHeader{
		Magic:        volumeMagic,
		Width:        uint32(v.Width),
		Height:       uint32(v.Height),
		Depth:        uint32(v.Depth),
		SizeX:        v.VoxelSize.X,
		SizeY:        v.VoxelSize.Y,
		SizeZ:        v.VoxelSize.Z,
		SurfaceLevel: v.SurfaceLevel,
		NameLen:      uint32(len(v.Name)),
	}
	if err := binary.Write(bw, binary.LittleEndian, hdr); err != nil {
		enc.Close()
		return err
	}
	if _, err := bw.WriteString(v.Name); err != nil {
		enc.Close()
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, v.Data); err != nil {
		enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadVolume reads a volume written by WriteVolume.
func ReadVolume(r io.Reader) (*models.Volume, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var hdr volumeHeader
	if err := binary.Read(dec, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotVolume, err)
	}
	if hdr.Magic != volumeMagic {
		return nil, ErrNotVolume
	}
	name := make([]byte, hdr.NameLen)
	if _, err := io.ReadFull(dec, name); err != nil {
		return nil, fmt.Errorf("failed to read volume name: %w", err)
	}
	v := &models.Volume{
		Name:         string(name),
		Width:        int(hdr.Width),
		Height:       int(hdr.Height),
		Depth:        int(hdr.Depth),
		VoxelSize:    models.VoxelSize{X: hdr.SizeX, Y: hdr.SizeY, Z: hdr.SizeZ},
		SurfaceLevel: hdr.SurfaceLevel,
	}
	v.Data = make([]float64, v.Width*v.Height*v.Depth)
	if err := binary.Read(dec, binary.LittleEndian, v.Data); err != nil {
		return nil, fmt.Errorf("failed to read %d samples of %q: %w", len(v.Data), v.Name, err)
	}
	return v, v.Validate()
}

// SaveVolume writes v to path.
func SaveVolume(path string, v *models.Volume) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteVolume(f, v); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// LoadVolume reads a volume from path.
func LoadVolume(path string) (*models.Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	v, err := ReadVolume(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return v, nil
}

// DirRegistrar returns a volume registrar that stores every volume under dir,
// named after the volume.
func DirRegistrar(dir string) func(*models.Volume) error {
	return func(v *models.Volume) error {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		return SaveVolume(filepath.Join(dir, fileName(v.Name)+VolumeExt), v)
	}
}

// fileName replaces characters that do not belong in a file name.
func fileName(name string) string {
	if name == "" {
		return "volume"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', ':':
			return '_'
		}
		return r
	}, name)
}
