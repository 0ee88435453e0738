package meshio

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"surfacemetrics/internal/models"
)

// AttributesExt is appended to a surface file name to name its attribute sidecar.
const AttributesExt = ".attrs.zst"

// attributeFile is the sidecar document. NaN values round trip as .nan.
type attributeFile struct {
	ID         string               `yaml:"id"`
	Frame      int                  `yaml:"frame"`
	Vertices   int                  `yaml:"vertices"`
	Attributes map[string][]float64 `yaml:"attributes"`
}

// WriteAttributes writes every attribute slot of s as zstd compressed YAML.
func WriteAttributes(w io.Writer, s *models.Surface) error {
	doc := attributeFile{
		ID:         s.ID,
		Frame:      s.Frame,
		Vertices:   len(s.Vertices),
		Attributes: make(map[string][]float64),
	}
	for _, name := range s.AttributeNames() {
		doc.Attributes[name], _ = s.Attribute(name)
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to encode attributes of %s: %w", s.ID, err)
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadAttributes restores attribute slots written by WriteAttributes onto s.
// The sidecar must describe the same number of vertices.
func ReadAttributes(r io.Reader, s *models.Surface) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer dec.Close()
	data, err := io.ReadAll(dec)
	if err != nil {
		return fmt.Errorf("failed to decompress attributes: %w", err)
	}

	var doc attributeFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode attributes: %w", err)
	}
	if doc.Vertices != len(s.Vertices) {
		return fmt.Errorf("%w: sidecar of %s has %d vertices, surface has %d",
			models.ErrAttributeLength, doc.ID, doc.Vertices, len(s.Vertices))
	}
	for name, values := range doc.Attributes {
		if err := s.SetAttribute(name, values); err != nil {
			return err
		}
	}
	return nil
}

// SaveAttributes writes the attribute sidecar of s next to the surface file at path.
func SaveAttributes(path string, s *models.Surface) error {
	f, err := os.Create(path + AttributesExt)
	if err != nil {
		return err
	}
	if err := WriteAttributes(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadAttributes restores the sidecar of the surface file at path onto s. A
// missing sidecar leaves s untouched.
func LoadAttributes(path string, s *models.Surface) error {
	f, err := os.Open(path + AttributesExt)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	if err := ReadAttributes(f, s); err != nil {
		return fmt.Errorf("failed to read %s: %w", path+AttributesExt, err)
	}
	return nil
}
