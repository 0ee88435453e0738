package meshio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"surfacemetrics/internal/models"
)

// ReadTracks parses whitespace separated "id x y z" lines, one per time point
// in frame order. Blank lines and lines starting with # are skipped. Tracks
// are returned in order of first appearance.
func ReadTracks(r io.Reader) ([]*models.Track, error) {
	var (
		tracks []*models.Track
		byID   = make(map[int]*models.Track)
	)
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 4 {
			return nil, fmt.Errorf("line %d: expected id x y z, got %d fields", line, len(fields))
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: track id: %w", line, err)
		}
		var c [3]float64
		for k := range c {
			if c[k], err = strconv.ParseFloat(fields[k+1], 64); err != nil {
				return nil, fmt.Errorf("line %d: coordinate: %w", line, err)
			}
		}
		t, ok := byID[id]
		if !ok {
			t = &models.Track{ID: id}
			byID[id] = t
			tracks = append(tracks, t)
		}
		t.Coords = append(t.Coords, r3.Vec{X: c[0], Y: c[1], Z: c[2]})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return tracks, nil
}

// LoadTracks reads the tracks stored in path.
func LoadTracks(path string) ([]*models.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tracks, err := ReadTracks(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read tracks %s: %w", path, err)
	}
	return tracks, nil
}
