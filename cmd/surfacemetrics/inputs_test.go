package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// TestParseVec verifies plane normal parsing
func TestParseVec(t *testing.T) {
	v, err := parseVec("0, 0.5,-1")
	require.NoError(t, err)
	assert.Equal(t, r3.Vec{X: 0, Y: 0.5, Z: -1}, v)

	_, err = parseVec("1,2")
	assert.Error(t, err)
	_, err = parseVec("1,a,2")
	assert.Error(t, err)
}

// TestBaseName verifies that frame names drop their file extensions
func TestBaseName(t *testing.T) {
	tests := map[string]string{
		"data/cell_3.stl":      "cell_3",
		"out/cell_3.vol.zst":   "cell_3",
		"stacks/frame12":       "frame12",
		"stacks/frame12.tiles": "frame12",
	}
	for path, want := range tests {
		if got := baseName(path); got != want {
			t.Errorf("Expected %s for %s, got %s", want, path, got)
		}
	}
}
