package sink

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// CSV appends space-delimited rows to one file per table inside Dir. Every
// append writes the header line followed by the row, so a file holds one
// header and row pair per measurement.
type CSV struct {
	Dir string

	mu sync.Mutex
}

// NewCSV returns a CSV sink writing into dir.
func NewCSV(dir string) *CSV {
	return &CSV{Dir: dir}
}

// Append implements Appender.
func (c *CSV) Append(t Table, row []float64) error {
	info, err := os.Stat(c.Dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNoDirectory, c.Dir)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	path := filepath.Join(c.Dir, t.Name)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	var b strings.Builder
	b.WriteString(t.Header)
	b.WriteByte('\n')
	b.WriteString(FormatRow(row))
	b.WriteByte('\n')

	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return f.Close()
}

// FormatRow renders values in scientific notation with 18 fractional digits,
// separated by single spaces.
func FormatRow(row []float64) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = formatValue(v)
	}
	return strings.Join(parts, " ")
}

func formatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return fmt.Sprintf("%.18e", v)
}
