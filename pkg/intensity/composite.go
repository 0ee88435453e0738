package intensity

import (
	"fmt"

	"surfacemetrics/internal/models"
)

// MeasureComposite projects two channels onto s independently, both masked by
// the shell of iso, and writes them to the ch1 and ch2 slots.
func MeasureComposite(s *models.Surface, iso, green, magenta *models.Volume, radius float64) (ch1, ch2 []float64, err error) {
	if ch1, err = sample(s, iso, green, radius); err != nil {
		return nil, nil, fmt.Errorf("channel 1: %w", err)
	}
	if ch2, err = sample(s, iso, magenta, radius); err != nil {
		return nil, nil, fmt.Errorf("channel 2: %w", err)
	}
	if err := s.SetAttribute(models.AttrChannel1, ch1); err != nil {
		return nil, nil, err
	}
	if err := s.SetAttribute(models.AttrChannel2, ch2); err != nil {
		return nil, nil, err
	}
	return ch1, ch2, nil
}

// Frame pairs a surface with the volume it was drawn from and one or two
// signal channels.
type Frame struct {
	Surface *models.Surface
	Iso     *models.Volume
	Signal  *models.Volume
	// Second is the magenta channel of a composite measurement.
	Second *models.Volume
}

// Series runs Project over frames in order.
func Series(frames []Frame, p Params) ([]*Result, error) {
	out := make([]*Result, 0, len(frames))
	for _, f := range frames {
		res, err := Project(f.Surface, f.Iso, f.Signal, p)
		if err != nil {
			return out, fmt.Errorf("frame %d: %w", f.Surface.Frame, err)
		}
		out = append(out, res)
	}
	return out, nil
}

// CompositeSeries runs MeasureComposite over frames in order, using Signal
// as the first channel and Second as the second.
func CompositeSeries(frames []Frame, radius float64) error {
	for _, f := range frames {
		if f.Second == nil {
			return fmt.Errorf("frame %d: no second channel", f.Surface.Frame)
		}
		if _, _, err := MeasureComposite(f.Surface, f.Iso, f.Signal, f.Second, radius); err != nil {
			return fmt.Errorf("frame %d: %w", f.Surface.Frame, err)
		}
	}
	return nil
}
