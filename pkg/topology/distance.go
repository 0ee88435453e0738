package topology

import (
	"fmt"
	"math"

	"surfacemetrics/internal/models"
	"surfacemetrics/pkg/spatial"
)

// DefaultKNN is the neighbour count of the distance command.
const DefaultKNN = 5

// MeasureDistance writes, for every vertex of surface, the mean distance to
// its knn-1 nearest vertices of to into the distance slot. It fails with a
// spatial.ErrEmptyInput error when to has no vertices.
func MeasureDistance(surface, to *models.Surface, knn int) ([]float64, error) {
	means, err := spatial.NeighborDistances(surface.Vertices, to.Vertices, knn, math.Inf(1), spatial.Mean)
	if err != nil {
		return nil, fmt.Errorf("distance from %s to %s: %w", surface.ID, to.ID, err)
	}
	values := spatial.Floats(means)
	if err := surface.SetAttribute(models.AttrDistance, values); err != nil {
		return nil, err
	}
	return values, nil
}

// DistanceSeries runs MeasureDistance over paired frames in order.
func DistanceSeries(surfaces, to []*models.Surface, knn int) error {
	if len(surfaces) != len(to) {
		return fmt.Errorf("distance: %d surfaces for %d targets", len(surfaces), len(to))
	}
	for i := range surfaces {
		if _, err := MeasureDistance(surfaces[i], to[i], knn); err != nil {
			return err
		}
	}
	return nil
}
