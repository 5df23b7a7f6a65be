package vector

import (
	"math"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

// similarity scores a against b under metric. Cosine similarity of a zero
// vector is 0.
func similarity(metric domain.Metric, a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if metric == domain.MetricDot {
		return dot
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
