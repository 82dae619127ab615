package calculator

import (
	"fmt"
	"math"
	"sort"
)

const buckets = 5

// Order fixe le sens des labels : Ascending donne 1 aux plus petites valeurs.
type Order int

const (
	Ascending Order = iota
	Descending
)

// QuintileScores découpe la population en 5 intervalles de même effectif.
// Bornes = quantiles 0/20/40/60/80/100 % (interpolation linéaire), intervalles
// fermés à droite, la plus petite valeur incluse dans le premier.
func QuintileScores(metric string, values []float64, order Order) ([]int, error) {
	n := len(values)
	if n < buckets {
		return nil, &PopulationError{Metric: metric, Size: n, Reason: fmt.Sprintf("need at least %d customers", buckets)}
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%s: value at index %d is not finite", metric, i)
		}
	}

	if d := distinct(values); d < buckets {
		return nil, &PopulationError{
			Metric: metric,
			Size:   n,
			Reason: fmt.Sprintf("only %d distinct value(s), need at least %d", d, buckets),
		}
	}

	edges := quantileEdges(values)
	for i := 1; i < len(edges); i++ {
		if edges[i] <= edges[i-1] {
			return nil, &PopulationError{
				Metric: metric,
				Size:   n,
				Reason: fmt.Sprintf("quintile edges %d and %d coincide at %g (too few distinct values)", i-1, i, edges[i]),
			}
		}
	}

	scores := make([]int, n)
	var sizes [buckets]int
	for i, v := range values {
		b := bucketOf(edges, v)
		sizes[b]++
		if order == Descending {
			scores[i] = buckets - b
		} else {
			scores[i] = b + 1
		}
	}
	// des bornes distinctes ne garantissent pas 5 intervalles peuplés
	for b, size := range sizes {
		if size == 0 {
			return nil, &PopulationError{
				Metric: metric,
				Size:   n,
				Reason: fmt.Sprintf("quintile %d is empty (too few distinct values)", b+1),
			}
		}
	}
	return scores, nil
}

func distinct(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// RankFirst attribue les rangs 1..n, les égalités départagées par ordre d'apparition.
func RankFirst(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] < values[idx[b]]
	})
	ranks := make([]float64, len(values))
	for r, i := range idx {
		ranks[i] = float64(r + 1)
	}
	return ranks
}

// quantileEdges retourne les 6 bornes des quintiles.
func quantileEdges(values []float64) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	last := float64(len(sorted) - 1)

	edges := make([]float64, buckets+1)
	for k := 0; k <= buckets; k++ {
		pos := last * float64(k) / buckets
		lo := math.Floor(pos)
		frac := pos - lo
		i := int(lo)
		if frac == 0 || i+1 >= len(sorted) {
			edges[k] = sorted[i]
			continue
		}
		edges[k] = sorted[i] + (sorted[i+1]-sorted[i])*frac
	}
	return edges
}

// bucketOf : indice 0..4 de l'intervalle contenant v.
func bucketOf(edges []float64, v float64) int {
	for b := 1; b < buckets; b++ {
		if v <= edges[b] {
			return b - 1
		}
	}
	return buckets - 1
}
