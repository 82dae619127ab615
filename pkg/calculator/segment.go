package calculator

import (
	"fmt"

	"rfm-segments/pkg/models"
)

// segmentRule couvre un rectangle [rLo..rHi] x [fLo..fHi] de la grille recency x frequency.
type segmentRule struct {
	rLo, rHi int
	fLo, fHi int
	segment  models.Segment
}

// Ordre de priorité : la première règle qui couvre une case l'emporte.
var segmentRules = []segmentRule{
	{1, 2, 1, 2, models.SegmentHibernating},
	{1, 2, 3, 4, models.SegmentAtRisk},
	{1, 2, 5, 5, models.SegmentCantLoose},
	{3, 3, 1, 2, models.SegmentAboutToSleep},
	{3, 3, 3, 3, models.SegmentNeedAttention},
	{3, 4, 4, 5, models.SegmentLoyalCustomers},
	{4, 4, 1, 1, models.SegmentPromising},
	{5, 5, 1, 1, models.SegmentNewCustomers},
	{4, 5, 2, 3, models.SegmentPotentialLoyalists},
	{5, 5, 4, 5, models.SegmentChampions},
}

// segmentGrid[r-1][f-1], construite une fois et vérifiée totale.
var segmentGrid = mustBuildGrid(segmentRules)

func buildGrid(rules []segmentRule) ([buckets][buckets]models.Segment, error) {
	var grid [buckets][buckets]models.Segment
	for _, rule := range rules {
		for r := rule.rLo; r <= rule.rHi; r++ {
			for f := rule.fLo; f <= rule.fHi; f++ {
				if r < 1 || r > buckets || f < 1 || f > buckets {
					return grid, fmt.Errorf("rule %s covers out-of-grid cell %d%d", rule.segment, r, f)
				}
				if grid[r-1][f-1] == "" {
					grid[r-1][f-1] = rule.segment
				}
			}
		}
	}
	for r := 0; r < buckets; r++ {
		for f := 0; f < buckets; f++ {
			if grid[r][f] == "" {
				return grid, fmt.Errorf("segment table has no entry for cell %d%d", r+1, f+1)
			}
		}
	}
	return grid, nil
}

func mustBuildGrid(rules []segmentRule) [buckets][buckets]models.Segment {
	grid, err := buildGrid(rules)
	if err != nil {
		panic(err)
	}
	return grid
}

// Classify retourne le segment d'un couple (recency_score, frequency_score).
func Classify(recencyScore, frequencyScore int) (models.Segment, bool) {
	if recencyScore < 1 || recencyScore > buckets || frequencyScore < 1 || frequencyScore > buckets {
		return "", false
	}
	return segmentGrid[recencyScore-1][frequencyScore-1], true
}
