package calculator

import (
	"sort"

	"rfm-segments/pkg/models"
)

// SummarizeSegments : effectif et moyennes R/F/M par segment, tri par effectif décroissant puis nom.
// Les segments sans client sont omis.
func SummarizeSegments(records []models.RFMRecord) []models.SegmentSummary {
	type acc struct {
		count            int
		sumR, sumF, sumM float64
	}
	bySeg := map[models.Segment]*acc{}
	for _, r := range records {
		a, ok := bySeg[r.Segment]
		if !ok {
			a = &acc{}
			bySeg[r.Segment] = a
		}
		a.count++
		a.sumR += float64(r.Recency)
		a.sumF += float64(r.Frequency)
		a.sumM += r.Monetary
	}

	out := make([]models.SegmentSummary, 0, len(bySeg))
	for seg, a := range bySeg {
		n := float64(a.count)
		out = append(out, models.SegmentSummary{
			Segment:       seg,
			Count:         a.count,
			MeanRecency:   a.sumR / n,
			MeanFrequency: a.sumF / n,
			MeanMonetary:  a.sumM / n,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Segment < out[j].Segment
	})
	return out
}

// ChannelBreakdown : clients, commandes et valeur par canal, tri par nom de canal.
func ChannelBreakdown(aggs []models.CustomerAggregate) []models.ChannelSummary {
	byChannel := map[string]*models.ChannelSummary{}
	for _, a := range aggs {
		ch := a.OrderChannel
		if ch == "" {
			ch = "unknown"
		}
		s, ok := byChannel[ch]
		if !ok {
			s = &models.ChannelSummary{Channel: ch}
			byChannel[ch] = s
		}
		s.Customers++
		s.Orders += a.TotalOrders
		s.TotalValue += a.TotalValue
	}

	out := make([]models.ChannelSummary, 0, len(byChannel))
	for _, s := range byChannel {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

// TopBy choisit la métrique de TopCustomers.
type TopBy int

const (
	TopByValue TopBy = iota
	TopByOrders
)

// TopCustomers retourne les n premiers clients selon la métrique, égalités dans l'ordre d'entrée.
func TopCustomers(aggs []models.CustomerAggregate, by TopBy, n int) []models.CustomerAggregate {
	sorted := append([]models.CustomerAggregate(nil), aggs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if by == TopByOrders {
			return sorted[i].TotalOrders > sorted[j].TotalOrders
		}
		return sorted[i].TotalValue > sorted[j].TotalValue
	})
	if n < 0 {
		n = 0
	}
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
