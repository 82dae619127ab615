package calculator

import (
	"fmt"
	"math"
	"time"

	"rfm-segments/pkg/models"
)

const (
	metricRecency   = "recency"
	metricFrequency = "frequency"
	metricMonetary  = "monetary"
)

const day = 24 * time.Hour

// DeriveMetrics calcule recency / frequency / monetary pour chaque client, dans l'ordre d'entrée.
// Toutes les lignes invalides sont remontées ensemble dans un *DataQualityError.
func DeriveMetrics(aggs []models.CustomerAggregate, analysisDate time.Time) ([]models.RFMRecord, error) {
	if analysisDate.IsZero() {
		return nil, fmt.Errorf("analysis date is required")
	}

	var issues []RowIssue
	seen := make(map[string]int, len(aggs))
	records := make([]models.RFMRecord, 0, len(aggs))

	for i, a := range aggs {
		line := a.Line
		if line == 0 {
			line = i + 1
		}
		bad := func(field, reason string) {
			issues = append(issues, RowIssue{Line: line, CustomerID: a.CustomerID, Field: field, Reason: reason})
		}

		if a.CustomerID == "" {
			bad("customer_id", "missing")
		} else if first, dup := seen[a.CustomerID]; dup {
			bad("customer_id", fmt.Sprintf("duplicate of line %d", first))
		} else {
			seen[a.CustomerID] = line
		}
		if a.TotalOrders < 0 {
			bad("total_orders", fmt.Sprintf("negative (%d)", a.TotalOrders))
		}
		if math.IsNaN(a.TotalValue) || math.IsInf(a.TotalValue, 0) || a.TotalValue < 0 {
			bad("total_value", fmt.Sprintf("invalid (%g)", a.TotalValue))
		}

		recency := 0
		switch {
		case a.LastActivityDate.IsZero():
			bad("last_activity_date", "missing")
		case a.LastActivityDate.After(analysisDate):
			bad("recency", fmt.Sprintf("negative: last activity %s is after analysis date %s",
				a.LastActivityDate.Format(time.DateOnly), analysisDate.Format(time.DateOnly)))
		default:
			recency = int(analysisDate.Sub(a.LastActivityDate) / day)
		}

		records = append(records, models.RFMRecord{
			CustomerID: a.CustomerID,
			Recency:    recency,
			Frequency:  a.TotalOrders,
			Monetary:   a.TotalValue,
		})
	}

	if len(issues) > 0 {
		return nil, &DataQualityError{Issues: issues}
	}
	return records, nil
}

// ScoreRecords attribue les trois scores de quintile puis le segment, en place.
// Les bornes sont calculées sur toute la population passée.
func ScoreRecords(records []models.RFMRecord) error {
	n := len(records)
	recency := make([]float64, n)
	frequency := make([]float64, n)
	monetary := make([]float64, n)
	for i, r := range records {
		recency[i] = float64(r.Recency)
		frequency[i] = float64(r.Frequency)
		monetary[i] = r.Monetary
	}

	rScores, err := QuintileScores(metricRecency, recency, Descending)
	if err != nil {
		return err
	}
	// frequency : entiers avec beaucoup d'égalités, on découpe sur le rang stable
	fScores, err := QuintileScores(metricFrequency, RankFirst(frequency), Ascending)
	if err != nil {
		return err
	}
	mScores, err := QuintileScores(metricMonetary, monetary, Ascending)
	if err != nil {
		return err
	}

	for i := range records {
		records[i].RecencyScore = rScores[i]
		records[i].FrequencyScore = fScores[i]
		records[i].MonetaryScore = mScores[i]
	}
	return ClassifyRecords(records)
}

// ClassifyRecords renseigne Segment à partir des scores R et F.
func ClassifyRecords(records []models.RFMRecord) error {
	for i, r := range records {
		seg, ok := Classify(r.RecencyScore, r.FrequencyScore)
		if !ok {
			return &ClassificationError{CustomerID: r.CustomerID, RecencyScore: r.RecencyScore, FrequencyScore: r.FrequencyScore}
		}
		records[i].Segment = seg
	}
	return nil
}

// Compute enchaîne dérivation, scoring et classification. Pas de sortie partielle.
func Compute(aggs []models.CustomerAggregate, analysisDate time.Time) ([]models.RFMRecord, error) {
	records, err := DeriveMetrics(aggs, analysisDate)
	if err != nil {
		return nil, err
	}
	if err := ScoreRecords(records); err != nil {
		return nil, err
	}
	return records, nil
}

// FilterTargets retourne, dans l'ordre d'entrée, les customer_id dont le segment
// est ciblé et qui portent le tag d'intérêt demandé.
func FilterTargets(records []models.RFMRecord, aggs []models.CustomerAggregate, rule models.TargetRule) ([]string, error) {
	if rule.Interest == "" {
		return nil, fmt.Errorf("interest tag is required")
	}
	wanted := make(map[models.Segment]bool, len(rule.Segments))
	for _, s := range rule.Segments {
		if _, ok := models.ParseSegment(string(s)); !ok {
			return nil, fmt.Errorf("unknown segment %q", s)
		}
		wanted[s] = true
	}

	byID := make(map[string]*models.CustomerAggregate, len(aggs))
	for i := range aggs {
		byID[aggs[i].CustomerID] = &aggs[i]
	}

	ids := []string{}
	for _, r := range records {
		if !wanted[r.Segment] {
			continue
		}
		agg, ok := byID[r.CustomerID]
		if !ok {
			return nil, fmt.Errorf("customer %q has a record but no aggregate", r.CustomerID)
		}
		if agg.HasInterest(rule.Interest) {
			ids = append(ids, r.CustomerID)
		}
	}
	return ids, nil
}
