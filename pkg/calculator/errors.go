package calculator

import (
	"fmt"
	"strings"
)

// RowIssue identifie une ligne rejetée et la raison.
type RowIssue struct {
	Line       int
	CustomerID string
	Field      string
	Reason     string
}

func (i RowIssue) String() string {
	return fmt.Sprintf("line %d (customer %q) %s: %s", i.Line, i.CustomerID, i.Field, i.Reason)
}

// DataQualityError regroupe toutes les lignes invalides d'un run. Aucune ligne n'est ignorée.
type DataQualityError struct {
	Issues []RowIssue
}

func (e *DataQualityError) Error() string {
	const maxShown = 5
	parts := make([]string, 0, maxShown)
	for i, issue := range e.Issues {
		if i == maxShown {
			parts = append(parts, fmt.Sprintf("... and %d more", len(e.Issues)-maxShown))
			break
		}
		parts = append(parts, issue.String())
	}
	return fmt.Sprintf("data quality: %d invalid row(s): %s", len(e.Issues), strings.Join(parts, "; "))
}

// PopulationError signale une population qui ne permet pas 5 quintiles non vides.
type PopulationError struct {
	Metric string
	Size   int
	Reason string
}

func (e *PopulationError) Error() string {
	return fmt.Sprintf("population: metric %s over %d customer(s): %s", e.Metric, e.Size, e.Reason)
}

// ClassificationError : couple de scores hors de la grille 5x5.
type ClassificationError struct {
	CustomerID     string
	RecencyScore   int
	FrequencyScore int
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification: customer %q has no segment for recency_score=%d frequency_score=%d",
		e.CustomerID, e.RecencyScore, e.FrequencyScore)
}
