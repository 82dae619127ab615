package source

import (
	"fmt"
	"math"

	"rfm-segments/pkg/calculator"
	"rfm-segments/pkg/models"
)

// Aggregate fusionne les canaux online/offline : un CustomerAggregate par ligne, ordre conservé.
func Aggregate(rows []models.ChannelRow) ([]models.CustomerAggregate, error) {
	var issues []calculator.RowIssue
	seen := make(map[string]int, len(rows))
	aggs := make([]models.CustomerAggregate, 0, len(rows))

	for _, row := range rows {
		bad := func(field, reason string) {
			issues = append(issues, calculator.RowIssue{Line: row.Line, CustomerID: row.MasterID, Field: field, Reason: reason})
		}

		if first, dup := seen[row.MasterID]; dup {
			bad(ColMasterID, fmt.Sprintf("duplicate of line %d", first))
		} else {
			seen[row.MasterID] = row.Line
		}

		last := row.LastOrderDate
		if row.LastOrderDateOnline.After(last) {
			last = row.LastOrderDateOnline
		}
		if row.LastOrderDateOffline.After(last) {
			last = row.LastOrderDateOffline
		}
		if last.IsZero() {
			bad("last_activity_date", "no last order date on any channel")
		}

		if row.OrderNumOnline < 0 || row.OrderNumOffline < 0 {
			bad("total_orders", "negative channel order count")
		}
		orders := row.OrderNumOnline + row.OrderNumOffline
		if orders != math.Trunc(orders) {
			bad("total_orders", fmt.Sprintf("not an integer (%g)", orders))
		} else if orders < 1 {
			bad("total_orders", "customer has no orders")
		} else if orders > math.MaxInt32 {
			bad("total_orders", fmt.Sprintf("out of range (%g)", orders))
		}

		value := row.ValueOnline + row.ValueOffline
		if row.ValueOnline < 0 || row.ValueOffline < 0 {
			bad("total_value", "negative channel value")
		}

		aggs = append(aggs, models.CustomerAggregate{
			CustomerID:       row.MasterID,
			LastActivityDate: last,
			TotalOrders:      int(orders),
			TotalValue:       value,
			InterestTags:     row.Interests,
			OrderChannel:     row.OrderChannel,
			Line:             row.Line,
		})
	}

	if len(issues) > 0 {
		return nil, &calculator.DataQualityError{Issues: issues}
	}
	return aggs, nil
}
