package calculator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"rfm-segments/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var analysisDate = time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

// population builds n customers with distinct recency (i*3 days), frequency and value.
func population(n int) []models.CustomerAggregate {
	aggs := make([]models.CustomerAggregate, n)
	for i := 0; i < n; i++ {
		aggs[i] = models.CustomerAggregate{
			CustomerID:       fmt.Sprintf("c%03d", i),
			LastActivityDate: analysisDate.AddDate(0, 0, -((i * 7) % n * 3)),
			TotalOrders:      1 + (i*11)%n,
			TotalValue:       float64((i*13)%n)*10 + 5.25,
			InterestTags:     []string{"ERKEK"},
			OrderChannel:     "Android App",
			Line:             i + 1,
		}
	}
	return aggs
}

func TestDeriveMetrics(t *testing.T) {
	aggs := []models.CustomerAggregate{
		{CustomerID: "a", LastActivityDate: time.Date(2021, 5, 30, 0, 0, 0, 0, time.UTC), TotalOrders: 5, TotalValue: 939.37},
		{CustomerID: "b", LastActivityDate: time.Date(2021, 5, 31, 23, 0, 0, 0, time.UTC), TotalOrders: 2, TotalValue: 121.97},
		{CustomerID: "c", LastActivityDate: analysisDate, TotalOrders: 1, TotalValue: 0},
	}
	got, err := DeriveMetrics(aggs, analysisDate)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, 2, got[0].Recency)
	assert.Equal(t, 5, got[0].Frequency)
	assert.InDelta(t, 939.37, got[0].Monetary, 1e-9)
	// 1 hour short of a day floors to 0
	assert.Equal(t, 0, got[1].Recency)
	assert.Equal(t, 0, got[2].Recency)
}

func TestDeriveMetrics_ReportsEveryBadRow(t *testing.T) {
	aggs := []models.CustomerAggregate{
		{CustomerID: "future", LastActivityDate: analysisDate.Add(time.Hour), TotalOrders: 1, TotalValue: 1, Line: 2},
		{CustomerID: "ok", LastActivityDate: analysisDate, TotalOrders: 1, TotalValue: 1, Line: 3},
		{CustomerID: "nodate", TotalOrders: 1, TotalValue: 1, Line: 4},
		{CustomerID: "ok", LastActivityDate: analysisDate, TotalOrders: -1, TotalValue: -3, Line: 5},
	}
	_, err := DeriveMetrics(aggs, analysisDate)

	var dqErr *DataQualityError
	require.ErrorAs(t, err, &dqErr)
	fields := map[string]int{}
	for _, issue := range dqErr.Issues {
		fields[issue.Field] = issue.Line
	}
	assert.Equal(t, 2, fields["recency"])
	assert.Equal(t, 4, fields["last_activity_date"])
	assert.Equal(t, 5, fields["customer_id"])
	assert.Equal(t, 5, fields["total_orders"])
	assert.Equal(t, 5, fields["total_value"])
	assert.Contains(t, err.Error(), "5 invalid row(s)")
}

func TestDeriveMetrics_RequiresAnalysisDate(t *testing.T) {
	_, err := DeriveMetrics(population(5), time.Time{})
	assert.Error(t, err)
}

func TestFrequencyScores_OneToFive(t *testing.T) {
	// identical recency: frequency scoring alone must give 1..5 in input order
	freqs := []float64{1, 2, 3, 4, 5}
	scores, err := QuintileScores(metricFrequency, RankFirst(freqs), Ascending)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, scores)
}

func TestCompute_IdenticalRecencyIsPopulationError(t *testing.T) {
	aggs := population(5)
	for i := range aggs {
		aggs[i].LastActivityDate = analysisDate.AddDate(0, 0, -10)
	}
	_, err := Compute(aggs, analysisDate)
	var popErr *PopulationError
	require.ErrorAs(t, err, &popErr)
	assert.Equal(t, metricRecency, popErr.Metric)
}

func TestCompute_ChampionScenario(t *testing.T) {
	aggs := population(20)
	aggs[7].LastActivityDate = analysisDate
	aggs[7].TotalOrders = 500

	records, err := Compute(aggs, analysisDate)
	require.NoError(t, err)

	r := records[7]
	assert.Equal(t, 0, r.Recency)
	assert.Equal(t, 5, r.RecencyScore)
	assert.Equal(t, 5, r.FrequencyScore)
	assert.Equal(t, models.SegmentChampions, r.Segment)
	assert.Equal(t, "55", r.RFScore())
}

func TestCompute_Properties(t *testing.T) {
	aggs := population(53)
	records, err := Compute(aggs, analysisDate)
	require.NoError(t, err)
	require.Len(t, records, len(aggs))

	known := map[models.Segment]bool{}
	for _, s := range models.AllSegments {
		known[s] = true
	}
	byRF := map[string]models.Segment{}
	freqCounts := map[int]int{}

	for i, r := range records {
		assert.Equal(t, aggs[i].CustomerID, r.CustomerID, "input order kept")
		assert.True(t, known[r.Segment], "customer %s segment %q", r.CustomerID, r.Segment)
		for _, s := range []int{r.RecencyScore, r.FrequencyScore, r.MonetaryScore} {
			assert.True(t, s >= 1 && s <= 5)
		}
		if prev, ok := byRF[r.RFScore()]; ok {
			assert.Equal(t, prev, r.Segment, "segment depends on RF only")
		}
		byRF[r.RFScore()] = r.Segment
		freqCounts[r.FrequencyScore]++
	}

	for s, c := range freqCounts {
		assert.True(t, c >= 53/5 && c <= (53+4)/5, "frequency score %d has %d members", s, c)
	}

	for _, a := range records {
		for _, b := range records {
			if a.Recency < b.Recency {
				assert.GreaterOrEqual(t, a.RecencyScore, b.RecencyScore)
			}
		}
	}
}

func TestCompute_Idempotent(t *testing.T) {
	aggs := population(40)
	first, err := Compute(aggs, analysisDate)
	require.NoError(t, err)
	second, err := Compute(aggs, analysisDate)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompute_MonetaryIgnoredBySegment(t *testing.T) {
	aggs := population(25)
	records, err := Compute(aggs, analysisDate)
	require.NoError(t, err)

	for i := range aggs {
		aggs[i].TotalValue = float64(len(aggs)-i) * 3.5
	}
	reordered, err := Compute(aggs, analysisDate)
	require.NoError(t, err)
	for i := range records {
		assert.Equal(t, records[i].Segment, reordered[i].Segment)
	}
}

func TestFilterTargets(t *testing.T) {
	aggs := population(30)
	aggs[3].InterestTags = []string{"KADIN", "ERKEK"}
	aggs[9].InterestTags = []string{"AKTIFKADIN"}
	records, err := Compute(aggs, analysisDate)
	require.NoError(t, err)

	rule := models.TargetRule{Segments: models.AllSegments, Interest: "KADIN"}
	ids, err := FilterTargets(records, aggs, rule)
	require.NoError(t, err)
	assert.Equal(t, []string{"c003"}, ids)

	rule.Segments = []models.Segment{records[3].Segment}
	ids, err = FilterTargets(records, aggs, rule)
	require.NoError(t, err)
	assert.Equal(t, []string{"c003"}, ids)
}

func TestFilterTargets_NoTagHolders(t *testing.T) {
	aggs := population(30)
	records, err := Compute(aggs, analysisDate)
	require.NoError(t, err)

	ids, err := FilterTargets(records, aggs, models.TargetRule{
		Segments: []models.Segment{models.SegmentChampions, models.SegmentLoyalCustomers},
		Interest: "KADIN",
	})
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestFilterTargets_InputOrder(t *testing.T) {
	aggs := population(30)
	for i := range aggs {
		aggs[i].InterestTags = []string{"KADIN"}
	}
	records, err := Compute(aggs, analysisDate)
	require.NoError(t, err)

	ids, err := FilterTargets(records, aggs, models.TargetRule{Segments: models.AllSegments, Interest: "KADIN"})
	require.NoError(t, err)
	require.Len(t, ids, len(aggs))
	for i := range aggs {
		assert.Equal(t, aggs[i].CustomerID, ids[i])
	}
}

func TestFilterTargets_Invalid(t *testing.T) {
	aggs := population(5)
	records, err := Compute(aggs, analysisDate)
	require.NoError(t, err)

	_, err = FilterTargets(records, aggs, models.TargetRule{Segments: []models.Segment{"vip"}, Interest: "KADIN"})
	assert.Error(t, err)
	_, err = FilterTargets(records, aggs, models.TargetRule{Segments: models.AllSegments})
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	aggs := population(30)
	aggs[0].InterestTags = []string{"KADIN"}
	aggs[0].LastActivityDate = analysisDate
	aggs[0].TotalOrders = 1000
	aggs[1].OrderChannel = "Mobile"

	res, err := Run(context.Background(), aggs, models.Config{
		RunID:        "test-run",
		AnalysisDate: analysisDate,
		Target:       models.TargetRule{Segments: []models.Segment{models.SegmentChampions}, Interest: "KADIN"},
		TopN:         3,
	})
	require.NoError(t, err)

	assert.Len(t, res.Records, 30)
	assert.Equal(t, []string{"c000"}, res.Targets)
	assert.Equal(t, "2021-06-01", res.Report.AnalysisDate)
	assert.Equal(t, 30, res.Report.Customers)
	assert.Equal(t, 1, res.Report.Targets)
	require.Len(t, res.Report.TopByOrders, 3)
	assert.Equal(t, "c000", res.Report.TopByOrders[0].CustomerID)
	require.Len(t, res.Report.Channels, 2)
	assert.Equal(t, "Android App", res.Report.Channels[0].Channel)
	assert.Equal(t, 29, res.Report.Channels[0].Customers)

	total := 0
	for _, s := range res.Report.Segments {
		total += s.Count
	}
	assert.Equal(t, 30, total)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, population(10), models.Config{
		AnalysisDate: analysisDate,
		Target:       models.TargetRule{Segments: models.AllSegments, Interest: "KADIN"},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_WrapsStageError(t *testing.T) {
	_, err := Run(context.Background(), population(3), models.Config{
		AnalysisDate: analysisDate,
		Target:       models.TargetRule{Segments: models.AllSegments, Interest: "KADIN"},
	})
	var popErr *PopulationError
	require.ErrorAs(t, err, &popErr)
	assert.Contains(t, err.Error(), "score:")
}
