package calculator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rfm-segments/pkg/models"

	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
)

// Result regroupe les enregistrements RFM, les cibles et le rapport d'un run.
type Result struct {
	Records []models.RFMRecord
	Targets []string
	Report  models.Report
}

type stage struct {
	name string
	run  func() error
}

func Run(ctx context.Context, aggs []models.CustomerAggregate, cfg models.Config) (*Result, error) {
	if cfg.AnalysisDate.IsZero() {
		return nil, fmt.Errorf("analysis_date is required")
	}
	logger := log.WithFields(log.Fields{
		"run_id":        cfg.RunID,
		"analysis_date": formatDate(cfg.AnalysisDate),
	})

	var (
		records []models.RFMRecord
		targets []string
	)
	stages := []stage{
		{"derive", func() (err error) {
			records, err = DeriveMetrics(aggs, cfg.AnalysisDate)
			return err
		}},
		{"score", func() error { return ScoreRecords(records) }},
		{"filter", func() (err error) {
			targets, err = FilterTargets(records, aggs, cfg.Target)
			return err
		}},
	}

	bar := newBar(cfg.Verbose, len(stages))
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bar.Describe(s.name)
		start := time.Now()
		if err := s.run(); err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		_ = bar.Add(1)
		logger.WithFields(log.Fields{"stage": s.name, "elapsed": time.Since(start)}).Debug("stage done")
	}
	_ = bar.Finish()

	report := models.Report{
		RunID:        cfg.RunID,
		AnalysisDate: formatDate(cfg.AnalysisDate),
		Customers:    len(records),
		Segments:     SummarizeSegments(records),
		Channels:     ChannelBreakdown(aggs),
		TopByValue:   ranks(TopCustomers(aggs, TopByValue, cfg.TopN)),
		TopByOrders:  ranks(TopCustomers(aggs, TopByOrders, cfg.TopN)),
		TargetRule:   cfg.Target,
		Targets:      len(targets),
	}

	for _, s := range report.Segments {
		logger.WithFields(log.Fields{
			"segment":        s.Segment,
			"count":          s.Count,
			"mean_recency":   fmt.Sprintf("%.3f", s.MeanRecency),
			"mean_frequency": fmt.Sprintf("%.3f", s.MeanFrequency),
			"mean_monetary":  fmt.Sprintf("%.3f", s.MeanMonetary),
		}).Info("segment")
	}
	logger.WithFields(log.Fields{
		"customers": len(records),
		"segments":  joinSegments(cfg.Target.Segments),
		"interest":  cfg.Target.Interest,
		"targets":   len(targets),
	}).Info("targets selected")

	return &Result{Records: records, Targets: targets, Report: report}, nil
}

func newBar(verbose bool, n int) *progressbar.ProgressBar {
	if verbose {
		return progressbar.Default(int64(n), "rfm")
	}
	return progressbar.DefaultSilent(int64(n), "rfm")
}

func ranks(aggs []models.CustomerAggregate) []models.CustomerRank {
	out := make([]models.CustomerRank, 0, len(aggs))
	for _, a := range aggs {
		out = append(out, models.CustomerRank{CustomerID: a.CustomerID, Orders: a.TotalOrders, Value: a.TotalValue})
	}
	return out
}

// ParseAnalysisDate("YYYY-MM-DD") -> minuit UTC
func ParseAnalysisDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("format attendu YYYY-MM-DD (ex: 2021-06-01): %w", err)
	}
	return t, nil
}

// ParseSegments("champions, loyal_customers") -> segments connus, sans doublon, ordre conservé
func ParseSegments(list string) ([]models.Segment, error) {
	var out []models.Segment
	seen := map[models.Segment]bool{}
	for _, part := range strings.Split(list, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		seg, ok := models.ParseSegment(name)
		if !ok {
			return nil, fmt.Errorf("segment inconnu %q (attendu: %s)", name, joinSegments(models.AllSegments))
		}
		if !seen[seg] {
			seen[seg] = true
			out = append(out, seg)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("aucun segment cible")
	}
	return out, nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

func joinSegments(segs []models.Segment) string {
	names := make([]string, len(segs))
	for i, s := range segs {
		names[i] = string(s)
	}
	return strings.Join(names, ",")
}
