package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/healthpredictor/platform/pkg/catalog"
	"github.com/healthpredictor/platform/pkg/common/logger"
	"github.com/healthpredictor/platform/pkg/common/models"
)

const (
	recentReports  = 5
	commonDiseases = 5
	chartDays      = 7
	chartLabel     = "Jan 02"
)

type PatientCounter interface {
	Count(ctx context.Context) (int64, error)
}

type CatalogCounter interface {
	Counts(ctx context.Context) (catalog.Counts, error)
}

// ReportStats is satisfied by report.Repository.
type ReportStats interface {
	Count(ctx context.Context) (int64, error)
	Recent(ctx context.Context, limit int) ([]models.ReportSummary, error)
	TopDiseases(ctx context.Context, limit int) ([]models.DiseaseCount, error)
	CreatedSince(ctx context.Context, since time.Time) ([]time.Time, error)
}

type Service struct {
	patients   PatientCounter
	reports    ReportStats
	catalog    CatalogCounter
	aggregates *Aggregator
	now        func() time.Time
}

// NewService builds the dashboard. aggregates may be nil, in which case every
// figure comes from the database.
func NewService(patients PatientCounter, reports ReportStats, catalog CatalogCounter, aggregates *Aggregator) *Service {
	return &Service{
		patients:   patients,
		reports:    reports,
		catalog:    catalog,
		aggregates: aggregates,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Dashboard(ctx context.Context) (models.Dashboard, error) {
	var d models.Dashboard
	var err error

	if d.PatientCount, err = s.patients.Count(ctx); err != nil {
		return d, fmt.Errorf("failed to count patients: %w", err)
	}
	if d.ReportCount, err = s.reports.Count(ctx); err != nil {
		return d, fmt.Errorf("failed to count reports: %w", err)
	}
	counts, err := s.catalog.Counts(ctx)
	if err != nil {
		return d, fmt.Errorf("failed to count symptoms: %w", err)
	}
	d.SymptomCount = counts.Symptoms

	if d.RecentReports, err = s.reports.Recent(ctx, recentReports); err != nil {
		return d, fmt.Errorf("failed to list recent reports: %w", err)
	}
	if d.CommonDiseases, err = s.commonDiseases(ctx); err != nil {
		return d, err
	}
	if d.ChartLabels, d.ChartData, err = s.chart(ctx); err != nil {
		return d, err
	}
	return d, nil
}

func (s *Service) commonDiseases(ctx context.Context) ([]models.DiseaseCount, error) {
	if s.aggregates != nil {
		top, err := s.aggregates.TopDiseases(ctx, commonDiseases)
		if err == nil && len(top) > 0 {
			return top, nil
		}
		if err != nil {
			logger.Log.WithError(err).Warn("Falling back to database for common diseases")
		}
	}
	top, err := s.reports.TopDiseases(ctx, commonDiseases)
	if err != nil {
		return nil, fmt.Errorf("failed to count diseases: %w", err)
	}
	if top == nil {
		top = []models.DiseaseCount{}
	}
	return top, nil
}

// chart covers the last seven days up to and including today, oldest first.
func (s *Service) chart(ctx context.Context) ([]string, []int64, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	days := make([]time.Time, chartDays)
	labels := make([]string, chartDays)
	for i := range days {
		days[i] = today.AddDate(0, 0, i-(chartDays-1))
		labels[i] = days[i].Format(chartLabel)
	}

	if s.aggregates != nil {
		counts, ok, err := s.aggregates.DailyCounts(ctx, days)
		if err != nil {
			logger.Log.WithError(err).Warn("Falling back to database for report chart")
		} else if ok {
			return labels, counts, nil
		}
	}

	created, err := s.reports.CreatedSince(ctx, days[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load report dates: %w", err)
	}
	counts := make([]int64, chartDays)
	for _, t := range created {
		i := int(t.UTC().Sub(days[0]) / (24 * time.Hour))
		if i >= 0 && i < chartDays {
			counts[i]++
		}
	}
	return labels, counts, nil
}
