package assessment

import (
	"context"
	"fmt"

	"github.com/healthpredictor/platform/pkg/catalog"
	"github.com/healthpredictor/platform/pkg/common/logger"
	"github.com/healthpredictor/platform/pkg/common/models"
	"github.com/healthpredictor/platform/pkg/observability/metrics"
	"github.com/healthpredictor/platform/pkg/prediction"
	"github.com/healthpredictor/platform/pkg/remedy"
	"github.com/healthpredictor/platform/pkg/report"
)

// SnapshotSource hands out a read-consistent view of the catalog. It is
// satisfied by catalog.Provider.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*catalog.Snapshot, error)
}

type PatientChecker interface {
	Exists(ctx context.Context, id uint) (bool, error)
}

type PredictionResult struct {
	Predictions       []models.RankedDisease `json:"predictions"`
	SkippedSymptomIDs []uint                 `json:"skipped_symptom_ids"`
}

type RecommendationResult struct {
	Remedies          []models.RankedRemedy `json:"remedies"`
	SkippedSymptomIDs []uint                `json:"skipped_symptom_ids"`
	SkippedDiseaseIDs []uint                `json:"skipped_disease_ids"`
}

type Result struct {
	Report            models.Report          `json:"report"`
	Predictions       []models.RankedDisease `json:"predictions"`
	Remedies          []models.RankedRemedy  `json:"remedies"`
	SkippedSymptomIDs []uint                 `json:"skipped_symptom_ids"`
	Persisted         bool                   `json:"persisted"`
}

type Service struct {
	snapshots        SnapshotSource
	engine           *prediction.Engine
	recommender      *remedy.Recommender
	reports          *report.Service
	patients         PatientChecker
	persistAnonymous bool
}

// NewService wires the assessment pipeline. patients may be nil, in which
// case patient references are trusted as given.
func NewService(snapshots SnapshotSource, reports *report.Service, patients PatientChecker, persistAnonymous bool) *Service {
	return &Service{
		snapshots:        snapshots,
		engine:           prediction.NewEngine(),
		recommender:      remedy.NewRecommender(),
		reports:          reports,
		patients:         patients,
		persistAnonymous: persistAnonymous,
	}
}

// Predict ranks diseases for the given symptoms. Unknown symptom ids are
// dropped and listed in the result; an empty selection yields no predictions.
func (s *Service) Predict(ctx context.Context, symptomIDs []uint) (PredictionResult, error) {
	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return PredictionResult{}, fmt.Errorf("failed to load catalog: %w", err)
	}
	known, skipped := s.resolve(snap, symptomIDs)
	ranked, err := s.engine.Predict(ctx, snap, known)
	if err != nil {
		return PredictionResult{}, err
	}
	return PredictionResult{Predictions: ranked, SkippedSymptomIDs: skipped}, nil
}

func (s *Service) Recommend(ctx context.Context, diseaseIDs, symptomIDs []uint) (RecommendationResult, error) {
	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return RecommendationResult{}, fmt.Errorf("failed to load catalog: %w", err)
	}
	knownSymptoms, skippedSymptoms := s.resolve(snap, symptomIDs)

	knownDiseases := catalog.NewIDSet()
	skippedDiseases := []uint{}
	for _, id := range catalog.NewIDSet(diseaseIDs...).Sorted() {
		if _, ok := snap.Disease(id); ok {
			knownDiseases.Add(id)
			continue
		}
		skippedDiseases = append(skippedDiseases, id)
	}
	if len(skippedDiseases) > 0 {
		logger.Log.WithField("disease_ids", skippedDiseases).Warn("Skipping diseases missing from catalog")
	}

	remedies, err := s.recommender.Recommend(ctx, snap, knownDiseases, knownSymptoms)
	if err != nil {
		return RecommendationResult{}, err
	}
	return RecommendationResult{
		Remedies:          remedies,
		SkippedSymptomIDs: skippedSymptoms,
		SkippedDiseaseIDs: skippedDiseases,
	}, nil
}

// Assess runs prediction, recommendation and report assembly against one
// catalog snapshot. The report is stored when it belongs to a patient, when
// the draft asks for it, or when anonymous persistence is enabled; otherwise
// it is returned for display only.
func (s *Service) Assess(ctx context.Context, draft *Draft) (Result, error) {
	if err := draft.Validate(); err != nil {
		return Result{}, err
	}
	if draft.PatientID != nil && s.patients != nil {
		exists, err := s.patients.Exists(ctx, *draft.PatientID)
		if err != nil {
			return Result{}, fmt.Errorf("failed to look up patient: %w", err)
		}
		if !exists {
			return Result{}, invalid("patient %d does not exist", *draft.PatientID)
		}
	}

	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load catalog: %w", err)
	}
	known, skipped := s.resolve(snap, draft.SymptomIDs())

	ranked, err := s.engine.Predict(ctx, snap, known)
	if err != nil {
		return Result{}, err
	}
	remedies, err := s.recommender.Recommend(ctx, snap, prediction.DiseaseIDs(ranked), known)
	if err != nil {
		return Result{}, err
	}
	metrics.ObserveAssessment(len(ranked))

	built, err := s.reports.Build(report.Input{
		PatientID: draft.PatientID,
		Title:     draft.Title,
		Notes:     draft.Notes,
		Status:    draft.Status,
		Symptoms:  draft.Reported(known.Has),
		Diseases:  ranked,
		Remedies:  remedies,
	})
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Report:            built,
		Predictions:       ranked,
		Remedies:          remedies,
		SkippedSymptomIDs: skipped,
	}
	if draft.PatientID == nil && !draft.Persist && !s.persistAnonymous {
		return result, nil
	}
	if err := s.reports.Create(ctx, &result.Report); err != nil {
		return Result{}, err
	}
	result.Persisted = true
	return result, nil
}

func (s *Service) resolve(snap *catalog.Snapshot, ids []uint) (catalog.IDSet, []uint) {
	known, missing := snap.Resolve(ids)
	if len(missing) == 0 {
		return known, []uint{}
	}
	metrics.ObserveSkippedSymptoms(len(missing))
	logger.Log.WithField("symptom_ids", missing).Warn("Skipping symptoms missing from catalog")
	return known, missing
}
