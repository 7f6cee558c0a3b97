package prediction

import (
	"context"
	"fmt"
	"sort"

	"github.com/healthpredictor/platform/pkg/catalog"
	"github.com/healthpredictor/platform/pkg/common/models"
)

// MaxPredictions caps the ranked disease list.
const MaxPredictions = 5

// Engine ranks diseases by the share of their defining symptoms that were
// reported. It holds no state; one value can serve concurrent callers.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Predict scores every disease sharing at least one symptom with reported.
//
//	score = |disease.symptoms ∩ reported| / |disease.symptoms| * 100
//
// Results are sorted by score, then disease severity, both descending; equal
// pairs keep the store's order. An empty reported set yields no predictions.
func (e *Engine) Predict(ctx context.Context, store catalog.Store, reported catalog.IDSet) ([]models.RankedDisease, error) {
	if reported.Len() == 0 {
		return []models.RankedDisease{}, nil
	}

	candidates, err := store.DiseasesWithAnySymptom(ctx, reported)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate diseases: %w", err)
	}

	ranked := make([]models.RankedDisease, 0, len(candidates))
	for _, disease := range candidates {
		if score, ok := MatchScore(disease.SymptomIDs, reported); ok {
			ranked = append(ranked, models.RankedDisease{Disease: disease, MatchScore: score})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].MatchScore != ranked[j].MatchScore {
			return ranked[i].MatchScore > ranked[j].MatchScore
		}
		return ranked[i].Disease.SeverityLevel > ranked[j].Disease.SeverityLevel
	})

	if len(ranked) > MaxPredictions {
		ranked = ranked[:MaxPredictions]
	}
	return ranked, nil
}

// MatchScore returns the percentage of symptoms present in reported. It
// reports false when nothing overlaps.
func MatchScore(symptoms []uint, reported catalog.IDSet) (float64, bool) {
	defining := catalog.NewIDSet(symptoms...)
	if defining.Len() == 0 {
		return 0, false
	}
	overlap := reported.CountIn(defining.Sorted())
	if overlap == 0 {
		return 0, false
	}
	return float64(overlap) / float64(defining.Len()) * 100, true
}

// DiseaseIDs collects the ids of a ranked list.
func DiseaseIDs(ranked []models.RankedDisease) catalog.IDSet {
	set := catalog.NewIDSet()
	for _, r := range ranked {
		set.Add(r.Disease.ID)
	}
	return set
}
