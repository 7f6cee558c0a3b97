package remedy

import (
	"context"
	"fmt"
	"sort"

	"github.com/healthpredictor/platform/pkg/catalog"
	"github.com/healthpredictor/platform/pkg/common/models"
)

// Recommender selects remedies linked to any predicted disease or any
// reported symptom. Unlike predictions the list is not capped.
type Recommender struct{}

func NewRecommender() *Recommender {
	return &Recommender{}
}

func (r *Recommender) Recommend(ctx context.Context, store catalog.Store, diseaseIDs, symptomIDs catalog.IDSet) ([]models.RankedRemedy, error) {
	if diseaseIDs.Len() == 0 && symptomIDs.Len() == 0 {
		return []models.RankedRemedy{}, nil
	}

	remedies, err := store.RemediesMatching(ctx, diseaseIDs, symptomIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load matching remedies: %w", err)
	}

	seen := make(map[uint]struct{}, len(remedies))
	ranked := make([]models.RankedRemedy, 0, len(remedies))
	for _, remedy := range remedies {
		if _, dup := seen[remedy.ID]; dup {
			continue
		}
		seen[remedy.ID] = struct{}{}
		ranked = append(ranked, models.RankedRemedy{
			Remedy:         remedy,
			MatchedDisease: diseaseIDs.Intersects(remedy.DiseaseIDs),
			MatchedSymptom: symptomIDs.Intersects(remedy.SymptomIDs),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Remedy.EffectivenessRating > ranked[j].Remedy.EffectivenessRating
	})
	return ranked, nil
}
