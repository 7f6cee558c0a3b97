package catalog

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/healthpredictor/platform/pkg/common/models"
)

// Snapshot is an immutable in-memory copy of the catalog. Reverse lookups go
// through inverted indexes built once in NewSnapshot; every slice it returns
// is ordered by ascending id.
type Snapshot struct {
	symptoms []models.Symptom
	diseases []models.Disease
	remedies []models.Remedy
	loadedAt time.Time

	symptomIdx map[uint]int
	diseaseIdx map[uint]int
	remedyIdx  map[uint]int

	diseasesBySymptom map[uint][]int
	remediesByDisease map[uint][]int
	remediesBySymptom map[uint][]int
}

var _ Store = (*Snapshot)(nil)

func NewSnapshot(symptoms []models.Symptom, diseases []models.Disease, remedies []models.Remedy) *Snapshot {
	s := &Snapshot{
		symptoms:          append([]models.Symptom(nil), symptoms...),
		diseases:          make([]models.Disease, 0, len(diseases)),
		remedies:          make([]models.Remedy, 0, len(remedies)),
		loadedAt:          time.Now().UTC(),
		symptomIdx:        make(map[uint]int, len(symptoms)),
		diseaseIdx:        make(map[uint]int, len(diseases)),
		remedyIdx:         make(map[uint]int, len(remedies)),
		diseasesBySymptom: make(map[uint][]int),
		remediesByDisease: make(map[uint][]int),
		remediesBySymptom: make(map[uint][]int),
	}
	for _, d := range diseases {
		d.SymptomIDs = NewIDSet(d.SymptomIDs...).Sorted()
		s.diseases = append(s.diseases, d)
	}
	for _, r := range remedies {
		r.DiseaseIDs = NewIDSet(r.DiseaseIDs...).Sorted()
		r.SymptomIDs = NewIDSet(r.SymptomIDs...).Sorted()
		s.remedies = append(s.remedies, r)
	}

	sort.SliceStable(s.symptoms, func(i, j int) bool { return s.symptoms[i].ID < s.symptoms[j].ID })
	sort.SliceStable(s.diseases, func(i, j int) bool { return s.diseases[i].ID < s.diseases[j].ID })
	sort.SliceStable(s.remedies, func(i, j int) bool { return s.remedies[i].ID < s.remedies[j].ID })

	for i, sym := range s.symptoms {
		s.symptomIdx[sym.ID] = i
	}
	for i, d := range s.diseases {
		s.diseaseIdx[d.ID] = i
		for _, sid := range d.SymptomIDs {
			s.diseasesBySymptom[sid] = append(s.diseasesBySymptom[sid], i)
		}
	}
	for i, r := range s.remedies {
		s.remedyIdx[r.ID] = i
		for _, did := range r.DiseaseIDs {
			s.remediesByDisease[did] = append(s.remediesByDisease[did], i)
		}
		for _, sid := range r.SymptomIDs {
			s.remediesBySymptom[sid] = append(s.remediesBySymptom[sid], i)
		}
	}
	return s
}

func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

func (s *Snapshot) Symptoms() []models.Symptom {
	return append([]models.Symptom(nil), s.symptoms...)
}

func (s *Snapshot) Diseases() []models.Disease {
	return append([]models.Disease(nil), s.diseases...)
}

func (s *Snapshot) Remedies() []models.Remedy {
	return append([]models.Remedy(nil), s.remedies...)
}

func (s *Snapshot) Symptom(id uint) (models.Symptom, bool) {
	i, ok := s.symptomIdx[id]
	if !ok {
		return models.Symptom{}, false
	}
	return s.symptoms[i], true
}

func (s *Snapshot) Disease(id uint) (models.Disease, bool) {
	i, ok := s.diseaseIdx[id]
	if !ok {
		return models.Disease{}, false
	}
	return s.diseases[i], true
}

func (s *Snapshot) Remedy(id uint) (models.Remedy, bool) {
	i, ok := s.remedyIdx[id]
	if !ok {
		return models.Remedy{}, false
	}
	return s.remedies[i], true
}

// Resolve splits requested symptom ids into those present in the catalog and
// those that are not. Missing ids keep their request order.
func (s *Snapshot) Resolve(ids []uint) (IDSet, []uint) {
	known := NewIDSet()
	var missing []uint
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := s.symptomIdx[id]; ok {
			known.Add(id)
			continue
		}
		missing = append(missing, id)
	}
	return known, missing
}

func (s *Snapshot) DiseasesWithAnySymptom(_ context.Context, symptomIDs IDSet) ([]models.Disease, error) {
	hits := collect(symptomIDs, s.diseasesBySymptom)
	out := make([]models.Disease, 0, len(hits))
	for _, i := range hits {
		out = append(out, s.diseases[i])
	}
	return out, nil
}

func (s *Snapshot) RemediesMatching(_ context.Context, diseaseIDs, symptomIDs IDSet) ([]models.Remedy, error) {
	byDisease := collect(diseaseIDs, s.remediesByDisease)
	bySymptom := collect(symptomIDs, s.remediesBySymptom)
	merged := make(map[int]struct{}, len(byDisease)+len(bySymptom))
	for _, i := range byDisease {
		merged[i] = struct{}{}
	}
	for _, i := range bySymptom {
		merged[i] = struct{}{}
	}
	idx := make([]int, 0, len(merged))
	for i := range merged {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	out := make([]models.Remedy, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.remedies[i])
	}
	return out, nil
}

// collect unions the index positions reachable from ids, ascending.
func collect(ids IDSet, index map[uint][]int) []int {
	seen := make(map[int]struct{})
	for id := range ids {
		for _, i := range index[id] {
			seen[i] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

type snapshotWire struct {
	Symptoms []models.Symptom `json:"symptoms"`
	Diseases []models.Disease `json:"diseases"`
	Remedies []models.Remedy  `json:"remedies"`
	LoadedAt time.Time        `json:"loaded_at"`
}

func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotWire{
		Symptoms: s.symptoms,
		Diseases: s.diseases,
		Remedies: s.remedies,
		LoadedAt: s.loadedAt,
	})
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var wire snapshotWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	rebuilt := NewSnapshot(wire.Symptoms, wire.Diseases, wire.Remedies)
	rebuilt.loadedAt = wire.LoadedAt
	*s = *rebuilt
	return nil
}
