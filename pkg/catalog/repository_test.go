package catalog_test

import (
	"context"
	"testing"

	"github.com/healthpredictor/platform/pkg/catalog"
	"github.com/healthpredictor/platform/pkg/catalog/catalogtest"
	"github.com/healthpredictor/platform/pkg/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSeedShape(t *testing.T) {
	seed := catalog.DefaultSeed()

	assert.Len(t, seed.Symptoms, 30)
	assert.Len(t, seed.Diseases, 10)
	assert.Len(t, seed.Remedies, 20)
	for _, r := range seed.Remedies {
		assert.True(t, models.RemedyCategory(r.Type).Valid(), r.Name)
		assert.NotEmpty(t, r.Diseases, r.Name)
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	db := catalogtest.OpenDB(t)
	repo, _ := catalogtest.Seeded(t, db)
	ctx := context.Background()

	result, err := repo.Upsert(ctx, catalog.DefaultSeed())
	require.NoError(t, err)
	assert.Empty(t, result.Unresolved)
	assert.Equal(t, 20, result.Remedies)

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, catalog.Counts{Symptoms: 30, Diseases: 10, Remedies: 20}, counts)

	snap, err := repo.LoadSnapshot(ctx)
	require.NoError(t, err)
	migraine, ok := snap.Disease(catalogtest.DiseaseID(t, snap, "Migraine"))
	require.True(t, ok)
	assert.Equal(t, catalogtest.SymptomIDs(t, snap, "Headache", "Nausea", "Blurred vision", "Dizziness").Sorted(), migraine.SymptomIDs)
}

func TestUpsertReportsUnresolvedLinks(t *testing.T) {
	db := catalogtest.OpenDB(t)
	repo := catalog.NewRepository(db)
	require.NoError(t, repo.AutoMigrate())

	seed := catalog.Seed{
		Symptoms: []catalog.SeedSymptom{{Name: "Cough"}, {Name: "Fever"}},
		Diseases: []catalog.SeedDisease{{Name: "Common Cold", SeverityLevel: 2, Symptoms: []string{"cough", "Sore Throat"}}},
		Remedies: []catalog.SeedRemedy{{Name: "Rest", Type: "LIFESTYLE", Diseases: []string{"common cold"}, Symptoms: []string{"FEV"}}},
	}
	result, err := repo.Upsert(context.Background(), seed)
	require.NoError(t, err)
	assert.Equal(t, []string{"Common Cold -> Sore Throat"}, result.Unresolved)
	assert.Equal(t, 3, result.Links)

	snap, err := repo.LoadSnapshot(context.Background())
	require.NoError(t, err)
	rest, ok := snap.Remedy(catalogtest.RemedyID(t, snap, "Rest"))
	require.True(t, ok)
	assert.Equal(t, []uint{catalogtest.SymptomID(t, snap, "Fever")}, rest.SymptomIDs)
	assert.Equal(t, 1, rest.EffectivenessRating)
}

func TestUpsertRejectsUnknownRemedyType(t *testing.T) {
	db := catalogtest.OpenDB(t)
	repo := catalog.NewRepository(db)
	require.NoError(t, repo.AutoMigrate())

	_, err := repo.Upsert(context.Background(), catalog.Seed{
		Remedies: []catalog.SeedRemedy{{Name: "Bloodletting", Type: "MEDIEVAL"}},
	})
	assert.Error(t, err)
}

func TestRepositoryAgreesWithSnapshot(t *testing.T) {
	db := catalogtest.OpenDB(t)
	repo, snap := catalogtest.Seeded(t, db)
	ctx := context.Background()

	reported := catalogtest.SymptomIDs(t, snap, "Headache", "Nausea")

	fromRepo, err := repo.DiseasesWithAnySymptom(ctx, reported)
	require.NoError(t, err)
	fromSnap, err := snap.DiseasesWithAnySymptom(ctx, reported)
	require.NoError(t, err)
	assert.Equal(t, fromSnap, fromRepo)
	assert.Len(t, fromRepo, 7)
	for i := 1; i < len(fromRepo); i++ {
		assert.Less(t, fromRepo[i-1].ID, fromRepo[i].ID)
	}

	diseases := catalog.NewIDSet(catalogtest.DiseaseID(t, snap, "Migraine"))
	remRepo, err := repo.RemediesMatching(ctx, diseases, reported)
	require.NoError(t, err)
	remSnap, err := snap.RemediesMatching(ctx, diseases, reported)
	require.NoError(t, err)
	assert.Equal(t, remSnap, remRepo)
}

func TestRemediesMatchingUniqueMembership(t *testing.T) {
	db := catalogtest.OpenDB(t)
	repo, snap := catalogtest.Seeded(t, db)
	ctx := context.Background()

	// Cold Compress is linked to Migraine and to Headache.
	diseases := catalog.NewIDSet(catalogtest.DiseaseID(t, snap, "Migraine"))
	symptoms := catalogtest.SymptomIDs(t, snap, "Headache")
	coldCompress := catalogtest.RemedyID(t, snap, "Cold Compress")

	for _, store := range []catalog.Store{repo, snap} {
		remedies, err := store.RemediesMatching(ctx, diseases, symptoms)
		require.NoError(t, err)
		seen := map[uint]int{}
		for _, r := range remedies {
			seen[r.ID]++
		}
		assert.Equal(t, 1, seen[coldCompress])
		for id, n := range seen {
			assert.Equal(t, 1, n, "remedy %d", id)
		}
	}
}

func TestRemediesMatchingEmptyInputs(t *testing.T) {
	db := catalogtest.OpenDB(t)
	repo, snap := catalogtest.Seeded(t, db)

	remedies, err := repo.RemediesMatching(context.Background(), catalog.NewIDSet(), catalog.NewIDSet())
	require.NoError(t, err)
	assert.Empty(t, remedies)

	diseases, err := snap.DiseasesWithAnySymptom(context.Background(), catalog.NewIDSet())
	require.NoError(t, err)
	assert.Empty(t, diseases)
}

func TestSearchSymptoms(t *testing.T) {
	db := catalogtest.OpenDB(t)
	repo, _ := catalogtest.Seeded(t, db)
	ctx := context.Background()

	found, err := repo.SearchSymptoms(ctx, "HEAD", "", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dizziness", "Headache", "Migraine"}, names(found))

	found, err = repo.SearchSymptoms(ctx, "pain", "Abdomen", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Abdominal pain", "Constipation"}, names(found))

	found, err = repo.SearchSymptoms(ctx, "", "", 100)
	require.NoError(t, err)
	assert.Len(t, found, 20)
}

func TestBodyParts(t *testing.T) {
	db := catalogtest.OpenDB(t)
	repo, _ := catalogtest.Seeded(t, db)

	parts, err := repo.BodyParts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Abdomen", "Chest", "General", "Head", "Limbs", "Skin"}, parts)
}

func TestGetSymptomNotFound(t *testing.T) {
	db := catalogtest.OpenDB(t)
	repo, _ := catalogtest.Seeded(t, db)

	_, err := repo.GetSymptom(context.Background(), 9999)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestLookupsByIDSkipMissing(t *testing.T) {
	db := catalogtest.OpenDB(t)
	repo, snap := catalogtest.Seeded(t, db)
	ctx := context.Background()

	headache := catalogtest.SymptomID(t, snap, "Headache")
	symptoms, err := repo.SymptomsByID(ctx, catalog.NewIDSet(headache, 9999))
	require.NoError(t, err)
	assert.Len(t, symptoms, 1)
	assert.Equal(t, "Headache", symptoms[headache].Name)

	migraine := catalogtest.DiseaseID(t, snap, "Migraine")
	diseases, err := repo.DiseasesByID(ctx, catalog.NewIDSet(migraine))
	require.NoError(t, err)
	assert.Len(t, diseases[migraine].SymptomIDs, 4)

	brat := catalogtest.RemedyID(t, snap, "BRAT Diet")
	remedies, err := repo.RemediesByID(ctx, catalog.NewIDSet(brat))
	require.NoError(t, err)
	assert.Equal(t, models.RemedyDiet, remedies[brat].Category)
}

func names(symptoms []models.Symptom) []string {
	out := make([]string, 0, len(symptoms))
	for _, s := range symptoms {
		out = append(out, s.Name)
	}
	return out
}
