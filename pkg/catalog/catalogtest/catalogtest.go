// Package catalogtest provides SQLite-backed catalog fixtures for tests.
package catalogtest

import (
	"context"
	"strings"
	"testing"

	"github.com/healthpredictor/platform/pkg/catalog"
	"github.com/healthpredictor/platform/pkg/common/database"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// OpenDB returns a fresh in-memory database closed when the test ends.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// Seeded migrates the catalog tables on db, loads the default catalog and
// returns the repository together with a snapshot of it.
func Seeded(t testing.TB, db *gorm.DB) (*catalog.Repository, *catalog.Snapshot) {
	t.Helper()
	repo := catalog.NewRepository(db)
	require.NoError(t, repo.AutoMigrate())
	_, err := repo.Upsert(context.Background(), catalog.DefaultSeed())
	require.NoError(t, err)
	snap, err := repo.LoadSnapshot(context.Background())
	require.NoError(t, err)
	return repo, snap
}

func SymptomID(t testing.TB, snap *catalog.Snapshot, name string) uint {
	t.Helper()
	for _, s := range snap.Symptoms() {
		if strings.EqualFold(s.Name, name) {
			return s.ID
		}
	}
	t.Fatalf("symptom %q not in catalog", name)
	return 0
}

func DiseaseID(t testing.TB, snap *catalog.Snapshot, name string) uint {
	t.Helper()
	for _, d := range snap.Diseases() {
		if strings.EqualFold(d.Name, name) {
			return d.ID
		}
	}
	t.Fatalf("disease %q not in catalog", name)
	return 0
}

func RemedyID(t testing.TB, snap *catalog.Snapshot, name string) uint {
	t.Helper()
	for _, r := range snap.Remedies() {
		if strings.EqualFold(r.Name, name) {
			return r.ID
		}
	}
	t.Fatalf("remedy %q not in catalog", name)
	return 0
}

// SymptomIDs resolves several names at once.
func SymptomIDs(t testing.TB, snap *catalog.Snapshot, names ...string) catalog.IDSet {
	t.Helper()
	set := catalog.NewIDSet()
	for _, name := range names {
		set.Add(SymptomID(t, snap, name))
	}
	return set
}
