package report

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/healthpredictor/platform/pkg/catalog"
	"github.com/healthpredictor/platform/pkg/catalog/catalogtest"
	"github.com/healthpredictor/platform/pkg/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type publishedEvent struct {
	key       string
	eventType string
	data      map[string]interface{}
}

type fakePublisher struct {
	events []publishedEvent
	err    error
}

func (p *fakePublisher) PublishEvent(_ context.Context, key, eventType, _ string, data map[string]interface{}) error {
	p.events = append(p.events, publishedEvent{key: key, eventType: eventType, data: data})
	return p.err
}

func (p *fakePublisher) types() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.eventType)
	}
	return out
}

type fixture struct {
	db        *gorm.DB
	snap      *catalog.Snapshot
	catalog   *catalog.Repository
	repo      *Repository
	assembler *Assembler
	service   *Service
	events    *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := catalogtest.OpenDB(t)
	catRepo, snap := catalogtest.Seeded(t, db)
	repo := NewRepository(db)
	require.NoError(t, repo.AutoMigrate())
	events := &fakePublisher{}
	assembler := NewAssembler(db)
	return &fixture{
		db:        db,
		snap:      snap,
		catalog:   catRepo,
		repo:      repo,
		assembler: assembler,
		service:   NewService(assembler, repo, events),
		events:    events,
	}
}

// input ranks the named diseases in the given order with descending scores.
func (f *fixture) input(t *testing.T, diseases ...string) Input {
	t.Helper()
	in := Input{
		Symptoms: []models.ReportedSymptom{
			{SymptomID: catalogtest.SymptomID(t, f.snap, "Headache"), Severity: 7, Duration: models.DurationDays},
			{SymptomID: catalogtest.SymptomID(t, f.snap, "Nausea"), Severity: 4, Duration: models.DurationHours},
		},
	}
	for i, name := range diseases {
		d, ok := f.snap.Disease(catalogtest.DiseaseID(t, f.snap, name))
		require.True(t, ok)
		in.Diseases = append(in.Diseases, models.RankedDisease{Disease: d, MatchScore: float64(90 - i*10)})
	}
	for _, name := range []string{"Hydration Therapy", "Cold Compress", "Corpse Pose (Savasana)"} {
		r, ok := f.snap.Remedy(catalogtest.RemedyID(t, f.snap, name))
		require.True(t, ok)
		in.Remedies = append(in.Remedies, models.RankedRemedy{Remedy: r, MatchedDisease: true})
	}
	return in
}

func (f *fixture) create(t *testing.T, in Input) models.Report {
	t.Helper()
	built, err := f.service.Build(in)
	require.NoError(t, err)
	require.NoError(t, f.service.Create(context.Background(), &built))
	return built
}

func TestBuildDefaults(t *testing.T) {
	a := NewAssembler(nil)
	a.now = func() time.Time { return time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC) }

	report, err := a.Build(Input{})
	require.NoError(t, err)
	assert.Equal(t, models.ReportDraft, report.Status)
	assert.Equal(t, "Health Report - 2024-03-05", report.Title)
	assert.NotEqual(t, uuid.Nil, report.ShareToken)
	assert.Equal(t, uuid.Version(4), report.ShareToken.Version())
	assert.Empty(t, report.Diseases)
	assert.Empty(t, report.Remedies)
	assert.Nil(t, report.PatientID)

	completed, err := a.Build(Input{Status: models.ReportCompleted, Title: "  Follow-up  "})
	require.NoError(t, err)
	assert.Equal(t, models.ReportCompleted, completed.Status)
	assert.Equal(t, "Follow-up", completed.Title)

	_, err = a.Build(Input{Status: models.ReportShared})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestBuildAssignsRanksInInputOrder(t *testing.T) {
	f := newFixture(t)
	report, err := f.assembler.Build(f.input(t, "Insomnia", "Migraine", "Common Cold"))
	require.NoError(t, err)

	require.Len(t, report.Diseases, 3)
	for i, name := range []string{"Insomnia", "Migraine", "Common Cold"} {
		assert.Equal(t, name, report.Diseases[i].Name)
		assert.Equal(t, i+1, report.Diseases[i].Rank)
	}
	assert.Equal(t, 5, report.Remedies[0].EffectivenessRating)
}

func TestShareTokensNeverRepeat(t *testing.T) {
	a := NewAssembler(nil)
	frozen := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return frozen }
	patient := uint(7)

	seen := make(map[uuid.UUID]struct{})
	for i := 0; i < 2000; i++ {
		report, err := a.Build(Input{PatientID: &patient})
		require.NoError(t, err)
		_, dup := seen[report.ShareToken]
		require.False(t, dup, "token repeated after %d builds", i)
		seen[report.ShareToken] = struct{}{}
	}
}

func TestPersistRoundTripSurvivesCatalogEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report := f.create(t, f.input(t, "Migraine", "Tension Headache", "Insomnia"))
	require.NotZero(t, report.ID)

	migraine := catalogtest.DiseaseID(t, f.snap, "Migraine")
	require.NoError(t, f.db.Exec("DELETE FROM disease_symptoms WHERE disease_id = ?", migraine).Error)
	require.NoError(t, f.db.Exec("UPDATE diseases SET name = ? WHERE id = ?", "Vestibular Migraine", migraine).Error)

	stored, err := f.repo.Get(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Diseases, stored.Diseases)
	assert.Equal(t, report.Remedies, stored.Remedies)
	assert.Equal(t, report.Symptoms, stored.Symptoms)
	assert.Equal(t, "Migraine", stored.Diseases[0].Name)
	assert.Equal(t, report.ShareToken, stored.ShareToken)
}

func TestPersistEmptyAssessment(t *testing.T) {
	f := newFixture(t)
	report := f.create(t, Input{})

	stored, err := f.repo.Get(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportDraft, stored.Status)
	assert.Empty(t, stored.Symptoms)
	assert.Empty(t, stored.Diseases)
	assert.Empty(t, stored.Remedies)
}

func TestPersistFailureLeavesNothingBehind(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Migrator().DropTable("report_remedies"))

	built, err := f.service.Build(f.input(t, "Migraine"))
	require.NoError(t, err)
	err = f.service.Create(context.Background(), &built)
	require.Error(t, err)
	assert.True(t, IsPersistenceError(err))
	assert.Zero(t, built.ID)
	assert.Empty(t, f.events.events)

	for _, table := range []string{"reports", "report_symptoms", "report_diseases", "report_audit_logs"} {
		var n int64
		require.NoError(t, f.db.Table(table).Count(&n).Error)
		assert.Zero(t, n, table)
	}
	_, err = f.repo.GetByToken(context.Background(), built.ShareToken)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPersistRejectsSecondWrite(t *testing.T) {
	f := newFixture(t)
	report := f.create(t, Input{})

	err := f.assembler.Persist(context.Background(), &report)
	assert.True(t, IsPersistenceError(err))

	n, err := f.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCreatePublishesEvenWhenBrokerFails(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker unavailable")
	patient := uint(3)

	in := f.input(t, "Migraine")
	in.PatientID = &patient
	report := f.create(t, in)

	require.Len(t, f.events.events, 1)
	event := f.events.events[0]
	assert.Equal(t, models.EventReportCreated, event.eventType)
	assert.Equal(t, strconv.FormatUint(uint64(report.ID), 10), event.key)
	assert.Equal(t, []string{"Migraine"}, event.data["diseases"])
	assert.Equal(t, patient, event.data["patient_id"])
}

// stalledPublisher blocks like a broker that never acknowledges.
type stalledPublisher struct {
	hadDeadline bool
}

func (p *stalledPublisher) PublishEvent(ctx context.Context, _, _, _ string, _ map[string]interface{}) error {
	_, p.hadDeadline = ctx.Deadline()
	<-ctx.Done()
	return ctx.Err()
}

func TestCreateDoesNotWaitOnStalledBroker(t *testing.T) {
	f := newFixture(t)
	events := &stalledPublisher{}
	service := NewService(f.assembler, f.repo, events, WithPublishTimeout(20*time.Millisecond))

	built, err := service.Build(f.input(t, "Migraine"))
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, service.Create(context.Background(), &built))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, events.hadDeadline)

	stored, err := service.Get(context.Background(), built.ID)
	require.NoError(t, err)
	assert.Equal(t, built.ShareToken, stored.ShareToken)
}
