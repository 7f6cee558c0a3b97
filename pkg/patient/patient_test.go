package patient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/healthpredictor/platform/pkg/common/database"
	"github.com/healthpredictor/platform/pkg/common/models"
	"github.com/healthpredictor/platform/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	service *Service
	reports *report.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	repo := NewRepository(db)
	require.NoError(t, repo.AutoMigrate())
	reportRepo := report.NewRepository(db)
	require.NoError(t, reportRepo.AutoMigrate())
	reports := report.NewService(report.NewAssembler(db), reportRepo, nil)
	return &fixture{service: NewService(repo, reports), reports: reports}
}

func jane() models.PatientRequest {
	return models.PatientRequest{Name: " Jane Doe ", Age: 34, Gender: "f", Email: "jane@example.com"}
}

func TestCreateNormalizesAndValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.service.Create(ctx, jane())
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, "Jane Doe", p.Name)
	assert.Equal(t, "F", p.Gender)

	bad := []models.PatientRequest{
		{Name: "", Age: 30, Gender: "M"},
		{Name: "Old", Age: 151, Gender: "M"},
		{Name: "X", Age: 30, Gender: "Q"},
		{Name: "X", Age: 30, Gender: "O", Email: "not-an-email"},
		{Name: "X", Age: 30, Gender: "O", Phone: "+1 555 0100 0000 99"},
	}
	for _, req := range bad {
		_, err := f.service.Create(ctx, req)
		assert.ErrorIs(t, err, ErrInvalid, "%+v", req)
	}

	n, err := f.service.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestListPagesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		_, err := f.service.Create(ctx, models.PatientRequest{Name: fmt.Sprintf("Patient %02d", i), Age: 40, Gender: "O"})
		require.NoError(t, err)
	}

	first, err := f.service.List(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, int64(12), first.Total)
	require.Len(t, first.Items, PageSize)
	assert.Equal(t, "Patient 11", first.Items[0].Name)

	second, err := f.service.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Equal(t, "Patient 00", second.Items[1].Name)
}

func TestUpdateExistsAndName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.service.Create(ctx, jane())
	require.NoError(t, err)

	req := jane()
	req.Name = "Jane Smith"
	req.MedicalHistory = "asthma"
	updated, err := f.service.Update(ctx, p.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", updated.Name)
	assert.Equal(t, "asthma", updated.MedicalHistory)

	_, err = f.service.Update(ctx, 999, req)
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := f.service.Exists(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.service.Exists(ctx, 999)
	require.NoError(t, err)
	assert.False(t, ok)

	name, err := f.service.PatientName(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", name)
	_, err = f.service.PatientName(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHandlerPatientLifecycle(t *testing.T) {
	f := newFixture(t)
	router := mux.NewRouter()
	NewHandler(f.service).Register(router)

	serve := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rec
	}

	assert.Equal(t, http.StatusBadRequest, serve(http.MethodPost, "/patients", `{"name":"","gender":"M"}`).Code)

	rec := serve(http.MethodPost, "/patients", `{"name":"Sam","age":51,"gender":"M"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Patient models.Patient `json:"patient"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	built, err := f.reports.Build(report.Input{PatientID: &created.Patient.ID})
	require.NoError(t, err)
	require.NoError(t, f.reports.Create(context.Background(), &built))

	rec = serve(http.MethodGet, fmt.Sprintf("/patients/%d", created.Patient.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Patient models.Patient         `json:"patient"`
		Reports []models.ReportSummary `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "Sam", detail.Patient.Name)
	require.Len(t, detail.Reports, 1)
	assert.Equal(t, built.ID, detail.Reports[0].ID)

	assert.Equal(t, http.StatusNotFound, serve(http.MethodGet, "/patients/404", "").Code)
	assert.Equal(t, http.StatusOK, serve(http.MethodPut, fmt.Sprintf("/patients/%d", created.Patient.ID), `{"name":"Samuel","age":52,"gender":"M"}`).Code)

	rec = serve(http.MethodGet, "/patients?page=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Samuel"`)
}
