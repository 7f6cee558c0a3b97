package assessment

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/healthpredictor/platform/pkg/catalog/catalogtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(router *mux.Router, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rec
}

func newRouter(f *fixture) *mux.Router {
	router := mux.NewRouter()
	NewHandler(f.service).Register(router)
	return router
}

func TestHandlerAssessments(t *testing.T) {
	f := newFixture(t, false)
	router := newRouter(f)
	headache := catalogtest.SymptomID(t, f.snap, "Headache")
	nausea := catalogtest.SymptomID(t, f.snap, "Nausea")

	assert.Equal(t, http.StatusBadRequest, post(router, "/assessments", `{"symptoms":[]}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(router, "/assessments", `{"symptoms":[`).Code)

	body := fmt.Sprintf(`{"symptoms":[{"symptom_id":%d,"severity":11}]}`, headache)
	assert.Equal(t, http.StatusBadRequest, post(router, "/assessments", body).Code)

	body = fmt.Sprintf(`{"symptoms":[{"symptom_id":%d},{"symptom_id":%d,"severity":8,"duration":"weeks"}]}`, headache, nausea)
	rec := post(router, "/assessments", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var anonymous struct {
		Assessment Result `json:"assessment"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &anonymous))
	assert.False(t, anonymous.Assessment.Persisted)
	require.Len(t, anonymous.Assessment.Report.Symptoms, 2)
	assert.Equal(t, 5, anonymous.Assessment.Report.Symptoms[0].Severity)
	assert.Equal(t, 8, anonymous.Assessment.Report.Symptoms[1].Severity)

	body = fmt.Sprintf(`{"patient_id":1,"title":"Check","symptoms":[{"symptom_id":%d}]}`, headache)
	rec = post(router, "/assessments", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var stored struct {
		Assessment Result `json:"assessment"`
		SharePath  string `json:"share_path"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.True(t, stored.Assessment.Persisted)
	assert.Equal(t, "/shared/"+stored.Assessment.Report.ShareToken.String(), stored.SharePath)
}

func TestHandlerPredictionsAndRecommendations(t *testing.T) {
	f := newFixture(t, false)
	router := newRouter(f)
	headache := catalogtest.SymptomID(t, f.snap, "Headache")

	rec := post(router, "/predictions", `{"symptom_ids":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"predictions":[],"skipped_symptom_ids":[]}`, rec.Body.String())

	rec = post(router, "/predictions", fmt.Sprintf(`{"symptom_ids":[%d]}`, headache))
	require.Equal(t, http.StatusOK, rec.Code)
	var predicted PredictionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &predicted))
	assert.Len(t, predicted.Predictions, 5)

	rec = post(router, "/recommendations", fmt.Sprintf(`{"symptom_ids":[%d]}`, headache))
	require.Equal(t, http.StatusOK, rec.Code)
	var recommended RecommendationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recommended))
	require.NotEmpty(t, recommended.Remedies)
	assert.Equal(t, "Hydration Therapy", recommended.Remedies[0].Remedy.Name)
}
