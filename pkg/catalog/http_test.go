package catalog_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/healthpredictor/platform/pkg/catalog"
	"github.com/healthpredictor/platform/pkg/catalog/catalogtest"
	"github.com/healthpredictor/platform/pkg/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogRouter(t *testing.T) *mux.Router {
	db := catalogtest.OpenDB(t)
	repo, _ := catalogtest.Seeded(t, db)
	router := mux.NewRouter()
	catalog.NewHandler(repo).Register(router)
	return router
}

func TestHandlerListSymptomsGroupsByBodyPart(t *testing.T) {
	router := newCatalogRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/symptoms", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items      []models.Symptom            `json:"items"`
		ByBodyPart map[string][]models.Symptom `json:"by_body_part"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Items, 30)
	assert.Len(t, body.ByBodyPart["Head"], 5)
	assert.Len(t, body.ByBodyPart["Skin"], 1)
}

func TestHandlerSearchAndLookup(t *testing.T) {
	router := newCatalogRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/symptoms/search?q=cough", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Cough"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/symptoms/body-parts", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":["Abdomen","Chest","General","Head","Limbs","Skin"]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/symptoms/9999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
