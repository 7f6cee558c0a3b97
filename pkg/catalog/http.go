package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/healthpredictor/platform/pkg/common/logger"
	"github.com/healthpredictor/platform/pkg/common/models"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/symptoms", h.handleListSymptoms).Methods(http.MethodGet)
	r.HandleFunc("/symptoms/search", h.handleSearchSymptoms).Methods(http.MethodGet)
	r.HandleFunc("/symptoms/body-parts", h.handleBodyParts).Methods(http.MethodGet)
	r.HandleFunc("/symptoms/{id:[0-9]+}", h.handleGetSymptom).Methods(http.MethodGet)
}

// handleListSymptoms returns the flat list plus a body-part grouping for
// the symptom picker. Symptoms without a body part are grouped as "Other".
func (h *Handler) handleListSymptoms(w http.ResponseWriter, r *http.Request) {
	symptoms, err := h.repo.ListSymptoms(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list symptoms")
		http.Error(w, "failed to list symptoms", http.StatusInternalServerError)
		return
	}
	grouped := make(map[string][]models.Symptom)
	for _, s := range symptoms {
		part := "Other"
		if s.BodyPart != nil && *s.BodyPart != "" {
			part = *s.BodyPart
		}
		grouped[part] = append(grouped[part], s)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": symptoms, "by_body_part": grouped})
}

func (h *Handler) handleSearchSymptoms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symptoms, err := h.repo.SearchSymptoms(r.Context(), q.Get("q"), q.Get("body_part"), parseLimit(r, defaultSearchLimit))
	if err != nil {
		logger.Log.WithError(err).Error("failed to search symptoms")
		http.Error(w, "failed to search symptoms", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": symptoms})
}

func (h *Handler) handleBodyParts(w http.ResponseWriter, r *http.Request) {
	parts, err := h.repo.BodyParts(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list body parts")
		http.Error(w, "failed to list body parts", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": parts})
}

func (h *Handler) handleGetSymptom(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		http.Error(w, "invalid symptom id", http.StatusBadRequest)
		return
	}
	symptom, err := h.repo.GetSymptom(r.Context(), uint(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "symptom not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to get symptom")
		http.Error(w, "failed to get symptom", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"symptom": symptom})
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
