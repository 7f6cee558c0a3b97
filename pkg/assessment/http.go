package assessment

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/healthpredictor/platform/pkg/common/logger"
	"github.com/healthpredictor/platform/pkg/common/models"
	"github.com/healthpredictor/platform/pkg/report"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/predictions", h.handlePredict).Methods(http.MethodPost)
	r.HandleFunc("/recommendations", h.handleRecommend).Methods(http.MethodPost)
	r.HandleFunc("/assessments", h.handleAssess).Methods(http.MethodPost)
}

type predictRequest struct {
	SymptomIDs []uint `json:"symptom_ids"`
}

type recommendRequest struct {
	DiseaseIDs []uint `json:"disease_ids"`
	SymptomIDs []uint `json:"symptom_ids"`
}

type symptomEntry struct {
	SymptomID uint            `json:"symptom_id"`
	Severity  int             `json:"severity,omitempty"`
	Duration  models.Duration `json:"duration,omitempty"`
}

type assessRequest struct {
	PatientID *uint               `json:"patient_id,omitempty"`
	Title     string              `json:"title"`
	Notes     string              `json:"notes"`
	Status    models.ReportStatus `json:"status,omitempty"`
	Persist   bool                `json:"persist"`
	Symptoms  []symptomEntry      `json:"symptoms"`
}

// draft turns the request into a Draft. Entries without a severity or
// duration keep the defaults from Select.
func (req assessRequest) draft() (*Draft, error) {
	d := &Draft{
		PatientID: req.PatientID,
		Title:     req.Title,
		Notes:     req.Notes,
		Status:    req.Status,
		Persist:   req.Persist,
	}
	ids := make([]uint, 0, len(req.Symptoms))
	for _, s := range req.Symptoms {
		ids = append(ids, s.SymptomID)
	}
	if err := d.Select(ids...); err != nil {
		return nil, err
	}
	for _, s := range req.Symptoms {
		if s.Severity == 0 && s.Duration == "" {
			continue
		}
		rating := d.Ratings[s.SymptomID]
		if s.Severity != 0 {
			rating.Severity = s.Severity
		}
		if s.Duration != "" {
			rating.Duration = s.Duration
		}
		if err := d.Rate(s.SymptomID, rating.Severity, rating.Duration); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	result, err := h.service.Predict(r.Context(), req.SymptomIDs)
	if err != nil {
		writeError(w, err, "failed to predict conditions")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	result, err := h.service.Recommend(r.Context(), req.DiseaseIDs, req.SymptomIDs)
	if err != nil {
		writeError(w, err, "failed to recommend remedies")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleAssess(w http.ResponseWriter, r *http.Request) {
	var req assessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	draft, err := req.draft()
	if err != nil {
		writeError(w, err, "invalid assessment")
		return
	}
	result, err := h.service.Assess(r.Context(), draft)
	if err != nil {
		writeError(w, err, "failed to run assessment")
		return
	}

	payload := map[string]interface{}{"assessment": result}
	status := http.StatusOK
	if result.Persisted {
		status = http.StatusCreated
		payload["share_path"] = result.Report.SharePath()
	}
	writeJSON(w, status, payload)
}

func writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case IsValidationError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case report.IsPersistenceError(err):
		logger.Log.WithError(err).Error(msg)
		http.Error(w, "failed to save report", http.StatusInternalServerError)
	default:
		logger.Log.WithError(err).Error(msg)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
