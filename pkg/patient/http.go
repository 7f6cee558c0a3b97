package patient

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
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/patients", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/patients", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id:[0-9]+}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id:[0-9]+}", h.handleUpdate).Methods(http.MethodPut)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.PatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	p, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeError(w, err, "failed to create patient")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"patient": p})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	result, err := h.service.List(r.Context(), page)
	if err != nil {
		writeError(w, err, "failed to list patients")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := patientID(w, r)
	if !ok {
		return
	}
	p, reports, err := h.service.GetWithReports(r.Context(), id)
	if err != nil {
		writeError(w, err, "failed to get patient")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"patient": p, "reports": reports})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := patientID(w, r)
	if !ok {
		return
	}
	var req models.PatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	p, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, err, "failed to update patient")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"patient": p})
}

func patientID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return 0, false
	}
	return uint(id), true
}

func writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrInvalid):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "patient not found", http.StatusNotFound)
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
