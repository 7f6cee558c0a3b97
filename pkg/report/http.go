package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/healthpredictor/platform/pkg/common/logger"
	"github.com/healthpredictor/platform/pkg/common/models"
)

type Handler struct {
	service  *Service
	exporter *Exporter
}

func NewHandler(service *Service, exporter *Exporter) *Handler {
	return &Handler{service: service, exporter: exporter}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/reports/{id:[0-9]+}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/reports/{id:[0-9]+}", h.handleUpdate).Methods(http.MethodPut)
	r.HandleFunc("/reports/{id:[0-9]+}/status", h.handleStatus).Methods(http.MethodPatch)
	r.HandleFunc("/reports/{id:[0-9]+}/share", h.handleShare).Methods(http.MethodPost)
	r.HandleFunc("/reports/{id:[0-9]+}/audit", h.handleAudit).Methods(http.MethodGet)
	r.HandleFunc("/reports/{id:[0-9]+}/export/{format}", h.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/shared/{token}", h.handleShared).Methods(http.MethodGet)
}

type updateRequest struct {
	Title string `json:"title"`
	Notes string `json:"notes"`
}

type statusRequest struct {
	Status models.ReportStatus `json:"status"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	report, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err, "failed to get report")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"report": report})
}

func (h *Handler) handleShared(w http.ResponseWriter, r *http.Request) {
	token, err := uuid.Parse(mux.Vars(r)["token"])
	if err != nil {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}
	report, err := h.service.Shared(r.Context(), token)
	if err != nil {
		writeError(w, err, "failed to get shared report")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"report": report})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if len(req.Title) > 200 {
		http.Error(w, "title must be at most 200 characters", http.StatusBadRequest)
		return
	}
	report, err := h.service.UpdateDetails(r.Context(), id, req.Title, req.Notes)
	if err != nil {
		writeError(w, err, "failed to update report")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"report": report})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if !req.Status.Valid() {
		http.Error(w, "status must be one of draft, completed, shared", http.StatusBadRequest)
		return
	}
	report, err := h.service.AdvanceStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, err, "failed to change report status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"report": report})
}

func (h *Handler) handleShare(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	report, path, err := h.service.Share(r.Context(), id)
	if err != nil {
		writeError(w, err, "failed to share report")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"report": report, "share_path": path})
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	entries, err := h.service.Audit(r.Context(), id)
	if err != nil {
		writeError(w, err, "failed to list audit log")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": entries})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	format := mux.Vars(r)["format"]
	report, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err, "failed to export report")
		return
	}

	var buf bytes.Buffer
	if err := h.exporter.Export(r.Context(), &buf, report, format); err != nil {
		switch {
		case errors.Is(err, ErrExportNotImplemented):
			http.Error(w, format+" export is not available yet", http.StatusNotImplemented)
		case errors.Is(err, ErrUnsupportedFormat):
			http.Error(w, "unsupported export format", http.StatusBadRequest)
		default:
			logger.Log.WithError(err).WithField("report_id", id).Error("failed to export report")
			http.Error(w, "failed to export report", http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFilename(report, format)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func reportID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		http.Error(w, "invalid report id", http.StatusBadRequest)
		return 0, false
	}
	return uint(id), true
}

// writeError maps report errors onto status codes; anything unexpected is
// logged and hidden behind msg.
func writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "report not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
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
