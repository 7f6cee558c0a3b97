package insights

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/healthpredictor/platform/pkg/common/logger"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/dashboard", h.handleDashboard).Methods(http.MethodGet)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to build dashboard")
		http.Error(w, "failed to build dashboard", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"dashboard": d})
}
