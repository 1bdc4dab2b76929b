package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ponytojas/go-parking-monitor/internal/display"
)

// IndicatorSource provides the current indicator states
type IndicatorSource interface {
	Indicators() ([]display.Indicator, time.Time)
}

type handlers struct {
	source IndicatorSource
}

type zonesResponse struct {
	Zones     []display.Indicator `json:"zones"`
	UpdatedAt *time.Time          `json:"updated_at,omitempty"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) zones(w http.ResponseWriter, _ *http.Request) {
	indicators, updatedAt := h.source.Indicators()
	resp := zonesResponse{Zones: indicators}
	if !updatedAt.IsZero() {
		resp.UpdatedAt = &updatedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) zone(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["zone"]
	indicators, _ := h.source.Indicators()
	for _, indicator := range indicators {
		if indicator.Zone == id {
			writeJSON(w, http.StatusOK, indicator)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown zone " + id})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
