package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter exposes the indicator states read-only
func NewRouter(source IndicatorSource) *mux.Router {
	h := &handlers{source: source}

	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/zones", h.zones).Methods(http.MethodGet)
	r.HandleFunc("/zones/{zone}", h.zone).Methods(http.MethodGet)

	return r
}
