package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterMux binds gorilla/mux routes.
func (h *Handler) RegisterMux(r *mux.Router) {
	r.HandleFunc(routeRelayInfo, h.handleInfo).Methods(http.MethodGet).Name(routeNameRelayInfo)
	r.HandleFunc(routeRelayUnshield, h.handleUnshield).
		Methods(http.MethodPost).
		Name(routeNameRelayUnshield)
	r.HandleFunc(routeRelayTransfer, h.handleTransfer).
		Methods(http.MethodPost).
		Name(routeNameRelayTransfer)
}
