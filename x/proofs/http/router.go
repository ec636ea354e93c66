package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterMux binds gorilla/mux routes. Both submit routes sit behind the
// per-client throttle; they share one budget.
func (h *Handler) RegisterMux(r *mux.Router) {
	r.Handle(routeSubmitUnshield, h.submitLimit(http.HandlerFunc(h.handleSubmitUnshield))).
		Methods(http.MethodPost).
		Name(routeNameSubmitUnshield)
	r.Handle(routeSubmitTransfer, h.submitLimit(http.HandlerFunc(h.handleSubmitTransfer))).
		Methods(http.MethodPost).
		Name(routeNameSubmitTransfer)
	r.HandleFunc(routeStatusByID, h.handleStatus).Methods(http.MethodGet).Name(routeNameStatusByID)
}
