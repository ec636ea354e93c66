package api

import (
	"net/http"

	"github.com/whalevault/relayd/x/vaulterr"
)

// WriteErrorFrom maps an error onto the standard error envelope. Typed errors
// keep their code, status and details; anything else surfaces as a generic
// internal error.
func WriteErrorFrom(w http.ResponseWriter, r *http.Request, err error) {
	verr := vaulterr.From(err)

	var details any
	if len(verr.Details) > 0 {
		details = verr.Details
	}
	WriteError(w, r, verr.Status, string(verr.Code), verr.Message, details)
}
