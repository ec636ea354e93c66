package http

// Route patterns for the proof pipeline HTTP surface.
const (
	routeSubmitUnshield = "/v1/unshield/proof"
	routeSubmitTransfer = "/v1/transfer/proof"
	routeStatusByID     = "/v1/proof/status/{jobID}"
)

// Route names for mux URL building.
const (
	routeNameSubmitUnshield = "proofs_submit_unshield"
	routeNameSubmitTransfer = "proofs_submit_transfer"
	routeNameStatusByID     = "proofs_status_by_id"
)

// Submission throttle per client IP. Proof generation is expensive; status
// polling stays unthrottled.
const (
	submitPerMinute = 5
	submitBurst     = 5
)
