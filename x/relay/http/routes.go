package http

// Route patterns for the relay HTTP surface.
const (
	routeRelayInfo     = "/v1/relay/info"
	routeRelayUnshield = "/v1/relay/unshield"
	routeRelayTransfer = "/v1/relay/transfer"
)

// Route names for mux URL building.
const (
	routeNameRelayInfo     = "relay_info"
	routeNameRelayUnshield = "relay_unshield"
	routeNameRelayTransfer = "relay_transfer"
)
