package constants

// HTTP and WebSocket route paths.
const (
	PathHealth   = "/health"
	PathReady    = "/ready"
	PathMessages = "/messages"
	PathWSGroup  = "/ws/group/:group_id"
)
