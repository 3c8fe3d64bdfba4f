// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the live game stream.
// These provide more specific reasons for closure than standard codes.
const (
	BadSubprotocolError     = 3000 // Client connected with an unsupported subprotocol.
	GameNotFoundError       = 3003 // Target game ID specified in the WS URL has no record.
	UnknownParticipantError = 3004 // The player query parameter names no seat in the game.
	StreamFailedError       = 3005 // The change subscription could not be established or broke.
)
