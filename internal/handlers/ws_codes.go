// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the scoresheet socket.
const (
	BadSubprotocolError websocket.StatusCode = 3000 // Client connected without the scoresheet subprotocol.
	GamePausedClose     websocket.StatusCode = 3001 // The sheet was paused and dropped from memory.
	GameDiscardedClose  websocket.StatusCode = 3002 // The sheet was reset.
)
