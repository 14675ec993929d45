// internal/handlers/api_server.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/scoresheet/internal/middleware"
	"github.com/sirupsen/logrus"
)

// NewRouter wires every route behind the logging middleware.
func NewRouter(logger *logrus.Logger, gs *GameServer) http.Handler {
	mux := http.NewServeMux()

	// identity
	mux.HandleFunc("POST /auth/guest", GuestHandler)

	// scoresheet
	mux.HandleFunc("POST /game/start", StartGameHandler(gs))
	mux.HandleFunc("GET /game", ListGamesHandler(gs))
	mux.HandleFunc("GET /game/history", HistoryHandler(gs))
	mux.HandleFunc("GET /game/{id}", GetGameHandler(gs))
	mux.HandleFunc("DELETE /game/{id}", DeleteGameHandler(gs))
	mux.HandleFunc("POST /game/{id}/entry", RecordEntryHandler(gs))
	mux.HandleFunc("POST /game/{id}/advance", AdvanceRoundHandler(gs))
	mux.HandleFunc("POST /game/{id}/complete", CompleteGameHandler(gs))
	mux.HandleFunc("POST /game/{id}/pause", PauseGameHandler(gs))
	mux.HandleFunc("POST /game/{id}/resume", ResumeGameHandler(gs))

	// renderer socket
	mux.HandleFunc("GET /game/ws/{id}", GameWSHandler(logger, gs))

	return middleware.LogMiddleware(logger)(mux)
}
