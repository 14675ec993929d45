// internal/handlers/game_server.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/scoresheet/internal/game"
	"github.com/jason-s-yu/scoresheet/internal/middleware"
	"github.com/jason-s-yu/scoresheet/internal/models"
	"github.com/sirupsen/logrus"
)

// EventSink receives lifecycle events for persistence. *sink.QueueSink satisfies it.
type EventSink interface {
	Attach(s *game.Session)
	GameStarted(ctx context.Context, snap models.SessionSnapshot) error
	GameDiscarded(ctx context.Context, id uuid.UUID) error
}

// SnapshotStore keeps paused sheets. *cache.Store satisfies it.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap models.SessionSnapshot) error
	LoadSnapshot(ctx context.Context, id uuid.UUID) (models.SessionSnapshot, error)
	DeleteSnapshot(ctx context.Context, id uuid.UUID) error
}

// HistoryFunc lists an owner's completed games, newest first.
type HistoryFunc func(ctx context.Context, ownerID string, limit int) ([]models.GameOutcome, error)

// GameServer holds the live scoresheets and the optional backing services. Any of Sink,
// Snapshots and History may be nil; the routes that need them then answer 503.
type GameServer struct {
	Sessions  *game.SessionStore
	Sink      EventSink
	Snapshots SnapshotStore
	History   HistoryFunc
	Logger    *logrus.Logger

	// FinishedTTL is how long a finished sheet stays readable before it is evicted.
	// Zero evicts immediately after the final broadcast.
	FinishedTTL time.Duration

	hub *Hub
}

// DefaultFinishedTTL keeps a finished sheet around long enough for renderers to show the result.
const DefaultFinishedTTL = 10 * time.Minute

func NewGameServer(logger *logrus.Logger) *GameServer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &GameServer{
		Sessions:    game.NewSessionStore(),
		Logger:      logger,
		FinishedTTL: DefaultFinishedTTL,
		hub:         NewHub(logger),
	}
}

// adopt registers a session, wiring persistence hooks first.
func (gs *GameServer) adopt(s *game.Session) *game.Table {
	if gs.Sink != nil {
		gs.Sink.Attach(s)
	}
	return gs.Sessions.AddSession(s)
}

// publish pushes the current sheet to every renderer watching it. Callers hold the table lock.
func (gs *GameServer) publish(s *game.Session) {
	gs.hub.Broadcast(s.ID, map[string]interface{}{
		"type":  "scoresheet",
		"state": s.Snapshot(),
	})
	if w, ok := s.Winner(); ok && s.State() == game.StateFinished {
		gs.hub.Broadcast(s.ID, map[string]interface{}{
			"type":   "game_end",
			"winner": w,
			"totals": s.Totals(),
		})
	}
}

// scheduleEviction retires t once FinishedTTL has passed, provided the sheet is still finished
// and nothing else retired it first.
func (gs *GameServer) scheduleEviction(t *game.Table) {
	time.AfterFunc(gs.FinishedTTL, func() {
		t.Mu.Lock()
		if t.Gone || t.Session.State() != game.StateFinished {
			t.Mu.Unlock()
			return
		}
		gs.Sessions.Retire(t)
		t.Mu.Unlock()
		gs.hub.CloseAll(t.Session.ID, websocket.StatusNormalClosure, "game finished")
		gs.Logger.WithField("game_id", t.Session.ID).Debug("evicted finished game")
	})
}

// logCtx returns a log entry carrying the request id stored in ctx, if any.
func (gs *GameServer) logCtx(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(gs.Logger)
	if id := middleware.RequestID(ctx); id != "" {
		entry = entry.WithField("request_id", id)
	}
	return entry
}

func (gs *GameServer) log(r *http.Request) *logrus.Entry {
	return gs.logCtx(r.Context())
}

func (gs *GameServer) logWarning(r *http.Request, s *game.Session, op string, err error) {
	if err == nil {
		return
	}
	gs.log(r).WithFields(logrus.Fields{
		"game_id": s.ID,
		"op":      op,
	}).WithError(err).Warn("persistence hook failed")
}
