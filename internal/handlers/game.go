// internal/handlers/game.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/jason-s-yu/scoresheet/internal/auth"
	"github.com/jason-s-yu/scoresheet/internal/cache"
	"github.com/jason-s-yu/scoresheet/internal/game"
	"github.com/jason-s-yu/scoresheet/internal/models"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type startRequest struct {
	Players []string `json:"players"`
}

type entryRequest struct {
	Round  *int   `json:"round"`
	Player *int   `json:"player"`
	Field  string `json:"field"`
	Value  *int   `json:"value"`
}

// entryResponse carries the recomputed cell. Warning is set when the value was kept but is
// outside its legal range.
type entryResponse struct {
	game.EntryResult
	Warning string `json:"warning,omitempty"`
}

type advanceResponse struct {
	game.AdvanceResult
	Warning string `json:"warning,omitempty"`
}

type completeResponse struct {
	game.GameResult
	Warning string `json:"warning,omitempty"`
}

// StartGameHandler creates a scoresheet for the caller and opens round 1.
//
// Request payload:
//
//	{ "players": ["Alice", "Bob", "Carol"] }
func StartGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := authenticate(w, r)
		if !ok {
			return
		}
		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid start payload", nil)
			return
		}

		s, err := game.StartSession(req.Players)
		if err != nil {
			writeGameError(w, err)
			return
		}
		s.OwnerID = owner
		gs.adopt(s)

		snap := s.Snapshot()
		if gs.Sink != nil {
			gs.logWarning(r, s, "start", gs.Sink.GameStarted(r.Context(), snap))
		}
		gs.log(r).WithField("game_id", s.ID).Infof("Started %d-player scoresheet", s.PlayerCount())
		writeJSON(w, http.StatusCreated, snap)
	}
}

// ListGamesHandler returns the ids of the caller's live scoresheets.
func ListGamesHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := authenticate(w, r)
		if !ok {
			return
		}
		ids := gs.Sessions.SessionsByOwner(owner)
		sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
		writeJSON(w, http.StatusOK, map[string]interface{}{"games": ids})
	}
}

// GetGameHandler returns the current sheet.
func GetGameHandler(gs *GameServer) http.HandlerFunc {
	return withTable(gs, func(w http.ResponseWriter, r *http.Request, t *game.Table) {
		writeJSON(w, http.StatusOK, t.Session.Snapshot())
	})
}

// RecordEntryHandler sets one bid or tricks cell.
//
// Request payload:
//
//	{ "round": 0, "player": 2, "field": "bid", "value": 4 }
func RecordEntryHandler(gs *GameServer) http.HandlerFunc {
	return withTable(gs, func(w http.ResponseWriter, r *http.Request, t *game.Table) {
		s := t.Session
		var req entryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Round == nil || req.Player == nil || req.Value == nil {
			writeError(w, http.StatusBadRequest, "invalid entry payload", nil)
			return
		}
		field, err := game.ParseField(req.Field)
		if err != nil {
			writeGameError(w, err)
			return
		}

		res, err := s.RecordEntry(*req.Round, *req.Player, field, *req.Value)
		var rangeErr *game.FieldRangeError
		if err != nil && !errors.As(err, &rangeErr) {
			writeGameError(w, err)
			return
		}
		gs.publish(s)
		writeJSON(w, http.StatusOK, entryResponse{EntryResult: res, Warning: warningText(err)})
	})
}

// AdvanceRoundHandler locks the open round. A round that does not validate is answered with
// 409 and the list of reasons.
func AdvanceRoundHandler(gs *GameServer) http.HandlerFunc {
	return withTable(gs, func(w http.ResponseWriter, r *http.Request, t *game.Table) {
		s := t.Session
		res, err := s.AdvanceRound(r.Context())
		if err != nil {
			writeGameError(w, err)
			return
		}
		gs.logWarning(r, s, "advance", res.Warning)
		gs.publish(s)
		if res.Finished {
			gs.scheduleEviction(t)
		}
		writeJSON(w, http.StatusOK, advanceResponse{AdvanceResult: res, Warning: warningText(res.Warning)})
	})
}

// CompleteGameHandler ends the game after the current round and declares the leader winner.
func CompleteGameHandler(gs *GameServer) http.HandlerFunc {
	return withTable(gs, func(w http.ResponseWriter, r *http.Request, t *game.Table) {
		s := t.Session
		res, err := s.CompleteGame(r.Context())
		if err != nil {
			writeGameError(w, err)
			return
		}
		gs.logWarning(r, s, "complete", res.Warning)
		gs.publish(s)
		gs.scheduleEviction(t)
		writeJSON(w, http.StatusOK, completeResponse{GameResult: res, Warning: warningText(res.Warning)})
	})
}

// PauseGameHandler stores the sheet in Redis and drops it from memory.
func PauseGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gs.Snapshots == nil {
			writeError(w, http.StatusServiceUnavailable, "pausing is not available", nil)
			return
		}
		var snapID uuid.UUID
		withTable(gs, func(w http.ResponseWriter, r *http.Request, t *game.Table) {
			s := t.Session
			if s.State() == game.StateFinished {
				writeGameError(w, game.ErrNotInProgress)
				return
			}
			snap := s.Snapshot()
			if err := gs.Snapshots.SaveSnapshot(r.Context(), snap); err != nil {
				gs.log(r).WithField("game_id", s.ID).WithError(err).Error("failed to save snapshot")
				writeError(w, http.StatusInternalServerError, "failed to pause game", nil)
				return
			}
			gs.Sessions.Retire(t)
			snapID = s.ID
			writeJSON(w, http.StatusOK, snap)
		})(w, r)

		if snapID != uuid.Nil {
			gs.hub.CloseAll(snapID, GamePausedClose, "game paused")
		}
	}
}

// ResumeGameHandler brings a paused sheet back into memory. Resuming a sheet that is already
// live just returns it.
func ResumeGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := authenticate(w, r)
		if !ok {
			return
		}
		id, ok := parseGameID(w, r)
		if !ok {
			return
		}
		if t, live := gs.Sessions.GetTable(id); live {
			if t.Session.OwnerID != owner {
				writeError(w, http.StatusForbidden, "not your game", nil)
				return
			}
			t.Mu.Lock()
			if !t.Gone {
				defer t.Mu.Unlock()
				writeJSON(w, http.StatusOK, t.Session.Snapshot())
				return
			}
			// paused while we waited; fall through to the stored snapshot
			t.Mu.Unlock()
		}
		if gs.Snapshots == nil {
			writeError(w, http.StatusServiceUnavailable, "resuming is not available", nil)
			return
		}

		snap, ok := gs.loadOwnedSnapshot(w, r.Context(), id, owner)
		if !ok {
			return
		}
		s, err := game.RestoreSession(snap)
		if err != nil {
			gs.log(r).WithField("game_id", id).WithError(err).Error("stored snapshot does not replay")
			writeError(w, http.StatusUnprocessableEntity, err.Error(), nil)
			return
		}
		t := gs.adopt(s)
		if s.State() == game.StateFinished {
			gs.scheduleEviction(t)
		}
		if err := gs.Snapshots.DeleteSnapshot(r.Context(), id); err != nil {
			gs.logWarning(r, s, "resume", err)
		}
		writeJSON(w, http.StatusOK, s.Snapshot())
	}
}

// DeleteGameHandler resets a sheet, live or paused.
func DeleteGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := authenticate(w, r)
		if !ok {
			return
		}
		id, ok := parseGameID(w, r)
		if !ok {
			return
		}

		t, live := gs.Sessions.GetTable(id)
		if live {
			if t.Session.OwnerID != owner {
				writeError(w, http.StatusForbidden, "not your game", nil)
				return
			}
			t.Mu.Lock()
			if t.Gone {
				// paused or evicted while we waited; a paused sheet is still discarded below
				live = false
			} else {
				gs.Sessions.Retire(t)
			}
			t.Mu.Unlock()
		}
		if live {
			gs.hub.CloseAll(id, GameDiscardedClose, "game discarded")
		} else {
			if gs.Snapshots == nil {
				writeError(w, http.StatusNotFound, "game not found", nil)
				return
			}
			if _, ok := gs.loadOwnedSnapshot(w, r.Context(), id, owner); !ok {
				return
			}
		}

		if gs.Snapshots != nil {
			if err := gs.Snapshots.DeleteSnapshot(r.Context(), id); err != nil {
				gs.log(r).WithField("game_id", id).WithError(err).Warn("failed to delete snapshot")
			}
		}
		if gs.Sink != nil {
			if err := gs.Sink.GameDiscarded(r.Context(), id); err != nil {
				gs.log(r).WithField("game_id", id).WithError(err).Warn("failed to queue discard")
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HistoryHandler lists the caller's completed games from Postgres.
func HistoryHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := authenticate(w, r)
		if !ok {
			return
		}
		if gs.History == nil {
			writeError(w, http.StatusServiceUnavailable, "history is not available", nil)
			return
		}
		limit := defaultHistoryLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "invalid limit", nil)
				return
			}
			limit = min(n, maxHistoryLimit)
		}

		games, err := gs.History(r.Context(), owner, limit)
		if err != nil {
			gs.log(r).WithField("owner", owner).WithError(err).Error("failed to list games")
			writeError(w, http.StatusInternalServerError, "failed to list games", nil)
			return
		}
		if games == nil {
			games = []models.GameOutcome{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"games": games})
	}
}

// withTable authenticates the caller, finds the live sheet and runs fn under its lock. A table
// retired while the request waited for the lock is answered like a missing one.
func withTable(gs *GameServer, fn func(w http.ResponseWriter, r *http.Request, t *game.Table)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := authenticate(w, r)
		if !ok {
			return
		}
		id, ok := parseGameID(w, r)
		if !ok {
			return
		}
		t, ok := gs.Sessions.GetTable(id)
		if !ok {
			writeError(w, http.StatusNotFound, "game not found", nil)
			return
		}
		if t.Session.OwnerID != owner {
			writeError(w, http.StatusForbidden, "not your game", nil)
			return
		}

		t.Mu.Lock()
		defer t.Mu.Unlock()
		if t.Gone {
			writeError(w, http.StatusNotFound, "game not found", nil)
			return
		}
		fn(w, r, t)
	}
}

func (gs *GameServer) loadOwnedSnapshot(w http.ResponseWriter, ctx context.Context, id uuid.UUID, owner string) (models.SessionSnapshot, bool) {
	snap, err := gs.Snapshots.LoadSnapshot(ctx, id)
	if errors.Is(err, cache.ErrSnapshotNotFound) {
		writeError(w, http.StatusNotFound, "game not found", nil)
		return models.SessionSnapshot{}, false
	}
	if err != nil {
		gs.logCtx(ctx).WithField("game_id", id).WithError(err).Error("failed to load snapshot")
		writeError(w, http.StatusInternalServerError, "failed to load game", nil)
		return models.SessionSnapshot{}, false
	}
	if snap.OwnerID != owner {
		writeError(w, http.StatusForbidden, "not your game", nil)
		return models.SessionSnapshot{}, false
	}
	return snap, true
}

func authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner, err := auth.Authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or missing token", nil)
		return "", false
	}
	return owner, true
}

func parseGameID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id", nil)
		return uuid.Nil, false
	}
	return id, true
}
