package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/scoresheet/internal/auth"
	"github.com/jason-s-yu/scoresheet/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsEnvelope struct {
	Type    string                 `json:"type"`
	State   models.SessionSnapshot `json:"state"`
	Winner  *models.Standing       `json:"winner"`
	Message string                 `json:"message"`
}

func dialGame(t *testing.T, ctx context.Context, srv *httptest.Server, id uuid.UUID, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game/ws/" + id.String()
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
		HTTPHeader:   http.Header{"Cookie": []string{auth.CookieName + "=" + token}},
	})
	require.NoError(t, err)
	return c
}

func readEnvelope(t *testing.T, ctx context.Context, c *websocket.Conn) wsEnvelope {
	t.Helper()
	_, data, err := c.Read(ctx)
	require.NoError(t, err)
	var env wsEnvelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestGameWSPushesScoresheet(t *testing.T) {
	gs, _, _, h, token := setupServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	id := startGame(t, h, token, "Alice", "Bob", "Carol")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := dialGame(t, ctx, srv, id, token)
	defer c.Close(websocket.StatusNormalClosure, "")

	first := readEnvelope(t, ctx, c)
	assert.Equal(t, "scoresheet", first.Type)
	assert.Equal(t, id, first.State.ID)
	require.Eventually(t, func() bool { return gs.hub.Count(id) == 1 }, time.Second, 10*time.Millisecond)

	w := enter(t, h, token, id, 0, 1, "bid", 4)
	require.Equal(t, http.StatusOK, w.Code)
	update := readEnvelope(t, ctx, c)
	assert.Equal(t, "scoresheet", update.Type)
	require.NotNil(t, update.State.Rounds[0].Entries[1].Bid)
	assert.Equal(t, 4, *update.State.Rounds[0].Entries[1].Bid)

	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)))
	assert.Equal(t, "pong", readEnvelope(t, ctx, c).Type)

	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(`{"type":"shuffle"}`)))
	errMsg := readEnvelope(t, ctx, c)
	assert.Equal(t, "error", errMsg.Type)
	assert.Contains(t, errMsg.Message, "shuffle")
}

func TestGameWSAnnouncesGameEnd(t *testing.T) {
	_, _, _, h, token := setupServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	id := startGame(t, h, token, "Alice", "Bob", "Carol")
	fillRound(t, h, token, id, 0, []int{5, 4, 4}, []int{5, 4, 4})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c := dialGame(t, ctx, srv, id, token)
	defer c.Close(websocket.StatusNormalClosure, "")
	readEnvelope(t, ctx, c)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/game/"+id.String()+"/complete", token, nil).Code)
	assert.Equal(t, "scoresheet", readEnvelope(t, ctx, c).Type)
	end := readEnvelope(t, ctx, c)
	assert.Equal(t, "game_end", end.Type)
	require.NotNil(t, end.Winner)
	assert.Equal(t, "Alice", end.Winner.Name)
}

func TestGameWSRejectsStrangers(t *testing.T) {
	_, _, _, h, token := setupServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()
	id := startGame(t, h, token, "Alice", "Bob", "Carol")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game/ws/" + id.String()

	_, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
		HTTPHeader:   http.Header{"Cookie": []string{auth.CookieName + "=" + newToken(t)}},
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = websocket.Dial(ctx, url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGameWSClosedOnPause(t *testing.T) {
	_, _, _, h, token := setupServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()
	id := startGame(t, h, token, "Alice", "Bob", "Carol")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c := dialGame(t, ctx, srv, id, token)
	readEnvelope(t, ctx, c)

	// the renderer is not reading yet; pausing must not wait on its close handshake
	started := time.Now()
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/game/"+id.String()+"/pause", token, nil).Code)
	assert.Less(t, time.Since(started), time.Second)
	_, _, err := c.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, GamePausedClose, websocket.CloseStatus(err))
}

func TestGameWSRejectsRetiredTable(t *testing.T) {
	gs, _, _, h, token := setupServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()
	id := startGame(t, h, token, "Alice", "Bob", "Carol")

	tbl, ok := gs.Sessions.GetTable(id)
	require.True(t, ok)
	tbl.Mu.Lock()
	tbl.Gone = true
	tbl.Mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c := dialGame(t, ctx, srv, id, token)
	_, _, err := c.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
	assert.Zero(t, gs.hub.Count(id))
}
