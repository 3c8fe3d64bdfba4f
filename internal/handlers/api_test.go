package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/coder/websocket"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/coordinator"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/lobby"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv   *APIServer
	coord *coordinator.Coordinator
	store cache.RecordStore
	h     http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	store := cache.NewRecordStore(rdb, log)
	notifier := cache.NewNotifier(rdb)
	coord := coordinator.New(store, cache.NewLocker(rdb, 5*time.Second, time.Second), notifier, nil, coordinator.Options{}, log)

	lm := lobby.NewManager(coord, store, log)
	lm.MoveDelay = 0
	t.Cleanup(lm.Close)

	srv := NewAPIServer(coord, notifier, lm, log)
	return &testEnv{srv: srv, coord: coord, store: store, h: srv.Routes()}
}

func (e *testEnv) start(t *testing.T, id string, n int) *models.GameRecord {
	t.Helper()
	ctx := context.Background()
	_, err := e.coord.Ensure(ctx, id, game.DefaultPlayers(n))
	require.NoError(t, err)
	rec, err := e.store.Load(ctx, id)
	require.NoError(t, err)
	return rec
}

func (e *testEnv) do(method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.h.ServeHTTP(w, req)
	return w
}

func idleSeat(rec *models.GameRecord) models.ParticipantID {
	for _, p := range rec.PlayerOrder {
		if p != rec.CurrentTurn {
			return p
		}
	}
	return ""
}

func TestStatusEndpoint(t *testing.T) {
	e := newTestEnv(t)
	rec := e.start(t, "g", 3)

	w := e.do("GET", "/games/g?player=A", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	var view coordinator.StatusView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, rec.Hands["A"], view.Hand)
	assert.Len(t, view.Others, 2)

	w = e.do("GET", "/games/g?player=A&format=text", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "=== Your Hand ==="))

	assert.Equal(t, http.StatusBadRequest, e.do("GET", "/games/g", "").Code)
	assert.Equal(t, http.StatusNotFound, e.do("GET", "/games/nope?player=A", "").Code)
	assert.Equal(t, http.StatusBadRequest, e.do("GET", "/games/g?player=Q", "").Code)
}

func TestDrawAndTurnConflict(t *testing.T) {
	e := newTestEnv(t)
	rec := e.start(t, "g", 2)

	w := e.do("POST", "/games/g/draw?player="+string(rec.CurrentTurn), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res ActResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotNil(t, res.Drawn)
	assert.Contains(t, res.Message, res.Drawn.String())

	w = e.do("POST", "/games/g/draw?player="+string(rec.CurrentTurn), "")
	assert.Equal(t, http.StatusConflict, w.Code)
	var errBody errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errBody))
	assert.Equal(t, "not_your_turn", errBody.Code)
}

func TestPlayValidation(t *testing.T) {
	e := newTestEnv(t)
	rec := e.start(t, "g", 2)
	p := string(rec.CurrentTurn)

	assert.Equal(t, http.StatusBadRequest, e.do("POST", "/games/g/play?player="+p, "{").Code)
	assert.Equal(t, http.StatusBadRequest, e.do("POST", "/games/g/play?player="+p, `{"card":"Wild","chosen_color":"Pink"}`).Code)
	assert.Equal(t, http.StatusBadRequest, e.do("POST", "/games/g/play", `{"card":"Red 5"}`).Code)

	// A card the player does not hold is an illegal move.
	var missing models.Card
	for _, c := range game.NewDeck() {
		held := false
		for _, h := range rec.Hands[rec.CurrentTurn] {
			if h == c {
				held = true
				break
			}
		}
		if !held && !c.IsWild() {
			missing = c
			break
		}
	}
	body, _ := json.Marshal(PlayRequest{Player: p, Card: missing.String()})
	w := e.do("POST", "/games/g/play", string(body))
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	after, err := e.store.Load(context.Background(), "g")
	require.NoError(t, err)
	assert.Equal(t, rec, after)
}

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{cache.ErrNotFound, http.StatusNotFound},
		{cache.ErrBusy, http.StatusServiceUnavailable},
		{game.ErrCorruptState, http.StatusInternalServerError},
		{&game.RejectionError{Kind: game.ErrNotYourTurn}, http.StatusConflict},
		{&game.RejectionError{Kind: game.ErrGameOver}, http.StatusConflict},
		{&game.RejectionError{Kind: game.ErrIllegalPlay}, http.StatusBadRequest},
		{&game.RejectionError{Kind: game.ErrMissingColorChoice}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		got, _ := statusForError(tc.err)
		assert.Equal(t, tc.want, got, "%v", tc.err)
	}
}

func TestWaitEndpoint(t *testing.T) {
	e := newTestEnv(t)
	rec := e.start(t, "g", 2)

	w := e.do("GET", "/games/g/wait?player="+string(idleSeat(rec))+"&timeout=0.05", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["timedOut"])

	w = e.do("GET", "/games/g/wait?player="+string(rec.CurrentTurn), "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["timedOut"])

	assert.Equal(t, http.StatusBadRequest, e.do("GET", "/games/g/wait?player=A&timeout=-1", "").Code)
}

func TestLobbyEndpoints(t *testing.T) {
	e := newTestEnv(t)

	w := e.do("POST", "/lobby/new-game", `{"players":3}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var table lobby.Table
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &table))
	assert.Len(t, table.GameID, 8)
	assert.Equal(t, []models.ParticipantID{"B", "C"}, table.Bots)

	w = e.do("GET", "/lobby/games", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), table.GameID)

	assert.Equal(t, http.StatusBadRequest, e.do("POST", "/lobby/new-game", `{"players":9}`).Code)
	assert.Equal(t, http.StatusBadRequest, e.do("POST", "/lobby/end-game", `{}`).Code)

	w = e.do("POST", "/lobby/end-game", `{"gameId":"`+table.GameID+`"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, http.StatusNotFound, e.do("GET", "/games/"+table.GameID+"?player=A", "").Code)
}

func readEvent(t *testing.T, ctx context.Context, c *websocket.Conn) GameEvent {
	t.Helper()
	_, data, err := c.Read(ctx)
	require.NoError(t, err)
	var ev GameEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestGameStreamPushesOnChange(t *testing.T) {
	e := newTestEnv(t)
	rec := e.start(t, "g", 2)
	ts := httptest.NewServer(e.h)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/games/g/ws?player=" + string(rec.CurrentTurn)
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: []string{GameSubprotocol}})
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	first := readEvent(t, ctx, c)
	assert.Equal(t, "status", first.Type)

	msg, _ := json.Marshal(GameMessage{Type: "draw"})
	require.NoError(t, c.Write(ctx, websocket.MessageText, msg))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		seen[readEvent(t, ctx, c).Type] = true
	}
	assert.True(t, seen["result"], "expected the draw result")
	assert.True(t, seen["status"], "expected a status push after the commit")

	require.NoError(t, c.Write(ctx, websocket.MessageText, msg))
	ev := readEvent(t, ctx, c)
	assert.Equal(t, "error", ev.Type)
	assert.Contains(t, strings.ToLower(ev.Error), "not your turn")
}

func TestGameStreamRejectsUnknownGame(t *testing.T) {
	e := newTestEnv(t)
	ts := httptest.NewServer(e.h)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/games/missing/ws?player=A"
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: []string{GameSubprotocol}})
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	_, _, err = c.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusCode(GameNotFoundError), websocket.CloseStatus(err))
}
