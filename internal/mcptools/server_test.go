package mcptools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/coordinator"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCoordinator(t *testing.T) (*coordinator.Coordinator, cache.RecordStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	store := cache.NewRecordStore(rdb, log)
	c := coordinator.New(store, cache.NewLocker(rdb, 5*time.Second, time.Second), cache.NewNotifier(rdb), nil, coordinator.Options{}, log)
	return c, store
}

func call(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestNewSeatRegistersTools(t *testing.T) {
	c, _ := newCoordinator(t)
	seat := NewSeat(c, "g", "A", quietLogger())
	require.NotNil(t, seat.MCPServer())
}

func TestStatusAndDraw(t *testing.T) {
	c, store := newCoordinator(t)
	ctx := context.Background()
	_, err := c.Ensure(ctx, "g", game.DefaultPlayers(2))
	require.NoError(t, err)
	rec, err := store.Load(ctx, "g")
	require.NoError(t, err)

	mover := NewSeat(c, "g", rec.CurrentTurn, quietLogger())
	res, err := mover.handleStatus(ctx, call("status", nil))
	require.NoError(t, err)
	out := text(t, res)
	assert.True(t, strings.HasPrefix(out, "=== Your Hand ==="))
	assert.Contains(t, out, "Opponent has: ")
	assert.Contains(t, out, "Status: YOUR TURN")

	res, err = mover.handleDraw(ctx, call("draw", nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), "You drew: ")

	res, err = mover.handleDraw(ctx, call("draw", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, strings.ToLower(text(t, res)), "not your turn")
}

func TestPlayRejectsBadInput(t *testing.T) {
	c, store := newCoordinator(t)
	ctx := context.Background()
	_, err := c.Ensure(ctx, "g", game.DefaultPlayers(2))
	require.NoError(t, err)
	rec, err := store.Load(ctx, "g")
	require.NoError(t, err)
	seat := NewSeat(c, "g", rec.CurrentTurn, quietLogger())

	res, err := seat.handlePlay(ctx, call("play", map[string]interface{}{"card": "Purple 12"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = seat.handlePlay(ctx, call("play", map[string]interface{}{"card": "Wild", "chosen_color": "Pink"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	after, err := store.Load(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, rec, after)
}

func TestWaitTool(t *testing.T) {
	c, store := newCoordinator(t)
	ctx := context.Background()
	_, err := c.Ensure(ctx, "g", game.DefaultPlayers(2))
	require.NoError(t, err)
	rec, err := store.Load(ctx, "g")
	require.NoError(t, err)

	idle := models.ParticipantID("A")
	if rec.CurrentTurn == idle {
		idle = "B"
	}
	seat := NewSeat(c, "g", idle, quietLogger())
	res, err := seat.handleWait(ctx, call("wait", map[string]interface{}{"timeout": 0.05}))
	require.NoError(t, err)
	assert.False(t, res.IsError, "a timeout is not a tool error")
	assert.Contains(t, text(t, res), "Timed out")

	mover := NewSeat(c, "g", rec.CurrentTurn, quietLogger())
	res, err = mover.handleWait(ctx, call("wait", map[string]interface{}{}))
	require.NoError(t, err)
	assert.Equal(t, rec.LastAction, text(t, res))
}

func TestStatusBeforeGameExists(t *testing.T) {
	c, _ := newCoordinator(t)
	seat := NewSeat(c, "none", "A", quietLogger())
	res, err := seat.handleStatus(context.Background(), call("status", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
