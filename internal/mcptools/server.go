// Package mcptools exposes one seat of a game as MCP tools over stdio.
package mcptools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/coordinator"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/jason-s-yu/uno/internal/render"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

// DefaultWaitTimeout applies when the wait tool is called without a timeout.
const DefaultWaitTimeout = 60 * time.Second

// Coordinator is the subset of the coordinator the tools need.
type Coordinator interface {
	Status(ctx context.Context, gameID string, participant models.ParticipantID) (*coordinator.StatusView, error)
	Act(ctx context.Context, gameID string, participant models.ParticipantID, action models.GameAction) (*coordinator.ActResult, error)
	Wait(ctx context.Context, gameID string, participant models.ParticipantID, timeout time.Duration) (*coordinator.WaitResult, error)
}

// Seat binds the MCP tools to one participant of one game.
type Seat struct {
	coord     Coordinator
	gameID    string
	player    models.ParticipantID
	log       logrus.FieldLogger
	mcpServer *server.MCPServer
}

// NewSeat builds the MCP server for player in gameID.
func NewSeat(coord Coordinator, gameID string, player models.ParticipantID, log logrus.FieldLogger) *Seat {
	s := &Seat{
		coord:  coord,
		gameID: gameID,
		player: player,
		log:    log.WithFields(logrus.Fields{"game_id": gameID, "participant": player}),
	}
	s.mcpServer = server.NewMCPServer(
		"uno",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(fmt.Sprintf(`UNO - you are Player %s in game %s.

AVAILABLE TOOLS:
- status: show your hand, the table and whose turn it is
- play: play a card from your hand (wild cards need chosen_color)
- draw: draw one card and pass the turn
- wait: block until it is your turn or the game ends

Call wait whenever it is not your turn. A timed out wait is normal; call it again.`, player, gameID)),
	)
	s.registerTools()
	return s
}

// MCPServer returns the underlying server for ServeStdio.
func (s *Seat) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves the tools on stdin/stdout until the client disconnects.
func (s *Seat) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Seat) registerTools() {
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "status",
		Description: "Show the current game state: your hand, the table, and whose turn it is.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleStatus)

	colors := make([]string, 0, len(models.Colors))
	for _, c := range models.Colors {
		colors = append(colors, string(c))
	}
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "play",
		Description: "Play a card from your hand. The card must match the current color or the top card's rank, or be a wild card.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"card": map[string]interface{}{
					"type":        "string",
					"description": "The card to play exactly as shown in your hand, e.g. 'Red 5' or 'Wild Draw Four'",
				},
				"chosen_color": map[string]interface{}{
					"type":        "string",
					"enum":        colors,
					"description": "Required for Wild and Wild Draw Four: the color to switch to",
				},
			},
			Required: []string{"card"},
		},
	}, s.handlePlay)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "draw",
		Description: "Draw a card from the draw pile. Your turn ends after drawing.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleDraw)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "wait",
		Description: "Wait until it is your turn or the game ends. Returns the last action taken.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"timeout": map[string]interface{}{
					"type":        "number",
					"description": "Maximum seconds to wait (default 60)",
				},
			},
		},
	}, s.handleWait)
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	return args
}

func (s *Seat) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view, err := s.coord.Status(ctx, s.gameID, s.player)
	if err != nil {
		return s.toolError("status", err), nil
	}
	return mcp.NewToolResultText(render.Status(view)), nil
}

func (s *Seat) handlePlay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	card, _ := args["card"].(string)
	chosenColor, _ := args["chosen_color"].(string)

	action, err := models.ParsePlay(card, chosenColor)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.coord.Act(ctx, s.gameID, s.player, action)
	if err != nil {
		return s.toolError("play", err), nil
	}
	return mcp.NewToolResultText(render.Act(res)), nil
}

func (s *Seat) handleDraw(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.coord.Act(ctx, s.gameID, s.player, models.DrawAction())
	if err != nil {
		return s.toolError("draw", err), nil
	}
	return mcp.NewToolResultText(render.Act(res)), nil
}

func (s *Seat) handleWait(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	timeout := DefaultWaitTimeout
	if secs, ok := arguments(request)["timeout"].(float64); ok && secs > 0 {
		timeout = time.Duration(secs * float64(time.Second))
	}

	res, err := s.coord.Wait(ctx, s.gameID, s.player, timeout)
	if err != nil {
		return s.toolError("wait", err), nil
	}
	return mcp.NewToolResultText(render.Wait(res)), nil
}

// toolError maps a coordinator failure to a tool-level error the agent can read.
func (s *Seat) toolError(tool string, err error) *mcp.CallToolResult {
	switch {
	case game.IsRejection(err):
		return mcp.NewToolResultError(err.Error())
	case errors.Is(err, cache.ErrNotFound):
		return mcp.NewToolResultError("Game not started yet. Play or draw to start it, or wait for the other players.")
	case errors.Is(err, cache.ErrBusy):
		return mcp.NewToolResultError("The game is busy. Try again.")
	}
	s.log.WithError(err).WithField("tool", tool).Error("tool call failed")
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", tool, err))
}
