// cmd/uno/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/coordinator"
	"github.com/jason-s-yu/uno/internal/database"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/handlers"
	"github.com/jason-s-yu/uno/internal/historian"
	"github.com/jason-s-yu/uno/internal/lobby"
	"github.com/jason-s-yu/uno/internal/mcptools"
	"github.com/jason-s-yu/uno/internal/models"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

const version = "1.0.0"

func main() {
	// stdout belongs to the MCP protocol stream in mcp mode, so logs always go to stderr.
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	cmd := &cli.Command{
		Name:    "uno",
		Usage:   "multi-process UNO coordinated through Redis",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "logrus level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Value:   "localhost:6379",
				Usage:   "Redis address",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level, err := logrus.ParseLevel(cmd.String("log-level"))
			if err != nil {
				return ctx, err
			}
			logger.SetLevel(level)
			return ctx, nil
		},
		Commands: []*cli.Command{
			mcpCommand(logger),
			serveCommand(logger),
			historianCommand(logger),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.Run(ctx, os.Args); err != nil {
		logger.WithError(err).Fatal("uno exited")
	}
}

// mcpCommand serves one seat over MCP stdio.
func mcpCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "serve status/play/draw/wait tools for one player over stdio",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "game", Usage: "game ID", Required: true},
			&cli.StringFlag{Name: "player", Usage: "seat to play (A-D)", Required: true},
			&cli.IntFlag{Name: "players", Value: 2, Usage: "number of seats when the game is created (2-4)"},
			&cli.IntFlag{Name: "hand-size", Value: game.DefaultHouseRules().HandSize, Usage: "cards dealt per seat"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			player := models.ParticipantID(strings.ToUpper(cmd.String("player")))
			n := int(cmd.Int("players"))
			if n < game.MinPlayers || n > game.MaxPlayers {
				return fmt.Errorf("--players must be between %d and %d", game.MinPlayers, game.MaxPlayers)
			}
			players := game.DefaultPlayers(n)
			rules, err := game.ParseRules(map[string]interface{}{"handSize": cmd.Int("hand-size")}, game.DefaultHouseRules())
			if err != nil {
				return err
			}

			rdb, cfg, err := connect(ctx, cmd)
			if err != nil {
				return err
			}
			defer rdb.Close()

			coord := newCoordinator(rdb, cfg, coordinator.Options{Players: players, Rules: rules}, logger)
			gameID := cmd.String("game")
			if _, err := coord.Ensure(ctx, gameID, players); err != nil {
				return err
			}
			if _, err := coord.Status(ctx, gameID, player); err != nil {
				return err
			}

			logger.WithFields(logrus.Fields{"game_id": gameID, "participant": player}).Info("MCP stdio server ready")
			return mcptools.NewSeat(coord, gameID, player, logger).ServeStdio()
		},
	}
}

// serveCommand runs the HTTP API, live stream and lobby.
func serveCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API with the bot lobby",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Value: "8080", Sources: cli.EnvVars("PORT")},
			&cli.DurationFlag{Name: "bot-delay", Value: lobby.DefaultMoveDelay, Usage: "pause before each bot move"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rdb, cfg, err := connect(ctx, cmd)
			if err != nil {
				return err
			}
			defer rdb.Close()

			store := cache.NewRecordStore(rdb, logger)
			coord := newCoordinator(rdb, cfg, coordinator.Options{}, logger)
			lm := lobby.NewManager(coord, store, logger)
			lm.MoveDelay = cmd.Duration("bot-delay")
			defer lm.Close()

			api := handlers.NewAPIServer(coord, cache.NewNotifier(rdb), lm, logger)
			srv := &http.Server{
				Addr:              ":" + cmd.String("port"),
				Handler:           api.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()

			logger.Infof("Running on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}

// historianCommand drains the action queue into Postgres.
func historianCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "historian",
		Usage: "persist committed actions to Postgres",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "database-url", Usage: "Postgres URL (defaults to DATABASE_URL or POSTGRES_* variables)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rdb, cfg, err := connect(ctx, cmd)
			if err != nil {
				return err
			}
			defer rdb.Close()

			connStr := cmd.String("database-url")
			if connStr == "" {
				connStr = database.ConnString()
			}
			pool, err := database.ConnectDB(ctx, connStr)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := database.EnsureSchema(ctx, pool); err != nil {
				return err
			}

			svc := historian.NewService(
				cache.NewHistoryQueue(rdb, cfg.HistoryQueue),
				database.NewHistoryStore(pool),
				historian.ConfigFromEnv(),
				logger.WithField("component", "historian"),
			)
			return svc.Run(ctx)
		},
	}
}

func connect(ctx context.Context, cmd *cli.Command) (*redis.Client, cache.Config, error) {
	cfg := cache.ConfigFromEnv()
	cfg.Addr = cmd.String("redis-addr")
	rdb, err := cache.ConnectRedis(ctx, cfg)
	return rdb, cfg, err
}

func newCoordinator(rdb *redis.Client, cfg cache.Config, opts coordinator.Options, logger *logrus.Logger) *coordinator.Coordinator {
	return coordinator.New(
		cache.NewRecordStore(rdb, logger),
		cache.NewLocker(rdb, cfg.LockTTL, cfg.LockWait),
		cache.NewNotifier(rdb),
		cache.NewHistoryQueue(rdb, cfg.HistoryQueue),
		opts,
		logger,
	)
}
