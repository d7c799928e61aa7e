package factory

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/lobbyd/lobbyd/internal/auth"
	"github.com/lobbyd/lobbyd/internal/dependencies/clock"
	"github.com/lobbyd/lobbyd/internal/dependencies/random"
	"github.com/lobbyd/lobbyd/internal/directory"
	"github.com/lobbyd/lobbyd/internal/gateway"
	"github.com/lobbyd/lobbyd/internal/match"
	redismirror "github.com/lobbyd/lobbyd/internal/mirror/redis"
	"github.com/lobbyd/lobbyd/internal/model"
	"github.com/lobbyd/lobbyd/internal/ping"
	"github.com/lobbyd/lobbyd/internal/visibility"
)

// App contains all wired application components
type App struct {
	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Core components
	Directory *directory.Directory
	Hub       *gateway.Hub
	Pinger    *ping.Estimator
	Partition *visibility.Partition
	Relay     *gateway.EntityRelay
	Match     *match.Coordinator
	Admin     *auth.Service
	Mirror    *redismirror.Mirror

	hostMode bool
	logger   *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// HostMode registers the authority session as a playing participant at
	// startup. Dedicated servers leave it false.
	HostMode bool
	// AdminKeyHash is the bcrypt hash guarding privileged HTTP operations
	// (optional). Empty disables the admin routes.
	AdminKeyHash string
	// PingInterval overrides the latency probe cadence (optional)
	PingInterval time.Duration
	// RedisConfig enables the Redis roster mirror (optional)
	RedisConfig *redismirror.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	clk := clock.New()
	rnd := random.New()

	var mirror *redismirror.Mirror
	if cfg.RedisConfig != nil {
		m, err := redismirror.New(*cfg.RedisConfig, logger)
		if err != nil {
			return nil, err
		}
		mirror = m
	}

	return newWithDependencies(cfg, clk, rnd, mirror, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(cfg Config, clk clock.Clock, rnd random.Random, mirror *redismirror.Mirror, logger *slog.Logger) *App {
	hub := gateway.NewHub(logger)
	dir := directory.New(hub, hub, rnd, logger)

	pingOpts := []ping.Option{
		ping.WithObserver(func(session model.SessionID, estimate time.Duration) {
			logger.Debug("ping updated",
				slog.Uint64("session", uint64(session)),
				slog.Duration("estimate", estimate))
		}),
	}
	if cfg.PingInterval > 0 {
		pingOpts = append(pingOpts, ping.WithInterval(cfg.PingInterval))
	}
	pinger := ping.New(hub.SendProbe, clk, logger, pingOpts...)
	hub.Bind(dir, pinger)

	relay := gateway.NewEntityRelay(hub, logger)
	partition := visibility.New(relay, dir, logger)
	coordinator := match.New(dir, relay, logger)

	// Visibility tracks membership through the directory's hooks, which run
	// on the authority goroutine; connect and disconnect events from the
	// transport are routed onto it through Do.
	dir.OnRoomRemoving(func(room model.Room) {
		partition.DespawnRoom(room.ID)
	})
	dir.OnMembershipChanged(func(roomID model.RoomID) {
		partition.HandleMembershipChanged(roomID, hub.ConnectedSessions())
	})
	hub.OnConnected(func(session model.SessionID) {
		_ = dir.Do(context.Background(), func() {
			partition.HandleSessionConnected(session)
		})
	})
	hub.OnDisconnected(func(session model.SessionID) {
		_ = dir.Do(context.Background(), func() {
			partition.HandleSessionDisconnected(session)
		})
	})

	if mirror != nil {
		dir.SubscribePlayers(mirror.ObservePlayer)
		dir.SubscribeRooms(mirror.ObserveRoom)
	}

	return &App{
		Clock:     clk,
		Random:    rnd,
		Directory: dir,
		Hub:       hub,
		Pinger:    pinger,
		Partition: partition,
		Relay:     relay,
		Match:     coordinator,
		Admin:     auth.New(cfg.AdminKeyHash),
		Mirror:    mirror,
		hostMode:  cfg.HostMode,
		logger:    logger,
	}
}

// Start launches the background loops and, in host mode, registers the
// authority session as a participant. Components stop when ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	go a.Directory.Run(ctx)
	go a.Pinger.Run(ctx)
	if a.Mirror != nil {
		go a.Mirror.Run(ctx)
	}
	a.Hub.Start()

	if a.hostMode {
		if err := a.Directory.RegisterSession(ctx, model.AuthoritySession); err != nil {
			return err
		}
		a.logger.Info("authority session registered as participant")
	}
	return nil
}

// Stop detaches the hub and closes external connections.
func (a *App) Stop() {
	a.Hub.Stop()
	if a.Mirror != nil {
		if err := a.Mirror.Close(); err != nil {
			a.logger.Warn("mirror close", slog.Any("error", err))
		}
	}
}
