// Package redis mirrors the live directory into Redis so operational tooling
// can inspect the roster without attaching to the gateway. The mirror is an
// observer, never a source of truth: the in-memory collections remain
// authoritative and the process starts empty on restart.
package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lobbyd/lobbyd/internal/model"
	"github.com/lobbyd/lobbyd/internal/replica"
)

// Mirror writes directory change events to Redis from a dedicated worker
// goroutine, keeping the authority goroutine free of network I/O.
type Mirror struct {
	client *redis.Client
	cfg    Config
	logger *slog.Logger

	events chan func(context.Context) error
}

// New creates a mirror with its own connection
func New(cfg Config, logger *slog.Logger) (*Mirror, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(client, cfg, logger), nil
}

// NewWithClient creates a mirror over an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config, logger *slog.Logger) *Mirror {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	return &Mirror{
		client: client,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "mirror")),
		events: make(chan func(context.Context) error, cfg.QueueSize),
	}
}

// Close closes the Redis connection
func (m *Mirror) Close() error {
	return m.client.Close()
}

// Run consumes queued writes until ctx is cancelled.
func (m *Mirror) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case write := <-m.events:
			if err := write(ctx); err != nil && ctx.Err() == nil {
				m.logger.Warn("mirror write failed", slog.Any("error", err))
			}
		}
	}
}

// ObservePlayer is the replica observer for the session directory.
func (m *Mirror) ObservePlayer(ev replica.Event[model.Player]) {
	player := ev.Value
	if ev.Kind == replica.Removed {
		m.submit(func(ctx context.Context) error {
			return m.deletePlayer(ctx, player.SessionID)
		})
		return
	}
	m.submit(func(ctx context.Context) error {
		return m.savePlayer(ctx, player)
	})
}

// ObserveRoom is the replica observer for the room directory.
func (m *Mirror) ObserveRoom(ev replica.Event[model.Room]) {
	room := ev.Value
	if ev.Kind == replica.Removed {
		m.submit(func(ctx context.Context) error {
			return m.deleteRoom(ctx, room.ID)
		})
		return
	}
	m.submit(func(ctx context.Context) error {
		return m.saveRoom(ctx, room)
	})
}

func (m *Mirror) submit(write func(context.Context) error) {
	select {
	case m.events <- write:
	default:
		m.logger.Warn("mirror queue full, event dropped")
	}
}

type playerRecord struct {
	SessionID   uint64 `json:"sessionId"`
	StableID    string `json:"stableId"`
	DisplayName string `json:"displayName"`
	Team        uint8  `json:"team"`
	InGame      bool   `json:"inGame"`
	Ready       bool   `json:"ready"`
	RoomID      string `json:"roomId,omitempty"`
}

type roomRecord struct {
	ID       string `json:"id"`
	Owner    uint64 `json:"owner"`
	Name     string `json:"name"`
	Hidden   bool   `json:"hidden"`
	Metadata string `json:"metadata,omitempty"`
}

func (m *Mirror) savePlayer(ctx context.Context, player model.Player) error {
	data, err := json.Marshal(playerRecord{
		SessionID:   uint64(player.SessionID),
		StableID:    string(player.StableID),
		DisplayName: player.DisplayName,
		Team:        player.Team,
		InGame:      player.InGame,
		Ready:       player.Ready,
		RoomID:      string(player.RoomID),
	})
	if err != nil {
		return err
	}

	pipe := m.client.Pipeline()
	pipe.Set(ctx, playerKey(player.SessionID), data, m.cfg.RecordTTL)
	pipe.SAdd(ctx, playersIndexKey(), strconv.FormatUint(uint64(player.SessionID), 10))
	_, err = pipe.Exec(ctx)
	return err
}

func (m *Mirror) deletePlayer(ctx context.Context, session model.SessionID) error {
	pipe := m.client.Pipeline()
	pipe.Del(ctx, playerKey(session))
	pipe.SRem(ctx, playersIndexKey(), strconv.FormatUint(uint64(session), 10))
	_, err := pipe.Exec(ctx)
	return err
}

func (m *Mirror) saveRoom(ctx context.Context, room model.Room) error {
	data, err := json.Marshal(roomRecord{
		ID:       string(room.ID),
		Owner:    uint64(room.OwnerSessionID),
		Name:     room.Name,
		Hidden:   room.Hidden,
		Metadata: string(room.Metadata),
	})
	if err != nil {
		return err
	}

	pipe := m.client.Pipeline()
	pipe.Set(ctx, roomKey(room.ID), data, m.cfg.RecordTTL)
	pipe.SAdd(ctx, roomsIndexKey(), string(room.ID))
	_, err = pipe.Exec(ctx)
	return err
}

func (m *Mirror) deleteRoom(ctx context.Context, id model.RoomID) error {
	pipe := m.client.Pipeline()
	pipe.Del(ctx, roomKey(id))
	pipe.SRem(ctx, roomsIndexKey(), string(id))
	_, err := pipe.Exec(ctx)
	return err
}
