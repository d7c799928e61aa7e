// Package directory implements the authoritative session and room directories.
// Both are replicated collections mutated exclusively by one authority
// goroutine: every command, whether issued by the server's own local
// participant or forwarded on behalf of a remote session, is submitted through
// the same serialized command path and handled to completion before the next.
package directory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lobbyd/lobbyd/internal/dependencies/random"
	"github.com/lobbyd/lobbyd/internal/model"
	"github.com/lobbyd/lobbyd/internal/replica"
	"github.com/lobbyd/lobbyd/internal/runtime"
)

// Notifier delivers targeted confirmations to a single session, distinct from
// the broadcast change events observers receive from the collections.
type Notifier interface {
	RoomCreated(session model.SessionID, room model.Room)
	RoomJoined(session model.SessionID, room model.Room)
	RoomLeft(session model.SessionID, room model.Room)
}

// NopNotifier discards all confirmations.
type NopNotifier struct{}

func (NopNotifier) RoomCreated(model.SessionID, model.Room) {}
func (NopNotifier) RoomJoined(model.SessionID, model.Room)  {}
func (NopNotifier) RoomLeft(model.SessionID, model.Room)    {}

// Directory owns the player and room collections and the serialized command
// loop that mutates them.
type Directory struct {
	players *replica.Collection[model.SessionID, model.Player]
	rooms   *replica.Collection[model.RoomID, model.Room]

	notifier Notifier
	conns    runtime.ConnectionInfo
	random   random.Random
	logger   *slog.Logger

	cmds chan func()

	hookMu        sync.Mutex
	roomRemoving  []func(model.Room)
	memberChanged []func(model.RoomID)
}

// New creates a directory. Run must be started before commands are issued.
func New(notifier Notifier, conns runtime.ConnectionInfo, rnd random.Random, logger *slog.Logger) *Directory {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Directory{
		players:  replica.New[model.SessionID, model.Player](),
		rooms:    replica.New[model.RoomID, model.Room](),
		notifier: notifier,
		conns:    conns,
		random:   rnd,
		logger:   logger.With(slog.String("component", "directory")),
		cmds:     make(chan func()),
	}
}

// Run drains the command channel until ctx is cancelled. All mutations happen
// on this goroutine; queries read published collection state directly.
func (d *Directory) Run(ctx context.Context) {
	d.logger.Info("directory started")
	for {
		select {
		case fn := <-d.cmds:
			fn()
		case <-ctx.Done():
			d.logger.Info("directory stopped")
			return
		}
	}
}

// submit runs fn on the authority goroutine and waits for it to complete.
func (d *Directory) submit(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case d.cmds <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// Do runs fn on the authority goroutine and waits for it to complete. Use it
// to drive collaborators that share the authority goroutine's serialization,
// such as visibility recomputation on session connect.
func (d *Directory) Do(ctx context.Context, fn func()) error {
	return d.submit(ctx, fn)
}

// OnRoomRemoving registers a hook fired immediately before a room record is
// removed, while its final state is still readable. Hooks run on the authority
// goroutine. Register before Run starts issuing commands.
func (d *Directory) OnRoomRemoving(fn func(model.Room)) {
	d.hookMu.Lock()
	defer d.hookMu.Unlock()
	d.roomRemoving = append(d.roomRemoving, fn)
}

// OnMembershipChanged registers a hook fired after a room's member set
// changes (create, join, leave, destroy). Hooks run on the authority goroutine.
func (d *Directory) OnMembershipChanged(fn func(model.RoomID)) {
	d.hookMu.Lock()
	defer d.hookMu.Unlock()
	d.memberChanged = append(d.memberChanged, fn)
}

func (d *Directory) fireRoomRemoving(room model.Room) {
	d.hookMu.Lock()
	fns := append([]func(model.Room){}, d.roomRemoving...)
	d.hookMu.Unlock()
	for _, fn := range fns {
		fn(room)
	}
}

func (d *Directory) fireMembershipChanged(roomID model.RoomID) {
	d.hookMu.Lock()
	fns := append([]func(model.RoomID){}, d.memberChanged...)
	d.hookMu.Unlock()
	for _, fn := range fns {
		fn(roomID)
	}
}

// SubscribePlayers attaches an observer to the player collection, returning
// the snapshot it observes changes from.
func (d *Directory) SubscribePlayers(fn replica.Observer[model.Player]) ([]model.Player, func()) {
	return d.players.Subscribe(fn)
}

// SubscribeRooms attaches an observer to the room collection.
func (d *Directory) SubscribeRooms(fn replica.Observer[model.Room]) ([]model.Room, func()) {
	return d.rooms.Subscribe(fn)
}

func (d *Directory) isConnected(session model.SessionID) bool {
	if session == model.AuthoritySession {
		return true
	}
	if d.conns == nil {
		return false
	}
	return d.conns.IsConnected(session)
}
