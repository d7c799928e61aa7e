package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/lobbyd/lobbyd/internal/protocol"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream directory events over websocket",
		Long: `Connects to the server as a spectator session and prints every
replication event as it arrives. Latency probes are answered, so the session
also shows up in the server's ping estimates. Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(client.WebsocketURL())
		},
	}
}

func runWatch(url string) error {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer func() { _ = conn.Close() }()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	frames := make(chan protocol.ServerMessage)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			var msg protocol.ServerMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				continue
			}
			frames <- msg
		}
	}()

	out := NewOutput(cfg.Output)
	for {
		select {
		case msg := <-frames:
			if msg.Type == protocol.ServerPing {
				pong := protocol.ClientMessage{Type: protocol.ClientPong, SentAt: msg.SentAt}
				payload, _ := json.Marshal(pong)
				_ = conn.WriteMessage(websocket.TextMessage, payload)
				continue
			}
			printEvent(out, msg)
		case err := <-readErr:
			return fmt.Errorf("connection closed: %w", err)
		case <-interrupt:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return nil
		}
	}
}

func printEvent(out *Output, msg protocol.ServerMessage) {
	if cfg.Output == "json" {
		out.Print(msg)
		return
	}
	switch {
	case msg.Type == protocol.ServerWelcome:
		fmt.Printf("connected as session %d (%d players, %d rooms)\n",
			msg.SessionID, len(msg.Players), len(msg.Rooms))
	case msg.Player != nil:
		fmt.Printf("[%d] %s: session %d %q room=%q\n",
			msg.Version, msg.Type, msg.Player.SessionID, msg.Player.DisplayName, msg.Player.RoomID)
	case msg.Room != nil:
		fmt.Printf("[%d] %s: %s %q owner=%d hidden=%t\n",
			msg.Version, msg.Type, msg.Room.ID, msg.Room.Name, msg.Room.Owner, msg.Room.Hidden)
	default:
		fmt.Printf("%s\n", msg.Type)
	}
}
