package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Room:
		o.printRoom(v)
	case []Room:
		o.printRooms(v)
	case RoomDetail:
		o.printRoomDetail(v)
	case Player:
		o.printPlayer(v)
	case []Player:
		o.printPlayers(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Room response type (matches API)
type Room struct {
	ID       string `json:"id"`
	Owner    uint64 `json:"owner"`
	Name     string `json:"name"`
	Hidden   bool   `json:"hidden"`
	Metadata string `json:"metadata,omitempty"`
}

// RoomDetail is a room with its member list
type RoomDetail struct {
	Room
	Members []Player `json:"members"`
}

// Player response type
type Player struct {
	SessionID   uint64 `json:"sessionId"`
	StableID    string `json:"stableId"`
	DisplayName string `json:"displayName"`
	Team        uint8  `json:"team"`
	InGame      bool   `json:"inGame"`
	Ready       bool   `json:"ready"`
	RoomID      string `json:"roomId,omitempty"`
}

// HealthResult response type
type HealthResult struct {
	Status  string `json:"status"`
	Players int    `json:"players"`
	Rooms   int    `json:"rooms"`
}

func (o *Output) printRoom(r Room) {
	fmt.Printf("Room: %s\n", r.ID)
	fmt.Printf("Name: %s\n", r.Name)
	fmt.Printf("Owner: session %d\n", r.Owner)
	if r.Hidden {
		fmt.Println("Hidden: yes")
	}
	if r.Metadata != "" {
		fmt.Println("Metadata:")
		for _, line := range strings.Split(r.Metadata, "\n") {
			fmt.Printf("  %s\n", line)
		}
	}
}

func (o *Output) printRooms(rooms []Room) {
	if len(rooms) == 0 {
		fmt.Println("No rooms")
		return
	}
	fmt.Printf("Rooms (%d):\n", len(rooms))
	for _, r := range rooms {
		hiddenStr := ""
		if r.Hidden {
			hiddenStr = " [hidden]"
		}
		fmt.Printf("  - %s (%s) owner=%d%s\n", r.Name, r.ID, r.Owner, hiddenStr)
	}
}

func (o *Output) printRoomDetail(d RoomDetail) {
	o.printRoom(d.Room)
	fmt.Printf("Members (%d):\n", len(d.Members))
	for _, m := range d.Members {
		o.printPlayerLine(m)
	}
}

func (o *Output) printPlayer(p Player) {
	fmt.Printf("Player: %s (session %d)\n", p.DisplayName, p.SessionID)
	fmt.Printf("Stable ID: %s\n", p.StableID)
	fmt.Printf("Team: %d\n", p.Team)
	fmt.Printf("Ready: %t\n", p.Ready)
	fmt.Printf("In Game: %t\n", p.InGame)
	if p.RoomID != "" {
		fmt.Printf("Room: %s\n", p.RoomID)
	}
}

func (o *Output) printPlayers(players []Player) {
	if len(players) == 0 {
		fmt.Println("No players")
		return
	}
	fmt.Printf("Players (%d):\n", len(players))
	for _, p := range players {
		o.printPlayerLine(p)
	}
}

func (o *Output) printPlayerLine(p Player) {
	flags := ""
	if p.Ready {
		flags += " [ready]"
	}
	if p.InGame {
		flags += " [in-game]"
	}
	fmt.Printf("  - %s (session %d, team %d)%s\n", p.DisplayName, p.SessionID, p.Team, flags)
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
	fmt.Printf("Players: %d\n", h.Players)
	fmt.Printf("Rooms: %d\n", h.Rooms)
}
