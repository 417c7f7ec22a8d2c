// Package config holds the CLI configuration types.
package config

// Mode represents how the peer joins a pairing.
type Mode string

const (
	// ModeOpen creates a fresh room on the relay and waits for a peer.
	ModeOpen Mode = "open"
	// ModeJoin enters an existing room by ID.
	ModeJoin Mode = "join"
)

// Config stores all parameters gathered from flags or interactive prompts.
type Config struct {
	Mode     Mode
	RelayURL string // relay base URL, e.g. wss://example.devtunnels.ms
	Room     string // room ID (generated in ModeOpen, required in ModeJoin)
	PIN      string // relay PIN, empty if the relay runs without one
}
