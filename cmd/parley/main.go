// Parley — CLI entry point.
//
// This tool establishes a direct P2P link between two peers over a WebRTC
// DataChannel, using the perfect-negotiation pattern so that either side
// can (re)negotiate at any time without glare. A lightweight relay server
// (parley-relay) carries the signaling; after that, no infrastructure is
// involved.
//
// It can be launched non-interactively via flags (--mode, --relay, --room,
// --pin) or interactively with no flags at all.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/pterm/pterm"
	flag "github.com/spf13/pflag"

	"github.com/parley-p2p/parley/internal/app"
	"github.com/parley-p2p/parley/internal/config"
	"github.com/parley-p2p/parley/internal/signaling"
	"github.com/parley-p2p/parley/internal/util"
)

var version = "dev"

func main() {
	// Root context — cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	mode := flag.String("mode", "", "Mode: open (create a room) or join")
	relay := flag.String("relay", "", "Relay base URL (e.g. wss://example.devtunnels.ms)")
	room := flag.String("room", "", "Room ID (join mode)")
	pin := flag.String("pin", "", "Relay PIN, if the relay requires one")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("Parley — v%s", version))
	pterm.Println()

	var cfg config.Config

	switch *mode {
	case "":
		// No --mode flag → interactive mode.
		cfg = askConfig()

	case "open":
		if *relay == "" {
			util.LogError("missing --relay for open mode")
			os.Exit(1)
		}
		cfg = config.Config{Mode: config.ModeOpen, RelayURL: *relay, Room: signaling.NewRoomID(), PIN: *pin}

	case "join":
		if *relay == "" || *room == "" {
			util.LogError("missing --relay or --room for join mode")
			os.Exit(1)
		}
		cfg = config.Config{Mode: config.ModeJoin, RelayURL: *relay, Room: *room, PIN: *pin}

	default:
		util.LogError("invalid --mode: must be 'open' or 'join'")
		os.Exit(1)
	}

	if cfg.Mode == config.ModeOpen {
		pterm.Println()
		pterm.Info.Println("Share this room ID with your peer:")
		pterm.Println("  " + cfg.Room)
		pterm.Println()
	}

	if err := app.RunPeer(ctx, cfg); err != nil {
		util.LogError("link failed: %v", err)
		os.Exit(1)
	}

	util.LogInfo("link closed cleanly")
}

// askConfig falls back to interactive prompts when no --mode is provided.
func askConfig() config.Config {
	choice, _ := pterm.DefaultInteractiveSelect.
		WithOptions([]string{"Open — Create a room and wait", "Join — Enter a room ID"}).
		WithDefaultText("Select how to pair").
		Show()

	pterm.Println()

	relay := askNonEmpty("Relay URL (e.g. wss://example.devtunnels.ms)")
	pin, _ := pterm.DefaultInteractiveTextInput.
		WithDefaultText("Relay PIN (leave empty if none)").
		Show()
	pterm.Println()

	if strings.HasPrefix(choice, "Open") {
		return config.Config{Mode: config.ModeOpen, RelayURL: relay, Room: signaling.NewRoomID(), PIN: strings.TrimSpace(pin)}
	}

	room := askNonEmpty("Room ID")
	return config.Config{Mode: config.ModeJoin, RelayURL: relay, Room: room, PIN: strings.TrimSpace(pin)}
}

// askNonEmpty prompts until the user enters a non-empty value.
func askNonEmpty(prompt string) string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText(prompt).
			Show()

		if v := strings.TrimSpace(raw); v != "" {
			pterm.Println()
			return v
		}

		util.LogWarning("value must not be empty")
		pterm.Println()
	}
}
