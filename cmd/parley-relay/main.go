// Parley relay — signaling server entry point.
//
// The relay pairs two peers per room, assigns their negotiation roles, and
// forwards signaling messages between them in order. It sees SDP and ICE
// candidates only as opaque JSON; no media or data ever crosses it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pterm/pterm"
	flag "github.com/spf13/pflag"

	"github.com/parley-p2p/parley/internal/signaling"
	"github.com/parley-p2p/parley/internal/util"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	addr := flag.String("addr", ":0", "Listen address (\":0\" picks a random port)")
	pin := flag.String("pin", "", "Require this PIN from joining peers")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("Parley relay — v%s", version))

	srv := signaling.NewServer(*pin)
	port, err := srv.Start(*addr)
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
	defer srv.Close()

	util.LogSuccess("relay listening on port %d", port)

	<-ctx.Done()
	util.LogInfo("relay shutting down")
}
