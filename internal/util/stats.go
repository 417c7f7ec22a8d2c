package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// Stats is the process-wide traffic and negotiation counter.
var Stats = &stats{}

type stats struct {
	BytesSent      atomic.Int64 // cumulative bytes written to DataChannel
	BytesRecv      atomic.Int64 // cumulative bytes read  from DataChannel
	Renegotiations atomic.Int64 // completed renegotiation cycles
	Restarts       atomic.Int64 // ICE restarts requested
}

func (s *stats) AddSent(n int)     { s.BytesSent.Add(int64(n)) }
func (s *stats) AddRecv(n int)     { s.BytesRecv.Add(int64(n)) }
func (s *stats) AddRenegotiation() { s.Renegotiations.Add(1) }
func (s *stats) AddRestart()       { s.Restarts.Add(1) }

// StartStatsReporter launches a goroutine that logs link statistics every
// 10 seconds while there is activity. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		var prevSent, prevRecv int64
		for {
			select {
			case <-ticker.C:
				sent := Stats.BytesSent.Load()
				recv := Stats.BytesRecv.Load()

				outS := float64(sent-prevSent) / 10.0
				inS := float64(recv-prevRecv) / 10.0

				if inS > 10 || outS > 10 {
					pterm.DefaultLogger.Info(fmt.Sprintf(
						"In: %s/s | Out: %s/s | Renego: %d | Restarts: %d",
						formatBytes(inS),
						formatBytes(outS),
						Stats.Renegotiations.Load(),
						Stats.Restarts.Load(),
					))
				}

				prevSent = sent
				prevRecv = recv

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a human-readable string with fixed width (exactly 8 chars)
// for example: "99.0   B", " 1.5 KiB", " 0.1 MiB", "98.9 GiB", etc.
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}
