package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/openmcq/corrector/internal/engine"
	"github.com/openmcq/corrector/internal/log"
	"github.com/openmcq/corrector/internal/protocol"
	"github.com/openmcq/corrector/internal/scanjob"
)

// Descriptors of the duplex conflict channel, as attached by the
// supervising side (ExtraFiles starts at fd 3).
const (
	recvFD = 3 // supervisor -> child
	sendFD = 4 // child -> supervisor
)

// doChildScan is the entry point of the isolated scan process. It speaks
// the conflict protocol on fds 3/4, writes the scan log to stdout (the
// supervisor captures it) and slog diagnostics to stderr (relayed).
func doChildScan(cmd *cobra.Command, args []string) error {
	path := args[0]

	recv := os.NewFile(recvFD, "conflict-recv")
	send := os.NewFile(sendFD, "conflict-send")
	if recv == nil || send == nil {
		return errors.New("conflict channel descriptors missing; _scan must be spawned by the corrector")
	}
	conn := protocol.NewConn(recv, send)
	defer func() {
		_ = conn.Close()
	}()

	ctx := log.ContextAttrs(cmd.Context(), slog.Group("corrector",
		slog.String("cmd", "_scan"),
		slog.Int("pid", os.Getpid()),
	))

	eng := engine.NewReplay(cmd.OutOrStdout())
	scanjob.Run(ctx, path, conn, eng, cmd.OutOrStdout())
	return nil
}
