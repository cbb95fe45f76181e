package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openmcq/corrector/internal/log"
	"github.com/openmcq/corrector/internal/model"
	"github.com/openmcq/corrector/internal/protocol"
	"github.com/openmcq/corrector/internal/service"
	"github.com/openmcq/corrector/internal/settings"
	"github.com/openmcq/corrector/internal/state"
)

// doScan drives one scan attempt from the terminal: it launches the
// manager, renders lifecycle events and prompts the operator for each
// clarification request. Ctrl-C aborts the isolated process.
func doScan(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	if err := settings.ValidateTarget(path); err != nil {
		return err
	}

	sets, err := settings.Load()
	if err != nil {
		slog.Warn("loading settings", "error", err)
		sets = &settings.Settings{}
	}
	sets.Remember(path)
	if err := sets.Save(); err != nil {
		slog.Warn("saving settings", "error", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx = log.ContextAttrs(ctx, slog.Group("corrector",
		slog.String("cmd", "scan"),
		slog.Int("pid", os.Getpid()),
	))

	mgr := service.NewManager()
	if err := mgr.LaunchScan(ctx, path); err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		mgr.AbortScan()
	}()

	machine := state.NewMachine()
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	for ev := range mgr.Events() {
		machine.OnEvent(ev)
		switch ev := ev.(type) {
		case service.ScanStarted:
			fmt.Fprintf(out, "Scanning %q (process %d)...\n", ev.Path, ev.PID)
		case service.RequestReceived:
			ans, err := promptAnswer(in, out, ev.Request)
			if err != nil {
				mgr.AbortScan()
				continue
			}
			if err := mgr.Respond(ans); err != nil {
				slog.ErrorContext(ctx, "sending answer", "error", err)
				continue
			}
			machine.RequestResolved()
		case service.ScanEnded:
			return report(out, ev.Outcome)
		}
	}
	return nil
}

func report(out io.Writer, outcome model.Outcome) error {
	if outcome.Log != "" {
		fmt.Fprintln(out, strings.TrimRight(outcome.Log, "\n"))
	}
	if outcome.Failed() {
		return fmt.Errorf("scan of %q failed: %w", outcome.Path, outcome.Err)
	}
	fmt.Fprintf(out, "Scan of %q finished.\n", outcome.Path)
	return nil
}

func promptAnswer(in *bufio.Reader, out io.Writer, req protocol.Request) (protocol.Answer, error) {
	switch req := req.(type) {
	case protocol.IntegrityRequest:
		fmt.Fprintf(out, "Duplicate page detected:\n  [1] %s\n  [2] %s\nKeep which version? ", req.PictureA, req.PictureB)
		for {
			line, err := readLine(in)
			if err != nil {
				return nil, err
			}
			switch line {
			case "1":
				return protocol.KeepFirst, nil
			case "2":
				return protocol.KeepSecond, nil
			}
			fmt.Fprint(out, "Please answer 1 or 2: ")
		}
	case protocol.NameRequest:
		fmt.Fprintf(out, "Unconfirmed student name on %s (suggestion: %q).\nName [%s]: ", req.Picture, req.SuggestedName, req.SuggestedName)
		line, err := readLine(in)
		if err != nil {
			return nil, err
		}
		if line == "" {
			line = req.SuggestedName
		}
		return protocol.NameAnswer(line), nil
	case protocol.AnswersRequest:
		fmt.Fprintf(out, "Doubtful answers on document %d page %d (%s).\n",
			req.Page.DocumentID, req.Page.Page, req.Page.Picture)
		corrections, err := promptCorrections(in, out)
		if err != nil {
			return nil, err
		}
		return protocol.AnswersAnswer{Decision: protocol.DecisionAccept, Corrections: corrections}, nil
	}
	return nil, fmt.Errorf("unknown request %T", req)
}

// promptCorrections reads "question answer checked" triples until an
// empty line.
func promptCorrections(in *bufio.Reader, out io.Writer) ([]model.Correction, error) {
	fmt.Fprintln(out, `Enter corrections as "question answer y|n", empty line to accept:`)
	var corrections []model.Correction
	for {
		line, err := readLine(in)
		if err != nil {
			return nil, err
		}
		if line == "" {
			return corrections, nil
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			fmt.Fprintln(out, "Expected three fields, try again.")
			continue
		}
		question, err1 := strconv.Atoi(fields[0])
		answer, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			fmt.Fprintln(out, "Question and answer must be numbers, try again.")
			continue
		}
		corrections = append(corrections, model.Correction{
			Question: question,
			Answer:   answer,
			Checked:  strings.EqualFold(fields[2], "y"),
		})
	}
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func doRecent(cmd *cobra.Command, _ []string) error {
	sets, err := settings.Load()
	if err != nil {
		return err
	}
	for _, path := range sets.RecentFiles() {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}
