package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/openmcq/corrector/internal/log"
)

var flagVerbose bool // value of --verbose flag

func main() {
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	// never print messages
	rootCmd.SilenceErrors = true

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		slog.SetDefault(log.New(flagVerbose))
	}

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(childScanCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("corrector failed", "err", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "corrector",
	Short:        "Interactive corrector for scanned MCQ answer sheets",
	SilenceUsage: true,
}

var scanCmd = &cobra.Command{
	Use:   "scan <config>",
	Short: "scan the answer sheets of an MCQ configuration, asking the operator to resolve ambiguities",
	Args:  cobra.ExactArgs(1),
	RunE:  doScan,
}

var childScanCmd = &cobra.Command{
	Use:    "_scan",
	Short:  "internal command",
	Args:   cobra.ExactArgs(1),
	RunE:   doChildScan,
	Hidden: true,
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "list recently scanned configurations",
	RunE:  doRecent,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provides the version of the corrector",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("corrector: version info not available")
			return
		}

		fmt.Printf("corrector: %s\n", info.Main.Version)
		fmt.Printf("go:        %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit:    %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:      %s\n", s.Value)
			case "vcs.modified":
				fmt.Printf("dirty:     %s\n", s.Value)
			}
		}
	},
}
