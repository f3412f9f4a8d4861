package cmd

import (
	"github.com/spf13/cobra"

	"firestige.xyz/ipsniff/internal/config"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Process a pcap or pcapng file as if it were live traffic",
	Long: `Read every IPv4 datagram from a capture file, count and report it exactly
like a live capture, and exit when the file ends.

Examples:
  ipsniff replay -f capture.pcap
  ipsniff replay -f capture.pcapng -o /tmp/log.txt`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configFile, replayOverrides(cmd))
		if err != nil {
			exitWithError("invalid configuration", err)
		}
		if err := runSession(cmd.Context(), cfg, cmd.OutOrStdout()); err != nil {
			exitWithError("replay failed", err)
		}
	},
}

var (
	replayFile    string
	replayOutput  string
	replayConsole bool
)

func init() {
	replayCmd.Flags().StringVarP(&replayFile, "file", "f", "",
		"pcap or pcapng file to replay (required)")
	replayCmd.Flags().StringVarP(&replayOutput, "output", "o", "",
		"report file path")
	replayCmd.Flags().BoolVar(&replayConsole, "console", false,
		"write reports to stdout instead of a file")
	replayCmd.MarkFlagRequired("file")
}

func replayOverrides(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		cfg.Capture.Source = config.SourceFile
		cfg.Capture.File = replayFile
		applySinkFlags(cfg, cmd, replayOutput, replayConsole)
	}
}
