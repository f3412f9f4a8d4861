package cmd

import (
	"github.com/spf13/cobra"

	"firestige.xyz/ipsniff/internal/config"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture live traffic from a raw socket",
	Long: `Open a raw IPv4 socket and capture until interrupted (Ctrl-C or SIGTERM).

The live status line shows running totals per protocol. TCP and UDP datagrams
are written to the report sink.

Examples:
  ipsniff capture
  ipsniff capture -p all -i eth0 -o /tmp/log.txt
  ipsniff capture -p udp -w udp.pcap`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configFile, captureOverrides(cmd))
		if err != nil {
			exitWithError("invalid configuration", err)
		}
		if err := runSession(cmd.Context(), cfg, cmd.OutOrStdout()); err != nil {
			exitWithError("capture failed", err)
		}
	},
}

var (
	captureProtocol  string
	captureInterface string
	captureOutput    string
	captureRecord    string
	captureConsole   bool
)

func init() {
	captureCmd.Flags().StringVarP(&captureProtocol, "protocol", "p", "",
		"protocol to capture: tcp, udp, icmp, igmp or all")
	captureCmd.Flags().StringVarP(&captureInterface, "interface", "i", "",
		"bind to this interface (default all)")
	captureCmd.Flags().StringVarP(&captureOutput, "output", "o", "",
		"report file path")
	captureCmd.Flags().StringVarP(&captureRecord, "write", "w", "",
		"also record captured datagrams to this pcap file")
	captureCmd.Flags().BoolVar(&captureConsole, "console", false,
		"write reports to stdout instead of a file")
}

func captureOverrides(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		cfg.Capture.Source = config.SourceRaw
		if cmd.Flags().Changed("protocol") {
			cfg.Capture.Protocol = captureProtocol
		}
		if cmd.Flags().Changed("interface") {
			cfg.Capture.Interface = captureInterface
		}
		if cmd.Flags().Changed("write") {
			cfg.Capture.Record = captureRecord
		}
		applySinkFlags(cfg, cmd, captureOutput, captureConsole)
	}
}

func applySinkFlags(cfg *config.Config, cmd *cobra.Command, output string, console bool) {
	if cmd.Flags().Changed("output") {
		cfg.Sink.Type = config.SinkFile
		cfg.Sink.Path = output
	}
	if console {
		cfg.Sink.Type = config.SinkConsole
	}
}
