// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/ipsniff/internal/config"
	"firestige.xyz/ipsniff/internal/daemon"
	"firestige.xyz/ipsniff/internal/log"
)

var (
	// Global flags
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ipsniff",
	Short: "ipsniff - raw socket IPv4 packet sniffer",
	Long: `ipsniff captures IPv4 datagrams from a raw socket, counts them by protocol
(TCP, UDP, ICMP, IGMP, others) and writes a report with a hex/ASCII dump of
every TCP and UDP datagram to a log file.

Live capture needs CAP_NET_RAW (usually root). Captures can be recorded to
pcap and replayed later without privileges.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (built-in defaults when empty)")

	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(validateCmd)
}

// loadConfig loads the config file, applies command-line overrides and
// re-validates the result.
func loadConfig(path string, override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
		if err := cfg.ValidateAndApplyDefaults(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// runSession initializes logging and runs one capture session to completion.
func runSession(ctx context.Context, cfg *config.Config, statusOut io.Writer) error {
	if err := log.Init(cfg.Log); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	d, err := daemon.New(cfg, daemon.Options{StatusOut: statusOut})
	if err != nil {
		return err
	}
	if err := d.Start(); err != nil {
		d.Stop()
		return err
	}
	return d.Run(ctx)
}

// exitWithError prints error message and exits with code 1
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
