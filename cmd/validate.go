package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/ipsniff/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration (file given with -c, IPSNIFF_* environment overrides
and built-in defaults) and report whether it is valid.

With --print the effective configuration is written as YAML.

Examples:
  ipsniff validate -c /etc/ipsniff/config.yml
  ipsniff validate --print`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(configFile, validatePrint, cmd.OutOrStdout()); err != nil {
			fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
			os.Exit(1)
		}
	},
}

var validatePrint bool

func init() {
	validateCmd.Flags().BoolVar(&validatePrint, "print", false,
		"print the effective configuration as YAML")
}

func runValidate(path string, printConfig bool, out io.Writer) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	source := cfg.Capture.Source
	if source == config.SourceRaw {
		source += "/" + cfg.Capture.Protocol
	}
	fmt.Fprintf(out, "VALID: capture %s, sink %s", source, cfg.Sink.Type)
	if cfg.Sink.Type == config.SinkFile {
		fmt.Fprintf(out, " (%s)", cfg.Sink.Path)
	}
	fmt.Fprintln(out)

	if !printConfig {
		return nil
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(map[string]*config.Config{"ipsniff": cfg})
}
