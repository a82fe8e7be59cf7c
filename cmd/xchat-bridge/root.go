package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZentaChain/zentalk-xchat/pkg/config"
)

var (
	// Global flags
	cfgFile     string
	backendAddr string

	// Shared state set during PersistentPreRun
	cfg *config.Config
)

// rootCmd is the base command for xchat-bridge.
var rootCmd = &cobra.Command{
	Use:   "xchat-bridge",
	Short: "Bridge between a chat user interface and the xchat daemon",
	Long: `xchat-bridge talks to the xchat daemon over a loopback UDP socket.
It decodes the daemon's frames into chat events, keeps a local history,
and exposes a small HTTP and websocket API for user interfaces.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Override config with flags
		if backendAddr != "" {
			cfg.Backend = backendAddr
		}

		return cfg.Validate()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.xchat/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&backendAddr, "backend", "", "daemon multiaddr (default /ip4/127.0.0.1/udp/41244)")
}
