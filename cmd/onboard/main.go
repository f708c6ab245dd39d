package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"satnam/internal/platform/config"
)

var (
	opsAddr string
	envFile string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "onboard",
		Short: "Onboard participants onto the satnam identity network",
		Long: `onboard walks a coordinator through creating Nostr identities, binding
NFC cards, provisioning Lightning wallets and attesting each participant.

Sessions can be paused and resumed. While a session runs, a local ops API
exposes its state on SATNAM_OPS_ADDR.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file of SATNAM_* settings loaded before the environment is read")
	root.PersistentFlags().StringVar(&opsAddr, "ops-addr", "", "ops API address (overrides SATNAM_OPS_ADDR, \"off\" disables it)")

	root.AddCommand(
		newStartCmd(),
		newResumeCmd(),
		newSessionsCmd(),
		newTemplateCmd(),
		newTokenCmd(),
	)
	return root
}

// loadConfig loads the env file, reads the environment and applies flag
// overrides. Variables already set win over the file; a missing file is
// not an error.
func loadConfig() (config.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg := config.FromEnv()
	if opsAddr != "" {
		cfg.Ops.Addr = opsAddr
	}
	if cfg.Ops.Addr == "off" {
		cfg.Ops.Addr = ""
	}
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("✗")+" "+err.Error())
		os.Exit(1)
	}
}
