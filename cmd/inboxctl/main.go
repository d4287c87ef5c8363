package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagConfig string
	flagServer string
	flagToken  string
	flagUser   string
)

var rootCmd = &cobra.Command{
	Use:           "inboxctl",
	Short:         "Inspect and drive an inbox session from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.inbox/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "API base url")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "bearer token")
	rootCmd.PersistentFlags().StringVar(&flagUser, "user", "", "session user id")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
