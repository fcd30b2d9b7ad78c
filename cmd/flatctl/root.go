package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sir_venger/flatstore/pkg/fileclient"
	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8000"

var globalFlags struct {
	Server   string
	Timeout  time.Duration
	Progress bool
}

// rootCmd корневая команда flatctl.
var rootCmd = &cobra.Command{
	Use:           "flatctl",
	Short:         "Client for the flatstore file storage API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	server := os.Getenv("FLATSTORE_URL")
	if server == "" {
		server = defaultServer
	}

	rootCmd.PersistentFlags().StringVar(&globalFlags.Server, "server", server, "base URL of the service (env FLATSTORE_URL)")
	rootCmd.PersistentFlags().DurationVar(&globalFlags.Timeout, "timeout", 0, "request timeout, 0 disables it")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Progress, "progress", true, "draw progress bar on stderr for transfers")

	rootCmd.AddCommand(uploadCmd, getCmd, lsCmd, metricsCmd, healthCmd, gcCmd)
}

func newClient() *fileclient.Client {
	opts := fileclient.Options{}
	if globalFlags.Progress {
		opts.Progress = os.Stderr
	}

	return fileclient.New(globalFlags.Server, opts)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
