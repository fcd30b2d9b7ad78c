package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show storage metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		res, err := newClient().Metrics(ctx)
		if err != nil {
			return err
		}

		return printJSON(cmd.OutOrStdout(), res)
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check service health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		res, err := newClient().Health(ctx)
		if perr := printJSON(cmd.OutOrStdout(), res); perr != nil && err == nil {
			err = perr
		}

		return err
	},
}

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove stale unfinished writes on the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		if err := newClient().GC(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "gc done")

		return nil
	},
}
