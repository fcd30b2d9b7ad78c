package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	uploadName string
	getOutput  string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Upload a local file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return err
		}

		name := uploadName
		if name == "" {
			name = filepath.Base(args[0])
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		res, err := newClient().Upload(ctx, name, f, info.Size())
		if err != nil {
			return err
		}

		return printJSON(cmd.OutOrStdout(), res)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <filename>",
	Short: "Download a stored file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		body, err := newClient().Download(ctx, args[0])
		if err != nil {
			return err
		}
		defer body.Close()

		var out io.Writer = cmd.OutOrStdout()
		if getOutput != "" && getOutput != "-" {
			var f *os.File
			if f, err = os.Create(getOutput); err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, f.Close())
			}()
			out = f
		}

		if _, err = io.Copy(out, body); err != nil {
			return fmt.Errorf("download %s: %w", args[0], err)
		}

		return nil
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		res, err := newClient().List(ctx)
		if err != nil {
			return err
		}
		for _, name := range res.Files {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}

		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadName, "name", "", "name to store the file under (default: base name of path)")
	getCmd.Flags().StringVarP(&getOutput, "output", "o", "-", "write content to file instead of stdout")
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if globalFlags.Timeout > 0 {
		return context.WithTimeout(ctx, globalFlags.Timeout)
	}

	return context.WithCancel(ctx)
}
