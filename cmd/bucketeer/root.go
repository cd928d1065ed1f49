// File: cmd/bucketeer/root.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bucketeer/internal/flags"
	"bucketeer/internal/logger"
	"bucketeer/pkg/formatter"
	"bucketeer/pkg/storage"

	"github.com/spf13/cobra"
)

// Commands carrying this annotation run without loading and validating the configuration
const skipConfigLoad = "bucketeer/skip-config-load"

// Exit codes let scripts tell error kinds apart
const (
	exitOK = iota
	exitError
	exitConfiguration
	exitConnection
	exitValidation
	exitStore
	exitNotFound
)

type rootFlags struct {
	debug      bool
	configPath string
	output     string
}

func newRootCmd() *cobra.Command {
	rf := rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "bucketeer",
		Short: "Bucketeer manages folders and files in S3-compatible object storage.",
		Long: `A folder-oriented CLI for object storage. Bucketeer treats key prefixes ending in
"/" as folders on DigitalOcean Spaces, AWS S3 and Google Cloud Storage, so you can
create, list and delete folders and upload, read and remove files without
thinking about flat keys.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log := logger.NewLogger(logger.LevelFor(rf.debug))

			format, err := formatter.ParseFormat(rf.output)
			if err != nil {
				return err
			}

			app, err := newApp(appOptions{
				configPath: rf.configPath,
				format:     format,
				skipLoad:   skipsConfigLoad(cmd),
				in:         cmd.InOrStdin(),
				out:        cmd.ErrOrStderr(),
			}, log)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}

			cmd.SetContext(withApp(cmd.Context(), app))
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&rf.debug, flags.Debug, flags.DebugShort, false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&rf.configPath, flags.Config, "", "Path to the config file (default ~/.config/bucketeer/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rf.output, flags.Output, flags.OutputShort, "table", "Output format: table, json or yaml")

	rootCmd.AddCommand(
		newBucketCmd(),
		newFolderCmd(),
		newFileCmd(),
		newListCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

// skipsConfigLoad reports whether cmd or one of its parents carries the skipConfigLoad annotation
func skipsConfigLoad(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipConfigLoad] == "true" {
			return true
		}
	}
	return false
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	var batchErr *storage.BatchDeleteError
	switch kind := storage.KindOf(err); {
	case kind == storage.ErrConfiguration:
		return exitConfiguration
	case kind == storage.ErrConnection:
		return exitConnection
	case kind == storage.ErrValidation:
		return exitValidation
	case kind == storage.ErrNotFound:
		return exitNotFound
	case kind == storage.ErrStore, errors.As(err, &batchErr):
		return exitStore
	default:
		return exitError
	}
}
