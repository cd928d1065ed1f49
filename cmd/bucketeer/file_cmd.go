// File: cmd/bucketeer/file_cmd.go
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bucketeer/internal/config"
	"bucketeer/internal/flags"
	"bucketeer/internal/service"
	"bucketeer/pkg/spaces"
	"bucketeer/pkg/storage"

	"github.com/spf13/cobra"
)

type uploadFlags struct {
	multipart bool
	chunkSize string
}

func newFileCmd() *cobra.Command {
	tf := &targetFlags{}
	var ttl time.Duration

	fileCmd := &cobra.Command{
		Use:   "file",
		Short: "Manage files",
		Long:  `Upload, read, inspect and delete files. A file path is an object key that does not end in "/".`,
	}
	tf.register(fileCmd)

	existsCmd := &cobra.Command{
		Use:   "exists [file-path]",
		Short: "Check whether a file exists",
		Long:  `Prints true when an object exists at exactly the given key. Objects stored under it as a folder do not count.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			exists, err := app.ObjectService.FileExists(cmd.Context(), tf.target(), args[0])
			if err != nil {
				return fmt.Errorf("error checking file '%s': %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), exists)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [file-path]",
		Short: "Delete a file",
		Long:  `Deletes the object at exactly the given key. Deleting a file that does not exist succeeds.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			if err := app.ObjectService.DeleteFile(cmd.Context(), tf.target(), args[0]); err != nil {
				return fmt.Errorf("error deleting file '%s': %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "File '%s' deleted.\n", args[0])
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get [file-path] [local-path]",
		Short: "Download a file",
		Long:  `Streams the file to local-path, or to standard output when local-path is omitted or "-".`,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			toFile := len(args) == 2 && args[1] != "-"
			if toFile {
				f, err := os.Create(args[1])
				if err != nil {
					return fmt.Errorf("error creating local file: %w", err)
				}
				defer f.Close()
				w = f
			}

			n, err := app.ObjectService.ReadFile(cmd.Context(), tf.target(), args[0], w)
			if err != nil {
				return fmt.Errorf("error reading file '%s': %w", args[0], err)
			}
			if toFile {
				fmt.Fprintf(cmd.ErrOrStderr(), "Downloaded %s to '%s'.\n", storage.FormatBytes(n), args[1])
			}
			return nil
		},
	}

	statCmd := &cobra.Command{
		Use:   "stat [file-path]",
		Short: "Show file metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			obj, err := app.ObjectService.StatFile(cmd.Context(), tf.target(), args[0])
			if err != nil {
				return fmt.Errorf("error describing file '%s': %w", args[0], err)
			}

			out, err := app.StorageFormatter.FormatObjectDetails(obj)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	urlCmd := &cobra.Command{
		Use:   "url [file-path]",
		Short: "Print the public URL of a file",
		Long:  `Joins the file path onto the configured origin URL (storage.origin_url or ORIGIN_URL). The store is not contacted.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			u, err := app.ObjectService.ObjectURL(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}

	presignCmd := &cobra.Command{
		Use:   "presign [file-path]",
		Short: "Print a time-limited download URL for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			u, err := app.ObjectService.PresignURL(cmd.Context(), tf.target(), args[0], ttl)
			if err != nil {
				return fmt.Errorf("error presigning file '%s': %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}
	presignCmd.Flags().DurationVar(&ttl, flags.TTL, spaces.DefaultPresignTTL, "How long the URL stays valid")

	fileCmd.AddCommand(
		newUploadCmd(tf, "upload", "Upload a local file", false),
		newUploadCmd(tf, "update", "Replace a file's content, creating it if needed", true),
		existsCmd, deleteCmd, getCmd, statCmd, urlCmd, presignCmd,
	)
	return fileCmd
}

func newUploadCmd(tf *targetFlags, use, short string, update bool) *cobra.Command {
	uf := uploadFlags{}

	cmd := &cobra.Command{
		Use:   use + " [local-path] [file-path]",
		Short: short,
		Long: `Uploads local-path (or standard input when "-") to file-path, replacing any existing object.
When file-path is omitted or ends in "/", the local file name is appended.
Files larger than the chunk size are sent as multipart uploads.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			localPath := args[0]
			filePath, err := remotePath(localPath, firstArg(args[1:]))
			if err != nil {
				return err
			}

			chunkSize := app.Config.Storage.ChunkSize
			if uf.chunkSize != "" {
				if chunkSize, err = config.ParseByteSize(uf.chunkSize); err != nil {
					return fmt.Errorf("invalid --%s: %w", flags.ChunkSize, err)
				}
			}

			data, size, closeFn, err := openLocal(cmd, localPath)
			if err != nil {
				return err
			}
			defer closeFn()

			opts := service.UploadOptions{
				Multipart: uf.multipart || size > chunkSize,
				ChunkSize: chunkSize,
			}
			if update {
				err = app.ObjectService.UpdateFile(cmd.Context(), tf.target(), filePath, data, opts)
			} else {
				err = app.ObjectService.UploadFile(cmd.Context(), tf.target(), filePath, data, opts)
			}
			if err != nil {
				return fmt.Errorf("error uploading '%s': %w", filePath, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded '%s' to '%s' in bucket '%s'.\n", localPath, filePath, tf.bucketLabel(app))
			return nil
		},
	}
	cmd.Flags().BoolVar(&uf.multipart, flags.Multipart, false, "Force a multipart upload")
	cmd.Flags().StringVar(&uf.chunkSize, flags.ChunkSize, "", "Multipart part size, e.g. 16MiB (defaults to storage.chunk_size)")
	return cmd
}

// remotePath resolves the destination key; an empty or folder-style destination takes the local file name
func remotePath(localPath, dest string) (string, error) {
	if dest != "" && !strings.HasSuffix(dest, storage.Separator) {
		return dest, nil
	}
	if localPath == "-" {
		return "", fmt.Errorf("a file path is required when uploading from standard input")
	}
	return dest + filepath.Base(localPath), nil
}

// openLocal opens localPath, or standard input for "-". Size is -1 when unknown.
func openLocal(cmd *cobra.Command, localPath string) (io.Reader, int64, func() error, error) {
	if localPath == "-" {
		return cmd.InOrStdin(), -1, func() error { return nil }, nil
	}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("error opening local file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, nil, fmt.Errorf("error reading local file: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, nil, fmt.Errorf("'%s' is a directory", localPath)
	}
	return f, info.Size(), f.Close, nil
}
