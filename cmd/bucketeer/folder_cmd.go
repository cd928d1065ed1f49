// File: cmd/bucketeer/folder_cmd.go
package main

import (
	"fmt"
	"strings"

	"bucketeer/internal/flags"
	"bucketeer/internal/service"
	"bucketeer/pkg/storage"

	"github.com/spf13/cobra"
)

// targetFlags select the provider and bucket for object commands
type targetFlags struct {
	provider string
	bucket   string
}

func (t *targetFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&t.provider, flags.Provider, flags.ProviderShort, "", "The provider to use (defaults to the configured provider)")
	cmd.PersistentFlags().StringVarP(&t.bucket, flags.Bucket, flags.BucketShort, "", "The bucket to use (defaults to the configured default bucket)")
}

func (t *targetFlags) target() service.Target {
	return service.Target{Provider: t.provider, Bucket: t.bucket}
}

// bucketLabel names the bucket a command will act on, for prompts and messages
func (t *targetFlags) bucketLabel(app *appContainer) string {
	if t.bucket != "" {
		return t.bucket
	}
	return app.Config.Storage.DefaultBucket
}

func newFolderCmd() *cobra.Command {
	tf := &targetFlags{}
	var force bool

	folderCmd := &cobra.Command{
		Use:   "folder",
		Short: "Manage folders",
		Long: `Folders are key prefixes ending in "/". A folder exists when its zero-byte marker
exists or when any object is stored under it.`,
	}
	tf.register(folderCmd)

	createCmd := &cobra.Command{
		Use:   "create [folder-path]",
		Short: "Create a folder marker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			if err := app.ObjectService.CreateFolder(cmd.Context(), tf.target(), args[0]); err != nil {
				return fmt.Errorf("error creating folder '%s': %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Folder '%s' created in bucket '%s'.\n", folderDisplay(args[0]), tf.bucketLabel(app))
			return nil
		},
	}

	existsCmd := &cobra.Command{
		Use:   "exists [folder-path]",
		Short: "Check whether a folder exists",
		Long:  `Prints true when the folder marker or any object under the folder exists, false otherwise.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			exists, err := app.ObjectService.FolderExists(cmd.Context(), tf.target(), args[0])
			if err != nil {
				return fmt.Errorf("error checking folder '%s': %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), exists)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [folder-path]",
		Short: "Delete a folder and everything under it",
		Long: `Deletes the folder marker and every object whose key starts with the folder path.
Deletion is not transactional: if some keys cannot be removed, the rest stay deleted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			folderPath := args[0]
			if !force {
				expected := strings.TrimRight(folderPath, storage.Separator)
				message := fmt.Sprintf("This will permanently delete every object under '%s' in bucket '%s'.", folderDisplay(folderPath), tf.bucketLabel(app))
				confirmed, err := app.Prompter.Confirm(message, expected)
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled.")
					return nil
				}
			}

			deleted, err := app.ObjectService.DeleteFolder(cmd.Context(), tf.target(), folderPath)
			if err != nil {
				return fmt.Errorf("error deleting folder '%s' (%d objects deleted before the failure): %w", folderPath, deleted, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Folder '%s' deleted (%d objects removed).\n", folderDisplay(folderPath), deleted)
			return nil
		},
	}
	deleteCmd.Flags().BoolVarP(&force, flags.Force, flags.ForceShort, false, "Delete without asking for confirmation")

	listCmd := &cobra.Command{
		Use:   "list [prefix]",
		Short: "List the immediate child folders of a prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			prefix := firstArg(args)
			folders, err := app.ObjectService.ListFolders(cmd.Context(), tf.target(), prefix)
			if err != nil {
				return fmt.Errorf("error listing folders: %w", err)
			}

			out, err := app.StorageFormatter.FormatFolderList(prefix, folders)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	folderCmd.AddCommand(createCmd, existsCmd, deleteCmd, listCmd, newContentsCmd(tf, "contents"))
	return folderCmd
}

// newListCmd is the top-level shortcut for 'folder contents'
func newListCmd() *cobra.Command {
	tf := &targetFlags{}
	cmd := newContentsCmd(tf, "ls")
	tf.register(cmd)
	return cmd
}

func newContentsCmd(tf *targetFlags, use string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [folder-path]",
		Short: "List the files and folders directly inside a folder",
		Long:  `Lists the immediate child folders and files of a folder, or of the bucket root when no path is given.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			folderPath := firstArg(args)
			entries, err := app.ObjectService.ListFolderContents(cmd.Context(), tf.target(), folderPath)
			if err != nil {
				return fmt.Errorf("error listing folder contents: %w", err)
			}

			out, err := app.StorageFormatter.FormatFolderContents(folderPath, entries)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func folderDisplay(folderPath string) string {
	return strings.TrimRight(folderPath, storage.Separator) + storage.Separator
}
