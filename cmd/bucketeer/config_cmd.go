// File: cmd/bucketeer/config_cmd.go
package main

import (
	"fmt"
	"strings"

	"bucketeer/internal/config"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage the configuration file: provider credentials, the default bucket and upload defaults.
Environment variables (ACCESS_KEY_ID, SECRET_ACCESS_KEY, REGION, DEFAULT_BUCKET_NAME, ORIGIN_URL, BUCKETEER_*) take precedence over the file.
These commands do not validate the existing file first, so they can repair a broken one.`,
		Annotations: map[string]string{skipConfigLoad: "true"},
	}

	configCmd.AddCommand(
		newConfigSetCmd(),
		newConfigGetCmd(),
		newConfigDeleteCmd(),
		newConfigListCmd(),
		newConfigKeysCmd(),
	)
	return configCmd
}

// configAction adapts a handler that needs the config manager and a normalised key to cobra's RunE
func configAction(fn func(cmd *cobra.Command, m *config.ConfigManager, key string, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := appFromContext(cmd.Context())
		if err != nil {
			return err
		}
		return fn(cmd, app.ConfigManager, strings.ToLower(strings.TrimSpace(args[0])), args[1:])
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Set a configuration value",
		Long:  `Validates and writes a value to the config file, e.g. 'bucketeer config set storage.default_bucket media'. Run 'bucketeer config keys' for the accepted keys.`,
		Args:  cobra.ExactArgs(2),
		RunE: configAction(func(cmd *cobra.Command, m *config.ConfigManager, key string, rest []string) error {
			if err := m.SetValue(key, rest[0]); err != nil {
				return fmt.Errorf("error setting '%s': %w", key, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s set to %s in %s\n", key, displayValue(key, rest[0]), m.Path())
			return nil
		}),
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Print the effective value of a configuration key",
		Long:  `Prints the value in effect after applying defaults, the config file and the environment, e.g. 'bucketeer config get s3.region'.`,
		Args:  cobra.ExactArgs(1),
		RunE: configAction(func(cmd *cobra.Command, m *config.ConfigManager, key string, _ []string) error {
			value, ok := m.GetValue(key)
			if !ok || value == nil || value == "" {
				return fmt.Errorf("configuration key '%s' is not set", key)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, displayValue(key, fmt.Sprint(value)))
			return nil
		}),
	}
}

func newConfigDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [key]",
		Short: "Remove a configuration value from the config file",
		Long:  `Removes a key from the config file so its default or environment value applies again, e.g. 'bucketeer config delete gcp.project'.`,
		Args:  cobra.ExactArgs(1),
		RunE: configAction(func(cmd *cobra.Command, m *config.ConfigManager, key string, _ []string) error {
			deleted, err := m.DeleteValue(key)
			if err != nil {
				return fmt.Errorf("error deleting '%s': %w", key, err)
			}
			if !deleted {
				return fmt.Errorf("configuration key '%s' is not set in %s", key, m.Path())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s removed from %s\n", key, m.Path())
			return nil
		}),
	}
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the configuration values in effect",
		Long:  `Lists every value in effect from defaults, the config file and the environment. Secrets are masked. Honours --output.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			settings := flattenSettings(app.ConfigManager.GetAllSettings())
			out, err := app.StorageFormatter.FormatSettings(app.ConfigManager.Path(), settings)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newConfigKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List the configuration keys that can be set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(config.ValidKeys(), "\n"))
			return nil
		},
	}
}

// flattenSettings turns viper's nested settings into dotted keys, dropping unset values
func flattenSettings(nested map[string]any) map[string]string {
	flat := make(map[string]string)

	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			switch val := v.(type) {
			case map[string]any:
				walk(key, val)
			case nil:
			default:
				if s := fmt.Sprint(val); s != "" {
					flat[key] = s
				}
			}
		}
	}

	walk("", nested)
	return flat
}

// displayValue keeps secrets out of terminal scrollback
func displayValue(key, value string) string {
	if strings.HasSuffix(key, "secret_access_key") {
		return strings.Repeat("*", len(value))
	}
	return value
}
