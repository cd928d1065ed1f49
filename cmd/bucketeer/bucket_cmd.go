// File: cmd/bucketeer/bucket_cmd.go
package main

import (
	"fmt"
	"strings"

	"bucketeer/internal/flags"
	"bucketeer/internal/provider/factory"
	"bucketeer/internal/provider/registry"
	"bucketeer/internal/service"

	"github.com/spf13/cobra"
)

type bucketFlags struct {
	providersList []string
	provider      string
	location      string
}

func newBucketCmd() *cobra.Command {
	cmdFlags := bucketFlags{}

	bucketCmd := &cobra.Command{
		Use:   "bucket",
		Short: "Manage storage buckets",
		Long:  `The bucket command allows you to list, describe and create buckets on configured providers.`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List storage buckets",
		Long: `Lists all storage buckets. If no flags are provided, it queries all configured providers.
Use the --providers flag to specify which providers to query (e.g., --providers spaces,gcp).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			providersToQuery, err := resolveProvidersForList(cmdFlags.providersList, app.ProviderFactory)
			if err != nil {
				return err
			}
			if len(providersToQuery) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No providers configured. Use 'bucketeer config set'. Supported providers: %s\n", strings.Join(registry.GetSupportedProviders(), ", "))
				return nil
			}

			allBuckets, listErr := app.ObjectService.ListAllBuckets(cmd.Context(), providersToQuery)
			if len(allBuckets) == 0 && listErr == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No buckets found.")
				return nil
			}

			if len(allBuckets) > 0 {
				out, err := app.StorageFormatter.FormatBucketList(allBuckets)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
			}
			if listErr != nil {
				return fmt.Errorf("some providers could not be listed: %w", listErr)
			}
			return nil
		},
	}
	listCmd.Flags().StringSliceVarP(&cmdFlags.providersList, flags.Providers, flags.ProvidersShort, []string{}, "Specify providers to query (comma-separated). Defaults to all configured providers.")

	describeCmd := &cobra.Command{
		Use:   "describe [bucket-name]",
		Short: "Describe a storage bucket",
		Long:  `Provides detailed information about a bucket. Without a name, the configured default bucket is described.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			target := service.Target{Provider: cmdFlags.provider, Bucket: firstArg(args)}
			bucketDetails, err := app.ObjectService.DescribeBucket(cmd.Context(), target)
			if err != nil {
				return fmt.Errorf("error describing bucket: %w", err)
			}

			out, err := app.StorageFormatter.FormatBucketDetails(bucketDetails)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	describeCmd.Flags().StringVarP(&cmdFlags.provider, flags.Provider, flags.ProviderShort, "", "The provider where the bucket resides (defaults to the configured provider)")

	createCmd := &cobra.Command{
		Use:   "create [bucket-name]",
		Short: "Create a new storage bucket",
		Long:  `Creates a new bucket on the selected provider. Without a name, the configured default bucket is created.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			target := service.Target{Provider: cmdFlags.provider, Bucket: firstArg(args)}
			name, err := app.ObjectService.CreateBucket(cmd.Context(), target, cmdFlags.location)
			if err != nil {
				return fmt.Errorf("error creating bucket: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Bucket '%s' created successfully on provider %s.\n", name, app.ProviderFactory.ResolveProvider(cmdFlags.provider))
			return nil
		},
	}
	createCmd.Flags().StringVarP(&cmdFlags.provider, flags.Provider, flags.ProviderShort, "", "The provider to create the bucket on (defaults to the configured provider)")
	createCmd.Flags().StringVarP(&cmdFlags.location, flags.Location, flags.LocationShort, "", "The location/region to create the bucket in (defaults to the provider region)")

	bucketCmd.AddCommand(listCmd, describeCmd, createCmd)
	return bucketCmd
}

func resolveProvidersForList(requestedProviders []string, providerFactory *factory.Factory) ([]string, error) {
	if len(requestedProviders) == 0 {
		return providerFactory.GetConfiguredProviders(), nil
	}

	var validatedProviders []string
	var invalidProviders []string
	seen := make(map[string]bool)

	for _, p := range requestedProviders {
		p = strings.ToLower(strings.TrimSpace(p))

		if seen[p] {
			continue
		}
		seen[p] = true

		if registry.IsSupported(p) {
			if providerFactory.IsConfigured(p) {
				validatedProviders = append(validatedProviders, p)
			} else {
				return nil, fmt.Errorf("provider '%s' was requested but is not configured. Use 'bucketeer config set <key> <value>'", p)
			}
		} else {
			invalidProviders = append(invalidProviders, p)
		}
	}

	if len(invalidProviders) > 0 {
		return nil, fmt.Errorf("unsupported providers requested: %v. Supported providers are: %v", invalidProviders, registry.GetSupportedProviders())
	}

	return validatedProviders, nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
