package commands

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/voznote/speakerid/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration and contexts.

Contexts allow you to manage multiple embedding service deployments,
similar to kubectl's context management.

Configuration is stored in ~/.speakerid/config.yaml`,
}

var configSetContextCmd = &cobra.Command{
	Use:   "set-context <name>",
	Short: "Add or update a context",
	Long: `Add or update a context with the specified name.

Example:
  speakerid config set-context prod --base-url https://embed.example.com --api-key KEY
  speakerid config set-context dev --base-url http://localhost:8001 --api-key dev-key`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		baseURL, err := cmd.Flags().GetString("base-url")
		if err != nil {
			return fmt.Errorf("failed to read 'base-url' flag: %w", err)
		}
		if baseURL == "" {
			return fmt.Errorf("--base-url is required")
		}

		apiKey, err := cmd.Flags().GetString("api-key")
		if err != nil {
			return fmt.Errorf("failed to read 'api-key' flag: %w", err)
		}
		if apiKey == "" {
			return fmt.Errorf("--api-key is required")
		}

		storeDir, err := cmd.Flags().GetString("store-dir")
		if err != nil {
			return fmt.Errorf("failed to read 'store-dir' flag: %w", err)
		}
		s3Region, err := cmd.Flags().GetString("s3-region")
		if err != nil {
			return fmt.Errorf("failed to read 's3-region' flag: %w", err)
		}
		s3Endpoint, err := cmd.Flags().GetString("s3-endpoint")
		if err != nil {
			return fmt.Errorf("failed to read 's3-endpoint' flag: %w", err)
		}

		ctx := &cli.Context{
			BaseURL:    baseURL,
			APIKey:     apiKey,
			StoreDir:   storeDir,
			S3Region:   s3Region,
			S3Endpoint: s3Endpoint,
		}

		cfg := getConfig()
		if err := cfg.SetContext(name, ctx); err != nil {
			return err
		}

		cli.PrintSuccess("Context %q saved", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cfg := getConfig()
		if err := cfg.DeleteContext(name); err != nil {
			return err
		}

		cli.PrintSuccess("Context %q deleted", name)
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cfg := getConfig()
		if err := cfg.UseContext(name); err != nil {
			return err
		}

		cli.PrintSuccess("Switched to context %q", name)
		return nil
	},
}

var configGetContextCmd = &cobra.Command{
	Use:   "get-context",
	Short: "Display the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		if cfg.CurrentContext == "" {
			fmt.Println("No current context set")
			return nil
		}

		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"get-contexts"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		if len(cfg.Contexts) == 0 {
			fmt.Println("No contexts configured")
			return nil
		}

		names := cfg.ListContexts()
		sort.Strings(names)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tBASE_URL\tSTORE_DIR")

		for _, name := range names {
			ctx := cfg.Contexts[name]
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			storeDir := ctx.StoreDir
			if storeDir == "" {
				storeDir = "(default)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", current, name, ctx.BaseURL, storeDir)
		}

		w.Flush()
		return nil
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		fmt.Printf("Config file: %s\n", cfg.Path())
		fmt.Printf("Current context: %s\n", cfg.CurrentContext)
		fmt.Printf("Contexts: %d\n", len(cfg.Contexts))

		if len(cfg.Contexts) > 0 {
			names := cfg.ListContexts()
			sort.Strings(names)

			fmt.Println("\nContext details:")
			for _, name := range names {
				ctx := cfg.Contexts[name]
				fmt.Printf("\n  %s:\n", name)
				fmt.Printf("    Base URL: %s\n", ctx.BaseURL)
				fmt.Printf("    API Key: %s\n", cli.MaskAPIKey(ctx.APIKey))
				if ctx.StoreDir != "" {
					fmt.Printf("    Store Dir: %s\n", ctx.StoreDir)
				}
				if ctx.S3Region != "" {
					fmt.Printf("    S3 Region: %s\n", ctx.S3Region)
				}
				if ctx.S3Endpoint != "" {
					fmt.Printf("    S3 Endpoint: %s\n", ctx.S3Endpoint)
				}
			}
		}

		return nil
	},
}

func init() {
	// set-context flags
	configSetContextCmd.Flags().String("base-url", "", "Embedding service base URL (required)")
	configSetContextCmd.Flags().String("api-key", "", "Embedding service API key (required)")
	configSetContextCmd.Flags().String("store-dir", "", "Profile database directory (default: ~/.speakerid/profiles)")
	configSetContextCmd.Flags().String("s3-region", "", "AWS region for s3:// recordings")
	configSetContextCmd.Flags().String("s3-endpoint", "", "S3 endpoint override (for MinIO etc.)")

	// Add subcommands
	configCmd.AddCommand(configSetContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configViewCmd)
}
