package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voznote/speakerid/pkg/cli"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check embedding service availability",
	Long: `Check that the embedding service for the current context is
configured and reachable. Exits non-zero when it is not.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cctx := getContext()
		client := newEmbeddingClient(cctx)

		if !client.IsConfigured() {
			return fmt.Errorf("embedding service not configured (set a context or %s/%s)",
				cli.EnvBaseURL, cli.EnvAPIKey)
		}

		if !client.HealthCheck(cmd.Context()) {
			return fmt.Errorf("embedding service at %s is not healthy", cctx.BaseURL)
		}

		cli.PrintSuccess("embedding service at %s is healthy", cctx.BaseURL)
		return nil
	},
}
