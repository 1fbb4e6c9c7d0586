package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/voznote/speakerid/pkg/cli"
	"github.com/voznote/speakerid/pkg/embedding"
)

var (
	// Global flags
	cfgFile     string
	contextName string
	outputFile  string
	outputJSON  bool
	verbose     bool

	// Global configuration
	globalConfig *cli.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "speakerid",
	Short: "Speaker identification CLI tool",
	Long: `speakerid - identify who is speaking in meeting recordings.

Given a recording and its diarization segments, this tool extracts a
voice sample per speaker, obtains a voice embedding from the embedding
service, and matches it against the local speaker profile database.
Unmatched voices become new profiles.

Configuration is stored in ~/.speakerid/ and supports multiple contexts,
similar to kubectl's context management.

Examples:
  # Set up a context pointing at the embedding service
  speakerid config set-context prod --base-url https://embed.example.com --api-key KEY

  # Identify speakers in a recording
  speakerid identify meeting.wav segments.json

  # Recordings can live in S3
  speakerid identify s3://recordings/meet-42.m4a segments.json --json
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.speakerid/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(identifyCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(profilesCmd)
}

func initConfig() {
	var err error
	globalConfig, err = cli.LoadConfigWithPath(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}

// getConfig returns the global configuration
func getConfig() *cli.Config {
	return globalConfig
}

// getContext returns the effective context (file settings plus
// environment overrides).
func getContext() *cli.Context {
	return getConfig().Resolve(contextName)
}

// newEmbeddingClient builds a client from the effective context. It is
// left unconfigured when the context carries no service settings; the
// pipeline reports that as a configuration error.
func newEmbeddingClient(ctx *cli.Context) *embedding.Client {
	client := embedding.NewClient()
	if ctx.BaseURL != "" && ctx.APIKey != "" {
		client.Configure(ctx.BaseURL, ctx.APIKey)
	}
	return client
}

// newLogger builds the slog logger used by long-running commands. Logs
// go to stderr so stdout stays clean for piped output.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// outputResult outputs the result using cli package
func outputResult(result any) error {
	format := cli.FormatYAML
	if outputJSON {
		format = cli.FormatJSON
	}
	return cli.Output(result, cli.OutputOptions{
		Format: format,
		File:   outputFile,
	})
}
