package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethanbaker/tabletalk/pkg/sdk"
	"github.com/ethanbaker/tabletalk/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "tabletalk",
		Short: "Ask questions about a CSV file from the terminal",
		Long: `tabletalk connects to a tabletalk API server, uploads a CSV file and
answers natural language questions about it. Lines starting with ':' are
commands, anything else is a question.`,
		Args: cobra.NoArgs,
		Run:  runInteractive,
	}
	serverURL string
	apiKey    string
	loadFile  string
)

func init() {
	rootCmd.Flags().StringVar(&serverURL, "server", "", "Base URL of the API server (default from API_URL or http://localhost:8080)")
	rootCmd.Flags().StringVar(&apiKey, "api-key", "", "API key sent as X-API-KEY (default from API_KEY)")
	rootCmd.Flags().StringVarP(&loadFile, "file", "f", "", "CSV file to upload on startup")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runInteractive(cmd *cobra.Command, args []string) {
	// Load global config for defaults
	cfg := utils.NewConfigFromEnv(utils.EnvFile())
	if serverURL == "" {
		serverURL = cfg.GetWithDefault("API_URL", "http://localhost:8080")
	}
	if apiKey == "" {
		apiKey = cfg.Get("API_KEY")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := newREPL(sdk.NewClient(serverURL, apiKey), cmd.OutOrStdout())
	if err := r.start(ctx); err != nil {
		log.Fatalf("[COMMANDLINE]: Failed to start session: %v", err)
	}

	if loadFile != "" {
		if _, err := r.handle(ctx, ":load "+loadFile); err != nil {
			log.Printf("[COMMANDLINE]: %v", err)
		}
	}

	if err := r.run(ctx, cmd.InOrStdin()); err != nil && ctx.Err() == nil {
		log.Fatalf("[COMMANDLINE]: %v", err)
	}
}
