package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/agentsmith/internal/client"
	"github.com/ShayCichocki/agentsmith/internal/config"
)

var (
	serverURL string
	userID    string
	jsonOut   bool
)

var rootCmd = &cobra.Command{
	Use:   "agentsmith",
	Short: "Turn task descriptions into specialised AI agents",
	Long: `agentsmith classifies a plain-language task, builds an agent from the
matching archetype template, stores it, and runs it against an LLM.

Run "agentsmith serve" to start the API and worker pool. The other
commands talk to a running server.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Server URL (default from config server.url)")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "User ID sent as X-User-ID (default $USER)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Print raw JSON")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// newClient builds an API client from flags, falling back to config.
func newClient() (*client.HTTPClient, error) {
	base := serverURL
	if base == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		base = cfg.Server.URL
	}
	user := userID
	if user == "" {
		user = os.Getenv("USER")
	}
	return client.New(base, user), nil
}
