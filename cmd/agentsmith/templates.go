package main

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/agentsmith/internal/catalog"
)

var templatesRemote bool

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Print the agent templates as YAML",
	Long: `Print the archetype templates used to build agents.

By default the templates compiled into this binary are shown. Use --remote
to fetch them from the server instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		templates := catalog.All()
		if templatesRemote {
			c, err := newClient()
			if err != nil {
				return err
			}
			templates, err = c.Templates(cmd.Context())
			if err != nil {
				return err
			}
		}
		if jsonOut {
			return printJSON(templates)
		}

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(templates); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	templatesCmd.Flags().BoolVar(&templatesRemote, "remote", false, "Fetch templates from the server")
}
