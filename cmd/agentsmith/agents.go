package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	agentsType  string
	agentsSkip  int
	agentsLimit int
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List your agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		agents, err := c.ListAgents(cmd.Context(), agentsType, agentsSkip, agentsLimit)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(agents)
		}
		if len(agents) == 0 {
			printStatus("•", "No agents yet", color.FgYellow)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tNAME\tMODEL\tCREATED")
		for _, a := range agents {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Archetype, a.Name, a.Model, a.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var agentsCreateCmd = &cobra.Command{
	Use:   "create <agent-type> <name>",
	Short: "Create an agent directly from a template",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		description, _ := cmd.Flags().GetString("description")
		agent, err := c.CreateFromTemplate(cmd.Context(), args[0], args[1], description)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(agent)
		}
		printStatus("✓", fmt.Sprintf("Agent %s created (%s)", agent.ID, agent.Archetype), color.FgGreen)
		return nil
	},
}

var agentsDeleteCmd = &cobra.Command{
	Use:   "delete <agent-id>",
	Short: "Delete an agent and its executions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.DeleteAgent(cmd.Context(), args[0]); err != nil {
			return err
		}
		printStatus("✓", fmt.Sprintf("Agent %s deleted", args[0]), color.FgGreen)
		return nil
	},
}

func init() {
	agentsCmd.Flags().StringVarP(&agentsType, "type", "t", "", "Only list agents of this type")
	agentsCmd.Flags().IntVar(&agentsSkip, "skip", 0, "Number of agents to skip")
	agentsCmd.Flags().IntVar(&agentsLimit, "limit", 100, "Maximum number of agents to list")

	agentsCreateCmd.Flags().String("description", "", "Agent description")

	agentsCmd.AddCommand(agentsCreateCmd)
	agentsCmd.AddCommand(agentsDeleteCmd)
}
