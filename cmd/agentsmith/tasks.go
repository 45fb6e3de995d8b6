package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	tasksSkip  int
	tasksLimit int
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List your tasks, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		tasks, err := c.ListTasks(cmd.Context(), tasksSkip, tasksLimit)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(tasks)
		}
		if len(tasks) == 0 {
			printStatus("•", "No tasks yet", color.FgYellow)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tAGENT\tDESCRIPTION")
		for _, t := range tasks {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Status, deref(t.CreatedAgentID), truncate(t.Description, 50))
		}
		return w.Flush()
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the server and its dependencies are up",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		health, err := c.Health(cmd.Context())
		if jsonOut && health != nil {
			return printJSON(health)
		}
		if err != nil {
			printStatus("✗", fmt.Sprintf("Server unhealthy: %v", err), color.FgRed)
			return err
		}
		printStatus("✓", fmt.Sprintf("Server %v", health["status"]), color.FgGreen)
		if checks, ok := health["checks"].(map[string]any); ok {
			for name, v := range checks {
				fmt.Printf("  %s: %v\n", name, v)
			}
		}
		return nil
	},
}

func init() {
	tasksCmd.Flags().IntVar(&tasksSkip, "skip", 0, "Number of tasks to skip")
	tasksCmd.Flags().IntVar(&tasksLimit, "limit", 20, "Maximum number of tasks to list")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
