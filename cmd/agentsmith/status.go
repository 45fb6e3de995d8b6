package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/agentsmith/internal/client"
)

var (
	statusExecution bool
	statusDetail    bool
)

var statusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show the status of a task or execution",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		if statusDetail {
			if statusExecution {
				e, err := c.GetExecution(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(e)
			}
			t, err := c.GetTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(t)
		}

		var st client.Status
		if statusExecution {
			st, err = c.ExecutionStatus(cmd.Context(), args[0])
		} else {
			st, err = c.TaskStatus(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(st)
		}
		printFinalStatus(st)
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVarP(&statusExecution, "execution", "e", false, "Treat the id as an execution")
	statusCmd.Flags().BoolVar(&statusDetail, "detail", false, "Print the full stored record")
}

// printFinalStatus prints a status with its output or error.
func printFinalStatus(st client.Status) {
	switch st.Status {
	case "completed":
		printStatus("✓", fmt.Sprintf("%s completed", st.ID), color.FgGreen)
	case "failed":
		printStatus("✗", fmt.Sprintf("%s failed", st.ID), color.FgRed)
	default:
		printStatus("•", fmt.Sprintf("%s %s", st.ID, st.Status), color.FgYellow)
	}

	if msg := deref(st.Error); msg != "" {
		fmt.Printf("  error: %s\n", msg)
	}
	if out := deref(st.Output); out != "" {
		fmt.Printf("\n%s\n", out)
	}
	if st.Result != nil {
		if id, ok := st.Result["agent_id"].(string); ok {
			fmt.Printf("  agent: %s (%v)\n", id, st.Result["agent_type"])
		}
		if out, ok := st.Result["output"].(string); ok && out != "" {
			fmt.Printf("\n%s\n", out)
		}
	}
}
