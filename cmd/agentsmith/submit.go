package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	submitWatch bool
	submitMeta  []string
)

var submitCmd = &cobra.Command{
	Use:   "submit <description>",
	Short: "Submit a task and let the server build an agent for it",
	Long: `Submit a plain-language task. The server classifies it, builds an agent
from the matching template, and runs the agent on the description.

Use --watch to follow the task until it finishes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		meta, err := parseMetadata(submitMeta)
		if err != nil {
			return err
		}

		task, err := c.SubmitTask(cmd.Context(), strings.Join(args, " "), meta)
		if err != nil {
			return err
		}
		if jsonOut && !submitWatch {
			return printJSON(task)
		}
		printStatus("✓", fmt.Sprintf("Task %s queued", task.ID), color.FgGreen)

		if !submitWatch {
			return nil
		}
		return watchTask(cmd, c, task.ID)
	},
}

func init() {
	submitCmd.Flags().BoolVarP(&submitWatch, "watch", "w", false, "Follow the task until it finishes")
	submitCmd.Flags().StringArrayVar(&submitMeta, "meta", nil, "Metadata as key=value (repeatable)")
}

// parseMetadata turns key=value pairs into a metadata map.
func parseMetadata(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid metadata %q: expected key=value", p)
		}
		meta[k] = v
	}
	return meta, nil
}
