package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	runWatch bool
	runMeta  []string
)

var runCmd = &cobra.Command{
	Use:   "run <agent-id> <input>",
	Short: "Run an existing agent on new input",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		meta, err := parseMetadata(runMeta)
		if err != nil {
			return err
		}

		exec, err := c.RunAgent(cmd.Context(), args[0], strings.Join(args[1:], " "), meta)
		if err != nil {
			return err
		}
		if jsonOut && !runWatch {
			return printJSON(exec)
		}
		printStatus("✓", fmt.Sprintf("Execution %s queued", exec.ID), color.FgGreen)

		if !runWatch {
			return nil
		}
		return watchExecution(cmd, c, exec.ID)
	},
}

func init() {
	runCmd.Flags().BoolVarP(&runWatch, "watch", "w", false, "Follow the execution until it finishes")
	runCmd.Flags().StringArrayVar(&runMeta, "meta", nil, "Metadata as key=value (repeatable)")
}
