package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/agentsmith/internal/client"
	"github.com/ShayCichocki/agentsmith/internal/tui"
)

var (
	watchExecutionFlag bool
	watchInterval      time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <id>",
	Short: "Follow a task or execution until it finishes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if watchExecutionFlag {
			return watchExecution(cmd, c, args[0])
		}
		return watchTask(cmd, c, args[0])
	},
}

func init() {
	watchCmd.Flags().BoolVarP(&watchExecutionFlag, "execution", "e", false, "Treat the id as an execution")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", time.Second, "Polling interval")
}

func watchTask(cmd *cobra.Command, c *client.HTTPClient, id string) error {
	return follow(cmd, "task", id, func(ctx context.Context) (client.Status, error) {
		return c.TaskStatus(ctx, id)
	})
}

func watchExecution(cmd *cobra.Command, c *client.HTTPClient, id string) error {
	return follow(cmd, "execution", id, func(ctx context.Context) (client.Status, error) {
		return c.ExecutionStatus(ctx, id)
	})
}

func follow(cmd *cobra.Command, kind, id string, fetch tui.FetchFunc) error {
	interval := watchInterval
	if interval <= 0 {
		interval = time.Second
	}
	st, err := tui.Watch(kind, id, fetch, interval)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(st)
	}
	if st.Terminal() {
		printFinalStatus(st)
	}
	return nil
}
