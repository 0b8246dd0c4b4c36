package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newShowCmd creates the show command.
func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task's full record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			task, err := a.store.GetTask(args[0])
			if err != nil {
				printError(err)
				return err
			}
			if jsonOut {
				return printJSON(task)
			}

			fmt.Printf("%s  %s\n", task.ID, task.Title)
			fmt.Printf("  column: %s  status: %s  priority: %s\n", task.Column, task.Status, task.Priority)
			if task.Description != "" {
				fmt.Printf("  description: %s\n", task.Description)
			}
			if task.AssignedAgent != "" {
				fmt.Printf("  agent: %s", task.AssignedAgent)
				if task.AgentModel != "" {
					fmt.Printf(" (%s)", task.AgentModel)
				}
				fmt.Println()
			}
			if task.GitBranch != "" {
				fmt.Printf("  branch: %s\n", task.GitBranch)
			}
			fmt.Printf("  progress: %d%%\n", task.Progress)
			if len(task.Commits) > 0 {
				fmt.Printf("  commits:\n")
				for _, c := range task.Commits {
					sha := c.SHA
					if len(sha) > 8 {
						sha = sha[:8]
					}
					fmt.Printf("    %s  %s\n", sha, c.Message)
				}
			}
			if len(task.ReviewComments) > 0 {
				fmt.Printf("  review comments:\n")
				for _, rc := range task.ReviewComments {
					fmt.Printf("    [%s] %s\n", rc.Author, rc.Content)
				}
			}
			return nil
		},
	}
}
