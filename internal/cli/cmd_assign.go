package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sprintloop/sprintloop/internal/assign"
)

// newAssignCmd creates the assign command.
func newAssignCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "assign <task-id> [role]",
		Short: "Assign an agent role to a task",
		Long: `Assign an agent role. With no role given, one is suggested from the
task's text.

Roles: communications, research, development, browser, creative, personal

Example:
  sprintloop assign task-123 development
  sprintloop assign task-123`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			taskID := args[0]
			var role string
			if len(args) == 2 {
				role = args[1]
				if !assign.IsValidRole(role) {
					return fmt.Errorf("unknown role %q (valid: %v)", role, assign.Roles())
				}
			} else {
				task, err := a.store.GetTask(taskID)
				if err != nil {
					printError(err)
					return err
				}
				role = assign.SuggestRole(task.Title, task.Description)
			}

			task, err := a.store.AssignAgent(taskID, role, model)
			if err != nil {
				printError(err)
				return err
			}
			if err := a.save(ctx); err != nil {
				return err
			}
			fmt.Printf("Assigned %s to %s (branch: %s)\n", task.ID, task.AssignedAgent, task.GitBranch)
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "agent model")
	return cmd
}
