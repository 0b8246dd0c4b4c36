package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newDeleteCmd creates the delete command.
func newDeleteCmd() *cobra.Command {
	var keepWorktree bool

	cmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Long:  `Delete a task from every board and release its worktree.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			taskID := args[0]
			if a.worktrees != nil && !keepWorktree {
				if err := a.worktrees.Delete(ctx, taskID); err != nil {
					printError(err)
					return err
				}
			}
			if err := a.store.DeleteTask(taskID); err != nil {
				printError(err)
				return err
			}
			if err := a.save(ctx); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", taskID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&keepWorktree, "keep-worktree", false, "leave the task's worktree in place")
	return cmd
}
