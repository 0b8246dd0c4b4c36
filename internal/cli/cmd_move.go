package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sprintloop/sprintloop/internal/board"
)

// newMoveCmd creates the move command.
func newMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <task-id> <column>",
		Short: "Move a task to a column",
		Long: `Move a task. The column drives the status: in_progress marks it
running, in_review awaiting review, done completed.

Example:
  sprintloop move task-123 todo
  sprintloop move task-123 done`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			col := board.Column(args[1])
			if !board.IsValidColumn(col) {
				return fmt.Errorf("unknown column %q (backlog, todo, in_progress, in_review, done)", args[1])
			}

			task, err := a.store.MoveTask(args[0], col)
			if err != nil {
				printError(err)
				return err
			}
			if err := a.save(ctx); err != nil {
				return err
			}
			fmt.Printf("Moved %s to %s (status: %s)\n", task.ID, task.Column, task.Status)
			return nil
		},
	}
}
