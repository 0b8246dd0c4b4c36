package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sprintloop/sprintloop/internal/assign"
	"github.com/sprintloop/sprintloop/internal/board"
)

// newNewCmd creates the new command.
func newNewCmd() *cobra.Command {
	var (
		description string
		priority    string
		labels      []string
		boardID     string
	)

	cmd := &cobra.Command{
		Use:   "new <title>",
		Short: "Create a task",
		Long: `Create a task in the backlog of the active board.

Example:
  sprintloop new "Fix login bug"
  sprintloop new "Research caching options" -d "compare redis vs memcached" -p high`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			b, err := requireActiveBoard(a, boardID)
			if err != nil {
				return err
			}

			draft := board.Draft{
				Title:       args[0],
				Description: description,
				Priority:    board.Priority(priority),
				Labels:      labels,
			}
			task, err := a.store.CreateTask(b.ID, draft)
			if err != nil {
				printError(err)
				return err
			}
			if err := a.save(ctx); err != nil {
				return err
			}

			fmt.Printf("Created task %s: %s\n", task.ID, task.Title)
			fmt.Printf("Suggested agent role: %s\n", assign.SuggestRole(task.Title, task.Description))
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "priority (low, medium, high, critical)")
	cmd.Flags().StringSliceVarP(&labels, "label", "l", nil, "labels (repeatable)")
	cmd.Flags().StringVar(&boardID, "board", "", "board id (default: active board)")
	return cmd
}
