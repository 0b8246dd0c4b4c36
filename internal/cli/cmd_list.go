package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sprintloop/sprintloop/internal/board"
)

// newListCmd creates the list command.
func newListCmd() *cobra.Command {
	var (
		column  string
		agent   string
		boardID string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Long: `List tasks on the active board.

Example:
  sprintloop list
  sprintloop list --column in_progress
  sprintloop list --agent development`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			var tasks []*board.Task
			switch {
			case column != "":
				col := board.Column(column)
				if !board.IsValidColumn(col) {
					return fmt.Errorf("unknown column %q (backlog, todo, in_progress, in_review, done)", column)
				}
				tasks = a.store.TasksByColumn(col)
			case agent != "":
				tasks = a.store.TasksByAgent(agent)
			default:
				b, err := requireActiveBoard(a, boardID)
				if err != nil {
					return err
				}
				tasks = a.store.BoardTasks(b.ID)
			}

			if len(tasks) == 0 {
				fmt.Println("No tasks found. Create one with: sprintloop new \"Your task\"")
				return nil
			}
			if jsonOut {
				return printJSON(tasks)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCOLUMN\tSTATUS\tAGENT\tPRIORITY\tTITLE")
			for _, t := range tasks {
				agentRole := t.AssignedAgent
				if agentRole == "" {
					agentRole = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					t.ID, t.Column, statusIcon(t.Status), agentRole, t.Priority, truncate(t.Title, 40))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&column, "column", "c", "", "filter by column")
	cmd.Flags().StringVarP(&agent, "agent", "a", "", "filter by assigned agent role")
	cmd.Flags().StringVar(&boardID, "board", "", "board id (default: active board)")
	return cmd
}
