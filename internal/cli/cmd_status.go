package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sprintloop/sprintloop/internal/board"
)

// newStatusCmd creates the status command.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the board at a glance",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			b := a.store.GetActiveBoard()
			if b == nil {
				fmt.Println("No board yet. Create one with: sprintloop board create \"Sprint 1\"")
				return nil
			}

			if jsonOut {
				out := map[string]any{"board": b, "columns": map[string]int{}}
				for _, col := range board.Columns() {
					out["columns"].(map[string]int)[string(col)] = len(a.store.TasksByColumn(col))
				}
				if a.worktrees != nil {
					out["worktrees"] = a.worktrees.Status()
				}
				return printJSON(out)
			}

			fmt.Printf("Board: %s (%s)\n\n", b.Name, b.ID)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, col := range board.Columns() {
				tasks := a.store.TasksByColumn(col)
				fmt.Fprintf(w, "%s\t%d\n", col, len(tasks))
				for _, t := range tasks {
					fmt.Fprintf(w, "  %s\t%s  %s\n", t.ID, statusIcon(t.Status), truncate(t.Title, 50))
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if a.worktrees != nil {
				s := a.worktrees.Status()
				fmt.Printf("\nWorktrees: %d active, %d conflicted, %d ahead, %d behind\n",
					s.Active, s.Conflicted, s.Ahead, s.Behind)
			}
			return nil
		},
	}
}
