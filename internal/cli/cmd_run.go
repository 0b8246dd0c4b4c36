package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sprintloop/sprintloop/internal/board"
	"github.com/sprintloop/sprintloop/internal/events"
	"github.com/sprintloop/sprintloop/internal/runner"
)

// newRunCmd creates the run command.
func newRunCmd() *cobra.Command {
	var (
		allTodo  bool
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "run [task-id...]",
		Short: "Execute tasks with their agents",
		Long: `Run one or more tasks. Each task is handed to its assigned agent;
results land in the in_review column. Multiple tasks run in parallel, and
one failing never stops the others.

Example:
  sprintloop run task-123
  sprintloop run task-123 task-456
  sprintloop run --all-todo --parallel 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			ids := args
			if allTodo {
				for _, t := range a.store.TasksByColumn(board.ColumnTodo) {
					ids = append(ids, t.ID)
				}
			}
			if len(ids) == 0 {
				return fmt.Errorf("nothing to run; pass task ids or --all-todo")
			}

			if parallel > 0 {
				a.runner = runner.New(a.store, a.exec, runner.WithLimit(parallel))
			}

			onProgress := func(u events.ProgressUpdate) {
				line := fmt.Sprintf("[%s] %3d%% %s", u.TaskID, u.Progress, u.CurrentStep)
				if u.Output != "" && verbose {
					line += ": " + truncate(u.Output, 80)
				}
				fmt.Println(line)
			}

			results := a.runner.RunAll(ctx, ids, onProgress)
			if err := a.save(ctx); err != nil {
				return err
			}

			ok, failed := 0, 0
			sorted := make([]string, 0, len(results))
			for id := range results {
				sorted = append(sorted, id)
			}
			sort.Strings(sorted)
			for _, id := range sorted {
				if results[id] {
					ok++
					fmt.Printf("✓ %s\n", id)
				} else {
					failed++
					fmt.Printf("✗ %s\n", id)
				}
			}
			fmt.Printf("%d succeeded, %d failed\n", ok, failed)

			if failed > 0 {
				return fmt.Errorf("%d task(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&allTodo, "all-todo", false, "run every task in the todo column")
	cmd.Flags().IntVarP(&parallel, "parallel", "P", 0, "max tasks running at once (default from config)")
	return cmd
}
