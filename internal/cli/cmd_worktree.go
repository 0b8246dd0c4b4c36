package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// newWorktreeCmd creates the worktree command group.
func newWorktreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "worktree",
		Aliases: []string{"wt"},
		Short:   "Manage task worktrees",
	}
	cmd.AddCommand(newWorktreeCreateCmd())
	cmd.AddCommand(newWorktreeListCmd())
	cmd.AddCommand(newWorktreeDiffCmd())
	cmd.AddCommand(newWorktreeRebaseCmd())
	cmd.AddCommand(newWorktreeMergeCmd())
	cmd.AddCommand(newWorktreeDeleteCmd())
	return cmd
}

func requireWorktrees(a *app) error {
	if a.worktrees == nil {
		return fmt.Errorf("worktrees are disabled; enable them in %s", configPath())
	}
	return nil
}

func newWorktreeCreateCmd() *cobra.Command {
	var branch string

	cmd := &cobra.Command{
		Use:   "create <task-id>",
		Short: "Create an isolated worktree for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			if err := requireWorktrees(a); err != nil {
				return err
			}

			taskID := args[0]
			if _, err := a.store.GetTask(taskID); err != nil {
				printError(err)
				return err
			}

			wt, err := a.worktrees.Create(ctx, taskID, branch)
			if err != nil {
				printError(err)
				return err
			}
			if _, err := a.store.SetWorktreeRef(taskID, wt.ID, wt.Branch); err != nil {
				printError(err)
				return err
			}
			if err := a.save(ctx); err != nil {
				return err
			}
			fmt.Printf("Created worktree %s on %s at %s\n", wt.ID, wt.Branch, wt.Path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&branch, "branch", "b", "", "branch name (default: derived from task id)")
	return cmd
}

func newWorktreeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List active worktrees",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			if err := requireWorktrees(a); err != nil {
				return err
			}

			active := a.worktrees.Active()
			if len(active) == 0 {
				fmt.Println("No active worktrees.")
				return nil
			}
			if jsonOut {
				return printJSON(active)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TASK\tBRANCH\tAHEAD\tBEHIND\tSTATUS")
			for _, wt := range active {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", wt.TaskID, wt.Branch, wt.AheadBy, wt.BehindBy, wt.Status)
			}
			return w.Flush()
		},
	}
}

func newWorktreeDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <task-id>",
		Short: "Show a worktree's diff against the base branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			if err := requireWorktrees(a); err != nil {
				return err
			}

			diff, err := a.worktrees.Diff(ctx, args[0])
			if err != nil {
				printError(err)
				return err
			}
			if jsonOut {
				return printJSON(diff)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, f := range diff.Files {
				fmt.Fprintf(w, "%s\t+%d\t-%d\n", f.Path, f.Additions, f.Deletions)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("%d files changed, %d insertions(+), %d deletions(-)\n",
				diff.FilesChanged, diff.Additions, diff.Deletions)
			return nil
		},
	}
}

func newWorktreeRebaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebase <task-id>",
		Short: "Rebase a worktree onto the latest base branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			if err := requireWorktrees(a); err != nil {
				return err
			}

			res, err := a.worktrees.Rebase(ctx, args[0])
			if err != nil {
				printError(err)
				return err
			}
			if err := a.save(ctx); err != nil {
				return err
			}
			if !res.Success {
				fmt.Println("Rebase blocked by conflicts:")
				for _, f := range res.Conflicts {
					fmt.Printf("  %s\n", f)
				}
				return fmt.Errorf("resolve conflicts and retry")
			}
			fmt.Printf("Rebased onto base (head: %s)\n", res.CommitSHA)
			return nil
		},
	}
}

func newWorktreeMergeCmd() *cobra.Command {
	var noSquash bool

	cmd := &cobra.Command{
		Use:   "merge <task-id>",
		Short: "Merge a worktree into the base branch",
		Long: `Merge a worktree's branch into the base branch. Conflicts are checked
first; a conflicted worktree is never merged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			if err := requireWorktrees(a); err != nil {
				return err
			}

			squash := a.cfg.Worktree.SquashMerge && !noSquash
			res, err := a.worktrees.Merge(ctx, args[0], squash)
			if err != nil {
				printError(err)
				return err
			}
			if err := a.save(ctx); err != nil {
				return err
			}
			if !res.Success {
				fmt.Println("Merge blocked by conflicts:")
				for _, f := range res.Conflicts {
					fmt.Printf("  %s\n", f)
				}
				return fmt.Errorf("resolve conflicts and retry")
			}
			fmt.Printf("Merged %s (commit: %s)\n", args[0], res.CommitSHA)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noSquash, "no-squash", false, "keep the branch's full history")
	return cmd
}

func newWorktreeDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task's worktree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			if err := requireWorktrees(a); err != nil {
				return err
			}

			if err := a.worktrees.Delete(ctx, args[0]); err != nil {
				printError(err)
				return err
			}
			if err := a.save(ctx); err != nil {
				return err
			}
			fmt.Printf("Deleted worktree for %s\n", args[0])
			return nil
		},
	}
}
