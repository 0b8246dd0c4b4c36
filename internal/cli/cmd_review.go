package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sprintloop/sprintloop/internal/board"
)

// newReviewCmd creates the review command group.
func newReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review tasks awaiting approval",
	}
	cmd.AddCommand(newReviewApproveCmd())
	cmd.AddCommand(newReviewRejectCmd())
	cmd.AddCommand(newReviewCommentCmd())
	return cmd
}

func newReviewApproveCmd() *cobra.Command {
	var complete bool

	cmd := &cobra.Command{
		Use:   "approve <task-id>",
		Short: "Approve a task's changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			task, err := a.store.ApproveReview(args[0])
			if err != nil {
				printError(err)
				return err
			}
			if complete {
				if task, err = a.store.CompleteTask(args[0]); err != nil {
					printError(err)
					return err
				}
			}
			if err := a.save(ctx); err != nil {
				return err
			}

			if complete {
				fmt.Printf("Approved and completed %s\n", task.ID)
			} else {
				fmt.Printf("Approved %s (move to done with 'sprintloop move %s done')\n", task.ID, task.ID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&complete, "complete", false, "also move the task to done")
	return cmd
}

func newReviewRejectCmd() *cobra.Command {
	var author string

	cmd := &cobra.Command{
		Use:   "reject <task-id> <comment>",
		Short: "Request changes on a task",
		Long: `Request changes. The task keeps its column; re-run it after the
agent addresses the comment.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			task, err := a.store.RequestChanges(args[0], author, args[1])
			if err != nil {
				printError(err)
				return err
			}
			if err := a.save(ctx); err != nil {
				return err
			}
			fmt.Printf("Requested changes on %s (%d comment(s))\n", task.ID, len(task.ReviewComments))
			return nil
		},
	}

	cmd.Flags().StringVar(&author, "author", "reviewer", "comment author")
	return cmd
}

func newReviewCommentCmd() *cobra.Command {
	var (
		author   string
		filePath string
		line     int
	)

	cmd := &cobra.Command{
		Use:   "comment <task-id> <comment>",
		Short: "Add a review comment without changing review state",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			task, err := a.store.AddReviewComment(args[0], board.CommentDraft{
				Author:     author,
				Content:    args[1],
				FilePath:   filePath,
				LineNumber: line,
			})
			if err != nil {
				printError(err)
				return err
			}
			if err := a.save(ctx); err != nil {
				return err
			}
			fmt.Printf("Added comment to %s (%d total)\n", task.ID, len(task.ReviewComments))
			return nil
		},
	}

	cmd.Flags().StringVar(&author, "author", "reviewer", "comment author")
	cmd.Flags().StringVar(&filePath, "file", "", "file the comment refers to")
	cmd.Flags().IntVar(&line, "line", 0, "line the comment refers to")
	return cmd
}
