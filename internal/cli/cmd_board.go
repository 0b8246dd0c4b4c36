package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// newBoardCmd creates the board command group.
func newBoardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Manage boards",
	}
	cmd.AddCommand(newBoardCreateCmd())
	cmd.AddCommand(newBoardListCmd())
	cmd.AddCommand(newBoardUseCmd())
	return cmd
}

func newBoardCreateCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a board and make it active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			b := a.store.CreateBoard(args[0], description)
			if err := a.save(ctx); err != nil {
				return err
			}
			fmt.Printf("Created board %s (%s)\n", b.Name, b.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "board description")
	return cmd
}

func newBoardListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List boards",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			boards := a.store.Boards()
			if len(boards) == 0 {
				fmt.Println("No boards yet. Create one with: sprintloop board create \"Sprint 1\"")
				return nil
			}
			if jsonOut {
				return printJSON(boards)
			}

			active := a.store.GetActiveBoard()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTASKS\tACTIVE")
			for _, b := range boards {
				mark := ""
				if active != nil && active.ID == b.ID {
					mark = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", b.ID, b.Name, len(b.TaskIDs), mark)
			}
			return w.Flush()
		},
	}
}

func newBoardUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <board-id>",
		Short: "Make a board the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.SetActiveBoard(args[0]); err != nil {
				printError(err)
				return err
			}
			if err := a.save(ctx); err != nil {
				return err
			}
			fmt.Printf("Active board is now %s\n", args[0])
			return nil
		},
	}
}
