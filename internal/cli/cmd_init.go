package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sprintloop/sprintloop/internal/config"
)

// newInitCmd creates the init command.
func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize sprintloop in the current project",
		Long: `Create the .sprintloop directory with a default config.

Example:
  sprintloop init
  sprintloop init --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(force); err != nil {
				return err
			}
			fmt.Println("Initialized sprintloop in .sprintloop/")
			fmt.Println("Next: sprintloop board create \"Sprint 1\" && sprintloop new \"Your first task\"")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing setup")
	return cmd
}
