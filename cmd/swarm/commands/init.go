package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/swarm/internal/scaffold"
)

var (
	forceInit bool
)

var initCmd = &cobra.Command{
	Use:   "init [DIR]",
	Short: "Initialize a new swarm project",
	Long: `Initialize a new swarm project with a default configuration and example map.

Creates:
  • swarm.yml - Simulation configuration
  • maps/floor.txt - Example ASCII floor plan with a start marker

Use --force to reinitialize an existing project (WARNING: overwrites swarm.yml and maps/floor.txt).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Force reinitialization (replaces swarm.yml and maps/floor.txt)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	// Check for existing files (unless --force)
	if !forceInit {
		if err := scaffold.CheckExisting(dir); err != nil {
			return err
		}
	}

	if err := scaffold.Initialize(dir, forceInit, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	scaffold.PrintSuccess(cmd.OutOrStdout())
	return nil
}
