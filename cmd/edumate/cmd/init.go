package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/edumate/internal/config"
	"github.com/Aman-CERP/edumate/internal/output"
)

// newInitCmd creates the init command.
func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create .edumate.yaml and the documents folder",
		Long: `Write a project configuration with default settings and create the
documents folder. Place course material under documents/<course>/<chapter>/.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing .edumate.yaml")
	return cmd
}

func runInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())

	dir, err := resolveProjectDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	cfgPath := filepath.Join(dir, config.ProjectConfigName)
	if _, err := os.Stat(cfgPath); err == nil && !force {
		out.Warningf("%s already exists (use --force to overwrite)", cfgPath)
		return nil
	}

	cfg := config.NewConfig()
	if err := cfg.WriteYAML(cfgPath); err != nil {
		return err
	}

	docs := filepath.Join(dir, cfg.Paths.Documents)
	if err := os.MkdirAll(docs, 0o755); err != nil {
		return fmt.Errorf("failed to create documents folder: %w", err)
	}

	out.Successf("Wrote %s", cfgPath)
	out.Statusf("📁", "Add course files under %s/<course>/<chapter>/", docs)
	out.Status("👉", "Then run 'edumate scan'")
	return nil
}
