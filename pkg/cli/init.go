package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/uepipe/uepipe/pkg/config"
	"github.com/uepipe/uepipe/pkg/utils"
)

func (c *CLI) newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default uepipe.yaml",
		Long: `Write uepipe.yaml with the default remotes, branches, engine roots and temp
folders into the --root directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInit(force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing configuration")

	return cmd
}

func (c *CLI) runInit(force bool) error {
	configPath := filepath.Join(utils.AbsPath(c.config.ProjectRoot), config.ConfigName+".yaml")

	if err := config.WriteDefault(configPath, force); err != nil {
		return err
	}

	c.printSuccess(fmt.Sprintf("Created configuration at %s", configPath))
	c.printInfo("Edit the remotes and engine roots to match your build machines")
	return nil
}
