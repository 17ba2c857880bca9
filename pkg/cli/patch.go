package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/uepipe/uepipe/pkg/logger"
	"github.com/uepipe/uepipe/pkg/patch"
	"github.com/uepipe/uepipe/pkg/types"
	"github.com/uepipe/uepipe/pkg/utils"
)

func (c *CLI) newPatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patch",
		Short: "Edit a single value in a project file",
		Long: `Edit one value of a .uproject/.uplugin (json), a Config/*.ini (ini) or a
source file (line, marker) in place.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:     "json <file> <key> <value>",
			Short:   "Set a top-level key of a JSON file",
			Example: "  uepipe patch json Demo.uproject EngineAssociation 5.4",
			Args:    cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.applyPatch(types.PatchSpec{Kind: types.PatchKindJSON, File: args[0], Key: args[1], Value: args[2]})
			},
		},
		&cobra.Command{
			Use:     "ini <file> <section> <option> <value>",
			Short:   "Set an existing option of an INI file",
			Example: "  uepipe patch ini Config/DefaultEngine.ini /Script/XsollaSettings.XsollaProjectSettings UsePlatformBrowser True",
			Args:    cobra.ExactArgs(4),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.applyPatch(types.PatchSpec{Kind: types.PatchKindINI, File: args[0], Section: args[1], Option: args[2], Value: args[3]})
			},
		},
		&cobra.Command{
			Use:   "line <file> <line> <value>",
			Short: "Replace a line by its 1-based number",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid line number %q", args[1])
				}
				return c.applyPatch(types.PatchSpec{Kind: types.PatchKindLine, File: args[0], Line: n, Value: args[2]})
			},
		},
		&cobra.Command{
			Use:     "marker <file> <pattern> <value>",
			Short:   "Replace the first line matching a regular expression",
			Example: `  uepipe patch marker Source/Demo.Target.cs '^\s*DefaultBuildSettings\s*=' '		DefaultBuildSettings = BuildSettingsVersion.V5;'`,
			Args:    cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.applyPatch(types.PatchSpec{Kind: types.PatchKindMarker, File: args[0], Match: args[1], Value: args[2]})
			},
		},
	)

	return cmd
}

func (c *CLI) applyPatch(spec types.PatchSpec) error {
	spec.File = utils.AbsPath(spec.File)
	if err := patch.Apply(spec, ""); err != nil {
		return err
	}
	c.logger.Info("Patched file",
		logger.WithField("file", spec.File),
		logger.WithField("kind", spec.Kind))
	return nil
}
