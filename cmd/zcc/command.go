package main

import (
	"github.com/spf13/cobra"

	"github.com/zcc-dev/zcc/internal/commands"
)

func commandCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "command [command]",
		Short: "Manage the zcc slash commands",
		Long: `Manage the /zcc slash commands written to .claude/commands.

The commands list the installed modes and workflows, so reinstall them
after installing or removing packs.`,
	}

	cmd.AddCommand(
		commandInstallCmd(),
		commandStatusCmd(),
		commandCleanupCmd(),
	)

	return cmd
}

// generator returns the command generator for the app's workspace.
func (a *app) generator() *commands.Generator {
	return commands.NewGenerator(a.ws, "zcc", a.logger)
}

func commandInstallCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install or refresh the slash commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(true)
			if err != nil {
				return err
			}
			defer a.close()

			written, err := a.generator().Install(force)
			for _, p := range written {
				info("wrote %s", a.ws.Rel(p))
			}
			if err != nil {
				return err
			}
			success("Installed %d slash commands", len(written))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite command files not generated by zcc")

	return cmd
}

func commandStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the slash commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			list, err := a.generator().Status()
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(list)
			}
			for _, s := range list {
				switch s.State {
				case commands.StateCurrent:
					success("/%s %s", s.Name, faint("up to date"))
				case commands.StateOutdated:
					warn("/%s is outdated; run 'zcc command install'", s.Name)
				case commands.StateForeign:
					warn("/%s exists but was not generated by zcc", s.Name)
				default:
					errorMsg("/%s is not installed", s.Name)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}

func commandCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove the generated slash commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(true)
			if err != nil {
				return err
			}
			defer a.close()

			removed, err := a.generator().Cleanup()
			for _, p := range removed {
				info("removed %s", a.ws.Rel(p))
			}
			if err != nil {
				return err
			}
			success("Removed %d slash commands", len(removed))
			return nil
		},
	}
}
