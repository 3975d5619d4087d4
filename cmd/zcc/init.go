package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zcc-dev/zcc/internal/commands"
	"github.com/zcc-dev/zcc/internal/config"
	"github.com/zcc-dev/zcc/internal/starter"
)

type initOptions struct {
	packs    []string
	commands bool
	force    bool
}

func initCmd() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize zcc in a project",
		Long: `Initialize zcc in the current project.

This creates:
  • .zcc/config.json       - Project configuration
  • .zcc/sources.json      - Pack sources
  • .zcc/modes, workflows  - Component directories
  • .claude/agents         - Agent directory

Examples:
  zcc init
  zcc init --packs essentials,frontend-react
  zcc init --commands`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.packs, "packs", nil, "Packs to install after initializing")
	cmd.Flags().BoolVar(&opts.commands, "commands", false, "Install the zcc slash commands")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Overwrite existing files")

	return cmd
}

func runInit(opts initOptions) error {
	root, err := filepath.Abs(flags.dir)
	if err != nil {
		return err
	}
	already := config.Exists(root)
	if flags.scope == "project" {
		// init always targets --dir, never a parent project.
		flags.dir = root
		if err := os.MkdirAll(filepath.Join(root, config.DirName), 0755); err != nil {
			return err
		}
	}

	a, err := loadApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.ws.EnsureDirs(); err != nil {
		return err
	}
	if _, err := os.Stat(a.ws.ConfigPath()); os.IsNotExist(err) {
		if err := a.cfg.SaveTo(a.ws.ConfigPath()); err != nil {
			return err
		}
	}
	if _, err := os.Stat(a.ws.SourcesPath()); os.IsNotExist(err) {
		if err := a.sources.Save(); err != nil {
			return err
		}
	}

	if already {
		info("zcc already initialized in %s", a.ws.Root)
	} else {
		success("Initialized zcc in %s", a.ws.Root)
	}

	if len(opts.packs) > 0 {
		ctx, cancel := signalContext()
		defer cancel()
		for _, name := range opts.packs {
			res := a.manager.InstallPack(ctx, name, starter.Options{Force: opts.force})
			if err := printResult("Installed", res); err != nil {
				return err
			}
		}
	}

	if opts.commands {
		gen := commands.NewGenerator(a.ws, "zcc", a.logger)
		written, err := gen.Install(opts.force)
		if err != nil {
			return err
		}
		success("Installed %d slash commands", len(written))
	}

	fmt.Println()
	info("Next steps:")
	info("  zcc pack list")
	info("  zcc pack install <name>")
	return nil
}
