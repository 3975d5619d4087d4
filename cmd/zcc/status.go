package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zcc-dev/zcc/internal/commands"
	"github.com/zcc-dev/zcc/internal/filereg"
	"github.com/zcc-dev/zcc/internal/installer"
)

type statusReport struct {
	Root        string                    `json:"root"`
	Scope       string                    `json:"scope"`
	DefaultMode string                    `json:"defaultMode,omitempty"`
	Packs       []installer.InstalledInfo `json:"packs"`
	Drift       []filereg.Drift           `json:"drift"`
	Hooks       int                       `json:"hooks"`
	Commands    []commands.Status         `json:"commands"`
}

func statusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show installed packs and modified files",
		Long: `Show the installed packs and every tracked file that changed
since it was installed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}

func runStatus(asJSON bool) error {
	a, err := loadApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	packs, err := a.manager.ListInstalled()
	if err != nil {
		return err
	}
	drift := a.files.Verify()
	for range drift {
		a.metrics.RecordDrift()
	}
	cmds, err := a.generator().Status()
	if err != nil {
		return err
	}

	report := statusReport{
		Root:        a.ws.Root,
		Scope:       string(a.ws.Scope),
		DefaultMode: a.cfg.DefaultMode,
		Packs:       packs,
		Drift:       drift,
		Hooks:       len(a.hooks.List()),
		Commands:    cmds,
	}
	if asJSON {
		return printJSON(report)
	}

	fmt.Printf("%s %s\n", bold("zcc"), faint(report.Root))
	if report.DefaultMode != "" {
		info("Default mode: %s", report.DefaultMode)
	}
	info("Hooks:        %d", report.Hooks)
	fmt.Println()

	if len(packs) == 0 {
		info("No packs installed.")
	}
	for _, p := range packs {
		fmt.Printf("%s %s %s\n", green("●"), p.Name, faint(p.Version+" from "+p.Source))
	}

	if len(drift) > 0 {
		fmt.Println()
		warn("%d tracked files changed since install:", len(drift))
		for _, d := range drift {
			state := "modified"
			if d.Missing {
				state = "missing"
			}
			info("%-8s %s %s", state, d.Path, faint("("+d.Pack+")"))
		}
	}

	outdated := 0
	for _, c := range cmds {
		if c.State == commands.StateOutdated {
			outdated++
		}
	}
	if outdated > 0 {
		fmt.Println()
		warn("%d slash commands are outdated; run 'zcc command install'", outdated)
	}
	return nil
}
