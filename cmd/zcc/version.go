package main

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zcc-dev/zcc/internal/filereg"
	"github.com/zcc-dev/zcc/internal/installer"
	"github.com/zcc-dev/zcc/internal/source"
)

type versionInfo struct {
	Version       string   `json:"version"`
	Commit        string   `json:"commit"`
	Built         string   `json:"built"`
	GoVersion     string   `json:"goVersion"`
	Platform      string   `json:"platform"`
	BuiltinPacks  []string `json:"builtinPacks"`
	RegistryFile  string   `json:"fileRegistryFormat"`
	ProjectFormat string   `json:"projectManifestFormat"`
}

func versionCmd() *cobra.Command {
	var short, asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the zcc version with its build details, the packs built into
the binary and the state file formats it writes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if short {
				fmt.Println(version)
				return nil
			}
			vi, err := currentVersion()
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(vi)
			}

			printBanner()
			fmt.Println()
			fmt.Printf("  Version:        %s\n", vi.Version)
			fmt.Printf("  Commit:         %s\n", vi.Commit)
			fmt.Printf("  Built:          %s %s\n", vi.Built, faint("("+vi.GoVersion+", "+vi.Platform+")"))
			fmt.Printf("  Built-in packs: %s\n", strings.Join(vi.BuiltinPacks, ", "))
			fmt.Printf("  State formats:  file registry %s, packs.json %s\n", vi.RegistryFile, vi.ProjectFormat)
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the version number")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}

func currentVersion() (*versionInfo, error) {
	local, err := source.New(source.LocalConfig(), source.Options{})
	if err != nil {
		return nil, err
	}
	packs, err := local.ListPacks(context.Background())
	if err != nil {
		return nil, err
	}
	return &versionInfo{
		Version:       version,
		Commit:        commit,
		Built:         date,
		GoVersion:     runtime.Version(),
		Platform:      runtime.GOOS + "/" + runtime.GOARCH,
		BuiltinPacks:  packs,
		RegistryFile:  filereg.Version,
		ProjectFormat: installer.ProjectManifestVersion,
	}, nil
}
