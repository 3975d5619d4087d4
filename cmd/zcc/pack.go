package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zcc-dev/zcc/internal/errors"
	"github.com/zcc-dev/zcc/internal/pack"
	"github.com/zcc-dev/zcc/internal/registry"
	"github.com/zcc-dev/zcc/internal/starter"
	"github.com/zcc-dev/zcc/internal/templates"
)

var packJSON bool

func packCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack [command]",
		Short: "Manage starter packs",
		Long: `Find, install and remove starter packs.

Commands:
  list       List available or installed packs
  install    Install packs and their dependencies
  uninstall  Remove an installed pack
  info       Show pack details
  search     Search packs by name, description or tag
  recommend  Suggest packs for this project
  outdated   List installed packs with newer versions
  create     Create a new pack from a template
  validate   Validate a pack directory

Examples:
  zcc pack list
  zcc pack install essentials
  zcc pack install frontend-react --source corp
  zcc pack uninstall frontend-react`,
	}

	cmd.AddCommand(
		packListCmd(),
		packInstallCmd(),
		packUninstallCmd(),
		packInfoCmd(),
		packSearchCmd(),
		packRecommendCmd(),
		packOutdatedCmd(),
		packCreateCmd(),
		packValidateCmd(),
	)

	cmd.PersistentFlags().BoolVar(&packJSON, "json", false, "Print JSON output")

	return cmd
}

func packListCmd() *cobra.Command {
	var installed bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List packs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if installed {
				return runPackListInstalled()
			}
			return runPackList()
		},
	}

	cmd.Flags().BoolVar(&installed, "installed", false, "List installed packs only")

	return cmd
}

func runPackList() error {
	a, err := loadApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	list, err := a.registry.ListPacks(ctx)
	if err != nil {
		return err
	}
	if packJSON {
		return printJSON(list)
	}
	if len(list) == 0 {
		info("No packs available. Add a source with 'zcc source add'.")
		return nil
	}
	printSummaries(list, a.installer.Installed)
	return nil
}

func printSummaries(list []registry.Summary, installed func(string) bool) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERSION\tCATEGORY\tSOURCE\tDESCRIPTION")
	for _, s := range list {
		name := s.Name
		if installed != nil && installed(s.Name) {
			name += " " + green("●")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", name, s.Version, s.Category, s.SourceID, s.Description)
	}
	tw.Flush()
}

func runPackListInstalled() error {
	a, err := loadApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	list, err := a.manager.ListInstalled()
	if err != nil {
		return err
	}
	if packJSON {
		return printJSON(list)
	}
	if len(list) == 0 {
		info("No packs installed.")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERSION\tSOURCE\tINSTALLED")
	for _, p := range list {
		at := ""
		if !p.InstalledAt.IsZero() {
			at = p.InstalledAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, p.Version, p.Source, at)
	}
	tw.Flush()
	return nil
}

func packInstallCmd() *cobra.Command {
	var opts starter.Options

	cmd := &cobra.Command{
		Use:   "install <pack>...",
		Short: "Install packs",
		Long: `Install one or more packs. Dependencies are installed first.

Files that already exist are left alone unless --force is given. Files
owned by another pack are a conflict unless --force is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPackInstall(args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Overwrite existing files")
	cmd.Flags().StringVar(&opts.Source, "source", "", "Preferred source for the requested packs")

	return cmd
}

func runPackInstall(names []string, opts starter.Options) error {
	a, err := loadApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	opts.OnResult = func(r *pack.InstallationResult) {
		if r.Success {
			a.logger.Debug("pack attempt finished", "pack", r.Pack)
		} else {
			a.logger.Debug("pack attempt failed", "pack", r.Pack, "errors", r.Errors)
		}
	}

	var failed bool
	var results []*pack.InstallationResult
	for _, name := range names {
		res := a.manager.InstallPack(ctx, name, opts)
		results = append(results, res)
		if packJSON {
			continue
		}
		if err := printResult("Installed", res); err != nil {
			failed = true
		}
	}
	if packJSON {
		if err := printJSON(results); err != nil {
			return err
		}
		for _, r := range results {
			failed = failed || !r.Success
		}
	}
	if failed {
		return &exitError{code: 1}
	}
	return nil
}

func packUninstallCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "uninstall <pack>...",
		Short: "Uninstall packs",
		Long: `Remove installed packs. Files changed since install are kept.

A pack other installed packs depend on is not removed unless --force
is given.`,
		Aliases: []string{"remove"},
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPackUninstall(args, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Remove even when other packs depend on it")

	return cmd
}

func runPackUninstall(names []string, force bool) error {
	a, err := loadApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	var failed bool
	for _, name := range names {
		res := a.manager.UninstallPack(ctx, name, force)
		if packJSON {
			if err := printJSON(res); err != nil {
				return err
			}
			failed = failed || !res.Success
			continue
		}
		if err := printResult("Uninstalled", res); err != nil {
			failed = true
		}
	}
	if failed {
		return &exitError{code: 1}
	}
	return nil
}

func packInfoCmd() *cobra.Command {
	var src string

	cmd := &cobra.Command{
		Use:   "info <pack>",
		Short: "Show pack details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPackInfo(args[0], src)
		},
	}

	cmd.Flags().StringVar(&src, "source", "", "Preferred source")

	return cmd
}

func runPackInfo(name, src string) error {
	a, err := loadApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	pi, err := a.manager.Info(ctx, name, src)
	if err != nil {
		return err
	}
	if packJSON {
		return printJSON(pi)
	}

	m := pi.Manifest
	fmt.Printf("%s %s\n", bold(m.Name), faint(m.Version))
	if m.Description != "" {
		info("%s", m.Description)
	}
	fmt.Println()
	info("Author:     %s", m.Author)
	info("Source:     %s", pi.Source)
	if m.Category != "" {
		info("Category:   %s", m.Category)
	}
	if len(m.Tags) > 0 {
		info("Tags:       %s", strings.Join(m.Tags, ", "))
	}
	if pi.Installed {
		info("Installed:  %s", green(pi.InstalledVersion))
	} else {
		info("Installed:  no")
	}
	if len(m.Dependencies) > 0 {
		info("Depends on: %s", strings.Join(m.Dependencies, ", "))
	}

	fmt.Println()
	for _, t := range pack.ComponentTypes {
		refs := m.Components.Of(t)
		if len(refs) == 0 {
			continue
		}
		names := make([]string, 0, len(refs))
		for _, r := range refs {
			n := r.Name
			if r.Required {
				n += "*"
			}
			names = append(names, n)
		}
		info("%-10s  %s", t, strings.Join(names, ", "))
	}

	for _, p := range pi.Dependencies.Problems() {
		warn("%s", p)
	}
	for _, e := range pi.Validation.Errors {
		errorMsg("%s", e)
	}
	for _, w := range pi.Validation.Warnings {
		warn("%s", w)
	}
	return nil
}

func packSearchCmd() *cobra.Command {
	var f registry.Filter

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search packs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := ""
			if len(args) == 1 {
				q = args[0]
			}
			return runPackSearch(q, f)
		},
	}

	cmd.Flags().StringVar(&f.Category, "category", "", "Only packs in this category")
	cmd.Flags().StringSliceVar(&f.Tags, "tag", nil, "Only packs carrying every tag")

	return cmd
}

func runPackSearch(query string, f registry.Filter) error {
	a, err := loadApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	list, err := a.manager.Search(ctx, query, f)
	if err != nil {
		return err
	}
	if packJSON {
		return printJSON(list)
	}
	if len(list) == 0 {
		info("No packs match %q.", query)
		return nil
	}
	printSummaries(list, a.installer.Installed)
	return nil
}

func packRecommendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recommend",
		Short: "Suggest packs for this project",
		Long: `Detect the project's languages and frameworks and rank the
available packs against them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPackRecommend()
		},
	}
}

func runPackRecommend() error {
	a, err := loadApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	proj, recs, err := a.manager.Recommend(ctx, a.ws.Root)
	if err != nil {
		return err
	}
	if packJSON {
		return printJSON(map[string]any{"project": proj, "recommendations": recs})
	}

	info("Project type: %s", proj.Type)
	if len(proj.Languages) > 0 {
		info("Languages:    %s", strings.Join(proj.Languages, ", "))
	}
	if len(proj.Frameworks) > 0 {
		info("Frameworks:   %s", strings.Join(proj.Frameworks, ", "))
	}
	fmt.Println()
	if len(recs) == 0 {
		info("No recommendations.")
		return nil
	}
	for _, r := range recs {
		fmt.Printf("%s %s %s\n", green("→"), bold(r.Name), faint(fmt.Sprintf("(score %d)", r.Score)))
		info("%s", strings.Join(r.Reasons, "; "))
	}
	return nil
}

func packOutdatedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outdated",
		Short: "List installed packs with newer versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPackOutdated()
		},
	}
}

func runPackOutdated() error {
	a, err := loadApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	updates, err := a.manager.Outdated(ctx)
	if err != nil {
		return err
	}
	if packJSON {
		return printJSON(updates)
	}
	if len(updates) == 0 {
		success("All packs are up to date")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tINSTALLED\tAVAILABLE\tSOURCE")
	for _, u := range updates {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.Name, u.Installed, yellow(u.Available), u.Source)
	}
	tw.Flush()
	fmt.Println()
	info("Run 'zcc pack install --force <name>' to update.")
	return nil
}

func packCreateCmd() *cobra.Command {
	var (
		cfg      templates.Config
		template string
		out      string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new pack",
		Long: `Create a new pack directory from a template.

Templates:
  minimal  Manifest and one mode
  full     Modes, workflows, agents and a hook
  hooks    A hook-only pack

Examples:
  zcc pack create my-pack
  zcc pack create my-pack --template full --out ./packs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Name = args[0]
			return runPackCreate(cfg, template, out)
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "minimal", "Template: "+strings.Join(templates.List(), ", "))
	cmd.Flags().StringVar(&out, "out", ".", "Parent directory for the new pack")
	cmd.Flags().StringVar(&cfg.Description, "description", "", "Pack description")
	cmd.Flags().StringVar(&cfg.Author, "author", "", "Pack author")
	cmd.Flags().StringVar(&cfg.Category, "category", "", "Pack category")

	return cmd
}

func runPackCreate(cfg templates.Config, name, out string) error {
	if !pack.ValidName(cfg.Name) {
		return errors.New(errors.CodeValidation).
			WithDetailf("invalid pack name %q", cfg.Name).
			WithSuggestion("Use lowercase letters, digits and dashes")
	}
	tmpl, err := templates.Get(name)
	if err != nil {
		return err
	}
	dir := filepath.Join(out, cfg.Name)
	if err := tmpl.Create(dir, cfg); err != nil {
		return err
	}
	success("Created pack %s from the %s template", bold(cfg.Name), name)
	info("Directory: %s", dir)
	fmt.Println()
	info("Next steps:")
	info("  zcc pack validate %s", dir)
	info("  zcc source add my-packs --type custom --set path=%s", out)
	return nil
}

func packValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [dir]",
		Short: "Validate a pack directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runPackValidate(dir)
		},
	}
}

func runPackValidate(dir string) error {
	m, p, err := pack.ReadManifestFS(os.DirFS(dir), ".")
	if err != nil {
		return err
	}
	res := pack.NewValidator(version).Validate(m)

	// Components named in the manifest must exist on disk.
	for _, t := range pack.ComponentTypes {
		for _, ref := range m.Components.Of(t) {
			rel := pack.ComponentPath(t, ref.Name)
			if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel))); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s %q: %s not found", t.Singular(), ref.Name, rel))
				res.Valid = false
			}
		}
	}

	if packJSON {
		return printJSON(res)
	}
	for _, w := range res.Warnings {
		warn("%s", w)
	}
	if !res.Valid {
		for _, e := range res.Errors {
			errorMsg("%s", e)
		}
		return &exitError{code: 1}
	}
	success("%s is valid (%s %s)", filepath.Join(dir, filepath.Base(p)), m.Name, m.Version)
	return nil
}
