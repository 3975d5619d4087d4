package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zcc-dev/zcc/internal/errors"
	"github.com/zcc-dev/zcc/internal/server"
	"github.com/zcc-dev/zcc/internal/source"
	"github.com/zcc-dev/zcc/internal/telemetry"
)

func sourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source [command]",
		Short: "Manage pack sources",
		Long: `Manage where packs are loaded from.

Source types:
  local   Packs bundled with zcc (always present)
  custom  A local directory of packs
  github  A directory in a GitHub repository
  http    A pack server (see 'zcc source serve')
  s3      An S3 bucket prefix

Examples:
  zcc source list
  zcc source add team --type custom --set path=../team-packs
  zcc source add corp --type github --set owner=acme --set repo=packs
  zcc source add mirror --type http --set url=https://packs.example.com
  zcc source add bucket --type s3 --set bucket=acme-packs --set region=eu-west-1
  zcc source set-default corp`,
	}

	cmd.AddCommand(
		sourceListCmd(),
		sourceAddCmd(),
		sourceRemoveCmd(),
		sourceToggleCmd("enable", "Enable a source", true),
		sourceToggleCmd("disable", "Disable a source", false),
		sourceTrustCmd(),
		sourcePriorityCmd(),
		sourceDefaultCmd(),
		sourceCheckCmd(),
		sourceServeCmd(),
	)

	return cmd
}

// saveSources applies fn to the source registry and saves it.
func saveSources(fn func(r *source.Registry) error) error {
	a, err := loadApp(true)
	if err != nil {
		return err
	}
	defer a.close()
	if err := fn(a.sources); err != nil {
		return err
	}
	return a.sources.Save()
}

func sourceListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			list := a.sources.List()
			if asJSON {
				return printJSON(list)
			}
			def := a.sources.Default()
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tPRIORITY\tENABLED\tTRUSTED\tLOCATION")
			for _, c := range list {
				id := c.ID
				if id == def {
					id += " " + green("(default)")
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
					id, c.Type, c.Priority, yesNo(c.Enabled), yesNo(c.Trusted), location(c))
			}
			tw.Flush()
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return faint("no")
}

// location summarizes where a source reads packs from.
func location(c source.Config) string {
	switch c.Type {
	case source.KindLocal:
		return "built-in"
	case source.KindCustom:
		return c.String("path", "")
	case source.KindGitHub:
		return fmt.Sprintf("%s/%s@%s", c.String("owner", ""), c.String("repo", ""), c.String("branch", "main"))
	case source.KindHTTP:
		return c.String("url", "")
	case source.KindS3:
		return "s3://" + strings.TrimSuffix(c.String("bucket", "")+"/"+c.String("prefix", ""), "/")
	}
	return ""
}

func sourceAddCmd() *cobra.Command {
	var (
		kind     string
		settings []string
		priority int
		trusted  bool
		disabled bool
	)

	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Add a source",
		Long: `Add a pack source. Type-specific settings are given as key=value.

Settings:
  custom  path
  github  owner, repo, branch, path, token, timeout
  http    url, token, timeout
  s3      bucket, prefix, region, endpoint`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kv, err := parseSettings(settings)
			if err != nil {
				return err
			}
			c := source.Config{
				ID:       args[0],
				Type:     source.Kind(kind),
				Enabled:  !disabled,
				Priority: priority,
				Trusted:  trusted,
				Config:   kv,
			}
			if err := saveSources(func(r *source.Registry) error { return r.Add(c) }); err != nil {
				return err
			}
			success("Added %s source %s", kind, bold(c.ID))
			if !trusted {
				info("Review its packs before installing. Mark it trusted with 'zcc source trust %s'.", c.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "type", "t", string(source.KindCustom), "Source type: custom, github, http or s3")
	cmd.Flags().StringArrayVar(&settings, "set", nil, "Type-specific setting as key=value (repeatable)")
	cmd.Flags().IntVar(&priority, "priority", 0, "Priority; lower is searched first (default: after existing sources)")
	cmd.Flags().BoolVar(&trusted, "trusted", false, "Mark the source as trusted")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Add the source disabled")

	return cmd
}

// parseSettings turns key=value pairs into a source config map.
func parseSettings(pairs []string) (map[string]any, error) {
	out := map[string]any{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errors.New(errors.CodeValidation).
				WithDetailf("invalid setting %q", p).
				WithExample("--set path=../packs")
		}
		if n, err := strconv.Atoi(v); err == nil && k == "timeout" {
			out[k] = n
			continue
		}
		out[k] = v
	}
	return out, nil
}

func sourceRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a source",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := saveSources(func(r *source.Registry) error { return r.Remove(args[0]) }); err != nil {
				return err
			}
			success("Removed source %s", args[0])
			return nil
		},
	}
}

func sourceToggleCmd(use, short string, enable bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := saveSources(func(r *source.Registry) error {
				if enable {
					return r.Enable(args[0])
				}
				return r.Disable(args[0])
			})
			if err != nil {
				return err
			}
			success("%sd source %s", strings.ToUpper(use[:1])+use[1:], args[0])
			return nil
		},
	}
}

func sourceTrustCmd() *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "trust <id>",
		Short: "Mark a source as trusted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := saveSources(func(r *source.Registry) error { return r.SetTrusted(args[0], !revoke) }); err != nil {
				return err
			}
			if revoke {
				success("Source %s is no longer trusted", args[0])
			} else {
				success("Source %s is trusted", args[0])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&revoke, "revoke", false, "Remove trust instead")

	return cmd
}

func sourcePriorityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-priority <id> <priority>",
		Short: "Change the search order of a source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.New(errors.CodeValidation).WithDetailf("priority %q is not a number", args[1])
			}
			if err := saveSources(func(r *source.Registry) error { return r.SetPriority(args[0], p) }); err != nil {
				return err
			}
			success("Source %s has priority %d", args[0], p)
			return nil
		},
	}
}

func sourceDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-default <id>",
		Short: "Search a source before all others",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := saveSources(func(r *source.Registry) error { return r.SetDefault(args[0]) }); err != nil {
				return err
			}
			success("Default source is %s", args[0])
			return nil
		},
	}
}

func sourceCheckCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that every enabled source is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext()
			defer cancel()

			results := a.sources.Check(ctx, a.sourceOptions())
			if asJSON {
				return printJSON(results)
			}
			failed := 0
			for _, h := range results {
				if h.OK {
					success("%s (%s): %d packs in %s", h.ID, h.Kind, h.Packs, h.Latency.Round(time.Millisecond))
					continue
				}
				failed++
				errorMsg("%s (%s): %s", h.ID, h.Kind, h.Error)
			}
			if failed > 0 {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}

func sourceServeCmd() *cobra.Command {
	var (
		addr     string
		token    string
		watch    bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve <dir>",
		Short: "Serve a directory of packs over HTTP",
		Long: `Serve a directory of packs in the layout http sources read.

Routes:
  /index.json                        Pack names
  /<pack>/manifest.json              Manifests
  /<pack>/components/<type>/<file>   Component files
  /events                            Change notifications (WebSocket, with --watch)
  /healthz, /metrics                 Health and Prometheus metrics

Examples:
  zcc source serve ./packs
  zcc source serve ./packs --addr :9000 --watch --token s3cret`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = os.Getenv("ZCC_SERVE_TOKEN")
			}
			return runSourceServe(server.Config{
				Dir:          args[0],
				Addr:         addr,
				Token:        token,
				Watch:        watch,
				PollInterval: interval,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "Listen address")
	cmd.Flags().StringVar(&token, "token", "", "Require this bearer token (or set ZCC_SERVE_TOKEN)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Broadcast pack changes on /events")
	cmd.Flags().DurationVar(&interval, "poll", time.Second, "Watch polling interval")

	return cmd
}

func runSourceServe(cfg server.Config) error {
	fi, err := os.Stat(cfg.Dir)
	if err != nil || !fi.IsDir() {
		return errors.New(errors.CodeSourceNotFound).WithDetailf("%s is not a directory", cfg.Dir)
	}

	cfg.Logger = newLogger(flags.verbose)
	cfg.Metrics = telemetry.NewMetrics()

	srv, err := server.New(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	printBanner()
	success("Serving packs from %s on %s", cfg.Dir, cfg.Addr)
	if cfg.Watch {
		info("Watching for changes")
	}
	return srv.ListenAndServe(ctx)
}
