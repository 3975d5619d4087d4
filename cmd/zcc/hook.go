package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zcc-dev/zcc/internal/errors"
	"github.com/zcc-dev/zcc/internal/hooks"
)

func hookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook [command]",
		Short: "Manage hooks",
		Long: `Manage hooks that run on assistant lifecycle events.

Hooks run in descending priority. A hook that exits with code 2 blocks
the event. Other failures stop the chain unless the hook continues on
error.

Events:
  ` + strings.Join(eventNames(), "\n  ") + `

Examples:
  zcc hook list
  zcc hook add --name lint --event PostToolUse --command "npm run lint"
  zcc hook add --template block-secrets
  zcc hook disable lint`,
	}

	cmd.AddCommand(
		hookListCmd(),
		hookAddCmd(),
		hookToggleCmd("enable", "Enable a hook", true),
		hookToggleCmd("disable", "Disable a hook", false),
		hookRemoveCmd(),
		hookTemplatesCmd(),
		hookRunCmd(),
	)

	return cmd
}

func eventNames() []string {
	var out []string
	for _, e := range hooks.Events() {
		out = append(out, string(e))
	}
	return out
}

// writeHookSettings rewires the host settings file after a hook change.
func (a *app) writeHookSettings() error {
	p, err := a.hooks.WriteSettings(a.ws.ClaudeDir(), a.cfg.Hooks.SettingsFormat, "zcc")
	if err != nil {
		return err
	}
	a.logger.Debug("host settings updated", "path", p)
	return nil
}

func hookListCmd() *cobra.Command {
	var (
		event  string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List hooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			var list []*hooks.Config
			for _, c := range a.hooks.List() {
				if event == "" || string(c.Event) == event {
					list = append(list, c)
				}
			}
			if asJSON {
				return printJSON(list)
			}
			if len(list) == 0 {
				info("No hooks configured.")
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEVENT\tPRIORITY\tENABLED\tPACK\tCOMMAND")
			for _, c := range list {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
					c.ID, c.Event, c.Priority, yesNo(c.Enabled), c.Pack, c.Command)
			}
			tw.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&event, "event", "", "Only hooks for this event")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}

type hookAddOptions struct {
	template    string
	matcherType string
	matcher     string
	env         []string
	disabled    bool
	timeoutMS   int
	cfg         hooks.Config
}

func hookAddCmd() *cobra.Command {
	var opts hookAddOptions

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a hook",
		Long: `Add a hook from flags or from a built-in template.

Matchers:
  keyword  Prompt contains any of a comma-separated list of words
  regex    Prompt matches a regular expression
  tool     Tool name is one of a comma-separated list
  glob     A file path in the tool input matches a glob`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHookAdd(opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.template, "template", "", "Create the hook from a template")
	f.StringVar(&opts.cfg.ID, "id", "", "Hook id (default: derived from the name)")
	f.StringVar(&opts.cfg.Name, "name", "", "Hook name")
	f.StringVar((*string)(&opts.cfg.Event), "event", "", "Event to run on")
	f.StringVar(&opts.cfg.Command, "command", "", "Command to run")
	f.StringArrayVar(&opts.cfg.Args, "arg", nil, "Command argument (repeatable)")
	f.StringArrayVar(&opts.env, "env", nil, "Environment variable as KEY=VALUE (repeatable)")
	f.IntVar(&opts.cfg.Priority, "priority", 0, "Priority; higher runs first")
	f.IntVar(&opts.timeoutMS, "timeout", 0, "Timeout in milliseconds (default from config)")
	f.BoolVar(&opts.cfg.ContinueOnError, "continue-on-error", false, "Keep running later hooks when this one fails")
	f.StringVar(&opts.matcherType, "matcher-type", "", "Matcher type: keyword, regex, tool or glob")
	f.StringVar(&opts.matcher, "matcher", "", "Matcher pattern")
	f.BoolVar(&opts.disabled, "disabled", false, "Add the hook disabled")

	return cmd
}

func runHookAdd(opts hookAddOptions) error {
	a, err := loadApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	var c *hooks.Config
	if opts.template != "" {
		c, err = a.hooks.AddFromTemplate(opts.template, opts.cfg.ID)
	} else {
		cfg := opts.cfg
		cfg.Enabled = !opts.disabled
		cfg.Timeout = opts.timeoutMS
		if opts.matcherType != "" || opts.matcher != "" {
			cfg.Matcher = &hooks.Matcher{Type: hooks.MatcherType(opts.matcherType), Pattern: opts.matcher}
		}
		if len(opts.env) > 0 {
			cfg.Env = map[string]string{}
			for _, kv := range opts.env {
				k, v, ok := strings.Cut(kv, "=")
				if !ok || k == "" {
					return errors.New(errors.CodeValidation).
						WithDetailf("invalid environment variable %q", kv).
						WithExample("--env LEVEL=strict")
				}
				cfg.Env[k] = v
			}
		}
		c, err = a.hooks.Add(cfg)
	}
	if err != nil {
		return err
	}
	if err := a.writeHookSettings(); err != nil {
		return err
	}
	success("Added hook %s on %s", bold(c.ID), c.Event)
	return nil
}

func hookToggleCmd(use, short string, enable bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(true)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.hooks.SetEnabled(args[0], enable); err != nil {
				return err
			}
			if err := a.writeHookSettings(); err != nil {
				return err
			}
			success("%sd hook %s", strings.ToUpper(use[:1])+use[1:], args[0])
			return nil
		},
	}
}

func hookRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a hook",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(true)
			if err != nil {
				return err
			}
			defer a.close()

			c, err := a.hooks.Get(args[0])
			if err != nil {
				return err
			}
			if c.Pack != "" {
				warn("Hook %s was installed by pack %s; reinstalling the pack restores it", c.ID, c.Pack)
			}
			if err := a.hooks.Remove(args[0]); err != nil {
				return err
			}
			if err := a.writeHookSettings(); err != nil {
				return err
			}
			success("Removed hook %s", args[0])
			return nil
		},
	}
}

func hookTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List built-in hook templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := hooks.Templates()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEVENT\tDESCRIPTION")
			for _, t := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, t.Event, t.Description)
			}
			tw.Flush()
			fmt.Println()
			info("Use 'zcc hook add --template <id>' to install one.")
			return nil
		},
	}
}

func hookRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <event>",
		Short: "Run the hooks for an event",
		Long: `Run the enabled hooks for an event. The event payload is read as
JSON from stdin. Exits with code 2 when a hook blocks the event.

This is the command the host settings file invokes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHookRun(args[0], cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func runHookRun(name string, stdin io.Reader, stdout, stderr io.Writer) error {
	event, ok := hooks.ParseEvent(name)
	if !ok {
		return errors.New(errors.CodeValidation).
			WithDetailf("unknown event %q", name).
			WithSuggestion("Use one of: " + strings.Join(eventNames(), ", "))
	}

	var in hooks.Input
	data, err := io.ReadAll(stdin)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &in); err != nil {
			return errors.New(errors.CodeInvalidJSON).WithDetail("hook input: " + err.Error())
		}
	}

	a, err := loadApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	prompt := in.Prompt
	out := a.hooks.Execute(ctx, event, in)

	for _, r := range out.Results {
		if r.ShouldBlock {
			msg := strings.TrimSpace(r.Stderr)
			if msg == "" {
				msg = "blocked by hook " + r.HookID
			}
			fmt.Fprintln(stderr, msg)
		}
	}
	if out.Blocked {
		return &exitError{code: hooks.ExitBlock}
	}
	if event == hooks.EventUserPromptSubmit && out.Prompt != prompt {
		fmt.Fprintln(stdout, out.Prompt)
	}
	if out.Failed {
		for _, r := range out.Results {
			if !r.Success() {
				fmt.Fprintf(stderr, "hook %s failed: %s\n", r.HookID, failureText(r))
			}
		}
		return &exitError{code: 1}
	}
	return nil
}

func failureText(r hooks.Result) string {
	switch {
	case r.TimedOut:
		return "timed out"
	case r.Error != "":
		return r.Error
	case strings.TrimSpace(r.Stderr) != "":
		return strings.TrimSpace(r.Stderr)
	}
	return fmt.Sprintf("exit code %d", r.ExitCode)
}
