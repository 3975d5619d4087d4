package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zcc-dev/zcc/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╺━┓┏━╸┏━╸
  ┏━┛┃  ┃
  ┗━╸┗━╸┗━╸
`

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	verbose bool
	noColor bool
	scope   string
	dir     string
}

var flags globalFlags

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "zcc",
		Short: "Starter packs for Claude Code projects",
		Long: `zcc installs starter packs of modes, workflows, agents and hooks
into a project's .zcc and .claude directories.

  • Packs come from the built-in library, local directories,
    GitHub repositories, HTTP servers or S3 buckets
  • Dependencies are installed first, with retries
  • Every installed file is tracked and checksummed
  • Hooks run on assistant lifecycle events`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.noColor {
				color.NoColor = true
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	pf.BoolVar(&flags.noColor, "no-color", false, "Disable colored output")
	pf.StringVar(&flags.scope, "scope", "project", "Install scope: project or global")
	pf.StringVarP(&flags.dir, "dir", "C", ".", "Project directory")

	rootCmd.AddCommand(
		initCmd(),
		packCmd(),
		sourceCmd(),
		hookCmd(),
		commandCmd(),
		statusCmd(),
		mcpCmd(),
		versionCmd(),
	)
	return rootCmd
}

// exitError carries a process exit code without printing anything.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// exitCode prints err and returns the code the process should exit with.
func exitCode(err error) int {
	var ee *exitError
	if stderrors.As(err, &ee) {
		return ee.code
	}
	errors.PrintError(err)
	return 1
}

// printBanner prints the zcc banner.
func printBanner() {
	fmt.Print(color.CyanString(banner))
}

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	faint  = color.New(color.FgHiBlack).SprintFunc()
)

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("%s %s\n", green("✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("%s %s\n", yellow("⚠"), fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", red("✗"), fmt.Sprintf(format, args...))
}
