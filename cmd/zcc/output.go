package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/zcc-dev/zcc/internal/pack"
)

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printComponents prints one line per component type present in set.
func printComponents(label string, set pack.ComponentSet) {
	if set.Len() == 0 {
		return
	}
	for _, t := range pack.ComponentTypes {
		names := set.Of(t)
		if len(names) == 0 {
			continue
		}
		info("%s %s: %s", label, t, strings.Join(names, ", "))
	}
}

// printResult reports an install or uninstall result. It returns an error
// when the operation failed so the command exits non-zero.
func printResult(verb string, res *pack.InstallationResult) error {
	for _, w := range res.Warnings {
		warn("%s", w)
	}
	if !res.Success {
		for _, e := range res.Errors {
			errorMsg("%s", e)
		}
		return &exitError{code: 1}
	}
	success("%s %s", verb, bold(res.Pack))
	printComponents("installed", res.Installed)
	printComponents("skipped", res.Skipped)
	printComponents("removed", res.Removed)
	if res.PostInstallMessage != "" {
		fmt.Println()
		info("%s", res.PostInstallMessage)
	}
	return nil
}
