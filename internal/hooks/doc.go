// Package hooks runs shell commands on assistant lifecycle events.
//
// Each hook is stored as .zcc/hooks/definitions/<id>.json. On dispatch the
// enabled hooks whose matcher accepts the input run in descending priority
// order, each in its own process group with the event JSON on stdin and
// ZCC_HOOK_EVENT, ZCC_HOOK_ID and ZCC_PROJECT_ROOT in the environment.
//
// Exit codes:
//
//	0  success; for UserPromptSubmit, non-empty stdout replaces the prompt
//	2  block the event; later hooks do not run
//	*  failure; later hooks run only if the hook sets continueOnError
//
// The host assistant is wired to zcc through .claude/settings.local.json or
// .claude/settings.toml, each event invoking "zcc hook run <event>".
package hooks
