// Package installer copies a single pack's components into a workspace and
// removes them again.
//
// An install records every file it writes in the file registry together
// with its checksum, merges the pack's project settings into
// .zcc/config.json, configures the pack's hooks and writes a snapshot to
// .zcc/packs/<name>.manifest.json. Uninstall uses the snapshot and the
// registry to undo exactly that, keeping any file the user edited.
//
// Dependencies are not handled here; see package starter.
package installer
