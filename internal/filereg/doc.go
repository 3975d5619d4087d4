// Package filereg tracks which pack installed which file, with a sha256
// checksum per file so hand-edited files can be detected and preserved.
//
// The registry lives in .zcc/file-registry.json. Every save first copies the
// previous file to file-registry.json.backup; a registry that fails to parse
// is restored from that backup.
package filereg
