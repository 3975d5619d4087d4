// Package source locates starter packs.
//
// A Source reads manifests and component files from one origin. Five kinds
// exist:
//
//   - local: packs embedded in the zcc binary; always present, never removable
//   - custom: a directory on disk
//   - http: a server speaking the remote pack protocol (see httpBackend)
//   - github: a repository directory, listed through the contents API
//   - s3: a bucket prefix
//
// Remote reads use a per-request timeout and retry network errors and 5xx
// responses with linear backoff. A 404 is reported as fs.ErrNotExist.
//
// The Registry persists source configuration in .zcc/sources.json.
package source
