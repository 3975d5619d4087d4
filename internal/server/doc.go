// Package server serves a directory of starter packs over HTTP using the
// layout http sources read:
//
//	GET /index.json
//	GET /{pack}/manifest.json
//	GET /{pack}/components/{type}/{name}.{md|json}
//	GET /{pack}/{path}
//
// It also exposes /healthz, /metrics (Prometheus) and /events, a WebSocket
// stream of pack change notifications fed by a polling watcher. It backs
// "zcc source serve" and lets a team publish packs without a file host.
package server
