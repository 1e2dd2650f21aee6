// Package main hosts the carousel CLI entrypoint and command graph.
//
// The Cobra-based command tree runs generations against a ComfyUI instance,
// inspects workflow templates, probes the engine, serves the HTTP/MCP API, and
// scaffolds configuration. It centralizes configuration resolution and logger
// setup so subcommands only build the collaborators they need.
//
// Keep this package lean: new behavior belongs in the internal packages first
// and is surfaced here through dedicated commands or flags.
package main
