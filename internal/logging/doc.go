// Package logging provides file-based structured logging with rotation for
// docindex. Logs are JSON-encoded slog records written under
// ~/.docindex/logs/ so the data directory stays limited to uploads, vectors,
// and status state.
//
// Interactive commands tee to stderr; the MCP serve mode writes to file only
// because stdout and stderr belong to the JSON-RPC stream.
package logging
