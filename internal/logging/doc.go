// Package logging configures slog for edumate.
//
// Logs are JSON lines written to a size-rotated file under ~/.edumate/logs/.
// Interactive commands also mirror them to stderr when --debug is set; the
// serve command never writes to stdout or stderr because stdout carries the
// MCP protocol stream.
package logging
