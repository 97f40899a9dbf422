// Command mediaflow runs the media processing daemon and talks to it over
// its HTTP API.
//
// `mediaflow serve` starts the daemon in the foreground. The remaining
// commands (add, list, show, reprocess, watch, status) are thin clients of a
// running daemon located through api_bind in the configuration file.
package main
