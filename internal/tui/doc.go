// Package tui provides the terminal views for agentsmith.
//
// WatchModel polls a task or execution until it reaches a terminal status,
// showing a spinner while it waits and the result or error when done.
package tui
