// Package monitor renders thought histories for terminals: a one-shot
// styled summary and a live bubbletea dashboard that polls a project.
package monitor
