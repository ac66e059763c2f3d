// Package console provides line oriented output sinks for exerciser and
// status messages: a plain writer and gocui views.
package console

import (
	"fmt"
	"strings"

	"kvaccel/device"
	"kvaccel/regs"
)

// Console receives output lines. Every non-empty line of msg is written.
type Console interface {
	WriteConsole(msg string) error
}

// lines splits msg into its non-empty lines
func lines(msg string) []string {
	var out []string
	for _, line := range strings.Split(msg, "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// FormatSnapshot renders the register window on one line.
func FormatSnapshot(s device.Snapshot) string {
	return fmt.Sprintf(" |%s: %#08x |  |%s: %#08x |  |%s: %#08x |  |%s: %#08x %s| ",
		regs.ValueLo, s.ValueLo,
		regs.ValueHi, s.ValueHi,
		regs.Key, s.Key,
		regs.Ctrl, uint32(s.Ctrl), s.Ctrl)
}
