package console

import (
	"io"
	"sync"
)

// Simple console type definition
type Simple struct {
	mu          sync.Mutex
	w           io.Writer
	currentLine int // number of lines written so far
}

var _ Console = (*Simple)(nil)

// NewSimple returns a console writing to w
func NewSimple(w io.Writer) *Simple {
	return &Simple{w: w}
}

// WriteConsole writes each line of msg followed by a line break
func (c *Simple) WriteConsole(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, line := range lines(msg) {
		if _, err := io.WriteString(c.w, line+"\n"); err != nil {
			return err
		}
		c.currentLine++
	}
	return nil
}

// Lines returns the number of lines written
func (c *Simple) Lines() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentLine
}
