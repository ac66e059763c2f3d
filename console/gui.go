package console

import (
	"fmt"

	"github.com/jroimartin/gocui"
)

// Gui writes to a named gocui view. Lines go through a channel and are
// drawn by the gocui main loop, the only place views may be touched.
type Gui struct {
	consoleOut chan string   // string channel, to which the console data is sent to
	done       chan struct{} // closed to stop the drawing goroutine
	g          *gocui.Gui    // main gocui GUI object
	view       string        // name of the target view
}

var _ Console = (*Gui)(nil)

// NewGui returns a console drawing into view of g
func NewGui(g *gocui.Gui, view string) *Gui {
	c := &Gui{
		consoleOut: make(chan string, 64),
		done:       make(chan struct{}),
		g:          g,
		view:       view,
	}
	go c.run()
	return c
}

func (c *Gui) run() {
	for {
		select {
		case s := <-c.consoleOut:
			c.g.Update(func(g *gocui.Gui) error {
				v, err := g.View(c.view)
				if err != nil {
					// view not laid out yet, drop the line
					return nil
				}
				fmt.Fprint(v, s)
				return nil
			})
		case <-c.done:
			return
		}
	}
}

// WriteConsole queues each line of msg for display
func (c *Gui) WriteConsole(msg string) error {
	for _, line := range lines(msg) {
		select {
		case c.consoleOut <- line + "\n":
		case <-c.done:
			return nil
		}
	}
	return nil
}

// Close stops drawing. Later writes are discarded.
func (c *Gui) Close() {
	close(c.done)
}
