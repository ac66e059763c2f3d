package console

import (
	"errors"
	"time"

	"github.com/jroimartin/gocui"
	"github.com/sourcegraph/conc"

	"kvaccel/device"
)

// view names
const (
	consoleView   = "console"
	registersView = "registers"
	statusView    = "status"
)

const refreshInterval = 100 * time.Millisecond

// RunGui shows a three pane terminal UI: work writes its output to the
// console pane and progress to the status pane, while the registers pane
// redraws snapshot periodically. snapshot may be nil. Ctrl-C quits; RunGui
// returns once work has returned too.
func RunGui(snapshot func() (device.Snapshot, bool), work func(out, status Console) error) error {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return err
	}
	defer g.Close()

	g.SetManagerFunc(layout)
	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		return err
	}

	out := NewGui(g, consoleView)
	status := NewGui(g, statusView)

	stop := make(chan struct{})
	if snapshot != nil {
		go updateRegisters(g, snapshot, stop)
	}

	var wg conc.WaitGroup
	wg.Go(func() {
		_ = status.WriteConsole("Starting exerciser..")
		if err := work(out, status); err != nil {
			_ = status.WriteConsole("Exerciser failed: " + err.Error())
			return
		}
		_ = status.WriteConsole("Exerciser done. Ctrl-C to quit.")
	})

	err = g.MainLoop()

	close(stop)
	out.Close()
	status.Close()
	// work may still hold the device
	wg.Wait()

	if err != nil && !errors.Is(err, gocui.ErrQuit) {
		return err
	}
	return nil
}

// update registers display
// gocui allows updating the view only through Update
func updateRegisters(g *gocui.Gui, snapshot func() (device.Snapshot, bool), stop <-chan struct{}) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-stop:
			return
		}

		s, ok := snapshot()
		g.Update(func(g *gocui.Gui) error {
			v, err := g.View(registersView)
			if err != nil {
				return nil
			}
			v.Clear()
			if !ok {
				v.Write([]byte(" register view unavailable for this device"))
				return nil
			}
			v.Write([]byte(FormatSnapshot(s)))
			return nil
		})
	}
}

// gocui layout
func layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	// up -> console
	if v, err := g.SetView(consoleView, 0, 0, maxX-1, maxY-18); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Title = "Console"
		v.Autoscroll = true
	}

	// middle -> register values
	if v, err := g.SetView(registersView, 0, maxY-17, maxX-1, maxY-14); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Title = "Registers"
	}
	// down -> status
	if v, err := g.SetView(statusView, 0, maxY-13, maxX-1, maxY-1); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Title = "Status"
		v.Autoscroll = true
	}
	return nil
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}
