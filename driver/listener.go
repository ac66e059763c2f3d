package driver

import (
	"time"

	"kvaccel/regs"
)

type EventListener interface {
	OnCommand(op regs.Op, status Status, attempts int, took time.Duration)
}

type SelectiveListener struct {
	OnCommandCb func(op regs.Op, status Status, attempts int, took time.Duration)
}

func (l *SelectiveListener) OnCommand(op regs.Op, status Status, attempts int, took time.Duration) {
	if l.OnCommandCb != nil {
		l.OnCommandCb(op, status, attempts, took)
	}
}
