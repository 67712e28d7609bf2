package core

import (
	"fmt"
	"time"

	"github.com/railcore/mc2core/internal/model"
	"github.com/railcore/mc2core/internal/packetbuilder"
)

// pomWaiter is a one-shot channel-backed direct callback, the same
// shape as dccalogon's waiter, used to await a POM reply synchronously
// from a CLI-driven action (spec.md 4.9's direct callback path).
type pomWaiter struct {
	ch chan model.ReplyMessage
}

func newPomWaiter() *pomWaiter {
	return &pomWaiter{ch: make(chan model.ReplyMessage, 1)}
}

func (w *pomWaiter) callback(msg model.ReplyMessage, ctx any) model.Disposition {
	select {
	case w.ch <- msg:
	default:
	}
	return model.Deregister
}

func (w *pomWaiter) wait(timeout time.Duration) (model.ReplyMessage, bool) {
	select {
	case msg := <-w.ch:
		return msg, true
	case <-time.After(timeout):
		return model.ReplyMessage{}, false
	}
}

// PomWriteByte sends a programming-on-main CV write to addr; it enqueues
// the packet and returns without waiting for a RailCom reply (spec.md 4.4).
func (c *Core) PomWriteByte(addr uint16, cv uint16, value byte, repeat int) {
	c.queue.Enqueue(packetbuilder.BuildPomWriteByte(addr, cv, value, nil, nil, repeat))
}

// PomReadByte sends a programming-on-main CV read and blocks for the
// RailCom reply, up to timeout (spec.md 4.7/4.9).
func (c *Core) PomReadByte(addr uint16, cv uint16, repeat int, timeout time.Duration) (byte, error) {
	w := newPomWaiter()
	pkt := packetbuilder.BuildPomReadByte(addr, cv, w.callback, nil, repeat)
	c.queue.Enqueue(pkt)
	msg, ok := w.wait(timeout)
	if !ok {
		return 0, fmt.Errorf("core: pom read cv%d addr%d: %w", cv+1, addr, model.ErrTimeout)
	}
	return byte(msg.Param), nil
}
