package core

import (
	"sync"
	"time"

	"github.com/railcore/mc2core/internal/bitbuffer"
	"github.com/railcore/mc2core/internal/railcom"
	"github.com/railcore/mc2core/internal/signalgen"
	"github.com/railcore/mc2core/internal/trackio"
)

// railcomBridge adapts the generator's window-boundary callbacks and the
// driver's byte-at-a-time UART into railcom.Receiver.FeedByte calls.
// The generator only tells C7 when a window opens/closes (spec.md 4.6:
// "At each window boundary, the RailCom receiver is signalled"); reading
// the actual bytes off the UART during the open window is this bridge's
// job, since the driver has no "deliver bytes to X" concept of its own.
type railcomBridge struct {
	recv   *railcom.Receiver
	driver trackio.Driver
	clock  trackio.Clock

	mu     sync.Mutex
	buf    *bitbuffer.Buffer
	window signalgen.State
	open   bool
}

func newRailcomBridge(recv *railcom.Receiver, driver trackio.Driver, clock trackio.Clock) *railcomBridge {
	return &railcomBridge{recv: recv, driver: driver, clock: clock}
}

// OnCutoutWindow implements signalgen.WindowHook.
func (b *railcomBridge) OnCutoutWindow(state signalgen.State, buf *bitbuffer.Buffer) {
	b.recv.OnCutoutWindow(state, buf)
	b.mu.Lock()
	b.buf = buf
	b.window = state
	b.open = state == signalgen.StateCutoutW1 || state == signalgen.StateCutoutW2
	b.mu.Unlock()
}

// pollLoop runs for the Core's lifetime, draining UART bytes into C7
// whenever a window is open. It idles between windows rather than
// busy-spinning the whole time.
func (b *railcomBridge) pollLoop(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		b.mu.Lock()
		open, buf, window := b.open, b.buf, b.window
		b.mu.Unlock()
		if !open {
			b.clock.Sleep(20 * time.Microsecond)
			continue
		}
		raw, ok, err := b.driver.ReadRailComByte()
		if err != nil || !ok {
			b.clock.Sleep(4 * time.Microsecond)
			continue
		}
		b.recv.FeedByte(buf, window, raw)
	}
}
