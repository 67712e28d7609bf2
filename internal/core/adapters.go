package core

import (
	"time"

	"github.com/railcore/mc2core/internal/bitbuffer"
	"github.com/railcore/mc2core/internal/model"
	"github.com/railcore/mc2core/internal/packetbuilder"
	"github.com/railcore/mc2core/internal/signalgen"
)

// refreshAdapter implements cmdqueue.RefreshSource by asking the refresh
// list for the next address to poll and synthesising a speed-refresh
// packet from that address's live state (spec.md 4.3: "a refresh packet
// is synthesised from C2's next entry").
type refreshAdapter struct {
	core *Core
}

func (a *refreshAdapter) NextRefreshPacket() (*model.Packet, bool) {
	addr, ok := a.core.refresh.Next()
	if !ok {
		return nil, false
	}
	live, ok := a.core.live.get(addr)
	if !ok {
		return nil, false
	}
	return packetbuilder.BuildSpeed(live, 1), true
}

// isrIdleAdapter implements cmdqueue.IdleProbe over the signal generator.
type isrIdleAdapter struct {
	gen *signalgen.Generator
}

func (a *isrIdleAdapter) ISRIdle() bool {
	return a.gen.State() == signalgen.StateIdle
}

// encodeSource implements signalgen.Source: it dequeues the next packet
// (refresh-synthesised if nothing explicit is pending) and runs it
// through C5, dropping anything the encoder can't handle rather than
// stalling the generator (spec.md 7: "the signal generator must never
// be stalled by an upper-layer failure").
type encodeSource struct {
	core *Core
}

func (s *encodeSource) Next() *bitbuffer.Buffer {
	pkt, ok := s.core.queue.Dequeue(true)
	if !ok || pkt == nil {
		return nil
	}
	buf, err := packetbuilder.Encode(pkt, s.core.fmtConfig)
	if err != nil {
		if s.core.log != nil {
			s.core.log.WithError(err).WithField("opcode", pkt.Opcode).Warn("core: packet dropped, no encoder")
		}
		return nil
	}
	return buf
}

// purgeTicker runs the slow periodic task: refresh-list aging/purge and
// reply-router timeout sweeps (spec.md 5).
func (c *Core) purgeTicker(interval time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-t.C:
			for _, addr := range c.refresh.Purge(now) {
				c.live.remove(addr)
			}
			c.router.PollTimeouts(now)
		}
	}
}
