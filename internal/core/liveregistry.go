package core

import (
	"sync"

	"github.com/railcore/mc2core/internal/model"
)

// liveRegistry is the ephemeral, refresh-tracked set of locos currently
// under control -- the runtime counterpart to decoderdb's persistent
// catalogue (spec.md 3: LocoDef vs LiveLoco are separate concerns).
type liveRegistry struct {
	mu    sync.Mutex
	locos map[uint16]*model.LiveLoco
}

func newLiveRegistry() *liveRegistry {
	return &liveRegistry{locos: make(map[uint16]*model.LiveLoco)}
}

func (r *liveRegistry) getOrCreate(def *model.LocoDef) *model.LiveLoco {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locos[def.Addr]
	if !ok {
		l = model.NewLiveLoco(def)
		r.locos[def.Addr] = l
	}
	return l
}

func (r *liveRegistry) get(addr uint16) (*model.LiveLoco, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locos[addr]
	return l, ok
}

func (r *liveRegistry) remove(addr uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locos, addr)
}
