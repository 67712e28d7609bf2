// Package core wires C1-C10 plus the ambient config/events/telemetry/
// trackio layers into one runnable station, the way the teacher's
// pkgs/app ties its command-station, config and CLI layers together
// (Design Note 9: "a single Core struct owns every component and hands
// out narrow interfaces to each").
package core

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/railcore/mc2core/internal/bitbuffer"
	"github.com/railcore/mc2core/internal/cmdqueue"
	"github.com/railcore/mc2core/internal/config"
	"github.com/railcore/mc2core/internal/dccalogon"
	"github.com/railcore/mc2core/internal/decoderdb"
	"github.com/railcore/mc2core/internal/events"
	"github.com/railcore/mc2core/internal/m3reply"
	"github.com/railcore/mc2core/internal/model"
	"github.com/railcore/mc2core/internal/packetbuilder"
	"github.com/railcore/mc2core/internal/progtrack"
	"github.com/railcore/mc2core/internal/railcom"
	"github.com/railcore/mc2core/internal/refreshlist"
	"github.com/railcore/mc2core/internal/replyrouter"
	"github.com/railcore/mc2core/internal/signalgen"
	"github.com/railcore/mc2core/internal/telemetry"
	"github.com/railcore/mc2core/internal/trackio"
	"github.com/railcore/mc2core/internal/trackmode"
)

// PurgeInterval is the cadence of the slow periodic task (spec.md 5).
const PurgeInterval = 1 * time.Second

// storeProxy implements decoderdb.StoreTrigger by forwarding to c.store,
// breaking the construction cycle between decoderdb.New (which needs a
// trigger) and config.NewLocoStore (which needs the DB it triggers for).
type storeProxy struct {
	core *Core
}

func (p *storeProxy) RequestSave() {
	if p.core.store != nil {
		p.core.store.RequestSave()
	}
}

// Core owns every component for one track output, including the
// decoderdb.DB that New builds for it.
type Core struct {
	log *logrus.Entry

	db        *decoderdb.DB
	live      *liveRegistry
	refresh   *refreshlist.List
	queue     *cmdqueue.Queue
	generator *signalgen.Generator
	router    *replyrouter.Router
	railcom   *railcom.Receiver
	m3reply   *m3reply.Receiver
	mode      *trackmode.Interlock
	prog      *progtrack.Task
	logon     *dccalogon.Machine
	bus       *events.Bus
	tele      *telemetry.Store
	store     *config.LocoStore

	fmtConfig bitbuffer.FmtConfig

	bridge *railcomBridge

	stop chan struct{}
}

// New assembles a Core from its hardware driver and persistence path.
// defaultFormat seeds decoderdb.New's get_or_create choice.
func New(log *logrus.Entry, driver trackio.Driver, clock trackio.Clock, locoIniPath string, defaultFormat model.Format, idleTimeout time.Duration) *Core {
	bus := events.New(log)
	tele := telemetry.NewStore()

	c := &Core{
		log:       log,
		live:      newLiveRegistry(),
		bus:       bus,
		tele:      tele,
		fmtConfig: bitbuffer.DefaultFmtConfig(),
		stop:      make(chan struct{}),
	}

	onChange := func(addr uint16) {
		bus.Publish(events.Event{Kind: events.LocoDB, Payload: addr})
	}
	// decoderdb needs a StoreTrigger before the LocoStore (which needs
	// the DB to iterate over) can exist; storeProxy resolves the cycle
	// by forwarding to c.store once New has set it.
	c.db = decoderdb.New(log, &storeProxy{core: c}, onChange, defaultFormat)
	c.store = config.NewLocoStore(locoIniPath, c.db, config.WithLogger(log))

	c.refresh = refreshlist.New(c.db, idleTimeout)
	c.router = replyrouter.New()
	c.railcom = railcom.New(c.router)
	c.m3reply = m3reply.New(c.router)
	c.bridge = newRailcomBridge(c.railcom, driver, clock)

	c.generator = signalgen.New(driver, clock, &encodeSource{core: c}, c.fmtConfig, c.bridge, c.m3reply)
	c.queue = cmdqueue.New(&refreshAdapter{core: c}, &isrIdleAdapter{gen: c.generator})

	c.mode = trackmode.New(log, driver, c.generator, clock, tele, bus)
	c.prog = progtrack.New(c.mode, c.queue, driver, tele, clock)
	c.logon = dccalogon.New(log, c.db, c.queue, time.Now().UnixNano())

	return c
}

// Start loads persisted state and launches every background worker.
// Callers should defer Stop.
func (c *Core) Start() error {
	if err := c.store.Load(); err != nil {
		return fmt.Errorf("core: load loco.ini: %w", err)
	}
	go c.generator.Run()
	go c.router.Run()
	go c.bridge.pollLoop(c.stop)
	go c.purgeTicker(PurgeInterval, c.stop)
	return nil
}

// Stop drains and halts every worker, flushing any pending DB save.
func (c *Core) Stop() {
	close(c.stop)
	c.generator.Stop()
	c.router.Stop()
	if err := c.store.Flush(); err != nil && c.log != nil {
		c.log.WithError(err).Error("core: final loco.ini flush failed")
	}
}

// DB exposes the decoder database to control surfaces (CLI, future UI).
func (c *Core) DB() *decoderdb.DB { return c.db }

// Events exposes the publish/subscribe bus.
func (c *Core) Events() *events.Bus { return c.bus }

// Telemetry exposes the lock-free telemetry snapshot store.
func (c *Core) Telemetry() *telemetry.Store { return c.tele }

// Mode exposes the track-mode interlock.
func (c *Core) Mode() *trackmode.Interlock { return c.mode }

// SetSpeed sets addr's speed/direction, touching the refresh list and
// enqueueing a coalesced speed packet (spec.md 4.2/4.3).
func (c *Core) SetSpeed(addr uint16, step uint8, forward bool) error {
	def, ok := c.db.Lookup(addr)
	if !ok {
		return fmt.Errorf("core: set speed %d: %w", addr, model.ErrNoDecoder)
	}
	live := c.live.getOrCreate(def)
	live.Speed = model.NewSpeedByte(step, forward)
	c.refresh.Touch(addr, time.Now())
	c.queue.Enqueue(packetbuilder.BuildSpeed(live, 1))
	c.bus.Publish(events.Event{Kind: events.LocoSpeed, Payload: addr})
	return nil
}

// ToggleFunction flips function fn for addr and enqueues the matching
// function-group packet.
func (c *Core) ToggleFunction(addr uint16, fn int) error {
	def, ok := c.db.Lookup(addr)
	if !ok {
		return fmt.Errorf("core: toggle function %d/%d: %w", addr, fn, model.ErrNoDecoder)
	}
	live := c.live.getOrCreate(def)
	on := live.Funcs.Toggle(fn)
	c.refresh.Touch(addr, time.Now())
	c.queue.Enqueue(packetbuilder.BuildFunction(live, fn, on, 1))
	c.bus.Publish(events.Event{Kind: events.LocoFunction, Payload: addr})
	return nil
}

// EmergencyStopAll enqueues the broadcast e-stop and publishes SysStatus.
func (c *Core) EmergencyStopAll() {
	c.queue.Enqueue(packetbuilder.BuildEmergencyStopAll())
	c.bus.Publish(events.Event{Kind: events.SysStatus, Payload: "ESTOP"})
}

// ThrowTurnout enqueues a basic-accessory packet and publishes Turnout.
func (c *Core) ThrowTurnout(addr uint16, format model.Format, direction, activate bool) {
	c.queue.Enqueue(packetbuilder.BuildAccessory(addr, format, direction, activate, 3))
	c.bus.Publish(events.Event{Kind: events.Turnout, Payload: addr})
}

// ProgramTask exposes the programming-track operations (spec.md 4.4/5).
func (c *Core) ProgramTask() *progtrack.Task { return c.prog }

// LiveSpeed reports the last commanded speed/direction for addr, if the
// loco currently has live (refresh-tracked) state.
func (c *Core) LiveSpeed(addr uint16) (step uint8, forward bool, ok bool) {
	live, found := c.live.get(addr)
	if !found {
		return 0, false, false
	}
	return live.Speed.Step(), live.Speed.Forward(), true
}

// ActiveFunctions lists the function numbers currently on for addr.
func (c *Core) ActiveFunctions(addr uint16) []int {
	live, found := c.live.get(addr)
	if !found {
		return nil
	}
	var on []int
	maxFunc := 4
	if live.Def != nil {
		maxFunc = live.Def.MaxFunc
	}
	for fn := 0; fn <= maxFunc; fn++ {
		if live.Funcs.Get(fn) {
			on = append(on, fn)
		}
	}
	return on
}

// Couple links addrs into a consist led by the first address, validating
// member count/uniqueness/format against the decoder DB and persisting
// the ring so refreshlist.List.Next can walk it (spec.md 3/8 scenario #5:
// "Consist couple (5, -7)").
func (c *Core) Couple(members ...model.ConsistMember) error {
	if len(members) == 0 {
		return fmt.Errorf("core: couple: %w", model.ErrNoDecoder)
	}
	consist := &model.Consist{Members: members}
	formatOf := func(addr uint16) (model.Format, bool) {
		def, ok := c.db.Lookup(addr)
		if !ok {
			return 0, false
		}
		return def.Format, true
	}
	if err := consist.Validate(formatOf); err != nil {
		return fmt.Errorf("core: couple: %w", err)
	}
	lead := members[0].Addr()
	c.db.PutConsist(lead, consist)
	c.refresh.Touch(lead, time.Now())
	c.bus.Publish(events.Event{Kind: events.LocoDB, Payload: lead})
	return nil
}

// Uncouple drops one member from the consist led by lead, dissolving it
// once fewer than two members remain.
func (c *Core) Uncouple(lead, addr uint16) error {
	if err := c.db.RemoveConsistMember(lead, addr); err != nil {
		return fmt.Errorf("core: uncouple %d from %d: %w", addr, lead, err)
	}
	c.bus.Publish(events.Event{Kind: events.LocoDB, Payload: lead})
	return nil
}

// Dissolve removes the whole consist led by lead, regardless of member
// count (spec.md 8 scenario #5: "dissolve(7) ... drops the consist").
func (c *Core) Dissolve(lead uint16) {
	c.db.DissolveConsist(lead)
	c.bus.Publish(events.Event{Kind: events.LocoDB, Payload: lead})
}

// RunDccaLogon runs one DCC-A auto-logon round (spec.md 4.10); intended
// to be called repeatedly by a long-running task while the station is
// in GO mode and a decoder may be waiting to announce itself.
func (c *Core) RunDccaLogon() (*model.LocoDef, error) {
	return c.logon.RunOneRound()
}
