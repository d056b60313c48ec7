package modules

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/lightboard/internal/board"
	"github.com/dokzlo13/lightboard/internal/eventbus"
	"github.com/dokzlo13/lightboard/internal/preset"
)

// Board is the command surface scripts drive.
type Board interface {
	State() []board.SlotState
	SetColor(ctx context.Context, slot int, hex string) error
	SetBrightness(ctx context.Context, slot int, pct int) error
	SetPower(ctx context.Context, slot int, on bool) error
	AllOn(ctx context.Context) error
	AllOff(ctx context.Context) error
	Reset(ctx context.Context) error
	SavePreset(ctx context.Context, nameHint string) (preset.Preset, error)
	ApplyPreset(ctx context.Context, name string) (preset.Preset, error)
	DeletePreset(ctx context.Context, name string) (bool, error)
	Presets() []preset.Preset
}

// Events is the subscription side of the event bus.
type Events interface {
	Subscribe(eventType eventbus.EventType, handler eventbus.Handler) eventbus.Subscription
	SubscribeAll(handler eventbus.Handler) eventbus.Subscription
	Unsubscribe(sub eventbus.Subscription)
}

// Enqueue schedules fn on the Lua worker goroutine.
type Enqueue func(fn func(ctx context.Context)) bool

// LightboardModule exposes board commands and event hooks to Lua.
type LightboardModule struct {
	board   Board
	events  Events
	enqueue Enqueue

	mu   sync.Mutex
	subs []eventbus.Subscription
}

// NewLightboardModule creates the lightboard module. events may be nil, in which case on() raises.
func NewLightboardModule(b Board, events Events, enqueue Enqueue) *LightboardModule {
	return &LightboardModule{board: b, events: events, enqueue: enqueue}
}

// Loader is the module loader for Lua
func (m *LightboardModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetFuncs(mod, map[string]lua.LGFunction{
		"set_color":      m.setColor,
		"set_brightness": m.setBrightness,
		"power":          m.power,
		"all_on":         m.allOn,
		"all_off":        m.allOff,
		"reset":          m.reset,
		"save_preset":    m.savePreset,
		"apply_preset":   m.applyPreset,
		"delete_preset":  m.deletePreset,
		"presets":        m.presets,
		"state":          m.state,
		"on":             m.on,
	})

	L.Push(mod)
	return 1
}

// Close drops every handler registered through on().
func (m *LightboardModule) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.events == nil {
		return
	}
	for _, sub := range m.subs {
		m.events.Unsubscribe(sub)
	}
	m.subs = nil
}

// commandContext tags commands issued from Lua. L has no context while a script is loading.
func commandContext(L *lua.LState) context.Context {
	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return board.WithSource(ctx, board.SourceLua)
}

// pushErr pushes err as a string or nil and returns 1.
func pushErr(L *lua.LState, err error) int {
	if err != nil {
		log.Debug().Err(err).Str("source", "lua").Msg("Lua command failed")
		L.Push(lua.LString(err.Error()))
		return 1
	}
	L.Push(lua.LNil)
	return 1
}

// set_color(slot, hex) -> err
func (m *LightboardModule) setColor(L *lua.LState) int {
	slot := L.CheckInt(1)
	hex := L.CheckString(2)
	return pushErr(L, m.board.SetColor(commandContext(L), slot, hex))
}

// set_brightness(slot, pct) -> err
func (m *LightboardModule) setBrightness(L *lua.LState) int {
	slot := L.CheckInt(1)
	pct := L.CheckInt(2)
	return pushErr(L, m.board.SetBrightness(commandContext(L), slot, pct))
}

// power(slot, on) -> err
func (m *LightboardModule) power(L *lua.LState) int {
	slot := L.CheckInt(1)
	on := L.CheckBool(2)
	return pushErr(L, m.board.SetPower(commandContext(L), slot, on))
}

// all_on() -> err
func (m *LightboardModule) allOn(L *lua.LState) int {
	return pushErr(L, m.board.AllOn(commandContext(L)))
}

// all_off() -> err
func (m *LightboardModule) allOff(L *lua.LState) int {
	return pushErr(L, m.board.AllOff(commandContext(L)))
}

// reset() -> err
func (m *LightboardModule) reset(L *lua.LState) int {
	return pushErr(L, m.board.Reset(commandContext(L)))
}

// save_preset([name]) -> (preset, err)
func (m *LightboardModule) savePreset(L *lua.LState) int {
	name := L.OptString(1, "")

	p, err := m.board.SavePreset(commandContext(L), name)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}

	L.Push(presetToLua(L, p))
	L.Push(lua.LNil)
	return 2
}

// apply_preset(name) -> (preset, err)
func (m *LightboardModule) applyPreset(L *lua.LState) int {
	name := L.CheckString(1)

	p, err := m.board.ApplyPreset(commandContext(L), name)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}

	L.Push(presetToLua(L, p))
	L.Push(lua.LNil)
	return 2
}

// delete_preset(name) -> (removed, err)
func (m *LightboardModule) deletePreset(L *lua.LState) int {
	name := L.CheckString(1)

	removed, err := m.board.DeletePreset(commandContext(L), name)
	if err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}

	L.Push(lua.LBool(removed))
	L.Push(lua.LNil)
	return 2
}

// presets() -> array of presets in save order
func (m *LightboardModule) presets(L *lua.LState) int {
	tbl := L.NewTable()
	for i, p := range m.board.Presets() {
		tbl.RawSetInt(i+1, presetToLua(L, p))
	}
	L.Push(tbl)
	return 1
}

// state() -> array of slot states
func (m *LightboardModule) state(L *lua.LState) int {
	tbl := L.NewTable()
	for i, s := range m.board.State() {
		tbl.RawSetInt(i+1, slotToLua(L, s))
	}
	L.Push(tbl)
	return 1
}

// on(event_type, fn) - Register a handler; "*" matches every event.
// fn(event) runs on the Lua worker with event = { type = ..., data = { ... } }.
func (m *LightboardModule) on(L *lua.LState) int {
	eventType := L.CheckString(1)
	fn := L.CheckFunction(2)

	if m.events == nil {
		L.RaiseError("lightboard.on: event bus is not available")
		return 0
	}

	handler := func(ev eventbus.Event) {
		m.enqueue(func(ctx context.Context) {
			m.dispatch(L, fn, ev)
		})
	}

	var sub eventbus.Subscription
	if eventType == "*" {
		sub = m.events.SubscribeAll(handler)
	} else {
		sub = m.events.Subscribe(eventbus.EventType(eventType), handler)
	}

	m.mu.Lock()
	m.subs = append(m.subs, sub)
	m.mu.Unlock()

	log.Debug().Str("event_type", eventType).Msg("Registered Lua event handler")
	return 0
}

// dispatch calls a registered handler. Must run on the Lua worker.
func (m *LightboardModule) dispatch(L *lua.LState, fn *lua.LFunction, ev eventbus.Event) {
	evt := L.NewTable()
	L.SetField(evt, "type", lua.LString(ev.Type))
	L.SetField(evt, "data", MapToLuaTable(L, ev.Data))

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, evt); err != nil {
		log.Error().Err(err).Str("event_type", string(ev.Type)).Msg("Lua event handler failed")
	}
}
