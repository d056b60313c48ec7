// Package modules provides Lua module bindings.
package modules

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/lightboard/internal/board"
	"github.com/dokzlo13/lightboard/internal/preset"
)

// LuaToGo converts a Lua value to a Go value
func LuaToGo(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LString:
		return string(val)
	case lua.LNumber:
		return float64(val)
	case lua.LBool:
		return bool(val)
	case *lua.LTable:
		if arr, ok := luaArray(val); ok {
			return arr
		}
		obj := make(map[string]any)
		val.ForEach(func(k, v lua.LValue) {
			obj[lua.LVAsString(k)] = LuaToGo(v)
		})
		return obj
	case *lua.LNilType:
		return nil
	default:
		return v.String()
	}
}

// luaArray converts a table with only positive integer keys.
func luaArray(tbl *lua.LTable) ([]any, bool) {
	maxIdx := 0
	isArray := true
	tbl.ForEach(func(k, _ lua.LValue) {
		num, ok := k.(lua.LNumber)
		if !ok || num < 1 {
			isArray = false
			return
		}
		if idx := int(num); idx > maxIdx {
			maxIdx = idx
		}
	})
	if !isArray || maxIdx == 0 {
		return nil, false
	}

	arr := make([]any, maxIdx)
	tbl.ForEach(func(k, v lua.LValue) {
		arr[int(k.(lua.LNumber))-1] = LuaToGo(v)
	})
	return arr, true
}

// GoToLuaValue converts a Go value to a Lua value
func GoToLuaValue(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		tbl := L.NewTable()
		for i, item := range val {
			tbl.RawSetInt(i+1, GoToLuaValue(L, item))
		}
		return tbl
	case map[string]any:
		return MapToLuaTable(L, val)
	default:
		return lua.LString(fmt.Sprintf("%v", v))
	}
}

// MapToLuaTable converts a Go map to a Lua table
func MapToLuaTable(L *lua.LState, m map[string]any) *lua.LTable {
	tbl := L.NewTable()
	for k, v := range m {
		L.SetField(tbl, k, GoToLuaValue(L, v))
	}
	return tbl
}

func presetToLua(L *lua.LState, p preset.Preset) *lua.LTable {
	return MapToLuaTable(L, map[string]any{
		"name":        p.Name,
		"color1":      p.Color1,
		"brightness1": p.Brightness1,
		"color2":      p.Color2,
		"brightness2": p.Brightness2,
	})
}

func slotToLua(L *lua.LState, s board.SlotState) *lua.LTable {
	return MapToLuaTable(L, map[string]any{
		"slot":       s.Slot,
		"name":       s.Name,
		"bound":      s.Bound,
		"on":         s.On,
		"color":      s.Color,
		"brightness": s.Brightness,
	})
}
