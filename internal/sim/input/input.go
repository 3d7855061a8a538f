// Package input turns one tick of raw key and pointer state into discrete
// editor commands.
package input

import (
	"errors"
	"fmt"
	"strings"

	"citytiles.dev/internal/sim/projection"
)

// Frame is everything the editor reads from the platform in one tick.
// Pressed and Released hold keys whose state changed this tick; Held holds
// every key currently down (including those in Pressed).
type Frame struct {
	Pointer  *[2]float64
	Viewport projection.Viewport
	Camera   projection.Camera

	Held     []string
	Pressed  []string
	Released []string
}

type Command uint16

const (
	CursorNext Command = 1 << iota
	CursorPrev
	RotateNext
	RotatePrev
	SelectFloor
	SelectBuildings
	Place
	Remove
	HidePreview
	ShowPreview
	Save
	Load
)

var commandNames = []struct {
	c    Command
	name string
}{
	{CursorNext, "CURSOR_NEXT"},
	{CursorPrev, "CURSOR_PREV"},
	{RotateNext, "ROTATE_NEXT"},
	{RotatePrev, "ROTATE_PREV"},
	{SelectFloor, "SELECT_FLOOR"},
	{SelectBuildings, "SELECT_BUILDINGS"},
	{Place, "PLACE"},
	{Remove, "REMOVE"},
	{HidePreview, "HIDE_PREVIEW"},
	{ShowPreview, "SHOW_PREVIEW"},
	{Save, "SAVE"},
	{Load, "LOAD"},
}

// Commands is the set of commands fired in one tick.
type Commands uint16

func (cs Commands) Has(c Command) bool { return uint16(cs)&uint16(c) != 0 }

func (cs Commands) String() string {
	var parts []string
	for _, cn := range commandNames {
		if cs.Has(cn.c) {
			parts = append(parts, cn.name)
		}
	}
	return strings.Join(parts, "|")
}

// Keymap binds key names to editor actions. Key names follow the platform's
// key codes (Right, D, AltLeft, Key1, MouseLeft, ...).
type Keymap struct {
	Next      []string `yaml:"next"`
	Prev      []string `yaml:"prev"`
	Floor     []string `yaml:"floor"`
	Buildings []string `yaml:"buildings"`
	Primary   string   `yaml:"primary"`
	Save      string   `yaml:"save"`
	Load      string   `yaml:"load"`

	// Modifiers. RotateModifier turns Next/Prev into rotation, RemoveModifier
	// turns Primary into removal and hides the preview while held.
	RotateModifier  string `yaml:"rotate_modifier"`
	RemoveModifier  string `yaml:"remove_modifier"`
	CommandModifier string `yaml:"command_modifier"`
}

func DefaultKeymap() Keymap {
	return Keymap{
		Next:            []string{"Right", "D"},
		Prev:            []string{"Left", "A"},
		Floor:           []string{"Key1"},
		Buildings:       []string{"Key2"},
		Primary:         "MouseLeft",
		Save:            "S",
		Load:            "L",
		RotateModifier:  "AltLeft",
		RemoveModifier:  "ShiftLeft",
		CommandModifier: "ControlLeft",
	}
}

// Merge fills empty fields of k from def.
func (k Keymap) Merge(def Keymap) Keymap {
	if len(k.Next) == 0 {
		k.Next = def.Next
	}
	if len(k.Prev) == 0 {
		k.Prev = def.Prev
	}
	if len(k.Floor) == 0 {
		k.Floor = def.Floor
	}
	if len(k.Buildings) == 0 {
		k.Buildings = def.Buildings
	}
	if k.Primary == "" {
		k.Primary = def.Primary
	}
	if k.Save == "" {
		k.Save = def.Save
	}
	if k.Load == "" {
		k.Load = def.Load
	}
	if k.RotateModifier == "" {
		k.RotateModifier = def.RotateModifier
	}
	if k.RemoveModifier == "" {
		k.RemoveModifier = def.RemoveModifier
	}
	if k.CommandModifier == "" {
		k.CommandModifier = def.CommandModifier
	}
	return k
}

func (k Keymap) Validate() error {
	var errs []error
	need := func(name string, keys ...string) {
		if len(keys) == 0 {
			errs = append(errs, fmt.Errorf("keymap.%s: no keys bound", name))
			return
		}
		for _, key := range keys {
			if strings.TrimSpace(key) == "" {
				errs = append(errs, fmt.Errorf("keymap.%s: empty key name", name))
			}
		}
	}
	need("next", k.Next...)
	need("prev", k.Prev...)
	need("floor", k.Floor...)
	need("buildings", k.Buildings...)
	need("primary", k.Primary)
	need("save", k.Save)
	need("load", k.Load)
	need("rotate_modifier", k.RotateModifier)
	need("remove_modifier", k.RemoveModifier)
	need("command_modifier", k.CommandModifier)

	// A key may only trigger one action; modifiers may not double as actions.
	owner := map[string]string{}
	claim := func(name string, keys ...string) {
		for _, key := range keys {
			if key == "" {
				continue
			}
			if prev, ok := owner[key]; ok {
				errs = append(errs, fmt.Errorf("keymap: %q bound to both %s and %s", key, prev, name))
				continue
			}
			owner[key] = name
		}
	}
	claim("next", k.Next...)
	claim("prev", k.Prev...)
	claim("floor", k.Floor...)
	claim("buildings", k.Buildings...)
	claim("primary", k.Primary)
	claim("rotate_modifier", k.RotateModifier)
	claim("remove_modifier", k.RemoveModifier)
	claim("command_modifier", k.CommandModifier)
	if k.Save != "" && k.Save == k.Load {
		errs = append(errs, fmt.Errorf("keymap: save and load share %q", k.Save))
	}
	return errors.Join(errs...)
}

// Resolve maps one frame to commands. Only keys pressed this tick fire, so a
// held key repeats nothing.
func (k Keymap) Resolve(f Frame) Commands {
	held := set(f.Held)
	pressed := set(f.Pressed)
	released := set(f.Released)
	// A key pressed this tick is held even if the platform left it out of Held.
	for key := range pressed {
		held[key] = struct{}{}
	}

	var cs Commands
	add := func(c Command) { cs |= Commands(c) }

	rotating := has(held, k.RotateModifier)
	if hasAny(pressed, k.Next) {
		if rotating {
			add(RotateNext)
		} else {
			add(CursorNext)
		}
	}
	if hasAny(pressed, k.Prev) {
		if rotating {
			add(RotatePrev)
		} else {
			add(CursorPrev)
		}
	}
	if hasAny(pressed, k.Floor) {
		add(SelectFloor)
	}
	if hasAny(pressed, k.Buildings) {
		add(SelectBuildings)
	}

	removing := has(held, k.RemoveModifier)
	if has(pressed, k.RemoveModifier) {
		add(HidePreview)
	}
	if has(released, k.RemoveModifier) {
		add(ShowPreview)
	}
	if has(pressed, k.Primary) {
		if removing {
			add(Remove)
		} else {
			add(Place)
		}
	}

	if has(held, k.CommandModifier) {
		if has(pressed, k.Save) {
			add(Save)
		}
		if has(pressed, k.Load) {
			add(Load)
		}
	}
	return cs
}

func set(keys []string) map[string]struct{} {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}

func has(m map[string]struct{}, key string) bool {
	if key == "" {
		return false
	}
	_, ok := m[key]
	return ok
}

func hasAny(m map[string]struct{}, keys []string) bool {
	for _, k := range keys {
		if has(m, k) {
			return true
		}
	}
	return false
}
