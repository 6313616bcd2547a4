package ui

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/math"
	"github.com/spaghettifunk/parallax/engine/renderer"
)

type MenuItem struct {
	Label string
	// current value shown next to the label, may be nil
	Value func() string
	// run on Enter, may be nil
	Activate func()
}

/**
 * @brief A list of settings drawn as text. Tab shows and hides it, Up and Down move the
 * selection (wrapping), Enter activates the selected item.
 */
type Menu struct {
	items    []MenuItem
	selected int
	visible  bool
	surface  *TextSurface
}

func NewMenu(surface *TextSurface) *Menu {
	return &Menu{surface: surface}
}

func (m *Menu) Add(item MenuItem) {
	m.items = append(m.items, item)
}

func (m *Menu) Visible() bool {
	return m.visible
}

func (m *Menu) Toggle() bool {
	m.visible = !m.visible
	return m.visible
}

func (m *Menu) Selected() int {
	return m.selected
}

func (m *Menu) Up() {
	if len(m.items) == 0 {
		return
	}
	m.selected = math.Wrap(m.selected-1, len(m.items))
}

func (m *Menu) Down() {
	if len(m.items) == 0 {
		return
	}
	m.selected = math.Wrap(m.selected+1, len(m.items))
}

func (m *Menu) Activate() {
	if len(m.items) == 0 {
		return
	}
	if fn := m.items[m.selected].Activate; fn != nil {
		fn()
	}
}

// Lines renders the items, the selected one prefixed with '>'.
func (m *Menu) Lines() []string {
	lines := make([]string, len(m.items))
	for i, item := range m.items {
		marker := " "
		if i == m.selected {
			marker = ">"
		}
		text := item.Label
		if item.Value != nil {
			text = fmt.Sprintf("%s: %s", item.Label, item.Value())
		}
		lines[i] = marker + " " + text
	}
	return lines
}

// HandleKey reacts to menu keys and reports whether the key was consumed.
func (m *Menu) HandleKey(key core.KeyCode) bool {
	if key == core.KEY_TAB {
		m.Toggle()
		return true
	}
	if !m.visible {
		return false
	}
	switch key {
	case core.KEY_UP:
		m.Up()
	case core.KEY_DOWN:
		m.Down()
	case core.KEY_ENTER:
		m.Activate()
	default:
		return false
	}
	return true
}

func (m *Menu) Draw(ctx *renderer.RenderContext, x, y float32) {
	if !m.visible || len(m.items) == 0 {
		return
	}
	m.surface.SetText(strings.Join(m.Lines(), "\n"))
	m.surface.Draw(ctx, x, y)
}

func (m *Menu) Destroy() {
	m.surface.Destroy()
}
