// Package watch is the terminal live view of a preset ensemble.
//
// The view owns its engine.Live. Each frame message advances the ensemble
// by exactly one tick, so the simulation rate is the frame rate.
package watch

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/engine"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/preset"
)

// DefaultInterval is the frame period (20 frames per second).
const DefaultInterval = 50 * time.Millisecond

// historyLen is how many order-parameter samples the sparkline keeps.
const historyLen = 60

type frameMsg time.Time

// Model is the bubbletea model of the live view.
type Model struct {
	live    *engine.Live
	catalog *preset.Catalog
	preset  preset.Preset

	interval time.Duration
	paused   bool
	quitting bool

	snap    engine.LiveSnapshot
	history []float64

	width  int
	height int
	theme  theme
}

// New returns a view over live, which must have been built from the preset
// stored under key in catalog. An unknown key is shown by name only.
func New(live *engine.Live, key string, catalog *preset.Catalog) Model {
	p, err := catalog.Get(key)
	if err != nil {
		p = preset.Preset{Key: key, Name: key, Params: live.Params()}
	}
	return Model{
		live:     live,
		catalog:  catalog,
		preset:   p,
		interval: DefaultInterval,
		snap:     live.Snapshot(),
		theme:    newTheme(),
	}
}

// WithInterval returns a copy of m using frame period d.
func (m Model) WithInterval(d time.Duration) Model {
	if d > 0 {
		m.interval = d
	}
	return m
}

// Snapshot returns the frame currently displayed.
func (m Model) Snapshot() engine.LiveSnapshot {
	return m.snap
}

// Paused reports whether ticking is suspended.
func (m Model) Paused() bool {
	return m.paused
}

// Preset returns the preset currently simulated.
func (m Model) Preset() preset.Preset {
	return m.preset
}

func (m Model) frame() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// Init starts the frame loop.
func (m Model) Init() tea.Cmd {
	return m.frame()
}

// Update handles frames, key presses and resizes.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		if !m.paused {
			m.snap = m.live.Tick()
			m.record(m.snap.Order)
		}
		return m, m.frame()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case " ", "space":
			m.paused = !m.paused
		case "r":
			m.live.Reset()
			m.snap = m.live.Snapshot()
			m.history = nil
		case "p":
			m.live.RandomizePhases()
			m.snap = m.live.Snapshot()
		case "n":
			m.nextPreset()
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) nextPreset() {
	if m.catalog == nil || m.catalog.Len() == 0 {
		return
	}
	next, err := m.catalog.Get(m.catalog.Next(m.preset.Key))
	if err != nil {
		return
	}
	m.preset = next
	m.live.UpdateParams(next.Params)
	m.snap = m.live.Snapshot()
	m.history = nil
}

func (m *Model) record(order float64) {
	m.history = append(m.history, order)
	if len(m.history) > historyLen {
		m.history = m.history[len(m.history)-historyLen:]
	}
}
