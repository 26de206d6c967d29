package watch

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/oscillator"
)

// phaseBins is the width of the phase histogram.
const phaseBins = 32

var levels = []rune("▁▂▃▄▅▆▇█")

type theme struct {
	header lipgloss.Style
	title  lipgloss.Style
	panel  lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	good   lipgloss.Style
	warn   lipgloss.Style
	muted  lipgloss.Style
}

func newTheme() theme {
	pink := lipgloss.Color("#ff71ce")
	blue := lipgloss.Color("#01cdfe")
	mint := lipgloss.Color("#05ffa1")
	text := lipgloss.Color("#f3f3ff")
	muted := lipgloss.Color("#9ca3d8")

	return theme{
		header: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Padding(0, 1),
		title: lipgloss.NewStyle().Foreground(mint).Bold(true),
		panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(pink).
			Padding(0, 1),
		label: lipgloss.NewStyle().Foreground(blue),
		value: lipgloss.NewStyle().Foreground(text),
		good:  lipgloss.NewStyle().Foreground(mint).Bold(true),
		warn:  lipgloss.NewStyle().Foreground(pink).Bold(true),
		muted: lipgloss.NewStyle().Foreground(muted),
	}
}

// View renders the current frame.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	t := m.theme
	p := m.preset.Params

	status := t.good.Render("running")
	if m.paused {
		status = t.warn.Render("paused")
	}
	header := t.header.Render(fmt.Sprintf("%s  %s\n%s",
		t.title.Render(m.preset.Name), status, t.muted.Render(m.preset.Description)))

	metricsPanel := t.panel.Render(strings.Join([]string{
		m.row("r", fmt.Sprintf("%.3f", m.snap.Order)),
		m.row("ψ", fmt.Sprintf("%+.3f", m.snap.Psi)),
		m.row("C", fmt.Sprintf("%.3f", m.snap.Coherence)),
		m.row("R", fmt.Sprintf("%.2f", m.snap.Resonance)),
		m.row("W", fmt.Sprintf("%.3f", m.snap.Wobble)),
		m.row("t", fmt.Sprintf("%.2f", m.snap.Time)),
		m.row("ticks", fmt.Sprintf("%d", m.snap.Ticks)),
	}, "\n"))

	paramsPanel := t.panel.Render(strings.Join([]string{
		m.row("N", fmt.Sprintf("%d", p.N)),
		m.row("K", fmt.Sprintf("%.2f", p.K)),
		m.row("σ", fmt.Sprintf("%.2f", p.Sigma)),
		m.row("ω0", fmt.Sprintf("%.2f", p.Omega0)),
		m.row("D", fmt.Sprintf("%.2f", p.D)),
		m.row("β", fmt.Sprintf("%.2f", p.Beta)),
		m.row("dt", fmt.Sprintf("%.3f", p.Dt)),
	}, "\n"))

	phases := t.panel.Render(t.label.Render("phases 0 → 2π") + "\n" +
		t.value.Render(PhaseHistogram(m.snap.Theta, phaseBins)) + "\n" +
		t.label.Render("r over time") + "\n" +
		t.value.Render(Sparkline(m.history)))

	help := t.muted.Render("space pause · r reset · p randomize · n next preset · q quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinHorizontal(lipgloss.Top, metricsPanel, paramsPanel),
		phases,
		help,
	)
}

func (m Model) row(label, value string) string {
	return m.theme.label.Render(fmt.Sprintf("%-6s", label)) + m.theme.value.Render(value)
}

// PhaseHistogram renders phases as one row of block characters, one per
// bin over [0, 2π), scaled to the fullest bin.
func PhaseHistogram(phases []float64, bins int) string {
	if bins < 1 {
		return ""
	}
	counts := make([]int, bins)
	peak := 0
	width := oscillator.TwoPi / float64(bins)
	for _, theta := range phases {
		i := int(oscillator.Wrap(theta)/width) % bins
		counts[i]++
		peak = max(peak, counts[i])
	}

	var b strings.Builder
	for _, c := range counts {
		if c == 0 {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(level(float64(c) / float64(peak)))
	}
	return b.String()
}

// Sparkline renders values in [0, 1] as block characters.
func Sparkline(values []float64) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteRune(level(v))
	}
	return b.String()
}

func level(v float64) rune {
	if math.IsNaN(v) || v <= 0 {
		return levels[0]
	}
	i := int(math.Ceil(v*float64(len(levels)))) - 1
	return levels[min(max(i, 0), len(levels)-1)]
}
