// Package viz renders a rollout live in the terminal: state readout,
// energy sparkline, and constraint residual, updating at 60 fps.
package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/mechsim/rigidsim/internal/mech"
	"github.com/mechsim/rigidsim/internal/sim"
)

const historyCapacity = 600

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// Model steps one rollout and renders it.
type Model struct {
	sys        *sim.System
	stepper    mech.Stepper
	state      mech.State
	initial    mech.State
	dt         float64
	name       string
	running    bool
	err        error
	energyHist []float64
	residHist  []float64
}

func NewModel(sys *sim.System, stepper mech.Stepper, initial mech.State, dt float64, name string) Model {
	return Model{
		sys:        sys,
		stepper:    stepper,
		state:      initial.Clone(),
		initial:    initial.Clone(),
		dt:         dt,
		name:       name,
		running:    true,
		energyHist: make([]float64, 0, historyCapacity),
		residHist:  make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.state = m.initial.Clone()
			m.energyHist = m.energyHist[:0]
			m.residHist = m.residHist[:0]
			m.err = nil
			m.running = true
		}
		return m, nil
	case TickMsg:
		if m.running && m.err == nil {
			next, err := m.stepper.Step(m.state, m.dt)
			if err != nil {
				m.err = err
				m.running = false
			} else {
				m.state = next
				m.observe()
			}
		}
		return m, tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

func (m *Model) observe() {
	if e, err := m.sys.Solver.Energy(m.state); err == nil {
		m.energyHist = append(m.energyHist, e)
	}
	if g, err := m.sys.Asm.MaxResidual(m.state.Q); err == nil {
		m.residHist = append(m.residHist, g)
	}
	if len(m.energyHist) > historyCapacity {
		m.energyHist = m.energyHist[len(m.energyHist)-historyCapacity:]
	}
	if len(m.residHist) > historyCapacity {
		m.residHist = m.residHist[len(m.residHist)-historyCapacity:]
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("rigidsim live / %s", m.name)))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}
	row("time", fmt.Sprintf("%.3f", m.state.T))
	if len(m.energyHist) > 0 {
		row("energy", fmt.Sprintf("%.6f", m.energyHist[len(m.energyHist)-1]))
	}
	if len(m.residHist) > 0 {
		row("|g(q)|", fmt.Sprintf("%.2e", m.residHist[len(m.residHist)-1]))
	}
	status := "running"
	if !m.running {
		status = "paused"
	}
	row("status", status)

	if len(m.energyHist) > 2 {
		b.WriteString(graphStyle.Render(asciigraph.Plot(m.energyHist,
			asciigraph.Height(8), asciigraph.Width(64), asciigraph.Caption("energy"))))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("space pause · r reset · q quit"))
	b.WriteString("\n")
	return b.String()
}

// Run starts the live view and blocks until the user quits.
func Run(sys *sim.System, stepper mech.Stepper, initial mech.State, dt float64, name string) error {
	p := tea.NewProgram(NewModel(sys, stepper, initial, dt, name))
	_, err := p.Run()
	return err
}
