// SPDX-License-Identifier: MIT
/*
Package tui renders the radar front panel in the terminal: the 16x2
character display and the five keypad keys.

The Panel is both the keypad collaborator of the radar engine and a Bubble
Tea model. Key presses are latched until the next poll reads them, the same
way a key held across one polling period registers once.
*/
package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"doppler/internal/lcd"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// refreshInterval is how often the display is redrawn.
const refreshInterval = 100 * time.Millisecond

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	lcdStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1B1B1B")).
			Background(lipgloss.Color("#9BBC0F")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#306230")).
			Padding(0, 1)

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)
)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Select key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Left, k.Right, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, {k.Left, k.Right}, {k.Select, k.Quit}}
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "edge counting")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "spectral")),
	Left:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "km/h")),
	Right:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "mph")),
	Select: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "select")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Panel is the terminal front panel.
type Panel struct {
	screen *lcd.Screen
	cancel context.CancelFunc

	mu      sync.Mutex
	latched *lcd.Button
	last    string // Name of the last key pressed.
}

// NewPanel returns a panel showing screen. cancel is called when the user
// quits.
func NewPanel(screen *lcd.Screen, cancel context.CancelFunc) *Panel {
	return &Panel{screen: screen, cancel: cancel}
}

// Read implements lcd.ButtonReader. It returns the latched key once, then
// the idle reading.
func (p *Panel) Read() (uint16, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.latched == nil {
		return lcd.IdleReading, nil
	}
	b := *p.latched
	p.latched = nil
	return lcd.Reading(b), nil
}

// Press latches b for the next Read.
func (p *Panel) Press(b lcd.Button) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latched = &b
	p.last = b.String()
}

func (p *Panel) lastKey() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Run shows the panel until the user quits or ctx is done.
func (p *Panel) Run(ctx context.Context) error {
	_, err := tea.NewProgram(newModel(p), tea.WithContext(ctx), tea.WithAltScreen()).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// model is the Bubble Tea view of a Panel.
type model struct {
	panel *Panel
	help  help.Model
}

func newModel(p *Panel) model {
	return model{panel: p, help: help.New()}
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tick()

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			if m.panel.cancel != nil {
				m.panel.cancel()
			}
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			m.panel.Press(lcd.Up)
		case key.Matches(msg, keys.Down):
			m.panel.Press(lcd.Down)
		case key.Matches(msg, keys.Left):
			m.panel.Press(lcd.Left)
		case key.Matches(msg, keys.Right):
			m.panel.Press(lcd.Right)
		case key.Matches(msg, keys.Select):
			m.panel.Press(lcd.Select)
		}
	}
	return m, nil
}

func (m model) View() string {
	rows := m.panel.screen.Rows()

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Doppler Radar"))
	sb.WriteString("\n\n")
	sb.WriteString(lcdStyle.Render(rows[0] + "\n" + rows[1]))
	sb.WriteString("\n\n")
	if last := m.panel.lastKey(); last != "" {
		sb.WriteString("Last key: " + highlightStyle.Render(last) + "\n\n")
	}
	sb.WriteString(m.help.View(keys))
	return sb.String()
}
