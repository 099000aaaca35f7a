package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/solana-toolkit/internal/ui/style"
)

// HealthSource is the part of the toolkit the watch screen needs
type HealthSource interface {
	Health() rpc.HealthState
	CheckHealth(ctx context.Context) rpc.HealthState
}

// HealthMsg carries a fresh health snapshot
type HealthMsg struct {
	State rpc.HealthState
}

// TickMsg triggers the next probe
type TickMsg struct {
	Time time.Time
}

// WatchModel renders the active endpoint health and re-probes it periodically
type WatchModel struct {
	ctx      context.Context
	source   HealthSource
	interval time.Duration
	now      func() time.Time

	state   rpc.HealthState
	probes  int
	spinner spinner.Model
	keys    KeyMap
	styles  style.HealthStyles
	width   int
}

// NewWatchModel creates a health watch model
func NewWatchModel(ctx context.Context, source HealthSource, interval time.Duration) *WatchModel {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	palette := style.DefaultPalette()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(palette.Primary)

	return &WatchModel{
		ctx:      ctx,
		source:   source,
		interval: interval,
		now:      time.Now,
		state:    source.Health(),
		spinner:  s,
		keys:     DefaultKeyMap(),
		styles:   style.NewHealthStyles(palette),
	}
}

// Init starts the spinner and the first probe
func (m *WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.probeCmd())
}

// Update handles key presses, probe results and timer ticks
func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			return m, m.probeCmd()
		}

	case HealthMsg:
		m.state = msg.State
		m.probes++
		return m, m.tickCmd()

	case TickMsg:
		return m, m.probeCmd()

	case spinner.TickMsg:
		if m.state.Checked() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// State returns the last rendered snapshot
func (m *WatchModel) State() rpc.HealthState {
	return m.state
}

func (m *WatchModel) probeCmd() tea.Cmd {
	return func() tea.Msg {
		return HealthMsg{State: m.source.CheckHealth(m.ctx)}
	}
}

func (m *WatchModel) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// View renders the health panel
func (m *WatchModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Solana RPC health"))
	b.WriteString("\n")
	b.WriteString(m.row("Endpoint", m.state.Endpoint))
	b.WriteString(m.row("Network", m.state.Network))
	b.WriteString(m.row("Commitment", string(m.state.Commitment)))
	b.WriteString(m.row("Status", m.renderStatus()))

	if m.state.Checked() {
		b.WriteString(m.row("Latency", m.state.Latency.Round(time.Millisecond).String()))
		b.WriteString(m.row("Checked", fmt.Sprintf("%s ago", m.state.Staleness(m.now()).Round(time.Second))))
		b.WriteString(m.row("Probes", fmt.Sprintf("%d", m.probes)))
	}
	if m.state.LastError != "" {
		b.WriteString(m.row("Last error", m.styles.Error.Render(m.state.LastError)))
	}

	help := make([]string, 0, 2)
	for _, binding := range m.keys.ShortHelp() {
		h := binding.Help()
		help = append(help, fmt.Sprintf("%s %s", h.Key, h.Desc))
	}
	b.WriteString(m.styles.Help.Render(strings.Join(help, " • ")))

	container := m.styles.Container
	if m.width > 4 {
		container = container.Width(m.width - 4)
	}
	return container.Render(b.String())
}

func (m *WatchModel) row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		m.styles.Label.Render(label),
		m.styles.Value.Render(value),
	) + "\n"
}

func (m *WatchModel) renderStatus() string {
	switch {
	case !m.state.Checked():
		return m.spinner.View() + m.styles.Pending.Render(" waiting for first probe")
	case m.state.IsHealthy:
		return m.styles.Healthy.Render("● healthy")
	default:
		return m.styles.Unhealthy.Render("● unhealthy")
	}
}
