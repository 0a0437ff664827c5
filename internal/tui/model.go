// Package tui is an interactive browser over benchmark results.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"visionbench/internal/results"
)

// ReportPort is the TUI-facing subset of the bench service.
type ReportPort interface {
	Report(datasets []string) ([]results.Summary, []results.Combined, error)
}

// Model is the Bubble Tea model of the results browser.
type Model struct {
	service  ReportPort
	datasets []string
	input    textinput.Model
	viewport viewport.Model
	all      []results.Summary
	combined []results.Combined
	rows     []results.Summary
	status   string
	cursor   int
	ready    bool
}

// New creates a browser over the given datasets (all configured ones when empty).
func New(service ReportPort, datasets []string) Model {
	ti := textinput.New()
	ti.Prompt = "filter> "
	ti.Placeholder = "dataset or vendor, Enter to apply and reload"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	m := Model{service: service, datasets: datasets, input: ti, viewport: vp}
	m.reload()
	return m
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m *Model) reload() {
	sums, combined, err := m.service.Report(m.datasets)
	if err != nil {
		m.status = "Error: " + err.Error()
		m.all, m.combined = nil, nil
	} else {
		m.all, m.combined = sums, combined
		m.status = fmt.Sprintf("Loaded %d results files.", len(sums))
	}
	m.applyFilter()
}

func (m *Model) applyFilter() {
	q := strings.ToLower(strings.TrimSpace(m.input.Value()))
	var rows []results.Summary
	for _, s := range m.all {
		if q == "" || strings.Contains(strings.ToLower(s.Dataset), q) || strings.Contains(strings.ToLower(s.Vendor), q) {
			rows = append(rows, s)
		}
	}
	m.rows = rows
	if m.cursor >= len(m.rows) {
		m.cursor = 0
	}
	m.viewport.SetContent(m.render())
}

// Update handles key and window events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := tableBoxStyle.GetFrameSize()
		_, fh := filterBoxStyle.GetFrameSize()
		reserved := 1 + 1 + fh + 1 // header, status, filter box, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-bh)
		m.viewport.SetContent(m.render())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			m.reload()
			if q := strings.TrimSpace(m.input.Value()); q != "" {
				m.status = fmt.Sprintf("%d of %d results match %q", len(m.rows), len(m.all), q)
			}
			return m, nil
		case "down":
			if len(m.rows) > 0 {
				m.cursor = (m.cursor + 1) % len(m.rows)
				m.viewport.SetContent(m.render())
			}
			return m, nil
		case "up":
			if len(m.rows) > 0 {
				m.cursor = (m.cursor - 1 + len(m.rows)) % len(m.rows)
				m.viewport.SetContent(m.render())
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("visionbench results")
	table := tableBoxStyle.Render(m.viewport.View())
	input := filterBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + table + "\n" + input + "\n" + status
}

func (m Model) render() string {
	if len(m.rows) == 0 {
		return "No results."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %-8s %6s %7s %8s %9s %9s\n", "dataset", "vendor", "level", "samples", "accuracy", "mean(s)", "p95(s)")
	for i, s := range m.rows {
		line := fmt.Sprintf("%-12s %-8s %6d %7d %8.3f %9.3f %9.3f",
			s.Dataset, s.Vendor, s.Level, s.Samples, s.Accuracy, s.LatencyMean, s.LatencyP95)
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	sel := m.rows[m.cursor]
	fmt.Fprintf(&b, "\n%s/%s@%d: %d/%d correct, latency median %.3fs min %.3fs max %.3fs\n",
		sel.Dataset, sel.Vendor, sel.Level, sel.Correct, sel.Samples, sel.LatencyMedian, sel.LatencyMin, sel.LatencyMax)
	for _, c := range m.combined {
		if c.Vendor == sel.Vendor && c.Level == sel.Level {
			fmt.Fprintf(&b, "%s@%d across %d dataset(s): %s, pooled latency mean %.3fs median %.3fs\n",
				c.Vendor, c.Level, c.Datasets, accuracyStyle.Render(fmt.Sprintf("%.3f", c.Accuracy)),
				c.LatencyMean, c.LatencyMedian)
		}
	}
	return b.String()
}

var (
	tableBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	filterBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	accuracyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)
