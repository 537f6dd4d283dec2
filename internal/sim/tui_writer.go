package sim

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"wifi-rssi-sim/internal/config"
	"wifi-rssi-sim/internal/flowmon"
	"wifi-rssi-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// frameMsg carries a frame row.
type frameMsg struct{ telemetry.FrameRow }

// flowMsg carries a final flow row.
type flowMsg struct{ telemetry.FlowRow }

// reportMsg carries the rendered text report.
type reportMsg struct{ text string }

const maxLogLines = 1000

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// TUIWriter renders frames, flows and the final report using a bubbletea TUI.
type TUIWriter struct {
	program teaProgram
	done    chan struct{}
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(cfg *config.SimulationConfig) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	p := tea.NewProgram(newTUIModel(cfg), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
	}()
	return w
}

// WriteFrame implements FrameWriter.
func (w *TUIWriter) WriteFrame(row telemetry.FrameRow) error {
	w.program.Send(frameMsg{row})
	return nil
}

// WriteFlow implements FlowWriter.
func (w *TUIWriter) WriteFlow(row telemetry.FlowRow) error {
	w.program.Send(flowMsg{row})
	return nil
}

// ShowReport switches the viewport to the rendered report.
func (w *TUIWriter) ShowReport(r *flowmon.Report) error {
	var b strings.Builder
	if err := flowmon.WriteText(&b, r); err != nil {
		return err
	}
	w.program.Send(reportMsg{text: b.String()})
	return nil
}

// Wait blocks until the user quits the TUI.
func (w *TUIWriter) Wait() {
	if w.done != nil {
		<-w.done
	}
}

// Close stops the program.
func (w *TUIWriter) Close() error {
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	w.Wait()
	return nil
}

type tuiModel struct {
	cfg          *config.SimulationConfig
	table        table.Model
	vp           viewport.Model
	logs         []string
	report       string
	showReport   bool
	wrap         bool
	autoscroll   bool
	header       string
	headerHeight int
	height       int
	width        int
	frames       uint64
	outcomes     map[string]uint64
	lastMode     string
	flows        []telemetry.FlowRow
}

func newTUIModel(cfg *config.SimulationConfig) tuiModel {
	cols := []table.Column{
		{Title: "Flow", Width: 4},
		{Title: "Tuple", Width: 34},
		{Title: "Tx", Width: 7},
		{Title: "Rx", Width: 7},
		{Title: "Lost", Width: 6},
		{Title: "Mbps", Width: 10},
		{Title: "Delay ms", Width: 10},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(2))
	return tuiModel{
		cfg:        cfg,
		table:      t,
		vp:         viewport.New(0, 0),
		autoscroll: true,
		outcomes:   make(map[string]uint64),
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp.Width = msg.Width
		m.table.SetWidth(msg.Width)
		m.refreshHeader()
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshHeader()
			m.updateViewportHeight()
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
			return m, nil
		case "r":
			if m.report != "" {
				m.showReport = !m.showReport
				m.refreshViewport()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	case frameMsg:
		m.frames++
		m.outcomes[msg.Outcome]++
		m.lastMode = msg.Mode
		m.logs = append(m.logs, frameLine(msg.FrameRow))
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		if !m.showReport {
			m.refreshViewport()
		}
	case flowMsg:
		m.flows = append(m.flows, msg.FlowRow)
		m.refreshTable()
		m.refreshHeader()
		m.updateViewportHeight()
	case reportMsg:
		m.report = msg.text
		m.showReport = true
		m.refreshViewport()
	}
	return m, nil
}

func (m *tuiModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.flows))
	for _, f := range m.flows {
		rows = append(rows, table.Row{
			strconv.FormatUint(uint64(f.FlowID), 10),
			fmt.Sprintf("%s:%d -> %s:%d %s", f.Source, f.SourcePort, f.Destination, f.DestinationPort,
				flowmon.ProtocolLabel(f.Protocol)),
			strconv.FormatUint(f.TxPackets, 10),
			strconv.FormatUint(f.RxPackets, 10),
			strconv.FormatUint(f.LostPackets, 10),
			fmt.Sprintf("%.6f", f.ThroughputMbps),
			fmt.Sprintf("%.6f", f.MeanDelayMs),
		})
	}
	m.table.SetRows(rows)
	m.table.SetHeight(len(rows) + 1)
}

func (m *tuiModel) refreshHeader() {
	m.header = m.renderHeader()
	m.headerHeight = lipgloss.Height(m.header)
}

func (m *tuiModel) updateViewportHeight() {
	h := m.height - m.headerHeight - lipgloss.Height(m.renderBottom()) - 2
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	if m.showReport {
		lines = strings.Split(strings.TrimRight(m.report, "\n"), "\n")
	} else {
		lines = m.logs
	}
	if m.wrap && m.vp.Width > 0 {
		wrapped := make([]string, 0, len(lines))
		for _, l := range lines {
			wrapped = append(wrapped, wordwrap.String(l, m.vp.Width))
		}
		lines = wrapped
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll && !m.showReport {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{m.header, divider, m.vp.View(), divider, m.renderBottom()}
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	var b strings.Builder
	if m.cfg != nil {
		b.WriteString(titleStyle.Render(m.cfg.Name))
		b.WriteString(dimStyle.Render(fmt.Sprintf("  ap %s  sta %s  %s %s",
			m.cfg.AP, m.cfg.STA, m.cfg.Wifi.Standard, m.cfg.Traffic.Rate)))
		if d := m.cfg.Description; d != "" {
			if m.wrap && m.width > 0 {
				d = wordwrap.String(d, m.width)
			}
			b.WriteString("\n" + d)
		}
	}
	if len(m.flows) > 0 {
		b.WriteString("\n" + m.table.View())
	}
	return b.String()
}

func (m tuiModel) renderBottom() string {
	keys := make([]string, 0, len(m.outcomes))
	for k := range m.outcomes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := []string{fmt.Sprintf("frames %d", m.frames)}
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, m.outcomes[k]))
	}
	if m.lastMode != "" {
		parts = append(parts, "mode "+m.lastMode)
	}
	status := strings.Join(parts, " | ")
	help := dimStyle.Render("q quit  w wrap  s autoscroll  r report/frames  ↑/↓ scroll")
	return status + "\n" + help
}
