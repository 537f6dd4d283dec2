package sim

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"wifi-rssi-sim/internal/config"
)

type fakeProgram struct{ msgs []tea.Msg }

func (f *fakeProgram) Send(msg tea.Msg) { f.msgs = append(f.msgs, msg) }

func TestTUIWriterMessages(t *testing.T) {
	p := &fakeProgram{}
	w := &TUIWriter{program: p}
	if err := w.WriteFrame(sampleFrameRow(0)); err != nil {
		t.Fatalf("frame: %v", err)
	}
	if _, ok := p.msgs[0].(frameMsg); !ok {
		t.Fatalf("expected frameMsg, got %T", p.msgs[0])
	}
	if err := w.WriteFlow(sampleFlowRow()); err != nil {
		t.Fatalf("flow: %v", err)
	}
	if _, ok := p.msgs[1].(flowMsg); !ok {
		t.Fatalf("expected flowMsg, got %T", p.msgs[1])
	}
	if err := w.ShowReport(sampleReport(t)); err != nil {
		t.Fatalf("report: %v", err)
	}
	rm, ok := p.msgs[2].(reportMsg)
	if !ok {
		t.Fatalf("expected reportMsg, got %T", p.msgs[2])
	}
	if !strings.HasPrefix(rm.text, "Flow 1 ") {
		t.Fatalf("unexpected report text %q", rm.text)
	}
}

func TestTUIModelCountsFramesAndFlows(t *testing.T) {
	m := newTUIModel(config.Default())
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = mi.(tuiModel)
	for i := 0; i < 3; i++ {
		mi, _ = m.Update(frameMsg{sampleFrameRow(0)})
		m = mi.(tuiModel)
	}
	lost := sampleFrameRow(0)
	lost.Outcome = "low-snr"
	mi, _ = m.Update(frameMsg{lost})
	m = mi.(tuiModel)
	if m.frames != 4 || m.outcomes["delivered"] != 3 || m.outcomes["low-snr"] != 1 {
		t.Fatalf("unexpected counters %d %v", m.frames, m.outcomes)
	}
	if !strings.Contains(m.renderBottom(), "frames 4 | delivered 3 | low-snr 1 | mode HtMcs7") {
		t.Fatalf("unexpected status %q", m.renderBottom())
	}

	mi, _ = m.Update(flowMsg{sampleFlowRow()})
	m = mi.(tuiModel)
	if len(m.table.Rows()) != 1 || m.table.Rows()[0][5] != "1.195789" {
		t.Fatalf("unexpected table rows %v", m.table.Rows())
	}
	if !strings.Contains(m.header, "10.1.1.2:49153 -> 10.1.1.1:9 UDP") {
		t.Fatalf("flow table missing from header")
	}
}

func TestTUIReportToggle(t *testing.T) {
	m := newTUIModel(config.Default())
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = mi.(tuiModel)
	mi, _ = m.Update(frameMsg{sampleFrameRow(0)})
	m = mi.(tuiModel)
	mi, _ = m.Update(reportMsg{text: "Flow 1 (x) proto UDP\n  Rx Packets: 1\n"})
	m = mi.(tuiModel)
	if !m.showReport || !strings.Contains(m.vp.View(), "Flow 1 (x)") {
		t.Fatalf("expected report in viewport")
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	m = mi.(tuiModel)
	if m.showReport || !strings.Contains(m.vp.View(), "uid=7") {
		t.Fatalf("expected frame log after toggle")
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
}

func TestWrapToggle(t *testing.T) {
	cfg := config.Default()
	cfg.Description = "alpha beta gamma delta epsilon zeta eta theta"
	m := newTUIModel(cfg)
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 20})
	m = mi.(tuiModel)
	before := m.header
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'w'}})
	m = mi.(tuiModel)
	if !m.wrap {
		t.Fatalf("wrap not toggled")
	}
	if strings.Count(m.header, "\n") <= strings.Count(before, "\n") {
		t.Fatalf("expected description to wrap")
	}
}

func TestScrollToggle(t *testing.T) {
	m := newTUIModel(nil)
	m.vp.Height = 1
	m.vp.Width = 200
	mi, _ := m.Update(frameMsg{sampleFrameRow(0)})
	m = mi.(tuiModel)
	mi, _ = m.Update(frameMsg{sampleFrameRow(0)})
	m = mi.(tuiModel)
	if m.vp.YOffset != 1 {
		t.Fatalf("expected YOffset 1, got %d", m.vp.YOffset)
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	m = mi.(tuiModel)
	if m.autoscroll {
		t.Fatalf("autoscroll should be off")
	}
	mi, _ = m.Update(frameMsg{sampleFrameRow(0)})
	m = mi.(tuiModel)
	if m.vp.YOffset != 1 {
		t.Fatalf("expected YOffset unchanged, got %d", m.vp.YOffset)
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = mi.(tuiModel)
	if m.vp.YOffset != 0 {
		t.Fatalf("expected YOffset 0 after scrolling up, got %d", m.vp.YOffset)
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	m = mi.(tuiModel)
	if !m.autoscroll || m.vp.YOffset != len(m.logs)-m.vp.Height {
		t.Fatalf("expected autoscroll back at bottom, offset %d", m.vp.YOffset)
	}
}
