package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/officebot/loanarm/pkg/detect"
	"github.com/officebot/loanarm/pkg/inventory"
	"github.com/officebot/loanarm/pkg/robot"
	"github.com/officebot/loanarm/pkg/statusbus"
)

type ReturnModeCommand struct {
	CommonFlags
}

const (
	headerHeight = 2 // title + blank line
	detailHeight = 3 // sample detail rows
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

const confidenceSeries = "confidence"

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	matchStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	missStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
)

type returnModel struct {
	sup    *detect.Supervisor
	orch   *robot.Orchestrator
	ledger *inventory.Ledger
	events chan statusbus.Event
	errCh  chan error
	stop   func()

	chart      *streamlinechart.Model
	width      int
	height     int
	logs       []string
	lastSample *detect.Sample
	quitting   bool
	runErr     error
}

// Messages from the supervisor
type sampleMsg detect.Sample
type eventMsg statusbus.Event
type stoppedMsg struct{ err error }

func waitForSample(sup *detect.Supervisor) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-sup.Samples()
		if !ok {
			return nil
		}
		return sampleMsg(s)
	}
}

func waitForEvent(ch chan statusbus.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}

func waitForStop(sup *detect.Supervisor, errCh chan error) tea.Cmd {
	return func() tea.Msg {
		<-sup.Done()
		var err error
		select {
		case err = <-errCh:
		default:
		}
		return stoppedMsg{err: err}
	}
}

func (m *returnModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func (m *returnModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 12
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - detailHeight - footerHeight - borderSize
	if height < 8 {
		height = 8
	}
	return width, height
}

func (m *returnModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func newReturnModel(sup *detect.Supervisor, orch *robot.Orchestrator, ledger *inventory.Ledger, events chan statusbus.Event, errCh chan error, stop func()) returnModel {
	chart := streamlinechart.New(80, 12,
		streamlinechart.WithYRange(0, 100),
	)
	chart.SetDataSetStyles(confidenceSeries, runes.ThinLineStyle,
		lipgloss.NewStyle().Foreground(lipgloss.Color("51")))

	return returnModel{
		sup:    sup,
		orch:   orch,
		ledger: ledger,
		events: events,
		errCh:  errCh,
		stop:   stop,
		chart:  &chart,
	}
}

func (m returnModel) Init() tea.Cmd {
	return tea.Batch(
		waitForSample(m.sup),
		waitForEvent(m.events),
		waitForStop(m.sup, m.errCh),
	)
}

func (m returnModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.stop()
			return m, nil
		case "e":
			m.addLog("Emergency stop requested")
			m.quitting = true
			m.stop()
			orch := m.orch
			return m, func() tea.Msg {
				if err := orch.EmergencyStop(context.Background()); err != nil {
					return eventMsg(statusbus.Event{Text: fmt.Sprintf("emergency stop: %v", err)})
				}
				return nil
			}
		}

	case sampleMsg:
		s := detect.Sample(msg)
		m.lastSample = &s
		m.chart.PushDataSet(confidenceSeries, s.Confidence*100)
		m.chart.DrawAll()
		return m, waitForSample(m.sup)

	case eventMsg:
		m.addLog(statusbus.Event(msg).String())
		return m, waitForEvent(m.events)

	case stoppedMsg:
		m.runErr = msg.err
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m returnModel) View() string {
	if m.quitting {
		return "Return mode stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("LoanArm Return Mode"))
	counts := m.ledger.Counts()
	sb.WriteString(statusStyle.Render(fmt.Sprintf("  %s | %d in storage, %d on loan",
		m.sup.State(), counts[inventory.Available], counts[inventory.LoanedOut])))
	sb.WriteString("\n\n")

	// Confidence chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Last sample detail
	if s := m.lastSample; s != nil {
		if s.OK {
			sb.WriteString(matchStyle.Render(fmt.Sprintf("Detected: %s (%.1f%%)", s.Item, s.Confidence*100)))
		} else if s.Item != "" {
			sb.WriteString(missStyle.Render(fmt.Sprintf("%s (%.1f%%) - %s", s.Item, s.Confidence*100, s.Note)))
		} else {
			sb.WriteString(statusStyle.Render("Place item in camera view"))
		}
	} else {
		sb.WriteString(statusStyle.Render("Waiting for first classification..."))
	}
	sb.WriteString("\n\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4)

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit, 'e' for emergency stop")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (c *ReturnModeCommand) Execute(args []string) error {
	a, err := newApp(c.CommonFlags, true)
	if err != nil {
		return err
	}
	defer a.Close()

	events := make(chan statusbus.Event, 64)
	if err := a.bus.Subscribe("tui", events); err != nil {
		return err
	}

	sup := detect.New(a.orch, a.classifier(c.Simulate), a.ledger, a.bus, detect.Config{
		DetectionInterval: a.cfg.DetectionInterval,
		InitialWait:       a.cfg.InitialWait,
		SafetyWait:        a.cfg.SafetyWait,
		StableCount:       a.cfg.StableCount,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		if err := sup.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	model := newReturnModel(sup, a.orch, a.ledger, events, errCh, sup.Stop)
	p := tea.NewProgram(model, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		log.Fatalf("Error running program: %v", err)
	}

	sup.Stop()
	<-sup.Done()

	if fm, ok := finalModel.(returnModel); ok && fm.runErr != nil {
		return fm.runErr
	}
	return nil
}
