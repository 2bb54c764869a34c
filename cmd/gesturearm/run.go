package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/gesturearm/internal/log"
	"github.com/gwillem/gesturearm/pkg/gesture"
	"github.com/gwillem/gesturearm/pkg/status"
	"github.com/gwillem/gesturearm/pkg/teleop"
	"github.com/gwillem/gesturearm/pkg/web"
)

type RunCommand struct {
	Hz    int    `long:"hz" description:"Control loop frequency while running (default from config)"`
	Sim   bool   `long:"sim" description:"Simulate the armband, motors and sensors"`
	Arm   string `long:"arm" default:"right" choice:"left" choice:"right" description:"Arm the simulated armband is synced to"`
	Plain bool   `long:"plain" description:"Print the status line instead of the full-screen UI"`
	Web   string `long:"web" description:"Serve the state stream on this address, e.g. :8080"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 1
	statusHeight = 3 // status line, commands, blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Series colors
var seriesColors = map[string]string{
	"roll":  "51",  // cyan, horizontal axis
	"pitch": "226", // yellow, vertical axis
}

var seriesOrder = []string{"roll", "pitch"}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	runningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	lineStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
)

// Keys that inject poses into the simulated armband.
var simPoseKeys = map[string]gesture.Pose{
	"w": gesture.PoseWaveOut,
	"f": gesture.PoseFist,
	"s": gesture.PoseFingersSpread,
	"d": gesture.PoseDoubleTap,
	"i": gesture.PoseWaveIn,
	"r": gesture.PoseRest,
}

type runModel struct {
	ctrl     *teleop.Controller
	hw       *hardware
	states   <-chan teleop.State
	loop     *loopRunner
	chart    *streamlinechart.Model
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	state    teleop.State
	seen     bool
	err      error
	quitting bool
}

func (m *runModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller
type stateMsg teleop.State
type logMsg string
type exitMsg struct{ err error }

// loopRunner runs the controller and records how it ended.
type loopRunner struct {
	done chan struct{}
	err  error
}

func startLoop(ctx context.Context, ctrl *teleop.Controller) *loopRunner {
	r := &loopRunner{done: make(chan struct{})}
	go func() {
		defer close(r.done)
		r.err = ctrl.Start(ctx)
	}()
	return r
}

// wait blocks until the loop has returned. A cancelled loop is not an error.
func (r *loopRunner) wait() error {
	<-r.done
	if errors.Is(r.err, context.Canceled) {
		return nil
	}
	return r.err
}

func waitForState(states <-chan teleop.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-states
		if !ok {
			return nil
		}
		return stateMsg(s)
	}
}

func waitForLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

func waitForExit(loop *loopRunner) tea.Cmd {
	return func() tea.Msg {
		return exitMsg{loop.wait()}
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *runModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 16 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - statusHeight - footerHeight - borderSize
	if height < 8 {
		height = 8
	}
	return width, height
}

func (m *runModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func newRunModel(ctrl *teleop.Controller, hw *hardware, states <-chan teleop.State, loop *loopRunner) runModel {
	chart := streamlinechart.New(80, 16,
		streamlinechart.WithYRange(0, float64(ctrl.Scale())),
	)

	for _, name := range seriesOrder {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[name]))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	return runModel{
		ctrl:   ctrl,
		hw:     hw,
		states: states,
		loop:   loop,
		chart:  &chart,
	}
}

func (m runModel) Init() tea.Cmd {
	// Start listening for state and log updates
	return tea.Batch(
		waitForState(m.states),
		waitForLog(m.ctrl),
		waitForExit(m.loop),
	)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		m.handleSimKey(key)

	case stateMsg:
		state := teleop.State(msg)
		// Only chart live orientation (freeze while disconnected)
		if state.Connected {
			m.chart.PushDataSet("roll", state.Angles.Roll)
			m.chart.PushDataSet("pitch", state.Angles.Pitch)
			m.chart.DrawAll()
		}
		m.state, m.seen = state, true
		return m, waitForState(m.states)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)

	case exitMsg:
		m.err = msg.err
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// handleSimKey injects poses and toggles the mocked limit sensors.
func (m *runModel) handleSimKey(key string) {
	if m.hw.sim != nil {
		if p, ok := simPoseKeys[key]; ok {
			m.hw.sim.InjectPose(p)
			return
		}
	}
	if m.hw.mockIO == nil {
		return
	}
	sensors := m.hw.cfg.Sensors
	switch key {
	case "a":
		m.toggle(sensors.AmbientPin, "ambient")
	case "t":
		m.toggle(sensors.TouchPin, "touch")
	}
}

func (m *runModel) toggle(pin int, name string) {
	lvl, _ := m.hw.mockIO.ReadPin(pin)
	m.hw.mockIO.Set(pin, !lvl)
	m.addLog(fmt.Sprintf("[sim] %s pin %d %s", name, pin, !lvl))
}

func (m runModel) View() string {
	if m.quitting {
		if m.err != nil {
			return ""
		}
		return "Closing...\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("gesturearm"))
	sb.WriteString(fmt.Sprintf(" - %d Hz ", m.ctrl.Hz()))
	if m.state.Mode == teleop.Running {
		sb.WriteString(runningStyle.Render("RUNNING"))
	} else {
		sb.WriteString(statusStyle.Render("SLEEPING"))
	}
	if m.hw.sim != nil {
		sb.WriteString(statusStyle.Render("  [sim]"))
	}
	if m.seen && !m.state.Connected {
		sb.WriteString(statusStyle.Render("  armband disconnected"))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Status line and axis commands
	if m.seen {
		sb.WriteString(lineStyle.Render(status.Line(m.state.Status())))
		sb.WriteString("\n")
		s := m.state
		sb.WriteString(statusStyle.Render(fmt.Sprintf("horizontal %s %d  vertical %s %d  ambient %.2f  touch %.0f",
			s.Horizontal.Direction, s.Horizontal.Speed, s.Vertical.Direction, s.Vertical.Speed, s.Ambient, s.Touch)))
	}
	sb.WriteString("\n\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20)).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render(m.help())
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m runModel) help() string {
	if m.hw.sim == nil {
		return "Wave out to start, double tap to sleep. Press 'q' to quit"
	}
	return "w wave out  f fist  s spread  d double tap  i wave in  r rest  a ambient  t touch  q quit"
}

func renderLegend() string {
	var items []string
	for _, name := range seriesOrder {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[name])).Bold(true)
		item := colorStyle.Render("━━") + " " + name
		items = append(items, item)
	}
	return strings.Join(items, "  ")
}

// fanOut publishes every state to b and forwards it to the returned
// channel, dropping the oldest if the reader falls behind.
func fanOut(ctx context.Context, in <-chan teleop.State, b *web.Broadcaster) <-chan teleop.State {
	out := make(chan teleop.State, 1)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-in:
				if !ok {
					return
				}
				b.Publish(s)
				select {
				case out <- s:
				default:
					select {
					case <-out:
					default:
					}
					out <- s
				}
			}
		}
	}()
	return out
}

// runPlain prints the status line in place, one log message per line.
func runPlain(ctrl *teleop.Controller, states <-chan teleop.State, loop *loopRunner) error {
	for {
		select {
		case s, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			fmt.Print("\r" + status.Line(s.Status()))
		case msg := <-ctrl.Logs():
			fmt.Printf("\n%s\n", msg)
		case <-loop.done:
			fmt.Println()
			fmt.Println("Closing...")
			return loop.wait()
		}
	}
}

func (c *RunCommand) Execute(args []string) error {
	logs, err := setupLogging(!c.Plain)
	if err != nil {
		return err
	}
	defer logs.Close()

	cfg, err := loadConfig(c.Sim)
	if err != nil {
		fmt.Fprintf(os.Stderr, "No usable configuration in %s: %v\nRun 'gesturearm setup' first, or use --sim.\n", opts.Config, err)
		os.Exit(1)
	}
	if c.Hz > 0 {
		cfg.Control.Hz = c.Hz
	}
	if !c.Sim && !cfg.IsCalibrated() {
		fmt.Fprintln(os.Stderr, "Motors not calibrated. Run 'gesturearm setup' first.")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hw, err := openHardware(ctx, cfg, c.Sim, c.Arm)
	if err != nil {
		return fmt.Errorf("open hardware: %w", err)
	}
	defer hw.Close()

	ctrl, err := teleop.NewController(hw.controllerConfig())
	if err != nil {
		return fmt.Errorf("create controller: %w", err)
	}
	defer ctrl.Close()
	log.Info("controller ready", "hz", ctrl.Hz(), "sim", c.Sim)

	states := ctrl.States()
	if c.Web != "" {
		b := web.NewBroadcaster()
		states = fanOut(ctx, states, b)
		go func() {
			if err := web.NewServer(c.Web, b).Run(ctx); err != nil {
				log.Error("web server", "err", err)
			}
		}()
	}

	// Start controller in background
	loop := startLoop(ctx, ctrl)

	if c.Plain {
		return runPlain(ctrl, states, loop)
	}

	// Run TUI
	p := tea.NewProgram(newRunModel(ctrl, hw, states, loop), tea.WithAltScreen())
	_, err = p.Run()

	// Let the loop stop the axes before the deferred closes run
	cancel()
	if loopErr := loop.wait(); loopErr != nil {
		return loopErr
	}
	if err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
