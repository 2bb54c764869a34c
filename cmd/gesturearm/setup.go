package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/gesturearm/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Servo IDs probed on every port.
const (
	scanFirstID = 1
	scanLastID  = 6
)

type SetupCommand struct {
	Port string `long:"port" description:"Serial port of the servo bus (skips the port scan)"`
}

func (c *SetupCommand) Execute(args []string) error {
	logs, err := setupLogging(true)
	if err != nil {
		return err
	}
	defer logs.Close()

	cfg, err := loadConfig(true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", opts.Config, err)
		os.Exit(1)
	}

	fmt.Println(headerStyle.Render("gesturearm setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━"))
	fmt.Println()

	// Step 1: find the servo bus
	bus := c.Port
	if bus == "" {
		bus = scanForBus()
	}
	cfg.Bus.Port = bus

	// Step 2: assign servos to motors
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Assigning Motors ━━━"))
	fmt.Println()
	ids := assignMotors(cfg)

	// Step 3: record the range of motion
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Calibrating Motors ━━━"))
	fmt.Println()
	calibrateMotors(cfg, ids)

	if err := cfg.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	// Step 4: armband bridge
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Armband Bridge ━━━"))
	fmt.Println()
	configureBridge(cfg)

	if err := cfg.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start driving with: " + headerStyle.Render("gesturearm run"))

	return nil
}

type busInfo struct {
	port   string
	servos []feetech.FoundServo
	bus    *feetech.Bus
}

func openBus(port string) (*feetech.Bus, error) {
	return feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
}

// findBuses returns every serial port with enough servos to drive the arm.
func findBuses() []busInfo {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var found []busInfo
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		bus, err := openBus(port)
		if err != nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		servos, err := bus.Scan(ctx, scanFirstID, scanLastID)
		cancel()
		if err != nil || len(servos) < len(robot.AllMotors()) {
			bus.Close()
			continue
		}

		fmt.Printf("  Found %d servo(s) on %s\n", len(servos), port)
		found = append(found, busInfo{port: port, servos: servos, bus: bus})
	}
	return found
}

func scanForBus() string {
	fmt.Println("Scanning for the servo bus...")
	fmt.Println()

	buses := findBuses()
	if len(buses) == 0 {
		fmt.Println("No servo bus found.")
		fmt.Printf("Make sure the arm is connected and powered on, with at least %d servos.\n", len(robot.AllMotors()))
		os.Exit(1)
	}
	if len(buses) == 1 {
		buses[0].bus.Close()
		return buses[0].port
	}

	fmt.Printf("Found %d buses. Let's identify the arm...\n\n", len(buses))
	for _, b := range buses {
		if identifyBusWithWiggle(b) {
			return b.port
		}
	}

	fmt.Println("No bus selected.")
	os.Exit(1)
	return ""
}

func identifyBusWithWiggle(b busInfo) bool {
	defer b.bus.Close()

	ctx := context.Background()
	servo := feetech.NewServo(b.bus, b.servos[0].ID, b.servos[0].Model)
	fmt.Printf("\n  Wiggling servo %d on %s...\n", b.servos[0].ID, b.port)
	if err := wiggle(ctx, servo); err != nil {
		fmt.Printf("  Error: %v\n", err)
	}

	var use bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Is the arm on %s?", b.port)).
				Description("The joint that just wiggled").
				Affirmative("Yes").
				Negative("No").
				Value(&use),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return use
}

// wiggle moves servo a little either way and releases it.
func wiggle(ctx context.Context, servo *feetech.Servo) error {
	originalPos, err := servo.Position(ctx)
	if err != nil {
		return fmt.Errorf("read position: %w", err)
	}
	if err := servo.Enable(ctx); err != nil {
		return fmt.Errorf("enable servo: %w", err)
	}

	wiggleAmount := 30
	moveTimeMs := 500
	for _, pos := range []int{originalPos + wiggleAmount, originalPos - wiggleAmount, originalPos} {
		servo.SetPositionWithTime(ctx, pos, moveTimeMs)
		time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)
	}

	return servo.Disable(ctx)
}

// assignMotors wiggles each servo on the bus and asks which motor it is.
// It returns the servo ID of every motor.
func assignMotors(cfg *robot.Config) map[robot.MotorName]int {
	bus, err := openBus(cfg.Bus.Port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", cfg.Bus.Port, err)
		os.Exit(1)
	}
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	servos, err := bus.Scan(ctx, scanFirstID, scanLastID)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error scanning %s: %v\n", cfg.Bus.Port, err)
		os.Exit(1)
	}

	ids := make(map[robot.MotorName]int)
	for _, fs := range servos {
		remaining := unassigned(ids)
		if len(remaining) == 0 {
			break
		}

		servo := feetech.NewServo(bus, fs.ID, fs.Model)
		fmt.Printf("\n  Wiggling servo %d...\n", fs.ID)
		if err := wiggle(context.Background(), servo); err != nil {
			fmt.Printf("  Error: %v\n", err)
			continue
		}

		options := make([]huh.Option[string], 0, len(remaining)+1)
		for _, name := range remaining {
			options = append(options, huh.NewOption(motorLabel(name), string(name)))
		}
		options = append(options, huh.NewOption("Skip this servo", "skip"))

		var role string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title(fmt.Sprintf("Which motor is servo %d?", fs.ID)).
					Description("The joint that just wiggled").
					Options(options...).
					Value(&role),
			),
		)
		if err := form.Run(); err != nil {
			fmt.Println()
			os.Exit(0)
		}
		if role != "skip" {
			ids[robot.MotorName(role)] = fs.ID
		}
	}

	if missing := unassigned(ids); len(missing) > 0 {
		fmt.Printf("Motors not assigned: %v\n", missing)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(successStyle.Render("Motors assigned:"))
	for _, name := range robot.AllMotors() {
		fmt.Printf("  %-10s servo %d\n", name, ids[name])
	}
	return ids
}

func unassigned(ids map[robot.MotorName]int) []robot.MotorName {
	var out []robot.MotorName
	for _, name := range robot.AllMotors() {
		if _, ok := ids[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

func motorLabel(name robot.MotorName) string {
	switch name {
	case robot.Horizontal:
		return "Horizontal (turns the arm left and right)"
	case robot.Vertical:
		return "Vertical (lifts the arm up and down)"
	case robot.Gripper:
		return "Gripper (opens and closes)"
	}
	return string(name)
}

func calibrateMotors(cfg *robot.Config, ids map[robot.MotorName]int) {
	bus, err := openBus(cfg.Bus.Port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", cfg.Bus.Port, err)
		os.Exit(1)
	}
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	found, err := bus.Scan(ctx, scanFirstID, scanLastID)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error scanning %s: %v\n", cfg.Bus.Port, err)
		os.Exit(1)
	}

	motors := robot.AllMotors()
	servos := make(map[robot.MotorName]*feetech.Servo)
	for _, name := range motors {
		i := slices.IndexFunc(found, func(fs feetech.FoundServo) bool { return fs.ID == ids[name] })
		if i < 0 {
			fmt.Fprintf(os.Stderr, "Servo %d (%s) not found on %s\n", ids[name], name, cfg.Bus.Port)
			os.Exit(1)
		}
		servos[name] = feetech.NewServo(bus, found[i].ID, found[i].Model)
	}

	// Disable all servos so the user can move the arm freely
	bg := context.Background()
	for _, servo := range servos {
		servo.Disable(bg)
	}

	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Move each joint to its minimum AND maximum positions.")
	fmt.Println()

	model := newRangeModel(cfg, servos)
	for _, name := range motors {
		pos, _ := servos[name].Position(bg)
		model.start(name, pos)
	}

	p := tea.NewProgram(model)
	finalModel, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running calibration: %v\n", err)
		os.Exit(1)
	}
	rm := finalModel.(rangeModel)

	calibration := make(robot.Calibration)
	for _, name := range motors {
		prev := cfg.Motors[name]
		mc := robot.MotorCalibration{
			ID:           ids[name],
			DriveMode:    prev.DriveMode,
			RangeMin:     rm.lo[name],
			RangeMax:     rm.hi[name],
			MaxSpeed:     prev.MaxSpeed,
			Acceleration: prev.Acceleration,
		}
		if mc.MaxSpeed <= 0 {
			mc.MaxSpeed = 360
		}
		if mc.Acceleration <= 0 {
			mc.Acceleration = 200
		}
		calibration[name] = mc
	}
	cfg.Motors = calibration

	fmt.Println()
	fmt.Println("Motors calibrated.")
}

func configureBridge(cfg *robot.Config) {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("MQTT broker").
				Description("Where the armband bridge publishes its events").
				Value(&cfg.Gesture.Broker),
			huh.NewInput().
				Title("Topic prefix").
				Value(&cfg.Gesture.TopicPrefix),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
}

// minSpan is the travel in degrees each motor needs. The gripper is driven
// to both ends of its open/close angles.
func minSpan(cfg *robot.Config, name robot.MotorName) float64 {
	if name == robot.Gripper {
		c := cfg.Control
		return math.Abs(float64(c.GripperOpenDeg - c.GripperClosedDeg))
	}
	return 45
}

// rangeModel records the travel of each motor while the user moves the
// released joints by hand.
type rangeModel struct {
	motors []robot.MotorName
	servos map[robot.MotorName]*feetech.Servo
	need   map[robot.MotorName]float64
	cur    map[robot.MotorName]int
	lo     map[robot.MotorName]int
	hi     map[robot.MotorName]int
	errs   int
	done   bool
}

type sampleMsg time.Time

func newRangeModel(cfg *robot.Config, servos map[robot.MotorName]*feetech.Servo) rangeModel {
	m := rangeModel{
		motors: robot.AllMotors(),
		servos: servos,
		need:   make(map[robot.MotorName]float64),
		cur:    make(map[robot.MotorName]int),
		lo:     make(map[robot.MotorName]int),
		hi:     make(map[robot.MotorName]int),
	}
	for _, name := range m.motors {
		m.need[name] = minSpan(cfg, name)
	}
	return m
}

// start seeds every range with the current position.
func (m rangeModel) start(name robot.MotorName, pos int) {
	m.cur[name], m.lo[name], m.hi[name] = pos, pos, pos
}

func (m rangeModel) track(name robot.MotorName, pos int) {
	m.cur[name] = pos
	m.lo[name] = min(m.lo[name], pos)
	m.hi[name] = max(m.hi[name], pos)
}

func (m rangeModel) span(name robot.MotorName) float64 {
	return robot.DegreesFromSteps(m.hi[name] - m.lo[name])
}

func (m rangeModel) complete() bool {
	for _, name := range m.motors {
		if m.span(name) < m.need[name] {
			return false
		}
	}
	return true
}

func sample() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return sampleMsg(t)
	})
}

func (m rangeModel) Init() tea.Cmd {
	return sample()
}

func (m rangeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.done = true
			return m, tea.Quit
		}

	case sampleMsg:
		ctx := context.Background()
		for _, name := range m.motors {
			pos, err := m.servos[name].Position(ctx)
			if err != nil {
				m.errs++
				continue
			}
			m.track(name, pos)
		}
		return m, sample()
	}

	return m, nil
}

var (
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	currentStyle = cellStyle.Foreground(lipgloss.Color("11"))
	enoughStyle  = cellStyle.Foreground(lipgloss.Color("10"))
	shortStyle   = cellStyle.Foreground(lipgloss.Color("9"))
)

func (m rangeModel) View() string {
	if m.done {
		return ""
	}

	rows := make([][]string, 0, len(m.motors))
	for _, name := range m.motors {
		rows = append(rows, []string{
			string(name),
			fmt.Sprint(m.cur[name]),
			fmt.Sprint(m.lo[name]),
			fmt.Sprint(m.hi[name]),
			fmt.Sprintf("%.0f° / %.0f°", m.span(name), m.need[name]),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Motor", "Position", "Min", "Max", "Span / needed").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return cellStyle.Bold(true).Foreground(lipgloss.Color("12"))
			case col == 0:
				return cellStyle.Foreground(lipgloss.Color("14"))
			case col == 1:
				return currentStyle
			case col == 4 && row < len(m.motors):
				if m.span(m.motors[row]) >= m.need[m.motors[row]] {
					return enoughStyle
				}
				return shortStyle
			}
			return cellStyle
		})

	var sb strings.Builder
	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	if m.errs > 0 {
		sb.WriteString(shortStyle.Render(fmt.Sprintf("%d failed reads", m.errs)))
		sb.WriteString("\n")
	}
	if m.complete() {
		sb.WriteString(successStyle.Render("All motors have enough travel. Press Enter to save"))
	} else {
		sb.WriteString(dimStyle.Render("Press Enter when done"))
	}
	return sb.String()
}
