package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/gesturearm/pkg/gesture"
	"github.com/gwillem/gesturearm/pkg/robot"
)

type StatusCommand struct {
	Armband bool `long:"armband" description:"Also wait for the armband to connect through the bridge"`
}

func (c *StatusCommand) Execute(args []string) error {
	logs, err := setupLogging(false)
	if err != nil {
		return err
	}
	defer logs.Close()

	cfg, err := loadConfig(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "No configuration found in %s. Run 'gesturearm setup' first.\n", opts.Config)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second+cfg.WaitTimeout())
	defer cancel()

	fmt.Println(headerStyle.Render("gesturearm status"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━"))
	fmt.Println()

	// Sensors
	hw, err := openSensors(cfg, false)
	if err != nil {
		fmt.Printf("Sensors: %v\n", err)
	} else {
		defer hw.Close()
		rows := [][]string{}
		if v, err := hw.ambient.FetchAmbientSample(ctx); err != nil {
			rows = append(rows, []string{"ambient", fmt.Sprint(cfg.Sensors.AmbientPin), "error: " + err.Error()})
		} else {
			rows = append(rows, []string{"ambient", fmt.Sprint(cfg.Sensors.AmbientPin), fmt.Sprintf("%.0f", v)})
		}
		if v, err := hw.touch.FetchTouchSample(ctx); err != nil {
			rows = append(rows, []string{"touch", fmt.Sprint(cfg.Sensors.TouchPin), "error: " + err.Error()})
		} else {
			rows = append(rows, []string{"touch", fmt.Sprint(cfg.Sensors.TouchPin), fmt.Sprintf("%.0f", v)})
		}
		fmt.Println(subHeaderStyle.Render("Sensors"))
		fmt.Println(renderTable([]string{"Sensor", "Pin", "Sample"}, rows))
		fmt.Println()
	}

	// Motors
	fmt.Println(subHeaderStyle.Render("Motors"))
	if !cfg.IsCalibrated() {
		fmt.Println("Motors not calibrated. Run 'gesturearm setup' first.")
	} else if err := probeMotors(ctx, cfg); err != nil {
		fmt.Printf("Error: %v\n", err)
	}
	fmt.Println()

	if c.Armband {
		fmt.Println(subHeaderStyle.Render("Armband"))
		probeArmband(ctx, cfg)
	}

	return nil
}

func probeMotors(ctx context.Context, cfg *robot.Config) error {
	arm, err := robot.NewArm(ctx, cfg.Bus, cfg.Motors)
	if err != nil {
		return err
	}
	defer arm.Close()

	angles, err := arm.ReadAngles(ctx)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(angles))
	for _, name := range robot.AllMotors() {
		mc := cfg.Motors[name]
		angle, ok := angles[name]
		pos := "-"
		if ok {
			pos = fmt.Sprintf("%.1f°", angle)
		}
		rows = append(rows, []string{
			string(name),
			fmt.Sprint(mc.ID),
			fmt.Sprintf("%d-%d", mc.RangeMin, mc.RangeMax),
			pos,
			fmt.Sprintf("%.0f°/s", mc.MaxSpeed),
		})
	}
	fmt.Println(renderTable([]string{"Motor", "ID", "Range", "Angle", "Max speed"}, rows))
	return nil
}

func probeArmband(ctx context.Context, cfg *robot.Config) {
	src, err := gesture.NewMQTTSource(gesture.MQTTConfig{
		Broker:      cfg.Gesture.Broker,
		ClientID:    cfg.Gesture.ClientID + "-status",
		TopicPrefix: cfg.Gesture.TopicPrefix,
		Timeout:     5 * time.Second,
	})
	if err != nil {
		fmt.Printf("Bridge: %v\n", err)
		return
	}
	defer src.Close()

	fmt.Printf("Waiting up to %s for the armband on %s...\n", cfg.WaitTimeout(), cfg.Gesture.Broker)
	seen, err := gesture.WaitForConnect(ctx, src, cfg.WaitTimeout())
	if err != nil {
		fmt.Printf("Armband: %v\n", err)
		return
	}
	arm := gesture.ArmUnknown
	for _, ev := range seen {
		if ev.Kind == gesture.EventArmSync {
			arm = ev.Arm
		}
	}
	if err := src.Vibrate(ctx, gesture.VibrationShort); err != nil {
		fmt.Printf("Vibrate: %v\n", err)
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("Armband connected (arm: %s)", arm)))
}

func renderTable(headers []string, rows [][]string) string {
	headerCell := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	nameCell := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCell
			}
			if col == 0 {
				return nameCell
			}
			return cell
		}).
		Render()
}
