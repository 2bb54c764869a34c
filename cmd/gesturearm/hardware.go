package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gwillem/gesturearm/pkg/actuation"
	"github.com/gwillem/gesturearm/pkg/gesture"
	"github.com/gwillem/gesturearm/pkg/gpio"
	"github.com/gwillem/gesturearm/pkg/robot"
	"github.com/gwillem/gesturearm/pkg/sensor"
	"github.com/gwillem/gesturearm/pkg/teleop"
)

// hardware holds everything the controller talks to.
type hardware struct {
	cfg     *robot.Config
	source  gesture.Source
	sim     *gesture.SimSource // set with --sim
	mockIO  *gpio.MockDriver   // set when the GPIO lines are mocked
	arm     *robot.Arm         // nil with --sim
	gpio    gpio.Driver
	motors  map[robot.MotorName]robot.Motor
	ambient sensor.Ambient
	touch   sensor.Touch
}

// openSensors opens the GPIO driver and both limit sensors.
func openSensors(cfg *robot.Config, mock bool) (*hardware, error) {
	h := &hardware{cfg: cfg, motors: make(map[robot.MotorName]robot.Motor)}

	drv, err := gpio.NewDriver(mock || cfg.Sensors.MockGPIO)
	if err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}
	h.gpio = drv
	h.mockIO, _ = drv.(*gpio.MockDriver)

	if h.ambient, err = sensor.NewGPIOAmbient(drv, cfg.Sensors.AmbientPin, cfg.Sensors.AmbientInvert); err != nil {
		drv.Close()
		return nil, err
	}
	if h.touch, err = sensor.NewGPIOTouch(drv, cfg.Sensors.TouchPin); err != nil {
		drv.Close()
		return nil, err
	}
	return h, nil
}

// openHardware opens sensors, motors and the armband. With sim everything
// is simulated and armSide picks the arm the simulated band is synced to.
func openHardware(ctx context.Context, cfg *robot.Config, sim bool, armSide string) (*hardware, error) {
	h, err := openSensors(cfg, sim)
	if err != nil {
		return nil, err
	}

	if sim {
		cal := cfg.Motors
		if !cfg.IsCalibrated() {
			cal = robot.SimCalibration()
		}
		for name, m := range robot.NewSimMotors(cal) {
			h.motors[name] = m
		}
		h.sim = gesture.NewSimSource(gesture.ParseArm(armSide), cfg.Period())
		h.source = h.sim
		return h, nil
	}

	h.arm, err = robot.NewArm(ctx, cfg.Bus, cfg.Motors)
	if err != nil {
		h.Close()
		return nil, err
	}
	for _, name := range robot.AllMotors() {
		if m := h.arm.Motor(name); m != nil {
			h.motors[name] = m
		}
	}

	h.source, err = gesture.NewMQTTSource(gesture.MQTTConfig{
		Broker:      cfg.Gesture.Broker,
		ClientID:    cfg.Gesture.ClientID,
		TopicPrefix: cfg.Gesture.TopicPrefix,
		Timeout:     5 * time.Second,
	})
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("connect armband bridge: %w", err)
	}
	return h, nil
}

// controllerConfig wires h into a teleop configuration.
func (h *hardware) controllerConfig() teleop.Config {
	cc := h.cfg.Control
	var accel int
	if mc, ok := h.cfg.Motors[robot.Vertical]; ok {
		accel = mc.Acceleration
	}
	return teleop.Config{
		Source:     h.source,
		Horizontal: h.motors[robot.Horizontal],
		Vertical:   h.motors[robot.Vertical],
		Gripper:    h.motors[robot.Gripper],
		Ambient:    h.ambient,
		Touch:      h.touch,
		Mapping: actuation.Config{
			Scale:                 cc.Scale,
			HorizontalSensitivity: cc.HorizontalSensitivity,
			HorizontalMax:         cc.HorizontalMax,
			VerticalSensitivity:   cc.VerticalSensitivity,
			AmbientThreshold:      cc.AmbientThreshold,
		},
		Period:       h.cfg.Period(),
		SleepDelay:   h.cfg.SleepDelay(),
		WaitTimeout:  h.cfg.WaitTimeout(),
		Acceleration: accel,
		GripperOpen:  cc.GripperOpenDeg,
		GripperClose: cc.GripperClosedDeg,
	}
}

// Close releases the servo bus and the GPIO driver. The controller closes
// the individual motors, sensors and the armband.
func (h *hardware) Close() error {
	var errs []error
	if h.arm != nil {
		errs = append(errs, h.arm.Close())
	}
	if h.gpio != nil {
		errs = append(errs, h.gpio.Close())
	}
	return errors.Join(errs...)
}
