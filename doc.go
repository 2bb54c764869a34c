// Package gesturearm drives a robotic arm from a gesture armband.
//
// Wrist roll turns the arm left and right, hand pitch lifts it up and down,
// and hand poses open and close the gripper. A wave out starts driving and a
// double tap puts the arm back to sleep. Two limit sensors (an ambient light
// sensor and a touch switch) stop the motors at the ends of travel.
//
// # Installation
//
//	go install github.com/gwillem/gesturearm/cmd/gesturearm@latest
//
// # Usage
//
// First, run setup to find the servo bus and calibrate the motors:
//
//	gesturearm setup
//
// Then start driving:
//
//	gesturearm run
//
// Without hardware, everything can be simulated:
//
//	gesturearm run --sim
//
// # Packages
//
//   - cmd/gesturearm: CLI with setup, run and status commands
//   - pkg/gesture: Armband events over MQTT, plus a simulator
//   - pkg/orientation: Quaternion to roll/pitch/yaw on the control scale
//   - pkg/actuation: Maps orientation and limit sensors to motor commands
//   - pkg/robot: Servo motors, calibration and configuration
//   - pkg/gpio, pkg/sensor: Limit sensors on GPIO lines
//   - pkg/teleop: The control loop
//   - pkg/status: The one-line console status
//   - pkg/web: Live state over a websocket
package gesturearm
