// Package robot drives the arm's servos as regulated motors.
package robot

// MotorName identifies a motor in the arm.
type MotorName string

// Motor names for the gesture-controlled arm.
const (
	Horizontal MotorName = "horizontal" // slew, driven by wrist roll
	Vertical   MotorName = "vertical"   // lift, driven by hand pitch
	Gripper    MotorName = "gripper"    // opened and closed by poses
)

// AllMotors returns all motor names in order (matching default servo IDs 1-3).
func AllMotors() []MotorName {
	return []MotorName{
		Horizontal,
		Vertical,
		Gripper,
	}
}
