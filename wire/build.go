package wire

import (
	"strconv"

	internalFmt "github.com/sixdof/armctl/internal/fmt"
)

// AxisPrecision is the number of decimal places axis values are rounded to on
// the wire.
const AxisPrecision = 1

func customField(subAction int) Field {
	return Field{Tag: TagCustom, Value: strconv.Itoa(subAction)}
}

// NewMove builds a motion command targeting the given physical coordinates.
func NewMove(x, y, z float64) Command {
	return Command{
		{Tag: TagMove, Value: "0"},
		{Tag: TagAxisX, Value: internalFmt.SprintFloat(x, AxisPrecision)},
		{Tag: TagAxisY, Value: internalFmt.SprintFloat(y, AxisPrecision)},
		{Tag: TagAxisZ, Value: internalFmt.SprintFloat(z, AxisPrecision)},
	}
}

// NewMotorEnable builds the motor enable/relax command. Enabled motors hold
// position and accept motion, relaxed motors can be moved by hand.
func NewMotorEnable(enable bool) Command {
	value := "1"
	if enable {
		value = "0"
	}
	return Command{customField(SubActionMotorEnable), {Tag: TagEnable, Value: value}}
}

// NewBuzzer builds the buzzer command. Frequency 0 turns the buzzer off.
func NewBuzzer(frequencyHz int) Command {
	return Command{customField(SubActionBuzzer), {Tag: TagBuzzer, Value: strconv.Itoa(frequencyHz)}}
}

// NewServo builds the servo positioning command for the given servo index and
// angle in degrees.
func NewServo(index, angleDegrees int) Command {
	return Command{
		customField(SubActionServo),
		{Tag: TagServoIndex, Value: strconv.Itoa(index)},
		{Tag: TagServoAngle, Value: strconv.Itoa(angleDegrees)},
	}
}

// NewSensorHoming builds the sensor homing command, which drives each axis to
// its reference sensor.
func NewSensorHoming() Command {
	return Command{customField(SubActionHoming), {Tag: TagHoming, Value: "1"}}
}

// NewLED builds the WS2812 LED command.
func NewLED(mode, red, green, blue int) Command {
	return Command{
		customField(SubActionLED),
		{Tag: TagLEDMode, Value: strconv.Itoa(mode)},
		{Tag: TagLEDRed, Value: strconv.Itoa(red)},
		{Tag: TagLEDGreen, Value: strconv.Itoa(green)},
		{Tag: TagLEDBlue, Value: strconv.Itoa(blue)},
	}
}

// NewStreamIntent builds the streaming intent control command: on tells the
// device a batch motion sequence is about to start and that it should report
// buffer occupancy, off tells it the sequence ended.
func NewStreamIntent(on bool) Command {
	value := "0"
	if on {
		value = "1"
	}
	return Command{customField(SubActionStream), {Tag: TagQuery, Value: value}}
}

// NewEmergencyStop builds the emergency stop command.
func NewEmergencyStop() Command {
	return Command{customField(SubActionStop), {Tag: TagStop, Value: "1"}}
}
