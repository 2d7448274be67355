package wire

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter separates tokens on a wire line. It is reserved: it must never appear
// inside a tag or a value.
const Delimiter = " "

// Terminator ends every line on the wire. Appending it is the transport's job, not
// the codec's.
const Terminator = "\r\n"

// Action family tags (first token of every line).
const (
	TagMove   = "G"
	TagCustom = "S"
)

// Axis tags carried by motion commands.
const (
	TagAxisX = "X"
	TagAxisY = "Y"
	TagAxisZ = "Z"
)

// Custom sub-action codes (value of the leading S token).
const (
	SubActionLED         = 1
	SubActionBuzzer      = 2
	SubActionMotorEnable = 8
	SubActionServo       = 9
	SubActionHoming      = 10
	SubActionStream      = 12
	SubActionStop        = 13
)

// Parameter tags for custom sub-actions.
const (
	TagLEDMode    = "M"
	TagLEDRed     = "R"
	TagLEDGreen   = "G"
	TagLEDBlue    = "B"
	TagBuzzer     = "B"
	TagEnable     = "E"
	TagServoIndex = "N"
	TagServoAngle = "A"
	TagHoming     = "P"
	TagQuery      = "Q"
	TagStop       = "T"
)

var ErrMalformedLine = errors.New("malformed line")

// Field is a single tag+value token on a wire line.
type Field struct {
	Tag   string
	Value string
}

func (f Field) String() string {
	return f.Tag + f.Value
}

// Command is an ordered list of fields. Encoding is a pure function of the field
// list and Decode recovers the exact same list.
type Command []Field

// Encode serializes the command into a wire line, without the terminator.
// It panics if a field carries the delimiter: commands are built by this package
// and a delimiter inside a tag or value is a programming error, not input.
func (c Command) Encode() string {
	var sb strings.Builder
	for i, f := range c {
		if strings.Contains(f.Tag, Delimiter) || strings.Contains(f.Value, Delimiter) {
			panic(fmt.Sprintf("bug: delimiter inside command field: %#v", f))
		}
		if i > 0 {
			sb.WriteString(Delimiter)
		}
		sb.WriteString(f.Tag)
		sb.WriteString(f.Value)
	}
	return sb.String()
}

func (c Command) String() string {
	return c.Encode()
}

// Decode splits a wire line (terminator already stripped) back into the ordered
// field list. Each token's tag is its leading run of non-digit, non-sign
// characters, the remainder is the value. Returns ErrMalformedLine for empty
// lines, empty tokens or tokens with no tag.
func Decode(line string) (Command, error) {
	if line == "" {
		return nil, fmt.Errorf("%w: empty line", ErrMalformedLine)
	}
	tokens := strings.Split(line, Delimiter)
	command := make(Command, 0, len(tokens))
	for _, token := range tokens {
		if token == "" {
			return nil, fmt.Errorf("%w: empty token: %#v", ErrMalformedLine, line)
		}
		i := 0
		for i < len(token) && !isValueByte(token[i]) {
			i++
		}
		if i == 0 {
			return nil, fmt.Errorf("%w: token has no tag: %#v", ErrMalformedLine, token)
		}
		command = append(command, Field{Tag: token[:i], Value: token[i:]})
	}
	return command, nil
}

func isValueByte(b byte) bool {
	return (b >= '0' && b <= '9') || b == '-' || b == '+' || b == '.'
}
