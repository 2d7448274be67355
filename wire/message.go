package wire

import (
	"strconv"
	"sync"
)

type MessageKind int

const (
	// Line whose family tag isn't recognized.
	MessageKindUnknown MessageKind = iota
	// Motion line (G family).
	MessageKindMove
	// Custom action line (S family), further identified by SubAction.
	MessageKindCustom
)

func (k MessageKind) String() string {
	switch k {
	case MessageKindMove:
		return "move"
	case MessageKindCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Param is one message parameter with both its raw text and its numeric view.
// Devices mix diagnostic text with data fields, so a parameter that fails to
// parse as a number keeps its raw text and IsNumber reports false; it does not
// invalidate the rest of the message.
type Param struct {
	Tag      string
	Raw      string
	Number   float64
	IsNumber bool
}

// Message is a typed view over one decoded inbound line.
type Message struct {
	Command   Command
	Kind      MessageKind
	SubAction int
	Params    []Param
}

func newParam(f Field) Param {
	p := Param{Tag: f.Tag, Raw: f.Value}
	if n, err := strconv.ParseFloat(f.Value, 64); err == nil {
		p.Number = n
		p.IsNumber = true
	}
	return p
}

// NewMessage classifies a decoded command: token 0's tag identifies the action
// family, token 1 of a custom message identifies the sub-action, the remaining
// tokens are parameters.
func NewMessage(command Command) *Message {
	message := &Message{
		Command: command,
		Kind:    MessageKindUnknown,
	}
	if len(command) == 0 {
		return message
	}

	paramFields := command[1:]
	switch command[0].Tag {
	case TagMove:
		message.Kind = MessageKindMove
	case TagCustom:
		message.Kind = MessageKindCustom
		if subAction, err := strconv.Atoi(command[0].Value); err == nil {
			message.SubAction = subAction
		}
	}

	message.Params = make([]Param, 0, len(paramFields))
	for _, f := range paramFields {
		message.Params = append(message.Params, newParam(f))
	}

	return message
}

// Param returns the first parameter with the given tag, or nil.
func (m *Message) Param(tag string) *Param {
	for i := range m.Params {
		if m.Params[i].Tag == tag {
			return &m.Params[i]
		}
	}
	return nil
}

// BufferOccupancy returns the device instruction buffer occupancy carried by a
// streaming status message, or false for any other message.
func (m *Message) BufferOccupancy() (int, bool) {
	if m.Kind != MessageKindCustom || m.SubAction != SubActionStream {
		return 0, false
	}
	p := m.Param(TagQuery)
	if p == nil || !p.IsNumber {
		return 0, false
	}
	return int(p.Number), true
}

func (m *Message) String() string {
	return m.Command.String()
}

// Parser turns raw lines into messages. It holds no state between calls other
// than the most recently parsed message.
type Parser struct {
	mu   sync.Mutex
	last *Message
}

func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes and classifies one line. The returned message is also retained
// as Last until the next call.
func (p *Parser) Parse(line string) (*Message, error) {
	command, err := Decode(line)
	if err != nil {
		return nil, err
	}
	message := NewMessage(command)
	p.mu.Lock()
	p.last = message
	p.mu.Unlock()
	return message, nil
}

// Last returns the most recently parsed message, or nil.
func (p *Parser) Last() *Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
