// Package escape interprets operator keystrokes for the serial bridge.
//
// A single Ctrl-C (0x03) is held back until the next byte arrives, which
// decides what the pair means:
//
//	Ctrl-C Ctrl-C   send one literal Ctrl-C to the device
//	Ctrl-C x / X    end the session
//	Ctrl-C l / L    send the canned command
//	Ctrl-C other    drop the Ctrl-C, forward the other byte
//
// Every other byte is forwarded untouched.
package escape

import "fmt"

const (
	// CtrlC is the byte that opens an escape sequence.
	CtrlC byte = 0x03

	// DefaultCannedCommand is sent for Ctrl-C l when no other command is configured.
	DefaultCannedCommand = "ls /img/*.tif\n"
)

// State is the interpreter's position inside an escape sequence.
type State int

const (
	StateNormal State = iota
	StateSawInterrupt
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateSawInterrupt:
		return "saw-ctrl-c"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Kind tags an Action.
type Kind int

const (
	KindNone Kind = iota
	KindForward
	KindLiteral
	KindSendString
	KindTerminate
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindForward:
		return "forward"
	case KindLiteral:
		return "literal"
	case KindSendString:
		return "send-string"
	case KindTerminate:
		return "terminate"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Action is what the caller must do after feeding one byte.
// Byte is set for KindForward and KindLiteral, Payload for KindSendString.
type Action struct {
	Kind    Kind
	Byte    byte
	Payload string
}

// Bytes returns the bytes the action puts on the wire, or nil.
func (a Action) Bytes() []byte {
	switch a.Kind {
	case KindForward, KindLiteral:
		return []byte{a.Byte}
	case KindSendString:
		return []byte(a.Payload)
	default:
		return nil
	}
}

// Step is the transition function. It has no side effects.
func Step(s State, c byte, canned string) (State, Action) {
	if s == StateNormal {
		if c == CtrlC {
			return StateSawInterrupt, Action{Kind: KindNone}
		}
		return StateNormal, Action{Kind: KindForward, Byte: c}
	}

	switch c {
	case CtrlC:
		return StateNormal, Action{Kind: KindLiteral, Byte: CtrlC}
	case 'x', 'X':
		return StateNormal, Action{Kind: KindTerminate}
	case 'l', 'L':
		return StateNormal, Action{Kind: KindSendString, Payload: canned}
	default:
		// The pending Ctrl-C is dropped.
		return StateNormal, Action{Kind: KindForward, Byte: c}
	}
}

// Interpreter feeds bytes through Step, holding the current state.
// It is not safe for concurrent use.
type Interpreter struct {
	state  State
	canned string
}

// New returns an Interpreter in StateNormal. An empty canned command
// selects DefaultCannedCommand.
func New(canned string) *Interpreter {
	if canned == "" {
		canned = DefaultCannedCommand
	}
	return &Interpreter{canned: canned}
}

// Feed consumes one byte.
func (i *Interpreter) Feed(c byte) Action {
	var a Action
	i.state, a = Step(i.state, c, i.canned)
	return a
}

// State reports whether a Ctrl-C is pending.
func (i *Interpreter) State() State { return i.state }
