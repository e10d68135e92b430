package escape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedAll(i *Interpreter, in []byte) []Action {
	out := make([]Action, 0, len(in))
	for _, c := range in {
		out = append(out, i.Feed(c))
	}
	return out
}

func TestStep_NormalForwardsEveryByteExceptCtrlC(t *testing.T) {
	for b := 0; b < 256; b++ {
		c := byte(b)
		if c == CtrlC {
			continue
		}
		next, a := Step(StateNormal, c, DefaultCannedCommand)
		require.Equal(t, StateNormal, next, "byte %#x", c)
		require.Equal(t, Action{Kind: KindForward, Byte: c}, a, "byte %#x", c)
	}
}

func TestStep_CtrlCStartsSequence(t *testing.T) {
	next, a := Step(StateNormal, CtrlC, DefaultCannedCommand)
	assert.Equal(t, StateSawInterrupt, next)
	assert.Equal(t, KindNone, a.Kind)
	assert.Nil(t, a.Bytes())
}

func TestStep_SecondByte(t *testing.T) {
	tests := []struct {
		name string
		in   byte
		want Action
	}{
		{name: "ctrl-c ctrl-c", in: CtrlC, want: Action{Kind: KindLiteral, Byte: CtrlC}},
		{name: "ctrl-c x", in: 'x', want: Action{Kind: KindTerminate}},
		{name: "ctrl-c X", in: 'X', want: Action{Kind: KindTerminate}},
		{name: "ctrl-c l", in: 'l', want: Action{Kind: KindSendString, Payload: "dir\n"}},
		{name: "ctrl-c L", in: 'L', want: Action{Kind: KindSendString, Payload: "dir\n"}},
		{name: "ctrl-c a", in: 'a', want: Action{Kind: KindForward, Byte: 'a'}},
		{name: "ctrl-c newline", in: '\n', want: Action{Kind: KindForward, Byte: '\n'}},
		{name: "ctrl-c nul", in: 0x00, want: Action{Kind: KindForward, Byte: 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, a := Step(StateSawInterrupt, tt.in, "dir\n")
			assert.Equal(t, StateNormal, next)
			assert.Equal(t, tt.want, a)
		})
	}
}

func TestStep_UnrecognisedSecondByteNeverSendsCtrlC(t *testing.T) {
	special := map[byte]bool{CtrlC: true, 'x': true, 'X': true, 'l': true, 'L': true}
	for b := 0; b < 256; b++ {
		c := byte(b)
		if special[c] {
			continue
		}
		next, a := Step(StateSawInterrupt, c, DefaultCannedCommand)
		require.Equal(t, StateNormal, next)
		require.Equal(t, KindForward, a.Kind, "byte %#x", c)
		require.Equal(t, []byte{c}, a.Bytes(), "byte %#x", c)
	}
}

func TestInterpreter_DoubleCtrlCRepeats(t *testing.T) {
	i := New("")
	actions := feedAll(i, []byte{CtrlC, CtrlC, CtrlC, CtrlC})

	assert.Equal(t, []Action{
		{Kind: KindNone},
		{Kind: KindLiteral, Byte: CtrlC},
		{Kind: KindNone},
		{Kind: KindLiteral, Byte: CtrlC},
	}, actions)
	assert.Equal(t, StateNormal, i.State())
}

func TestInterpreter_PlainText(t *testing.T) {
	i := New("")
	var wire []byte
	for _, a := range feedAll(i, []byte("ls\n")) {
		require.Equal(t, KindForward, a.Kind)
		wire = append(wire, a.Bytes()...)
	}
	assert.Equal(t, "ls\n", string(wire))
}

func TestInterpreter_CannedThenFreshByte(t *testing.T) {
	i := New("")
	actions := feedAll(i, []byte{CtrlC, 'l', 'x'})

	assert.Equal(t, []Action{
		{Kind: KindNone},
		{Kind: KindSendString, Payload: DefaultCannedCommand},
		{Kind: KindForward, Byte: 'x'},
	}, actions)
}

func TestInterpreter_CannedPayloadIsFixed(t *testing.T) {
	i := New("status\r")
	lower := feedAll(i, []byte{CtrlC, 'l'})[1]
	upper := feedAll(i, []byte{CtrlC, 'L'})[1]

	assert.Equal(t, lower, upper)
	assert.Equal(t, []byte("status\r"), lower.Bytes())
}

func TestInterpreter_PendingCtrlC(t *testing.T) {
	i := New("")
	i.Feed(CtrlC)
	require.Equal(t, StateSawInterrupt, i.State())

	assert.Equal(t, Action{Kind: KindForward, Byte: 'q'}, i.Feed('q'))
	assert.Equal(t, StateNormal, i.State())
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "normal", StateNormal.String())
	assert.Equal(t, "saw-ctrl-c", StateSawInterrupt.String())
	assert.Equal(t, "terminate", KindTerminate.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}
