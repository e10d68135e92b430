// Package bridge joins the operator's terminal to a serial transport.
//
// Keystrokes are read one byte at a time, passed through the escape
// interpreter and written to the transport from the caller's goroutine.
// Incoming serial data reaches the display through Sink, which the
// transport invokes from its own goroutine. The two directions share
// nothing except the transport.
package bridge

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/luhtfiimanal/serialbridge/internal/escape"
)

// ErrTransportClosed is returned by Run when the transport reports it is
// closed or has failed.
var ErrTransportClosed = errors.New("serial port unexpectedly closed")

// Transport is the part of a serial connection the bridge relies on.
type Transport interface {
	IsOpen() bool
	ErrorStatus() bool
	Write(p []byte) (int, error)
	SetCallback(fn func([]byte))
	Close() error
}

// Option configures a Loop.
type Option func(*Loop)

// WithCannedCommand sets the payload sent for Ctrl-C l.
func WithCannedCommand(cmd string) Option {
	return func(l *Loop) { l.canned = cmd }
}

// WithLogger sets the logger used for session events.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loop) { l.log = logger }
}

// Loop drives one interactive session over a transport.
type Loop struct {
	transport Transport
	in        io.Reader
	sink      *Sink
	interp    *escape.Interpreter
	canned    string
	log       zerolog.Logger
}

// New returns a Loop that reads keystrokes from in and displays serial
// data on out. The Loop takes ownership of t and closes it when Run returns.
func New(t Transport, in io.Reader, out io.Writer, opts ...Option) *Loop {
	l := &Loop{
		transport: t,
		in:        in,
		log:       log.Logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.interp = escape.New(l.canned)
	l.sink = NewSink(out, l.log)
	return l
}

// Run registers the display sink and forwards keystrokes until the
// operator ends the session, terminal input reaches EOF or the transport
// fails. The transport is closed exactly once before Run returns.
func (l *Loop) Run() error {
	defer func() {
		if cerr := l.transport.Close(); cerr != nil {
			l.log.Debug().Err(cerr).Msg("close serial port")
		}
	}()

	l.transport.SetCallback(l.sink.OnData)

	var buf [1]byte
	for {
		if l.transport.ErrorStatus() || !l.transport.IsOpen() {
			l.log.Debug().
				Bool("open", l.transport.IsOpen()).
				Bool("error", l.transport.ErrorStatus()).
				Msg("transport unhealthy, ending session")
			return ErrTransportClosed
		}

		if _, err := io.ReadFull(l.in, buf[:]); err != nil {
			if errors.Is(err, io.EOF) {
				l.log.Debug().
					Bool("pending_ctrl_c", l.interp.State() == escape.StateSawInterrupt).
					Msg("terminal input closed")
				return nil
			}
			return fmt.Errorf("read terminal: %w", err)
		}

		a := l.interp.Feed(buf[0])
		switch a.Kind {
		case escape.KindNone:
			continue
		case escape.KindTerminate:
			l.log.Debug().Msg("session ended by operator")
			return nil
		case escape.KindSendString:
			l.log.Debug().Str("command", a.Payload).Msg("sending canned command")
		}

		if _, err := l.transport.Write(a.Bytes()); err != nil {
			l.log.Debug().Err(err).Msg("serial port write failed")
			return fmt.Errorf("%w: write: %w", ErrTransportClosed, err)
		}
	}
}
