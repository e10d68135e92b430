package bridge

import (
	"io"

	"github.com/rs/zerolog"
)

type flusher interface {
	Flush() error
}

// Sink writes received serial data to the display.
type Sink struct {
	out io.Writer
	log zerolog.Logger
}

// NewSink returns a Sink writing to out.
func NewSink(out io.Writer, logger zerolog.Logger) *Sink {
	return &Sink{out: out, log: logger}
}

// OnData writes p verbatim and flushes the display when it is buffered.
// p is not retained. Display errors and panics are logged and dropped;
// OnData runs on the transport's goroutine, where nothing else recovers.
func (s *Sink) OnData(p []byte) {
	if len(p) == 0 {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Debug().Interface("panic", r).Int("bytes", len(p)).Msg("display write panicked")
		}
	}()
	if _, err := s.out.Write(p); err != nil {
		s.log.Debug().Err(err).Int("bytes", len(p)).Msg("display write failed")
		return
	}
	if f, ok := s.out.(flusher); ok {
		if err := f.Flush(); err != nil {
			s.log.Debug().Err(err).Msg("display flush failed")
		}
	}
}
