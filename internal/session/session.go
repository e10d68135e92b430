// Package session runs one operator session end to end: terminal mode,
// serial port and bridge loop, with the terminal restored on every exit
// path including panics.
package session

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/muesli/cancelreader"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	serial "github.com/luhtfiimanal/serialbridge"
	"github.com/luhtfiimanal/serialbridge/internal/bridge"
	"github.com/luhtfiimanal/serialbridge/internal/termmode"
)

var (
	// ErrSessionPanic wraps a panic recovered during a session.
	ErrSessionPanic = errors.New("session panic")
	// ErrInterrupted is returned when a termination signal ends the session.
	ErrInterrupted = errors.New("session interrupted")
)

// clearScreen clears the display and homes the cursor.
const clearScreen = "\x1b[2J\x1b[1;1H"

// Opener opens the serial transport.
type Opener func(serial.Config) (bridge.Transport, error)

// OpenPort is the default Opener.
func OpenPort(cfg serial.Config) (bridge.Transport, error) {
	return serial.Open(cfg)
}

// Options describes one session. Zero values select the process's own
// terminal and the real serial port.
type Options struct {
	Device        string
	BaudRate      int
	CannedCommand string
	ClearScreen   bool

	// Stdin must be a terminal. Defaults to os.Stdin.
	Stdin *os.File
	// Stdout receives serial data. Defaults to os.Stdout.
	Stdout io.Writer

	// Open defaults to OpenPort.
	Open   Opener
	Logger *zerolog.Logger
}

func (o *Options) setDefaults() {
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Open == nil {
		o.Open = OpenPort
	}
	if o.Logger == nil {
		o.Logger = &log.Logger
	}
}

// Run switches the terminal into raw mode, opens the serial port and
// bridges the two until the operator quits, the port fails or the process
// receives SIGINT, SIGTERM or SIGHUP. The terminal settings are restored
// before Run returns.
func Run(opts Options) (err error) {
	opts.setDefaults()
	logger := opts.Logger.With().Str("device", opts.Device).Logger()

	// Registered before the terminal changes so a signal can never skip the restore.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	ctrl, err := termmode.Enter(int(opts.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("configure terminal: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("session aborted")
			err = fmt.Errorf("%w: %v", ErrSessionPanic, r)
		}
		if rerr := ctrl.Restore(); rerr != nil {
			logger.Error().Err(rerr).Msg("failed to restore terminal")
			if err == nil {
				err = rerr
			}
		}
	}()

	in, err := cancelreader.NewReader(opts.Stdin)
	if err != nil {
		return fmt.Errorf("watch terminal input: %w", err)
	}
	defer in.Close()

	interrupted := make(chan os.Signal, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Debug().Str("signal", sig.String()).Msg("terminating session")
			interrupted <- sig
			in.Cancel()
		case <-stop:
		}
	}()

	if opts.ClearScreen {
		if _, err := io.WriteString(opts.Stdout, clearScreen); err != nil {
			logger.Debug().Err(err).Msg("clear screen failed")
		}
	}

	port, err := opts.Open(serial.Config{Device: opts.Device, BaudRate: opts.BaudRate})
	if err != nil {
		return fmt.Errorf("open serial port: %w", err)
	}
	logger.Debug().Int("baud", opts.BaudRate).Msg("serial port open")

	loop := bridge.New(port, in, opts.Stdout,
		bridge.WithCannedCommand(opts.CannedCommand),
		bridge.WithLogger(logger),
	)
	err = loop.Run()
	if errors.Is(err, cancelreader.ErrCanceled) {
		return fmt.Errorf("%w by %v", ErrInterrupted, <-interrupted)
	}
	return err
}
