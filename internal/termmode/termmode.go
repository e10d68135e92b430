// Package termmode switches the controlling terminal into the mode the
// serial bridge needs and puts it back afterwards.
//
// Only canonical input, signal generation and echo are turned off, so
// Ctrl-C arrives as a plain 0x03 byte and keystrokes are not echoed
// locally. Output processing is left alone, which keeps device output
// readable.
//
//	ctrl, err := termmode.Enter(int(os.Stdin.Fd()))
//	if err != nil {
//	    return err
//	}
//	defer ctrl.Restore()
package termmode

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// ErrNotTerminal is returned by Enter when fd is not a terminal.
var ErrNotTerminal = errors.New("not a terminal")

// Controller owns the terminal settings captured by Enter.
type Controller struct {
	fd    int
	saved unix.Termios

	once sync.Once
	err  error
}

// Enter captures the settings of fd and applies a copy with ICANON, ISIG
// and ECHO cleared. The returned Controller must be restored on every exit
// path.
func Enter(fd int) (*Controller, error) {
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("fd %d: %w", fd, ErrNotTerminal)
	}

	saved, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, fmt.Errorf("get termios: %w", err)
	}

	raw := *saved
	raw.Lflag &^= unix.ICANON | unix.ISIG | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return nil, fmt.Errorf("set termios: %w", err)
	}

	return &Controller{fd: fd, saved: *saved}, nil
}

// Restore reapplies the settings captured by Enter. Only the first call
// touches the terminal; later calls return the first call's result.
func (c *Controller) Restore() error {
	c.once.Do(func() {
		saved := c.saved
		if err := unix.IoctlSetTermios(c.fd, unix.TCSETS, &saved); err != nil {
			c.err = fmt.Errorf("restore termios: %w", err)
		}
	})
	return c.err
}
