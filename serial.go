package serial

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"
)

var (
	// ErrUnsupportedBaud is returned by Open for speeds with no termios constant.
	ErrUnsupportedBaud = errors.New("unsupported baud rate")
	// ErrClosed is returned by writes on a closed port.
	ErrClosed = errors.New("serial port closed")
	// ErrHangup is recorded when the device reports a hang-up.
	ErrHangup = errors.New("serial device hung up")
)

// Port is an open serial line with an asynchronous receive path.
// Received chunks are delivered, in arrival order, to the callback
// registered with SetCallback. Health is exposed through IsOpen and
// ErrorStatus. Write and the health checks are safe to call while the
// receive goroutine is running.
type Port struct {
	fd        int
	file      *os.File
	done      chan struct{}
	closeOnce sync.Once
	pipeR     int // self-pipe read fd
	pipeW     int // self-pipe write fd
	wg        sync.WaitGroup

	open   atomic.Bool
	failed atomic.Bool
	errMu  sync.Mutex
	err    error

	cbMu     sync.RWMutex
	callback func([]byte)
}

// Config holds configuration parameters for opening a serial port.
type Config struct {
	Device   string
	BaudRate int
}

// Open opens a serial port using the provided Config and starts its
// receive goroutine. The port is configured for raw 8N1 operation.
func Open(cfg Config) (*Port, error) {
	baud, ok := baudToUnix(cfg.BaudRate)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBaud, cfg.BaudRate)
	}

	fd, err := syscall.Open(cfg.Device, syscall.O_RDWR|syscall.O_NOCTTY|syscall.O_NONBLOCK, 0666)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("get termios: %w", err)
	}

	// Raw mode
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL

	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= baud
	termios.Ispeed = baud
	termios.Ospeed = baud

	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("set termios: %w", err)
	}

	// Blocking from here on; poll gates every read.
	if err := syscall.SetNonblock(fd, false); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("set blocking: %w", err)
	}

	pipeFds := make([]int, 2)
	if err := unix.Pipe(pipeFds); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("pipe: %w", err)
	}

	p := &Port{
		fd:    fd,
		file:  os.NewFile(uintptr(fd), cfg.Device),
		done:  make(chan struct{}),
		pipeR: pipeFds[0],
		pipeW: pipeFds[1],
	}
	p.open.Store(true)

	p.wg.Add(1)
	go p.receiveLoop()

	return p, nil
}

// SetCallback registers fn as the receiver for incoming data. The slice
// passed to fn is only valid for the duration of the call. Passing nil
// discards incoming data.
func (p *Port) SetCallback(fn func([]byte)) {
	p.cbMu.Lock()
	p.callback = fn
	p.cbMu.Unlock()
}

// IsOpen reports whether Close has not been called yet.
func (p *Port) IsOpen() bool {
	return p.open.Load()
}

// ErrorStatus reports whether the port has seen an I/O failure.
func (p *Port) ErrorStatus() bool {
	return p.failed.Load()
}

// Err returns the first I/O failure recorded on the port, if any.
func (p *Port) Err() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.err
}

// Write writes b to the serial line.
func (p *Port) Write(b []byte) (int, error) {
	if !p.IsOpen() {
		return 0, ErrClosed
	}
	n, err := p.file.Write(b)
	if err != nil {
		p.fail(fmt.Errorf("write: %w", err))
		return n, err
	}
	return n, nil
}

// WriteString writes s to the serial line.
func (p *Port) WriteString(s string) (int, error) {
	return p.Write([]byte(s))
}

// Close stops the receive goroutine and releases the device.
// Safe to call multiple times; subsequent calls are no-ops.
// Close must not be called from inside the receive callback.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.open.Store(false)
		close(p.done)
		// Wake up poll using self-pipe
		unix.Write(p.pipeW, []byte{1})
		p.wg.Wait()

		err = p.file.Close()
		unix.Close(p.pipeR)
		unix.Close(p.pipeW)
	})
	return err
}

func (p *Port) fail(err error) {
	p.errMu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.errMu.Unlock()
	p.failed.Store(true)
}

func (p *Port) deliver(b []byte) {
	p.cbMu.RLock()
	fn := p.callback
	p.cbMu.RUnlock()
	if fn != nil {
		fn(b)
	}
}

// receiveLoop waits on the device and the self-pipe, handing every chunk
// read from the device to the callback until Close or an I/O failure.
func (p *Port) receiveLoop() {
	defer p.wg.Done()

	buf := make([]byte, 4096)
	for {
		pfd := []unix.PollFd{
			{Fd: int32(p.fd), Events: unix.POLLIN},
			{Fd: int32(p.pipeR), Events: unix.POLLIN},
		}
		if _, err := unix.Poll(pfd, -1); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			p.fail(fmt.Errorf("poll: %w", err))
			return
		}

		select {
		case <-p.done:
			return
		default:
		}
		if pfd[1].Revents&unix.POLLIN != 0 {
			return
		}

		rev := pfd[0].Revents
		if rev&unix.POLLIN != 0 {
			n, err := unix.Read(p.fd, buf)
			if err != nil {
				if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
					continue
				}
				p.fail(fmt.Errorf("read: %w", err))
				return
			}
			if n == 0 {
				p.fail(ErrHangup)
				return
			}
			p.deliver(buf[:n])
			continue
		}
		if rev&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			p.fail(ErrHangup)
			return
		}
	}
}

// SupportedBaud reports whether Open accepts baud.
func SupportedBaud(baud int) bool {
	_, ok := baudToUnix(baud)
	return ok
}

func baudToUnix(baud int) (uint32, bool) {
	switch baud {
	case 1200:
		return unix.B1200, true
	case 2400:
		return unix.B2400, true
	case 4800:
		return unix.B4800, true
	case 9600:
		return unix.B9600, true
	case 19200:
		return unix.B19200, true
	case 38400:
		return unix.B38400, true
	case 57600:
		return unix.B57600, true
	case 115200:
		return unix.B115200, true
	case 230400:
		return unix.B230400, true
	case 460800:
		return unix.B460800, true
	case 921600:
		return unix.B921600, true
	default:
		return 0, false
	}
}
