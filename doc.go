// Package serial provides a minimal, Linux-only serial port with an
// asynchronous, callback-driven receive path.
//
// It is the transport behind the serialbridge terminal: keystrokes are
// written to the port from the caller's goroutine while incoming bytes are
// pushed to a registered callback from the port's own receive goroutine.
//
// Features:
//   - Raw syscall-based serial I/O on Linux, no buffering delays
//   - Chunks delivered to the callback in arrival order, untouched
//   - Health flags (IsOpen, ErrorStatus) for the send path to poll
//   - Self-pipe mechanism for killability
//   - PTY-based tests for reliability
//
// This package does **not** support Windows.
//
// Example usage:
//
//	port, err := serial.Open(serial.Config{
//	    Device:   "/dev/ttyUSB0",
//	    BaudRate: 115200,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	port.SetCallback(func(b []byte) {
//	    os.Stdout.Write(b)
//	})
//
//	if _, err := port.WriteString("ls\n"); err != nil {
//	    log.Println("Write failed:", err)
//	}
//
//	if port.ErrorStatus() {
//	    log.Println("port failed:", port.Err())
//	}
package serial
