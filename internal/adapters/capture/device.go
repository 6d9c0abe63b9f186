// Package capture records audio by running an external capture command and
// reading its stdout.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/parley/internal/core"
)

const (
	maxStderr = 4096
	waitDelay = 500 * time.Millisecond
)

// Device implements core.CaptureDevice. Each Acquire starts one process.
type Device struct {
	argv      []string
	chunkSize int
}

func NewDevice(command string, chunkSize int) *Device {
	if chunkSize <= 0 {
		chunkSize = 4096
	}
	return &Device{argv: strings.Fields(command), chunkSize: chunkSize}
}

func (d *Device) Acquire(ctx context.Context) (core.CaptureSession, error) {
	if len(d.argv) == 0 {
		return nil, fmt.Errorf("%w: no capture command", core.ErrDeviceUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The process outlives ctx; it ends with Stop or Abort.
	cmd := exec.Command(d.argv[0], d.argv[1:]...)
	cmd.WaitDelay = waitDelay
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDeviceUnavailable, err)
	}
	s := &session{cmd: cmd, stdout: stdout, chunkSize: d.chunkSize, done: make(chan struct{})}
	cmd.Stderr = &s.stderr

	if err := cmd.Start(); err != nil {
		return nil, classify(err, "")
	}
	go s.read()
	log.Info().Str("module", "capture").Str("command", d.argv[0]).Int("pid", cmd.Process.Pid).Msg("capture started")
	return s, nil
}

func classify(err error, stderr string) error {
	if errors.Is(err, fs.ErrPermission) || strings.Contains(strings.ToLower(stderr), "permission denied") {
		return fmt.Errorf("%w: %v", core.ErrPermissionDenied, err)
	}
	return fmt.Errorf("%w: %v", core.ErrDeviceUnavailable, err)
}

type limitedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := maxStderr - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type session struct {
	cmd       *exec.Cmd
	stdout    io.ReadCloser
	stderr    limitedBuffer
	chunkSize int

	mu      sync.Mutex
	frames  []core.Frame
	size    int
	readErr error
	done    chan struct{}

	endOnce sync.Once
	waitErr error
}

func (s *session) read() {
	defer close(s.done)
	for {
		buf := make([]byte, s.chunkSize)
		n, err := s.stdout.Read(buf)
		if n > 0 {
			s.mu.Lock()
			s.frames = append(s.frames, core.Frame(buf[:n]))
			s.size += n
			s.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) {
				s.mu.Lock()
				s.readErr = err
				s.mu.Unlock()
			}
			return
		}
	}
}

// exited reports whether the capture process ended on its own.
func (s *session) exited() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// end stops the process and reaps it. It reports whether the process had
// already exited before being asked to.
func (s *session) end() (early bool) {
	s.endOnce.Do(func() {
		early = s.exited()
		if !early {
			_ = s.cmd.Process.Kill()
			// Children of the command may still hold the pipe open.
			_ = s.stdout.Close()
		}
		<-s.done
		s.waitErr = s.cmd.Wait()
		if early {
			return
		}
		s.waitErr = nil
	})
	return early
}

func (s *session) buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Stop ends the capture and returns everything read.
func (s *session) Stop() ([]core.Frame, error) {
	s.end()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.waitErr != nil && s.size == 0 {
		err := classify(s.waitErr, s.stderr.String())
		log.Warn().Err(err).Str("module", "capture").Msg("capture process failed")
		return nil, err
	}
	if s.readErr != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDeviceUnavailable, s.readErr)
	}
	log.Info().Str("module", "capture").Int("chunks", len(s.frames)).Int("bytes", s.size).Msg("capture stopped")
	return s.frames, nil
}

// Abort ends the capture and discards what was read.
func (s *session) Abort() {
	s.end()
	s.mu.Lock()
	s.frames = nil
	s.size = 0
	s.mu.Unlock()
	log.Info().Str("module", "capture").Msg("capture aborted")
}
