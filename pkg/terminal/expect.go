package terminal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"
)

// errTimeout is returned when the expected text does not arrive in time.
var errTimeout = errors.New("timed out waiting for device output")

// devicePromptRE matches an IOS/NX-OS CLI prompt line: "core1#", "core1>",
// "core1(config-if)#".
var devicePromptRE = regexp.MustCompile(`^[A-Za-z0-9][\w.\-:/@()]*[>#]$`)

type chunk struct {
	data []byte
	err  error
}

// expecter accumulates output from a device and hands it out up to the
// first point where a match function is satisfied. A single goroutine owns
// the underlying reader; it exits when the reader fails or close is called.
type expecter struct {
	in   chan chunk
	done chan struct{}
	once sync.Once

	buf bytes.Buffer
	err error
}

func newExpecter(r io.Reader) *expecter {
	e := &expecter{
		in:   make(chan chunk, 16),
		done: make(chan struct{}),
	}
	go e.readLoop(r)
	return e
}

func (e *expecter) readLoop(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		c := chunk{err: err}
		if n > 0 {
			c.data = append([]byte(nil), buf[:n]...)
		}
		if n > 0 || err != nil {
			select {
			case e.in <- c:
			case <-e.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (e *expecter) close() {
	e.once.Do(func() { close(e.done) })
}

// readUntil blocks until match reports true for the accumulated output, the
// timeout expires, ctx is cancelled or the reader fails. On success the
// whole buffer is consumed and returned.
func (e *expecter) readUntil(ctx context.Context, timeout time.Duration, match func(string) bool) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if match(e.buf.String()) {
			out := e.buf.String()
			e.buf.Reset()
			return out, nil
		}
		if e.err != nil {
			return e.buf.String(), e.err
		}

		select {
		case <-ctx.Done():
			return e.buf.String(), ctx.Err()
		case <-timer.C:
			return e.buf.String(), errTimeout
		case c := <-e.in:
			e.buf.Write(c.data)
			if c.err != nil {
				e.err = c.err
			}
		}
	}
}

// lastLine returns the final line of s with trailing blanks removed.
func lastLine(s string) string {
	s = strings.TrimRight(s, " \t")
	if i := strings.LastIndexAny(s, "\r\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// isDevicePrompt reports whether s ends in something that looks like a
// Cisco CLI prompt.
func isDevicePrompt(s string) bool {
	return devicePromptRE.MatchString(lastLine(s))
}

// promptBase strips the mode character and any "(config...)" suffix so that
// "core1(config-if)#" and "core1>" both yield "core1".
func promptBase(prompt string) string {
	p := strings.TrimRight(prompt, "#>")
	if i := strings.Index(p, "("); i > 0 {
		p = p[:i]
	}
	return p
}

// endsWithAny reports whether the last line of s ends with any of endings.
func endsWithAny(s string, endings []string) bool {
	line := lastLine(s)
	for _, end := range endings {
		if end != "" && strings.HasSuffix(line, end) {
			return true
		}
	}
	return false
}

// cleanOutput normalises line endings and removes the echoed command line
// and the trailing prompt.
func cleanOutput(raw, cmd string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "")
	lines := strings.Split(s, "\n")
	if len(lines) > 0 {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > 0 && cmd != "" && strings.Contains(lines[0], cmd) {
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}
