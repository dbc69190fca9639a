package terminal

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/newtron-network/ifdesc/pkg/util"
)

// Session is a live CLI connection to one device.
type Session interface {
	// Hostname is the inventory name the session was opened for.
	Hostname() string

	// Prompt is the most recent CLI prompt seen, e.g. "core1#".
	Prompt() string

	// Send runs cmd and returns its output without the echoed command
	// and the trailing prompt.
	Send(ctx context.Context, cmd string) (string, error)

	// Expect runs cmd and reads until either the CLI prompt returns or
	// the output ends with one of patterns. It returns the index of the
	// matched pattern, or -1 when the prompt came back.
	Expect(ctx context.Context, cmd string, patterns ...string) (string, int, error)
}

// shell is a Session over an interactive character stream.
type shell struct {
	host    string
	w       io.Writer
	exp     *expecter
	eol     string
	prompt  string
	timeout time.Duration
	closer  func() error
}

func newShell(host string, r io.Reader, w io.Writer, eol string, timeout time.Duration, closer func() error) *shell {
	return &shell{
		host:    host,
		w:       w,
		exp:     newExpecter(r),
		eol:     eol,
		timeout: timeout,
		closer:  closer,
	}
}

func (s *shell) Hostname() string { return s.host }
func (s *shell) Prompt() string   { return s.prompt }

// matchPrompt recognises the device prompt learned at login, in any mode.
func (s *shell) matchPrompt(out string) bool {
	line := lastLine(out)
	if !devicePromptRE.MatchString(line) {
		return false
	}
	return s.prompt == "" || strings.HasPrefix(line, promptBase(s.prompt))
}

// waitPrompt reads until the device prompt appears and remembers it.
func (s *shell) waitPrompt(ctx context.Context, timeout time.Duration) (string, error) {
	out, err := s.exp.readUntil(ctx, timeout, s.matchPrompt)
	if err != nil {
		return out, err
	}
	s.prompt = lastLine(out)
	return out, nil
}

func (s *shell) writeLine(line string) error {
	_, err := io.WriteString(s.w, line+s.eol)
	return err
}

func (s *shell) Send(ctx context.Context, cmd string) (string, error) {
	out, _, err := s.Expect(ctx, cmd)
	return out, err
}

func (s *shell) Expect(ctx context.Context, cmd string, patterns ...string) (string, int, error) {
	if err := s.writeLine(cmd); err != nil {
		return "", 0, util.NewInteractionError(s.host, cmd, err)
	}

	matched := -1
	out, err := s.exp.readUntil(ctx, s.timeout, func(buf string) bool {
		for i, p := range patterns {
			if endsWithAny(buf, []string{p}) {
				matched = i
				return true
			}
		}
		return s.matchPrompt(buf)
	})
	if err != nil {
		if ctx.Err() != nil {
			return out, 0, ctx.Err()
		}
		return out, 0, util.NewInteractionError(s.host, cmd, err)
	}
	if matched < 0 {
		s.prompt = lastLine(out)
	}
	return cleanOutput(out, cmd), matched, nil
}

func (s *shell) close() error {
	s.exp.close()
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// login waits for the first prompt after authentication and turns off
// paging. Failures here mean the session never became usable.
func (s *shell) login(ctx context.Context, timeout time.Duration) error {
	if _, err := s.waitPrompt(ctx, timeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return util.NewConnectError(s.host, fmt.Errorf("no CLI prompt from %s: %w", s.host, err))
	}
	if _, err := s.Send(ctx, "terminal length 0"); err != nil {
		return err
	}
	return nil
}
