package descriptions

import (
	"context"
	"errors"
	"strings"

	"github.com/newtron-network/ifdesc/pkg/audit"
	"github.com/newtron-network/ifdesc/pkg/prompt"
	"github.com/newtron-network/ifdesc/pkg/util"
)

// fakeSession is a scripted terminal.Session.
type fakeSession struct {
	host    string
	prompt  string
	outputs map[string]string // command -> output
	prompts map[string]string // command -> prompt afterwards
	asks    map[string]string // command -> question asked once
	failOn  string
	sent    []string
}

func (f *fakeSession) Hostname() string { return f.host }
func (f *fakeSession) Prompt() string   { return f.prompt }

func (f *fakeSession) Send(ctx context.Context, cmd string) (string, error) {
	out, _, err := f.Expect(ctx, cmd)
	return out, err
}

func (f *fakeSession) Expect(ctx context.Context, cmd string, patterns ...string) (string, int, error) {
	f.sent = append(f.sent, cmd)
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	if f.failOn != "" && cmd == f.failOn {
		return "", 0, util.NewInteractionError(f.host, cmd, errors.New("timed out waiting for prompt"))
	}
	if q, ok := f.asks[cmd]; ok {
		delete(f.asks, cmd)
		for i, p := range patterns {
			if strings.HasSuffix(q, p) {
				return q, i, nil
			}
		}
	}
	if p, ok := f.prompts[cmd]; ok {
		f.prompt = p
	}
	return f.outputs[cmd], -1, nil
}

func (f *fakeSession) sentContains(cmd string) bool {
	for _, s := range f.sent {
		if s == cmd {
			return true
		}
	}
	return false
}

// scriptedPrompter answers YesNoCancel with a fixed answer.
type scriptedPrompter struct {
	answer prompt.Answer
	asked  int
}

func (p *scriptedPrompter) YesNoCancel(title, message string) prompt.Answer {
	p.asked++
	return p.answer
}

func (p *scriptedPrompter) YesNo(title, message string) prompt.Answer {
	p.asked++
	return p.answer
}

func (p *scriptedPrompter) Input(message string, hidden bool) (string, bool) {
	p.asked++
	return "", false
}

// memoryAudit keeps logged events in memory.
type memoryAudit struct {
	events []*audit.Event
}

func (m *memoryAudit) Log(event *audit.Event) error {
	m.events = append(m.events, event)
	return nil
}

func (m *memoryAudit) Query(filter audit.Filter) ([]*audit.Event, error) {
	return m.events, nil
}

func (m *memoryAudit) Close() error { return nil }
