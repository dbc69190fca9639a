package batch

import (
	"context"
	"fmt"

	"github.com/newtron-network/ifdesc/pkg/descriptions"
	"github.com/newtron-network/ifdesc/pkg/inventory"
	"github.com/newtron-network/ifdesc/pkg/prompt"
	"github.com/newtron-network/ifdesc/pkg/terminal"
)

// fakeTransport records every call in order.
type fakeTransport struct {
	connected bool
	openErr   map[string]error // target host -> error opening it
	jumpErr   error
	events    []string
}

func (f *fakeTransport) IsConnected() bool { return f.connected }

func (f *fakeTransport) open(kind, host string) (terminal.Session, error) {
	f.events = append(f.events, kind+" "+host)
	if err := f.openErr[host]; err != nil {
		return nil, err
	}
	return &fakeSession{host: host}, nil
}

func (f *fakeTransport) Connect(ctx context.Context, host, user, pass string, protocol inventory.Protocol) (terminal.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.open("connect-"+string(protocol), host)
}

func (f *fakeTransport) ConnectSSH(ctx context.Context, host, user, pass string, promptEndings []string) error {
	f.events = append(f.events, fmt.Sprintf("jump %s@%s %v", user, host, promptEndings))
	return f.jumpErr
}

func (f *fakeTransport) SSHViaJump(ctx context.Context, host, user, pass string) (terminal.Session, error) {
	return f.open("ssh-via-jump", host)
}

func (f *fakeTransport) TelnetViaJump(ctx context.Context, host, user, pass string) (terminal.Session, error) {
	return f.open("telnet-via-jump", host)
}

func (f *fakeTransport) Disconnect() error {
	f.events = append(f.events, "disconnect")
	return nil
}

func (f *fakeTransport) DisconnectViaJump() error {
	f.events = append(f.events, "disconnect-via-jump")
	return nil
}

func (f *fakeTransport) count(event string) int {
	n := 0
	for _, e := range f.events {
		if e == event {
			n++
		}
	}
	return n
}

type fakeSession struct {
	host string
}

func (s *fakeSession) Hostname() string { return s.host }
func (s *fakeSession) Prompt() string   { return s.host + "#" }

func (s *fakeSession) Send(ctx context.Context, cmd string) (string, error) {
	return "", nil
}

func (s *fakeSession) Expect(ctx context.Context, cmd string, patterns ...string) (string, int, error) {
	return "", -1, nil
}

// fakeConfigurator fails for the hosts in errs.
type fakeConfigurator struct {
	errs  map[string]error
	calls []string
	opts  []descriptions.Options
}

func (c *fakeConfigurator) UpdateInterfaceDescriptions(ctx context.Context, sess terminal.Session, opts descriptions.Options) error {
	c.calls = append(c.calls, sess.Hostname())
	c.opts = append(c.opts, opts)
	return c.errs[sess.Hostname()]
}

// memorySink collects failure entries.
type memorySink struct {
	lines []string
	err   error
}

func (m *memorySink) Record(hostname, reason string) error {
	if m.err != nil {
		return m.err
	}
	m.lines = append(m.lines, FailureLogEntry{Hostname: hostname, Reason: reason}.String())
	return nil
}

type input struct {
	value string
	ok    bool
}

// fakePrompter answers from a script and records the messages it showed.
type fakePrompter struct {
	checkMode prompt.Answer
	jumpBox   prompt.Answer
	inputs    []input
	messages  []string
}

func (p *fakePrompter) YesNoCancel(title, message string) prompt.Answer {
	p.messages = append(p.messages, message)
	return p.checkMode
}

func (p *fakePrompter) YesNo(title, message string) prompt.Answer {
	p.messages = append(p.messages, message)
	return p.jumpBox
}

func (p *fakePrompter) Input(message string, hidden bool) (string, bool) {
	p.messages = append(p.messages, message)
	if len(p.inputs) == 0 {
		return "", false
	}
	in := p.inputs[0]
	p.inputs = p.inputs[1:]
	return in.value, in.ok
}

type fakeInventory struct {
	devices []inventory.Device
	err     error
	called  bool
}

func (f *fakeInventory) Devices() ([]inventory.Device, error) {
	f.called = true
	return f.devices, f.err
}

func device(host string, protocol inventory.Protocol) inventory.Device {
	return inventory.Device{Hostname: host, Protocol: protocol, Username: "admin", Password: "pw", EnablePassword: "en"}
}

func jumpInputs() []input {
	return []input{{"jump1", true}, {"ops", true}, {"jumppw", true}, {"$", true}}
}
