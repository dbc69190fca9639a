// Package terminal opens CLI sessions to network devices, directly or
// through an SSH jump host, over SSH or Telnet.
//
// A Terminal holds at most one target session and one jump-host leg at a
// time, the way an operator's terminal tab does. Callers open a session,
// drive it through the Session interface and close it again before moving
// on to the next device.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/newtron-network/ifdesc/pkg/inventory"
	"github.com/newtron-network/ifdesc/pkg/util"
)

// Default timeouts, used when Options leaves them zero.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultCommandTimeout = 30 * time.Second
)

// Options configures how sessions are opened.
type Options struct {
	ConnectTimeout time.Duration
	CommandTimeout time.Duration

	// KnownHostsFile enables host key verification. Empty accepts any key.
	KnownHostsFile string

	// LegacyAlgorithms offers SHA-1 key exchange and CBC ciphers for old
	// IOS images.
	LegacyAlgorithms bool

	SSHPort    int // default 22
	TelnetPort int // default 23
}

func (o Options) connectTimeout() time.Duration {
	if o.ConnectTimeout > 0 {
		return o.ConnectTimeout
	}
	return DefaultConnectTimeout
}

func (o Options) commandTimeout() time.Duration {
	if o.CommandTimeout > 0 {
		return o.CommandTimeout
	}
	return DefaultCommandTimeout
}

func (o Options) sshPort() int {
	if o.SSHPort > 0 {
		return o.SSHPort
	}
	return 22
}

func (o Options) telnetPort() int {
	if o.TelnetPort > 0 {
		return o.TelnetPort
	}
	return 23
}

type dialFunc func(ctx context.Context, addr string) (net.Conn, error)

// jumpLeg is the SSH login to the jump host. Targets are reached through
// direct-tcpip channels on client.
type jumpLeg struct {
	host   string
	client *ssh.Client
	shell  *shell
}

// Terminal opens and tracks sessions. It is not safe for concurrent use.
type Terminal struct {
	opts   Options
	log    logrus.FieldLogger
	jump   *jumpLeg
	target *shell
}

// New creates a disconnected Terminal.
func New(opts Options, log logrus.FieldLogger) *Terminal {
	if log == nil {
		log = util.DiscardLogger()
	}
	return &Terminal{opts: opts, log: log}
}

// IsConnected reports whether a target session or jump leg is open.
func (t *Terminal) IsConnected() bool {
	return t.target != nil || t.jump != nil
}

// Connect opens a session straight to host using protocol.
func (t *Terminal) Connect(ctx context.Context, host, user, pass string, protocol inventory.Protocol) (Session, error) {
	if t.target != nil {
		return nil, fmt.Errorf("connect %s: already connected to %s", host, t.target.host)
	}

	var (
		sh  *shell
		err error
	)
	switch protocol {
	case inventory.ProtocolSSH:
		sh, err = t.connectSSH(ctx, t.dialDirect, host, user, pass)
	case inventory.ProtocolTelnet:
		sh, err = t.connectTelnet(ctx, t.dialDirect, host, user, pass)
	default:
		return nil, util.NewConnectError(host, fmt.Errorf("unsupported protocol %q", protocol))
	}
	if err != nil {
		return nil, err
	}

	t.target = sh
	util.WithDevice(t.log, host).Debugf("Connected via %s", protocol)
	return sh, nil
}

// ConnectSSH logs in to a jump host. Login is confirmed when the jump host
// prints a line ending in one of promptEndings.
func (t *Terminal) ConnectSSH(ctx context.Context, host, user, pass string, promptEndings []string) error {
	if t.jump != nil {
		return fmt.Errorf("connect %s: jump host %s already connected", host, t.jump.host)
	}
	if len(promptEndings) == 0 {
		return fmt.Errorf("connect %s: no prompt endings given", host)
	}

	addr := hostPort(host, t.opts.sshPort())
	conn, err := t.dialDirect(ctx, addr)
	if err != nil {
		return t.connectErr(ctx, host, fmt.Errorf("dial %s: %w", addr, err))
	}
	client, err := t.sshHandshake(ctx, conn, addr, user, pass)
	if err != nil {
		return t.connectErr(ctx, host, err)
	}
	sh, err := t.openShell(host, client)
	if err != nil {
		return t.connectErr(ctx, host, err)
	}

	out, err := sh.exp.readUntil(ctx, t.opts.connectTimeout(), func(s string) bool {
		return endsWithAny(s, promptEndings)
	})
	if err != nil {
		sh.close()
		return t.connectErr(ctx, host, fmt.Errorf("no prompt ending in %q from jump host %s: %w", promptEndings, host, err))
	}
	sh.prompt = lastLine(out)

	t.jump = &jumpLeg{host: host, client: client, shell: sh}
	t.log.WithField("jump_host", host).Debug("Jump host connected")
	return nil
}

// SSHViaJump opens an SSH session to host through the connected jump host.
func (t *Terminal) SSHViaJump(ctx context.Context, host, user, pass string) (Session, error) {
	if err := t.checkJump(host); err != nil {
		return nil, err
	}
	sh, err := t.connectSSH(ctx, t.dialJump, host, user, pass)
	if err != nil {
		return nil, err
	}
	t.target = sh
	util.WithDevice(t.log, host).Debugf("Connected via ssh through %s", t.jump.host)
	return sh, nil
}

// TelnetViaJump opens a Telnet session to host through the connected jump host.
func (t *Terminal) TelnetViaJump(ctx context.Context, host, user, pass string) (Session, error) {
	if err := t.checkJump(host); err != nil {
		return nil, err
	}
	sh, err := t.connectTelnet(ctx, t.dialJump, host, user, pass)
	if err != nil {
		return nil, err
	}
	t.target = sh
	util.WithDevice(t.log, host).Debugf("Connected via telnet through %s", t.jump.host)
	return sh, nil
}

// DisconnectViaJump closes the target session and leaves the jump leg open.
// Safe to call when nothing is connected.
func (t *Terminal) DisconnectViaJump() error {
	if t.target == nil {
		return nil
	}
	host := t.target.host
	err := t.target.close()
	t.target = nil
	util.WithDevice(t.log, host).Debug("Disconnected")
	return err
}

// Disconnect closes the target session and the jump leg.
// Safe to call when nothing is connected.
func (t *Terminal) Disconnect() error {
	err := t.DisconnectViaJump()
	if t.jump != nil {
		err = errors.Join(err, t.jump.shell.close())
		t.log.WithField("jump_host", t.jump.host).Debug("Jump host disconnected")
		t.jump = nil
	}
	return err
}

func (t *Terminal) checkJump(host string) error {
	if t.jump == nil {
		return fmt.Errorf("connect %s: no jump host connected", host)
	}
	if t.target != nil {
		return fmt.Errorf("connect %s: already connected to %s", host, t.target.host)
	}
	return nil
}

func (t *Terminal) dialDirect(ctx context.Context, addr string) (net.Conn, error) {
	d := net.Dialer{Timeout: t.opts.connectTimeout()}
	return d.DialContext(ctx, "tcp", addr)
}

func (t *Terminal) dialJump(ctx context.Context, addr string) (net.Conn, error) {
	return t.jump.client.DialContext(ctx, "tcp", addr)
}

func (t *Terminal) connectSSH(ctx context.Context, dial dialFunc, host, user, pass string) (*shell, error) {
	addr := hostPort(host, t.opts.sshPort())
	conn, err := dial(ctx, addr)
	if err != nil {
		return nil, t.connectErr(ctx, host, fmt.Errorf("dial %s: %w", addr, err))
	}
	client, err := t.sshHandshake(ctx, conn, addr, user, pass)
	if err != nil {
		return nil, t.connectErr(ctx, host, err)
	}
	sh, err := t.openShell(host, client)
	if err != nil {
		return nil, t.connectErr(ctx, host, err)
	}
	if err := sh.login(ctx, t.opts.connectTimeout()); err != nil {
		sh.close()
		return nil, err
	}
	return sh, nil
}

func (t *Terminal) connectTelnet(ctx context.Context, dial dialFunc, host, user, pass string) (*shell, error) {
	addr := hostPort(host, t.opts.telnetPort())
	conn, err := dial(ctx, addr)
	if err != nil {
		return nil, t.connectErr(ctx, host, fmt.Errorf("dial %s: %w", addr, err))
	}
	tc := newTelnetConn(conn)
	sh := newShell(host, tc, tc, "\r\n", t.opts.commandTimeout(), conn.Close)
	if err := t.telnetLogin(ctx, sh, user, pass); err != nil {
		sh.close()
		return nil, err
	}
	return sh, nil
}

type loginStage int

const (
	loginPending loginStage = iota
	loginUsername
	loginPassword
	loginDone
)

func telnetStage(out string) loginStage {
	switch {
	case endsWithAny(out, []string{"sername:", "ogin:"}):
		return loginUsername
	case endsWithAny(out, []string{"assword:"}):
		return loginPassword
	case isDevicePrompt(out):
		return loginDone
	}
	return loginPending
}

// telnetLogin answers the username/password dialog. A second request for
// either credential means the device rejected them.
func (t *Terminal) telnetLogin(ctx context.Context, sh *shell, user, pass string) error {
	var sentUser, sentPass bool
	for {
		out, err := sh.exp.readUntil(ctx, t.opts.connectTimeout(), func(s string) bool {
			return telnetStage(s) != loginPending
		})
		if err != nil {
			return t.connectErr(ctx, sh.host, fmt.Errorf("telnet login to %s: %w", sh.host, err))
		}

		switch telnetStage(out) {
		case loginUsername:
			if sentUser {
				return util.NewConnectError(sh.host, fmt.Errorf("telnet login to %s: authentication failed", sh.host))
			}
			sentUser = true
			err = sh.writeLine(user)
		case loginPassword:
			if sentPass {
				return util.NewConnectError(sh.host, fmt.Errorf("telnet login to %s: authentication failed", sh.host))
			}
			sentPass = true
			err = sh.writeLine(pass)
		case loginDone:
			sh.prompt = lastLine(out)
			_, err = sh.Send(ctx, "terminal length 0")
			return err
		}
		if err != nil {
			return t.connectErr(ctx, sh.host, fmt.Errorf("telnet login to %s: %w", sh.host, err))
		}
	}
}

// connectErr wraps err as a ConnectError unless ctx was cancelled, in which
// case the cancellation is returned so that it halts the run.
func (t *Terminal) connectErr(ctx context.Context, host string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return util.NewConnectError(host, err)
}

// hostPort appends the default port unless host already carries one.
func hostPort(host string, port int) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
