package terminal

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/newtron-network/ifdesc/pkg/version"
)

// Algorithms older IOS images still negotiate. Only offered when
// Options.LegacyAlgorithms is set.
var (
	legacyKeyExchanges = []string{
		"curve25519-sha256", "curve25519-sha256@libssh.org",
		"ecdh-sha2-nistp256", "ecdh-sha2-nistp384", "ecdh-sha2-nistp521",
		"diffie-hellman-group14-sha256", "diffie-hellman-group14-sha1",
		"diffie-hellman-group1-sha1",
	}
	legacyCiphers = []string{
		"aes128-gcm@openssh.com", "aes128-ctr", "aes192-ctr", "aes256-ctr",
		"aes128-cbc", "3des-cbc",
	}
)

// clientConfig builds the SSH client configuration for one login.
func (t *Terminal) clientConfig(user, pass string) (*ssh.ClientConfig, error) {
	hostKeys := ssh.InsecureIgnoreHostKey()
	if t.opts.KnownHostsFile != "" {
		cb, err := knownhosts.New(t.opts.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("loading known hosts %s: %w", t.opts.KnownHostsFile, err)
		}
		hostKeys = cb
	}

	config := &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{
			ssh.Password(pass),
			// IOS often offers keyboard-interactive only.
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = pass
				}
				return answers, nil
			}),
		},
		HostKeyCallback: hostKeys,
		ClientVersion:   version.UserAgent(),
		Timeout:         t.opts.connectTimeout(),
	}
	if t.opts.LegacyAlgorithms {
		config.KeyExchanges = legacyKeyExchanges
		config.Ciphers = legacyCiphers
	}
	return config, nil
}

// sshHandshake runs the SSH handshake over an already dialled conn. The conn
// is closed on failure. Tunnelled channels ignore deadlines, so the
// handshake is bounded by the connect timeout and ctx instead.
func (t *Terminal) sshHandshake(ctx context.Context, conn net.Conn, addr, user, pass string) (*ssh.Client, error) {
	config, err := t.clientConfig(user, pass)
	if err != nil {
		conn.Close()
		return nil, err
	}

	type result struct {
		conn  ssh.Conn
		chans <-chan ssh.NewChannel
		reqs  <-chan *ssh.Request
		err   error
	}
	done := make(chan result, 1)
	go func() {
		c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
		done <- result{c, chans, reqs, err}
	}()

	timer := time.NewTimer(t.opts.connectTimeout())
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err != nil {
			conn.Close()
			return nil, fmt.Errorf("SSH handshake with %s: %w", addr, r.err)
		}
		return ssh.NewClient(r.conn, r.chans, r.reqs), nil
	case <-timer.C:
		conn.Close()
		return nil, fmt.Errorf("SSH handshake with %s: timed out after %s", addr, t.opts.connectTimeout())
	case <-ctx.Done():
		conn.Close()
		return nil, ctx.Err()
	}
}

// openShell requests a PTY and an interactive shell on client. The client is
// closed together with the returned shell.
func (t *Terminal) openShell(host string, client *ssh.Client) (*shell, error) {
	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("SSH session on %s: %w", host, err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("vt100", 24, 511, modes); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("requesting PTY on %s: %w", host, err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("SSH stdin on %s: %w", host, err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("SSH stdout on %s: %w", host, err)
	}

	if err := session.Shell(); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("starting shell on %s: %w", host, err)
	}

	closer := func() error {
		session.Close()
		return client.Close()
	}
	return newShell(host, stdout, stdin, "\n", t.opts.commandTimeout(), closer), nil
}
